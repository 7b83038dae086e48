package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mussels-build/mussels/internal/errmsg"
	"github.com/mussels-build/mussels/internal/log"
)

var verboseFlag bool

// globalCtx is canceled on SIGINT/SIGTERM; build commands thread it through
// to the engine's fetch/run subprocess calls.
var globalCtx context.Context
var globalCancel context.CancelFunc

var rootCmd = &cobra.Command{
	Use:   "mussels",
	Short: "A cross-platform dependency builder",
	Long: `mussels downloads source archives for native libraries and
applications, patches and builds each in the right order for a given host
platform and target architecture, and stages the results into a layered
install tree that downstream consumers can link against.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "V", false, "Show operational context (INFO level)")
	rootCmd.PersistentPreRun = initLogger

	// main prints each returned error once through errmsg's actionable
	// formatting, so cobra's default "Error: ..." and usage dump would
	// just repeat it (spec.md §6: exit code is the only contract).
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(cookbookCmd)
	rootCmd.AddCommand(recipeCmd)
	rootCmd.AddCommand(toolCmd)
	rootCmd.AddCommand(cleanCmd)

	// Top-level aliases (spec.md §6): build, list and show forward to their
	// recipe equivalents, update to "cookbook update".
	rootCmd.AddCommand(buildAliasCmd)
	rootCmd.AddCommand(listAliasCmd)
	rootCmd.AddCommand(showAliasCmd)
	rootCmd.AddCommand(updateAliasCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived %s, canceling build...\n", sig)
		globalCancel()
		<-sigChan
		fmt.Fprintln(os.Stderr, "Forced exit")
		exitWithCode(ExitGeneral)
	}()

	if err := rootCmd.Execute(); err != nil {
		if globalCtx.Err() == context.Canceled {
			exitWithCode(ExitGeneral)
		}
		fmt.Fprintln(os.Stderr, errmsg.Format(err, nil))
		exitWithCode(ExitGeneral)
	}
}

func initLogger(cmd *cobra.Command, args []string) {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	log.SetDefault(log.New(handler))
}
