package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mussels-build/mussels/internal/log"
	"github.com/mussels-build/mussels/internal/registry"
)

var cookbookCmd = &cobra.Command{
	Use:   "cookbook",
	Short: "Manage registered cookbooks",
}

func init() {
	cookbookCmd.AddCommand(
		cookbookListCmd,
		cookbookShowCmd,
		cookbookUpdateCmd,
		cookbookTrustCmd,
		cookbookAddCmd,
		cookbookRemoveCmd,
	)
}

var cookbookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered cookbooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTRUSTED\tRECIPES\tTOOLS\tURL")
		for _, e := range a.reg.List() {
			fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%s\n", e.Name, e.Trusted, e.Recipes, e.Tools, e.URL)
		}
		return w.Flush()
	},
}

var cookbookShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a cookbook's registry entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		e, ok := a.reg.Show(args[0])
		if !ok {
			return fmt.Errorf("unknown cookbook %q", args[0])
		}
		fmt.Printf("name:    %s\n", e.Name)
		fmt.Printf("url:     %s\n", e.URL)
		fmt.Printf("path:    %s\n", e.Path)
		fmt.Printf("trusted: %v\n", e.Trusted)
		fmt.Printf("author:  %s\n", e.Author)
		fmt.Printf("recipes: %d\n", e.Recipes)
		fmt.Printf("tools:   %d\n", e.Tools)
		return nil
	},
}

var cookbookUpdateAll bool

var cookbookUpdateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Clone or fast-forward-pull registered cookbooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if len(args) == 1 && !cookbookUpdateAll {
			return registry.UpdateOne(a.reg, args[0], log.Default())
		}
		var failed bool
		for _, err := range registry.Update(a.reg, log.Default()) {
			printError(err)
			failed = true
		}
		if failed {
			return fmt.Errorf("one or more cookbooks failed to update")
		}
		return nil
	},
}

func init() {
	cookbookUpdateCmd.Flags().BoolVarP(&cookbookUpdateAll, "all", "a", false, "Update every registered cookbook")
}

var cookbookTrustCmd = &cobra.Command{
	Use:   "trust <name>",
	Short: "Mark a registered cookbook as trusted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.reg.Trust(args[0]); err != nil {
			return err
		}
		return a.reg.Save()
	},
}

var (
	cookbookAddURL     string
	cookbookAddAuthor  string
	cookbookAddTrusted bool
)

var cookbookAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a new cookbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		a.reg.Add(args[0], cookbookAddURL, cookbookAddAuthor, cookbookAddTrusted, a.ws.CookbooksDir)
		return a.reg.Save()
	},
}

func init() {
	cookbookAddCmd.Flags().StringVar(&cookbookAddURL, "url", "", "Git URL to clone")
	cookbookAddCmd.Flags().StringVar(&cookbookAddAuthor, "author", "", "Cookbook author")
	cookbookAddCmd.Flags().BoolVar(&cookbookAddTrusted, "trust", false, "Trust the cookbook immediately")
}

var cookbookRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Unregister a cookbook (leaves its checkout on disk)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if !a.reg.Remove(args[0]) {
			return fmt.Errorf("unknown cookbook %q", args[0])
		}
		return a.reg.Save()
	},
}
