package main

import (
	"github.com/spf13/cobra"
)

// Top-level aliases (spec.md §6): build, list and show forward to their
// recipe-namespace equivalents; update forwards to "cookbook update", since
// the recipe namespace has no update verb.

var buildAliasOpts buildOptions

var buildAliasCmd = &cobra.Command{
	Use:   "build <name>",
	Short: "Alias for \"recipe build\"",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(globalCtx, args[0], buildAliasOpts)
	},
}

func init() {
	addBuildFlags(buildAliasCmd, &buildAliasOpts)
}

var listAliasCmd = &cobra.Command{
	Use:   "list",
	Short: "Alias for \"recipe list\"",
	RunE:  recipeListCmd.RunE,
}

var showAliasOpts buildOptions

var showAliasCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Alias for \"recipe show\"",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipeShowOpts = showAliasOpts
		return recipeShowCmd.RunE(cmd, args)
	},
}

func init() {
	addBuildFlags(showAliasCmd, &showAliasOpts)
}

var updateAliasAll bool

var updateAliasCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Alias for \"cookbook update\"",
	RunE: func(cmd *cobra.Command, args []string) error {
		cookbookUpdateAll = updateAliasAll
		return cookbookUpdateCmd.RunE(cmd, args)
	},
}

func init() {
	updateAliasCmd.Flags().BoolVarP(&updateAliasAll, "all", "a", false, "Update every registered cookbook")
}
