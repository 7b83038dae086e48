package main

import (
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached downloads, staged installs, or logs",
}

func init() {
	cleanCmd.AddCommand(
		cleanCacheCmd,
		cleanInstallCmd,
		cleanLogsCmd,
		cleanAllCmd,
	)
}

var cleanCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Remove downloaded archives and extracted source trees",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.ws.CleanCache()
	},
}

var cleanInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Remove the staged install tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.ws.CleanInstall()
	},
}

var cleanLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Remove per-recipe build logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.ws.CleanLogs()
	},
}

var cleanAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Remove cache, install tree, and logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.ws.CleanAll()
	},
}
