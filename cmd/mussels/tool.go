package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/engine"
	"github.com/mussels-build/mussels/internal/platform"
	"github.com/mussels-build/mussels/internal/version"
)

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Inspect and probe tools",
}

func init() {
	toolCmd.AddCommand(toolListCmd, toolShowCmd, toolCloneCmd, toolCheckCmd)
}

var toolListAll bool

var toolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tool in the merged index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		idx, err := a.loadIndex()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(idx.Tools))
		for name := range idx.Tools {
			names = append(names, name)
		}
		sort.Strings(names)
		hostOS := platform.HostOS()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSIONS")
		for _, name := range names {
			visible := filterVisibleToolVersions(idx, name, idx.Tools[name], a.reg, hostOS, toolListAll)
			if len(visible) == 0 {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", name, joinVersions(visible))
		}
		return w.Flush()
	},
}

func init() {
	toolListCmd.Flags().BoolVarP(&toolListAll, "all", "a", false, "Include cross-platform and untrusted entries")
}

// filterVisibleToolVersions mirrors filterVisibleVersions (recipe.go) for
// tools: a version is visible by default only if some cookbook carrying it
// is trusted (or local) and declares a strategy for hostOS.
func filterVisibleToolVersions(idx *catalog.Index, name string, versions []*catalog.SortedVersion, reg trustChecker, hostOS string, all bool) []*catalog.SortedVersion {
	if all {
		return versions
	}
	out := make([]*catalog.SortedVersion, 0, len(versions))
	for _, sv := range versions {
		for cookbookName := range sv.Cookbooks {
			if cookbookName != catalog.LocalCookbookName && !reg.IsTrusted(cookbookName) {
				continue
			}
			tool, ok := idx.LookupTool(name, sv.Version, cookbookName)
			if !ok {
				continue
			}
			if _, ok := tool.Platforms[hostOS]; ok {
				out = append(out, sv)
				break
			}
		}
	}
	return out
}

var toolShowOpts buildOptions

var toolShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a tool's resolved definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ref, err := a.resolveRootReference(args[0], toolShowOpts)
		if err != nil {
			return err
		}
		idx, err := a.loadIndex()
		if err != nil {
			return err
		}
		tool, err := lookupTool(idx, ref)
		if err != nil {
			return err
		}
		fmt.Printf("name:     %s\n", tool.Name)
		fmt.Printf("version:  %s\n", tool.Version)
		fmt.Printf("cookbook: %s\n", tool.Cookbook)
		fmt.Printf("file:     %s\n", tool.OriginFile)
		for platformTag := range tool.Platforms {
			fmt.Printf("platform: %s\n", platformTag)
		}
		return nil
	},
}

func init() {
	addBuildFlags(toolShowCmd, &toolShowOpts)
}

var toolCloneOpts buildOptions

var toolCloneCmd = &cobra.Command{
	Use:   "clone <name>",
	Short: "Copy a tool's definition into the local cookbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ref, err := version.ParseReference(args[0])
		if err != nil {
			return err
		}
		if toolCloneOpts.cookbook != "" {
			ref.Cookbook = toolCloneOpts.cookbook
		}
		idx, err := a.loadIndex()
		if err != nil {
			return err
		}
		tool, err := lookupTool(idx, ref)
		if err != nil {
			return err
		}
		if tool.OriginFile == "" {
			return fmt.Errorf("tool %s has no origin file to clone", ref.Name)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dest := filepath.Join(cwd, filepath.Base(tool.OriginFile))
		if err := copyFile(tool.OriginFile, dest); err != nil {
			return fmt.Errorf("cloning tool: %w", err)
		}
		fmt.Printf("cloned %s to %s\n", tool.OriginFile, dest)
		return nil
	},
}

func init() {
	toolCloneCmd.Flags().StringVarP(&toolCloneOpts.cookbook, "cookbook", "c", "", "Source cookbook")
}

var toolCheckAll bool

var toolCheckCmd = &cobra.Command{
	Use:   "check [name]",
	Short: "Probe tool detection strategies on this host",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		idx, err := a.loadIndex()
		if err != nil {
			return err
		}
		hostOS := platform.HostOS()
		detector := engine.HostDetector{}

		names := args
		if len(names) == 0 {
			for name := range idx.Tools {
				names = append(names, name)
			}
			sort.Strings(names)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFOUND\tPATH")
		var anyMissing bool
		for _, name := range names {
			versions, ok := idx.Tools[name]
			if !ok || len(versions) == 0 {
				continue
			}
			found := false
			resolvedPath := ""
			for _, v := range versions {
				for cookbookName := range v.Cookbooks {
					tool, ok := idx.LookupTool(name, v.Version, cookbookName)
					if !ok {
						continue
					}
					declared := make([]string, 0, len(tool.Platforms))
					for tag := range tool.Platforms {
						declared = append(declared, tag)
					}
					best := platform.PickBest(declared, hostOS)
					if best == "" {
						continue
					}
					strategy := tool.Platforms[best]
					if ok, path := detector.Detect(strategy); ok {
						found, resolvedPath = true, path
						break
					}
				}
				if found {
					break
				}
			}
			if !found {
				anyMissing = true
			}
			fmt.Fprintf(w, "%s\t%v\t%s\n", name, found, resolvedPath)
		}
		w.Flush()
		if anyMissing && !toolCheckAll {
			return fmt.Errorf("one or more tools were not found on this host")
		}
		return nil
	},
}

func init() {
	toolCheckCmd.Flags().BoolVarP(&toolCheckAll, "all", "a", false, "Report every tool without failing on missing ones")
}

func lookupTool(idx *catalog.Index, ref version.Reference) (*catalog.Tool, error) {
	ver := ref.Version
	if ver == "" {
		versions, ok := idx.Tools[ref.Name]
		if !ok || len(versions) == 0 {
			return nil, fmt.Errorf("no such tool %q", ref.Name)
		}
		ver = versions[0].Version
	}
	tool, ok := idx.LookupTool(ref.Name, ver, ref.Cookbook)
	if !ok {
		return nil, fmt.Errorf("no such tool %s==%s in cookbook %q", ref.Name, ver, ref.Cookbook)
	}
	return tool, nil
}
