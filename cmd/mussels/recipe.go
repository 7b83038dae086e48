package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/platform"
	"github.com/mussels-build/mussels/internal/version"
)

var recipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "Inspect and build recipes",
}

func init() {
	recipeCmd.AddCommand(recipeListCmd, recipeShowCmd, recipeCloneCmd, recipeBuildCmd)
}

var recipeListAll bool

var recipeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every recipe in the merged index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		idx, err := a.loadIndex()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(idx.Recipes))
		for name := range idx.Recipes {
			names = append(names, name)
		}
		sort.Strings(names)
		hostOS := platform.HostOS()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSIONS")
		for _, name := range names {
			visible := filterVisibleVersions(idx, name, idx.Recipes[name], a.reg, hostOS, recipeListAll)
			if len(visible) == 0 {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", name, joinVersions(visible))
		}
		return w.Flush()
	},
}

func init() {
	recipeListCmd.Flags().BoolVarP(&recipeListAll, "all", "a", false, "Include cross-platform and untrusted entries")
}

// filterVisibleVersions trims versions down to the ones that have at least
// one cookbook which is trusted (or the reserved "local" cookbook, spec.md
// §3) and declares a variant matching hostOS, unless all is set, in which
// case every version passes through unfiltered (spec.md §6 "recipe list -a").
func filterVisibleVersions(idx *catalog.Index, name string, versions []*catalog.SortedVersion, reg trustChecker, hostOS string, all bool) []*catalog.SortedVersion {
	if all {
		return versions
	}
	out := make([]*catalog.SortedVersion, 0, len(versions))
	for _, sv := range versions {
		for cookbookName := range sv.Cookbooks {
			if cookbookName != catalog.LocalCookbookName && !reg.IsTrusted(cookbookName) {
				continue
			}
			rec, ok := idx.Lookup(name, sv.Version, cookbookName)
			if !ok {
				continue
			}
			if recipeHasHostVariant(rec, hostOS) {
				out = append(out, sv)
				break
			}
		}
	}
	return out
}

// recipeHasHostVariant reports whether rec declares any platform tag
// matching hostOS (spec.md §4.2).
func recipeHasHostVariant(rec *catalog.Recipe, hostOS string) bool {
	for tag := range rec.Platforms {
		if platform.Matches(tag, hostOS) {
			return true
		}
	}
	return false
}

type trustChecker interface {
	IsTrusted(name string) bool
}

var recipeShowOpts buildOptions

var recipeShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a recipe's resolved definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ref, err := a.resolveRootReference(args[0], recipeShowOpts)
		if err != nil {
			return err
		}
		idx, err := a.loadIndex()
		if err != nil {
			return err
		}

		ver := ref.Version
		if ver == "" {
			versions, ok := idx.Recipes[ref.Name]
			if !ok || len(versions) == 0 {
				return fmt.Errorf("no such recipe %q", ref.Name)
			}
			ver = versions[0].Version
		}
		rec, ok := idx.Lookup(ref.Name, ver, ref.Cookbook)
		if !ok {
			return fmt.Errorf("no such recipe %s==%s in cookbook %q", ref.Name, ver, ref.Cookbook)
		}
		fmt.Printf("name:     %s\n", rec.Name)
		fmt.Printf("version:  %s\n", rec.Version)
		fmt.Printf("kind:     %s\n", rec.Kind)
		fmt.Printf("cookbook: %s\n", rec.Cookbook)
		fmt.Printf("source:   %s\n", rec.SourceURL)
		fmt.Printf("file:     %s\n", rec.OriginFile)
		return nil
	},
}

func init() {
	addBuildFlags(recipeShowCmd, &recipeShowOpts)
}

var recipeCloneOpts buildOptions

// recipeCloneCmd copies a recipe's YAML definition into the current working
// directory's local cookbook, the escape hatch spec.md §4.4 describes for an
// untrusted cookbook ("clone the single needed recipe into the local
// directory").
var recipeCloneCmd = &cobra.Command{
	Use:   "clone <name>",
	Short: "Copy a recipe's definition into the local cookbook",
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
		if recipeCloneOpts.cookbook != "" {
			ref.Cookbook = recipeCloneOpts.cookbook
		}

		idx, err := a.loadIndex()
		if err != nil {
			return err
		}
		ver := ref.Version
		if ver == "" {
			versions, ok := idx.Recipes[ref.Name]
			if !ok || len(versions) == 0 {
				return fmt.Errorf("no such recipe %q", ref.Name)
			}
			ver = versions[0].Version
		}
		rec, ok := idx.Lookup(ref.Name, ver, ref.Cookbook)
		if !ok {
			return fmt.Errorf("no such recipe %s==%s in cookbook %q", ref.Name, ver, ref.Cookbook)
		}
		if rec.OriginFile == "" {
			return fmt.Errorf("recipe %s has no origin file to clone", ref.Name)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dest := filepath.Join(cwd, filepath.Base(rec.OriginFile))
		if err := copyFile(rec.OriginFile, dest); err != nil {
			return fmt.Errorf("cloning recipe: %w", err)
		}
		fmt.Printf("cloned %s to %s\n", rec.OriginFile, dest)
		return nil
	},
}

func init() {
	recipeCloneCmd.Flags().StringVarP(&recipeCloneOpts.cookbook, "cookbook", "c", "", "Source cookbook")
}

var recipeBuildOpts buildOptions

var recipeBuildCmd = &cobra.Command{
	Use:   "build <name>",
	Short: "Resolve and build a recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(globalCtx, args[0], recipeBuildOpts)
	},
}

func init() {
	addBuildFlags(recipeBuildCmd, &recipeBuildOpts)
}

func joinVersions(versions []*catalog.SortedVersion) string {
	out := ""
	for i, v := range versions {
		if i > 0 {
			out += ", "
		}
		out += v.Version
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
