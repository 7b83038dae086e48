package main

import (
	"fmt"
	"os"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/errmsg"
	"github.com/mussels-build/mussels/internal/log"
	"github.com/mussels-build/mussels/internal/registry"
	"github.com/mussels-build/mussels/internal/workspace"
)

// app bundles the objects every command needs: the workspace layout and the
// cookbook registry. The merged catalog index is built separately, on
// demand, by loadIndex.
type app struct {
	ws  *workspace.Workspace
	reg *registry.Registry
}

// newApp resolves the workspace and loads the cookbook registry, creating
// the data directory layout on first run (spec.md §4.9).
func newApp() (*app, error) {
	ws, err := workspace.New()
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}
	if err := ws.EnsureDirectories(); err != nil {
		return nil, err
	}
	reg, err := registry.Load(ws.RegistryFile, ws.CookbooksDir)
	if err != nil {
		return nil, fmt.Errorf("loading cookbook registry: %w", err)
	}
	return &app{ws: ws, reg: reg}, nil
}

// loadIndex walks every registered cookbook checkout plus the local
// cookbook (the current working directory, spec.md §3's reserved "local"
// name) and builds the merged sorted index (spec.md §4.3).
func (a *app) loadIndex() (*catalog.Index, error) {
	var cats []*catalog.Catalog

	for _, e := range a.reg.List() {
		if _, err := os.Stat(e.Path); err != nil {
			continue // not cloned yet; `cookbook update` fetches it
		}
		cat, err := catalog.LoadCookbook(e.Path, e.Name, log.Default())
		if err != nil {
			return nil, fmt.Errorf("loading cookbook %q: %w", e.Name, err)
		}
		a.reg.SetCounts(e.Name, len(cat.Recipes), len(cat.Tools))
		cats = append(cats, cat)
	}

	cwd, err := os.Getwd()
	if err == nil {
		if local, err := catalog.LoadCookbook(cwd, catalog.LocalCookbookName, log.Default()); err == nil {
			cats = append(cats, local)
		}
	}

	merged := catalog.Merge(cats...)
	return catalog.BuildIndex(merged), nil
}

// printError formats err with errmsg's actionable-suggestion formatter and
// writes it to stderr.
func printError(err error) {
	fmt.Fprintln(os.Stderr, errmsg.Format(err, nil))
}

func printErrorFor(err error, itemName string) {
	fmt.Fprintln(os.Stderr, errmsg.Format(err, &errmsg.ErrorContext{ItemName: itemName}))
}
