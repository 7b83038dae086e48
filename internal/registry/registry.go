// Package registry persists the list of known cookbooks (spec.md §4.4): their
// URLs, local checkout paths, and trust flags, and drives the git
// clone/fast-forward-pull collaborator that keeps checkouts current.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mussels-build/mussels/internal/catalog"
)

// Entry is one cookbook registry record (spec.md §3 "Cookbook registry
// entry").
type Entry struct {
	Name    string `json:"-"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path"`
	Trusted bool   `json:"trusted"`
	Author  string `json:"author,omitempty"`
	Recipes int    `json:"recipes"`
	Tools   int    `json:"tools"`
}

// Registry is the in-memory, JSON-backed document described by spec.md §6
// ("Cookbook registry file"): `{cookbook_name: {url, path, trusted, author?,
// recipes, tools}}`.
type Registry struct {
	path    string
	entries map[string]*Entry
}

// seedCookbooks is the built-in catalog of well-known cookbooks written into
// a fresh registry.json the first time one doesn't exist yet, grounded on
// the original project's bookshelf module (SPEC_FULL.md §C.1).
var seedCookbooks = []Entry{
	{Name: "mussels-recipes", URL: "https://github.com/Cisco-Talos/mussels-recipes.git", Trusted: true, Author: "Cisco Talos"},
	{Name: "clamav-recipes", URL: "https://github.com/Cisco-Talos/clamav-faq.git", Trusted: false, Author: "Cisco Talos"},
}

// Load reads the registry document at path, seeding it with the built-in
// cookbook list if the file does not yet exist. cookbooksDir is used to
// compute each entry's local checkout path when not already recorded.
func Load(path, cookbooksDir string) (*Registry, error) {
	r := &Registry{path: path, entries: make(map[string]*Entry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		for _, seed := range seedCookbooks {
			e := seed
			e.Path = filepath.Join(cookbooksDir, e.Name)
			r.entries[e.Name] = &e
		}
		return r, r.Save()
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}

	var raw map[string]*Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing registry file: %w", err)
	}
	for name, e := range raw {
		e.Name = name
		r.entries[name] = e
	}
	return r, nil
}

// Save writes the registry atomically: write to a temp file in the same
// directory, then rename over the target (spec.md §5 "Cookbook registry
// mutations are written atomically"). Per spec.md §7, a failure here is
// logged and non-fatal — the caller decides whether to surface it.
func (r *Registry) Save() error {
	out := make(map[string]*Entry, len(r.entries))
	for name, e := range r.entries {
		out[name] = e
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cookbooks-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp registry file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp registry file: %w", err)
	}
	return nil
}

// List returns every entry, sorted by name.
func (r *Registry) List() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Show returns the named entry.
func (r *Registry) Show(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Add upserts a cookbook entry.
func (r *Registry) Add(name, url, author string, trusted bool, cookbooksDir string) *Entry {
	e := &Entry{
		Name:    name,
		URL:     url,
		Path:    filepath.Join(cookbooksDir, name),
		Trusted: trusted,
		Author:  author,
	}
	r.entries[name] = e
	return e
}

// Remove deletes a cookbook entry. It does not remove the checkout on disk.
func (r *Registry) Remove(name string) bool {
	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	return true
}

// Trust marks a cookbook as trusted (spec.md §4.4). Building from an
// untrusted cookbook is a hard error enforced elsewhere (selector/engine).
func (r *Registry) Trust(name string) error {
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("unknown cookbook %q", name)
	}
	e.Trusted = true
	return nil
}

// IsTrusted reports whether a cookbook name is trusted. The reserved "local"
// name is always trusted (spec.md §3).
func (r *Registry) IsTrusted(name string) bool {
	if name == catalog.LocalCookbookName {
		return true
	}
	e, ok := r.entries[name]
	return ok && e.Trusted
}

// SetCounts records the recipe/tool counts discovered for a cookbook by the
// most recent catalog load, for `cookbook show`.
func (r *Registry) SetCounts(name string, recipes, tools int) {
	if e, ok := r.entries[name]; ok {
		e.Recipes = recipes
		e.Tools = tools
	}
}
