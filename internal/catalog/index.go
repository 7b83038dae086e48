package catalog

import (
	"github.com/mussels-build/mussels/internal/version"
)

// SortedVersion is one version's cross-cookbook presence within the index
// (spec §3 "Sorted index").
type SortedVersion struct {
	Version string
	// Cookbooks maps cookbook name -> set of target tags that cookbook's
	// copy of this version supports (recipes only; empty for tools).
	Cookbooks map[string]map[string]bool
}

// Index holds the two in-memory sorted structures built from a Catalog.
type Index struct {
	Recipes map[string][]*SortedVersion // name -> versions, descending
	Tools   map[string][]*SortedVersion

	rawRecipes map[rawKey]*Recipe
	rawTools   map[rawKey]*Tool
}

type rawKey struct {
	name, version, cookbook string
}

// Lookup returns the raw recipe at an exact NVC, satisfying invariant I1:
// every recipe named in a SortedVersion.Cookbooks entry is present here.
func (idx *Index) Lookup(name, ver, cookbook string) (*Recipe, bool) {
	r, ok := idx.rawRecipes[rawKey{name, ver, cookbook}]
	return r, ok
}

// LookupTool returns the raw tool at an exact NVC.
func (idx *Index) LookupTool(name, ver, cookbook string) (*Tool, bool) {
	t, ok := idx.rawTools[rawKey{name, ver, cookbook}]
	return t, ok
}

// Clone returns a deep-enough copy of the index so a selector can prune its
// own snapshot without mutating a shared one (spec §9's persistent-index
// redesign note; SPEC_FULL.md Open Question (a) context).
func (idx *Index) Clone() *Index {
	clone := &Index{
		Recipes:    make(map[string][]*SortedVersion, len(idx.Recipes)),
		Tools:      make(map[string][]*SortedVersion, len(idx.Tools)),
		rawRecipes: idx.rawRecipes, // immutable raw catalog, safe to share
		rawTools:   idx.rawTools,
	}
	for name, versions := range idx.Recipes {
		clone.Recipes[name] = append([]*SortedVersion(nil), versions...)
	}
	for name, versions := range idx.Tools {
		clone.Tools[name] = append([]*SortedVersion(nil), versions...)
	}
	return clone
}

// BuildIndex constructs the sorted recipe/tool index from a merged Catalog.
// Per spec §4.3, when the same (name, version) is provided by multiple
// cookbooks both entries are kept — SortedVersion.Cookbooks enumerates all
// of them.
func BuildIndex(cat *Catalog) *Index {
	idx := &Index{
		Recipes:    make(map[string][]*SortedVersion),
		Tools:      make(map[string][]*SortedVersion),
		rawRecipes: make(map[rawKey]*Recipe),
		rawTools:   make(map[rawKey]*Tool),
	}

	for _, r := range cat.Recipes {
		idx.rawRecipes[rawKey{r.Name, r.Version, r.Cookbook}] = r
		sv := findOrAddVersion(idx.Recipes, r.Name, r.Version)
		if sv.Cookbooks == nil {
			sv.Cookbooks = make(map[string]map[string]bool)
		}
		targets := sv.Cookbooks[r.Cookbook]
		if targets == nil {
			targets = make(map[string]bool)
			sv.Cookbooks[r.Cookbook] = targets
		}
		for _, archMap := range r.Platforms {
			for target := range archMap {
				targets[target] = true
			}
		}
	}

	for _, t := range cat.Tools {
		idx.rawTools[rawKey{t.Name, t.Version, t.Cookbook}] = t
		sv := findOrAddVersion(idx.Tools, t.Name, t.Version)
		if sv.Cookbooks == nil {
			sv.Cookbooks = make(map[string]map[string]bool)
		}
		if sv.Cookbooks[t.Cookbook] == nil {
			sv.Cookbooks[t.Cookbook] = make(map[string]bool)
		}
	}

	sortAll(idx.Recipes)
	sortAll(idx.Tools)
	return idx
}

func findOrAddVersion(byName map[string][]*SortedVersion, name, ver string) *SortedVersion {
	for _, sv := range byName[name] {
		if sv.Version == ver {
			return sv
		}
	}
	sv := &SortedVersion{Version: ver}
	byName[name] = append(byName[name], sv)
	return sv
}

func sortAll(byName map[string][]*SortedVersion) {
	for _, versions := range byName {
		// Insertion sort on the small per-name slice, descending by
		// version.Compare, mirroring version.SortDescending's approach but
		// operating on *SortedVersion rather than bare strings.
		for i := 1; i < len(versions); i++ {
			v := versions[i]
			j := i - 1
			for j >= 0 && version.Compare(versions[j].Version, v.Version) < 0 {
				versions[j+1] = versions[j]
				j--
			}
			versions[j+1] = v
		}
	}
}

// VersionStrings extracts the bare version strings from a descending
// []*SortedVersion list, for handing to version.Apply.
func VersionStrings(versions []*SortedVersion) []string {
	out := make([]string, len(versions))
	for i, sv := range versions {
		out[i] = sv.Version
	}
	return out
}
