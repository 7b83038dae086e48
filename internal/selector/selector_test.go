package selector

import (
	"testing"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/version"
)

func buildTestIndex(t *testing.T) *catalog.Index {
	t.Helper()
	cat := &catalog.Catalog{
		Recipes: []*catalog.Recipe{
			{
				Name: "lib", Version: "1.0", Cookbook: "local",
				Type: catalog.FileTypeRecipe, Kind: catalog.KindLeaf, MusselsVersion: 0.1,
				SourceURL: "https://example.com/lib-1.0.tar.gz",
				Platforms: map[string]map[string]catalog.Variant{
					"linux": {"host": {}},
				},
			},
			{
				Name: "lib", Version: "1.1", Cookbook: "local",
				Type: catalog.FileTypeRecipe, Kind: catalog.KindLeaf, MusselsVersion: 0.1,
				SourceURL: "https://example.com/lib-1.1.tar.gz",
				Platforms: map[string]map[string]catalog.Variant{
					"linux": {"host": {}},
				},
			},
			{
				Name: "lib", Version: "2.0", Cookbook: "local",
				Type: catalog.FileTypeRecipe, Kind: catalog.KindLeaf, MusselsVersion: 0.1,
				SourceURL: "https://example.com/lib-2.0.tar.gz",
				Platforms: map[string]map[string]catalog.Variant{
					"linux": {"host": {}},
				},
			},
		},
	}
	return catalog.BuildIndex(cat)
}

func TestSelectRecipe_ConstraintPrunesIndex(t *testing.T) {
	idx := buildTestIndex(t)
	ref, err := version.ParseReference("lib<2.0")
	if err != nil {
		t.Fatal(err)
	}

	res, err := SelectRecipe(idx, Request{Ref: ref, Target: "host", HostOS: "linux"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Version != "1.1" {
		t.Fatalf("expected 1.1, got %s", res.Version)
	}

	versions := catalog.VersionStrings(res.Index.Recipes["lib"])
	if len(versions) != 2 || versions[0] != "1.1" || versions[1] != "1.0" {
		t.Fatalf("expected pruned index to contain [1.1 1.0], got %v", versions)
	}

	// Original index is untouched (selector returns a snapshot, not a mutation).
	original := catalog.VersionStrings(idx.Recipes["lib"])
	if len(original) != 3 {
		t.Fatalf("expected original index unchanged, got %v", original)
	}
}

func TestSelectRecipe_UnknownItem(t *testing.T) {
	idx := buildTestIndex(t)
	ref, _ := version.ParseReference("nonexistent")
	if _, err := SelectRecipe(idx, Request{Ref: ref, Target: "host", HostOS: "linux"}); err == nil {
		t.Fatal("expected UnknownItem error")
	}
}

func TestSelectRecipe_TargetNotSupported(t *testing.T) {
	idx := buildTestIndex(t)
	ref, _ := version.ParseReference("lib==1.0")
	if _, err := SelectRecipe(idx, Request{Ref: ref, Target: "x86", HostOS: "linux"}); err == nil {
		t.Fatal("expected an error for an unsupported target")
	}
}

// buildMultiCookbookIndex returns an index where three cookbooks each carry
// their own copy of lib==1.0, for exercising disambiguate's "local beats
// preferred beats any other" ordering (spec.md §4.5) plus the alphabetical
// tie-break.
func buildMultiCookbookIndex(t *testing.T) *catalog.Index {
	t.Helper()
	mk := func(cookbook string) *catalog.Recipe {
		return &catalog.Recipe{
			Name: "lib", Version: "1.0", Cookbook: cookbook,
			Type: catalog.FileTypeRecipe, Kind: catalog.KindLeaf, MusselsVersion: 0.1,
			SourceURL: "https://example.com/lib-1.0.tar.gz",
			Platforms: map[string]map[string]catalog.Variant{
				"linux": {"host": {}},
			},
		}
	}
	cat := &catalog.Catalog{Recipes: []*catalog.Recipe{
		mk("local"), mk("preferred"), mk("zeta-other"), mk("alpha-other"),
	}}
	return catalog.BuildIndex(cat)
}

func TestSelectRecipe_Disambiguation_LocalBeatsEverything(t *testing.T) {
	idx := buildMultiCookbookIndex(t)
	ref, _ := version.ParseReference("lib==1.0")

	res, err := SelectRecipe(idx, Request{
		Ref: ref, Target: "host", HostOS: "linux", PreferredCookbook: "preferred",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Cookbook != "local" {
		t.Fatalf("expected local to win over preferred and other cookbooks, got %q", res.Cookbook)
	}
}

func TestSelectRecipe_Disambiguation_PreferredBeatsOther(t *testing.T) {
	idx := buildMultiCookbookIndex(t)
	ref, _ := version.ParseReference("lib==1.0")
	trust := fakeTrust{trusted: map[string]bool{"preferred": true, "zeta-other": true, "alpha-other": true}}

	res, err := SelectRecipe(idx, Request{
		Ref: ref, Target: "host", HostOS: "linux", PreferredCookbook: "preferred", Trust: trust,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Cookbook != "preferred" {
		t.Fatalf("expected preferred to win with local excluded, got %q", res.Cookbook)
	}
}

func TestSelectRecipe_Disambiguation_TiesBreakAlphabetically(t *testing.T) {
	idx := buildMultiCookbookIndex(t)
	ref, _ := version.ParseReference("lib==1.0")
	trust := fakeTrust{trusted: map[string]bool{"zeta-other": true, "alpha-other": true}}

	res, err := SelectRecipe(idx, Request{
		Ref: ref, Target: "host", HostOS: "linux", Trust: trust,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Cookbook != "alpha-other" {
		t.Fatalf("expected the alphabetically-first of two equally-ranked cookbooks, got %q", res.Cookbook)
	}
}

type fakeTrust struct{ trusted map[string]bool }

func (f fakeTrust) IsTrusted(name string) bool { return f.trusted[name] }

func TestSelectRecipe_TrustFilter(t *testing.T) {
	idx := buildTestIndex(t)
	ref, _ := version.ParseReference("lib==1.0")
	trust := fakeTrust{trusted: map[string]bool{}}

	if _, err := SelectRecipe(idx, Request{Ref: ref, Target: "host", HostOS: "linux", Trust: trust}); err == nil {
		t.Fatal("expected an error when local cookbook is excluded by trust filter")
	}

	trust.trusted["local"] = true
	if _, err := SelectRecipe(idx, Request{Ref: ref, Target: "host", HostOS: "linux", Trust: trust}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
