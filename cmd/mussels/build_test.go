package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/mussels-build/mussels/internal/muserrors"
	"github.com/mussels-build/mussels/internal/registry"
)

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	reg, err := registry.Load(filepath.Join(dir, "cookbooks.json"), filepath.Join(dir, "cookbooks"))
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return &app{reg: reg}
}

func TestResolveRootReference_UntrustedCookbookRefused(t *testing.T) {
	a := testApp(t)

	_, err := a.resolveRootReference("shady:openssl", buildOptions{})
	var untrusted *muserrors.UntrustedCookbook
	if !errors.As(err, &untrusted) {
		t.Fatalf("expected *muserrors.UntrustedCookbook, got %v", err)
	}
	if untrusted.Cookbook != "shady" {
		t.Errorf("Cookbook = %q, want %q", untrusted.Cookbook, "shady")
	}
}

func TestResolveRootReference_TrustedCookbookPasses(t *testing.T) {
	a := testApp(t)

	ref, err := a.resolveRootReference("mussels-recipes:openssl", buildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Name != "openssl" || ref.Cookbook != "mussels-recipes" {
		t.Errorf("got ref %+v", ref)
	}
}

func TestResolveRootReference_NoCookbookSkipsTrustCheck(t *testing.T) {
	a := testApp(t)

	ref, err := a.resolveRootReference("openssl", buildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Cookbook != "" {
		t.Errorf("Cookbook = %q, want empty", ref.Cookbook)
	}
}

func TestResolveRootReference_CookbookFlagOverridesReference(t *testing.T) {
	a := testApp(t)

	_, err := a.resolveRootReference("mussels-recipes:openssl", buildOptions{cookbook: "shady"})
	var untrusted *muserrors.UntrustedCookbook
	if !errors.As(err, &untrusted) {
		t.Fatalf("expected *muserrors.UntrustedCookbook, got %v", err)
	}
}

func TestResolveRootReference_VersionConstraintApplied(t *testing.T) {
	a := testApp(t)

	ref, err := a.resolveRootReference("openssl", buildOptions{versionConstraint: ">=1.2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Version != "1.2" {
		t.Errorf("Version = %q, want %q", ref.Version, "1.2")
	}
}
