package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mussels-build/mussels/internal/fsutil"
	"github.com/mussels-build/mussels/internal/muserrors"
)

const patchedSentinel = "_mussels.patched"

// patch applies a recipe's patches_subdir against buildDir, skipping
// entirely if there is no patches_subdir declared, or if the sentinel file
// from a prior successful run is already present (spec.md §4.8 "Patch").
func (rc *recipeContext) patch(buildDir string) error {
	subdir := rc.node.Variant.PatchesSubdir
	if subdir == "" {
		return nil
	}

	sentinelPath := filepath.Join(buildDir, patchedSentinel)
	if _, err := os.Stat(sentinelPath); err == nil {
		rc.engine.Logger.Info("patches applied", "recipe", rc.node.Name, "sentinel", sentinelPath)
		return nil
	}

	patchesDir := filepath.Join(filepath.Dir(rc.node.Recipe.OriginFile), subdir)
	entries, err := os.ReadDir(patchesDir)
	if err != nil {
		return &muserrors.PatchFailed{Patch: patchesDir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		src := filepath.Join(patchesDir, name)
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".diff") || strings.HasSuffix(lower, ".patch") {
			if err := applyPatchFile(buildDir, src, 1); err != nil {
				return &muserrors.PatchFailed{Patch: name, Err: err}
			}
		} else {
			dst := filepath.Join(buildDir, name)
			if err := fsutil.CopyFile(src, dst, 0o644); err != nil {
				return &muserrors.PatchFailed{Patch: name, Err: err}
			}
		}
	}

	if err := os.WriteFile(sentinelPath, nil, 0o644); err != nil {
		return &muserrors.PatchFailed{Patch: patchesDir, Err: err}
	}
	return nil
}

// applyPatchFile shells out to the system patch utility, rooted at
// buildDir, at the given -p strip level.
func applyPatchFile(buildDir, patchPath string, strip int) error {
	patchBin, err := exec.LookPath("patch")
	if err != nil {
		return fmt.Errorf("patch command not found on PATH: %w", err)
	}

	content, err := os.ReadFile(patchPath)
	if err != nil {
		return fmt.Errorf("reading patch file: %w", err)
	}

	cmd := exec.Command(patchBin, "-p", fmt.Sprintf("%d", strip), "--batch")
	cmd.Dir = buildDir
	cmd.Stdin = strings.NewReader(string(content))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("patch failed: %w\noutput: %s", err, output)
	}
	return nil
}
