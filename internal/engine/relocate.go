package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mussels-build/mussels/internal/fsutil"
	"github.com/mussels-build/mussels/internal/muserrors"
)

// relocate copies each install_paths entry's glob matches from buildDir into
// <install>/<target>/<dest>/<basename> (spec.md §4.8 "Relocate"). Keys are
// iterated in sorted order for deterministic logging; every match within a
// key is copied regardless of order.
func (rc *recipeContext) relocate(buildDir string) error {
	paths := rc.node.Variant.InstallPaths
	if len(paths) == 0 {
		return nil
	}

	dests := make([]string, 0, len(paths))
	for dest := range paths {
		dests = append(dests, dest)
	}
	sort.Strings(dests)

	targetDir := rc.engine.Workspace.InstallTargetDir(rc.engine.Target)

	for _, dest := range dests {
		destDir := filepath.Join(targetDir, dest)
		for _, pattern := range paths[dest] {
			matches, err := fsutil.ExpandInstallGlobs(buildDir, pattern)
			if err != nil {
				return &muserrors.InstallPathMissing{Pattern: pattern}
			}
			if len(matches) == 0 {
				return &muserrors.InstallPathMissing{Pattern: pattern}
			}
			for _, match := range matches {
				if err := relocateOne(match, destDir); err != nil {
					return &muserrors.InstallPathMissing{Pattern: pattern}
				}
			}
		}
	}

	rc.engine.Logger.Info("staged install artifacts", "recipe", rc.node.Name, "target", rc.engine.Target)
	return nil
}

// relocateOne copies one matched source (file or directory) into destDir,
// replacing any artifact already there from a prior build.
func relocateOne(src, destDir string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	dst := filepath.Join(destDir, filepath.Base(src))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating install destination: %w", err)
	}
	os.RemoveAll(dst)

	if info.IsDir() {
		return fsutil.CopyDirectory(src, dst)
	}
	return fsutil.CopyFile(src, dst, info.Mode())
}
