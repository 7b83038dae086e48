// Package fsutil holds filesystem helpers shared by the recipe engine's
// patch and relocate transitions: recursive directory copy (preserving
// symlinks) and install-path glob expansion.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyDirectory recursively copies src into dst, preserving symlinks.
func CopyDirectory(src, dst string) error {
	return CopyDirectoryExcluding(src, dst, "")
}

// CopyDirectoryExcluding recursively copies src into dst, preserving
// symlinks and skipping any directory named exclude. An empty exclude
// copies everything.
func CopyDirectoryExcluding(src, dst, exclude string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		if exclude != "" && info.IsDir() && info.Name() == exclude {
			return filepath.SkipDir
		}

		targetPath := filepath.Join(dst, relPath)

		linkInfo, err := os.Lstat(path)
		if err != nil {
			return err
		}
		if linkInfo.Mode()&os.ModeSymlink != 0 {
			return CopySymlink(path, targetPath)
		}
		if info.IsDir() {
			return os.MkdirAll(targetPath, info.Mode())
		}
		return CopyFile(path, targetPath, info.Mode())
	})
}

// CopySymlink recreates the symlink at src under dst, pointing at the same
// target.
func CopySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("reading symlink %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", dst, err)
	}
	os.Remove(dst)
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("creating symlink %s: %w", dst, err)
	}
	return nil
}

// CopyFile copies src to dst with the given permissions, creating dst's
// parent directory as needed.
func CopyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", dst, err)
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return os.Chmod(dst, mode)
}

// ExpandInstallGlobs resolves an install_paths glob pattern (relative to
// buildDir) to the absolute matching file paths. Patterns follow
// filepath.Glob syntax (spec.md §4.8 "Relocate").
func ExpandInstallGlobs(buildDir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(buildDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("expanding glob %q: %w", pattern, err)
	}
	return matches, nil
}
