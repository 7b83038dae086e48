// Package muserrors defines the typed error taxonomy shared across
// Mussels' components (spec.md §7): definition errors (recipe skipped,
// build continues), resolution errors (plan aborted), environment errors
// (abort before any recipe runs), and execution errors (recipe marked
// Failed, later recipes skipped).
package muserrors

import "fmt"

// MalformedRecipe is a definition error: a catalog file failed validation
// and was skipped. Non-fatal to the overall load.
type MalformedRecipe struct {
	Path   string
	Reason string
}

func (e *MalformedRecipe) Error() string {
	return fmt.Sprintf("malformed recipe %s: %s", e.Path, e.Reason)
}

// UnsupportedMusselsVersion is a definition error: a file's mussels_version
// is below the minimum this build understands.
type UnsupportedMusselsVersion struct {
	Path    string
	Version float64
	Minimum float64
}

func (e *UnsupportedMusselsVersion) Error() string {
	return fmt.Sprintf("unsupported mussels_version %.2f in %s (minimum %.2f)", e.Version, e.Path, e.Minimum)
}

// UnknownItem is a resolution error: an item reference does not name
// anything in the index.
type UnknownItem struct {
	Reference string
}

func (e *UnknownItem) Error() string {
	return fmt.Sprintf("unknown item %q", e.Reference)
}

// UnsatisfiedVersionConstraint is a resolution error: the constraint in a
// reference pruned every candidate version.
type UnsatisfiedVersionConstraint struct {
	Name       string
	Constraint string
}

func (e *UnsatisfiedVersionConstraint) Error() string {
	return fmt.Sprintf("no version of %q satisfies %s", e.Name, e.Constraint)
}

// NoCompatibleCookbook is a resolution error: every cookbook offering the
// selected version is ineligible (wrong cookbook, unsupported target).
type NoCompatibleCookbook struct {
	Name, Version string
}

func (e *NoCompatibleCookbook) Error() string {
	return fmt.Sprintf("no compatible cookbook provides %s==%s for this platform", e.Name, e.Version)
}

// TargetNotSupported is a resolution error: a recipe's host platform is
// matched but the requested target architecture is not declared.
type TargetNotSupported struct {
	Name, Version, Target string
}

func (e *TargetNotSupported) Error() string {
	return fmt.Sprintf("%s==%s does not support target %q", e.Name, e.Version, e.Target)
}

// CycleDetected is a resolution error: a name reappeared in the active
// dependency stack.
type CycleDetected struct {
	Cycle []string
}

func (e *CycleDetected) Error() string {
	return fmt.Sprintf("dependency cycle detected: %v", e.Cycle)
}

// ConflictingVersions is a resolution error (Open Question (a)): two
// different versions of the same bare name were both pulled into one plan.
type ConflictingVersions struct {
	Name          string
	First, Second string
}

func (e *ConflictingVersions) Error() string {
	return fmt.Sprintf("conflicting versions of %q in plan: %s and %s", e.Name, e.First, e.Second)
}

// UntrustedCookbook is a resolution/environment error: the engine refuses
// to build from a cookbook that has not been marked trusted.
type UntrustedCookbook struct {
	Cookbook string
}

func (e *UntrustedCookbook) Error() string {
	return fmt.Sprintf("cookbook %q is not trusted", e.Cookbook)
}

// ToolMissing is an environment error: no version of a required tool could
// be detected on the host after exhausting alternatives.
type ToolMissing struct {
	Name string
}

func (e *ToolMissing) Error() string {
	return fmt.Sprintf("required tool %q not found", e.Name)
}

// FetchFailed is an execution error: downloading a recipe's archive failed.
type FetchFailed struct {
	URL string
	Err error
}

func (e *FetchFailed) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Err)
}

func (e *FetchFailed) Unwrap() error { return e.Err }

// UnsupportedArchive is an execution error: the archive's extension isn't
// one of the supported formats.
type UnsupportedArchive struct {
	Filename string
}

func (e *UnsupportedArchive) Error() string {
	return fmt.Sprintf("unsupported archive format: %s", e.Filename)
}

// ExtractFailed is an execution error: archive extraction failed.
type ExtractFailed struct {
	Filename string
	Err      error
}

func (e *ExtractFailed) Error() string {
	return fmt.Sprintf("extract failed for %s: %v", e.Filename, e.Err)
}

func (e *ExtractFailed) Unwrap() error { return e.Err }

// PatchFailed is an execution error: applying a patch file failed.
type PatchFailed struct {
	Patch string
	Err   error
}

func (e *PatchFailed) Error() string {
	return fmt.Sprintf("patch failed for %s: %v", e.Patch, e.Err)
}

func (e *PatchFailed) Unwrap() error { return e.Err }

// ScriptFailed is an execution error: a build-script phase exited non-zero.
type ScriptFailed struct {
	Phase    string
	ExitCode int
}

func (e *ScriptFailed) Error() string {
	return fmt.Sprintf("script phase %q failed with exit code %d", e.Phase, e.ExitCode)
}

// InstallPathMissing is an execution error: an install_paths glob matched
// nothing.
type InstallPathMissing struct {
	Pattern string
}

func (e *InstallPathMissing) Error() string {
	return fmt.Sprintf("install path source missing: %s", e.Pattern)
}
