package main

import "os"

// Exit codes (spec.md §6: "Exit code is 0 on success, 1 on any surfaced
// failure"). Mussels keeps a single failure code rather than tsuku's
// per-cause taxonomy — the build summary printer already distinguishes
// failure causes in its output.
const (
	ExitSuccess = 0
	ExitGeneral = 1
)

func exitWithCode(code int) {
	os.Exit(code)
}
