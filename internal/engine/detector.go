package engine

import (
	"os"
	"os/exec"
	"strings"

	"github.com/mussels-build/mussels/internal/catalog"
)

// HostDetector implements toolchain.Detector with real exec/fs probes. It is
// the only piece of the tool validator that touches the filesystem or spawns
// processes, kept out of internal/toolchain so that package stays testable
// with a fake.
type HostDetector struct{}

// Detect tries path_checks, then command_checks, then file_checks, in that
// declared order, stopping at the first success (spec.md §3 "Tool
// definition").
func (HostDetector) Detect(strategy catalog.DetectionStrategy) (bool, string) {
	for _, name := range strategy.PathChecks {
		if path, err := exec.LookPath(name); err == nil {
			return true, path
		}
	}

	for _, check := range strategy.CommandChecks {
		fields := strings.Fields(check.Command)
		if len(fields) == 0 {
			continue
		}
		cmd := exec.Command(fields[0], fields[1:]...)
		output, err := cmd.Output()
		if err != nil {
			continue
		}
		if strings.Contains(string(output), check.Contains) {
			path, lookErr := exec.LookPath(fields[0])
			if lookErr != nil {
				path = fields[0]
			}
			return true, path
		}
	}

	for _, path := range strategy.FileChecks {
		if _, err := os.Stat(path); err == nil {
			return true, path
		}
	}

	return false, ""
}
