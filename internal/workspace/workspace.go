// Package workspace manages the on-disk state layout: the merged
// history file, per-attempt analyses, web consultations, and the final
// resolution report all live under the state directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const StateDir = ".ppd"

var ErrNoWorkspace = errors.New("no workspace found (run 'ppd analyze' first)")

// Find walks up from cwd looking for the state directory
func Find() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		statePath := filepath.Join(dir, StateDir)
		if info, err := os.Stat(statePath); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}

// Init creates the state directory layout under the given root.
// Idempotent: an existing layout is left untouched.
func Init(root string) error {
	dirs := []string{
		filepath.Join(root, StateDir),
		filepath.Join(root, StateDir, "attempts"),
		filepath.Join(root, StateDir, "consultations"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	return nil
}

// Path returns the state directory path for a workspace root
func Path(root string) string {
	return filepath.Join(root, StateDir)
}

// ConfigPath returns the config.yaml path
func ConfigPath(root string) string {
	return filepath.Join(root, StateDir, "config.yaml")
}

// HistoryPath returns the merged cross-session history file
func HistoryPath(root string) string {
	return filepath.Join(root, StateDir, "history.json")
}

// AttemptPath returns the analysis file for one attempt. Mode is
// "basic" or "enhanced"; each attempt gets one file per mode.
func AttemptPath(root string, attempt int, mode string) string {
	return filepath.Join(root, StateDir, "attempts", fmt.Sprintf("%d-%s.json", attempt, mode))
}

// ConsultationPath returns the file for one web-search consultation,
// tagged with its monotonically increasing index.
func ConsultationPath(root string, index int) string {
	return filepath.Join(root, StateDir, "consultations", fmt.Sprintf("web-%d.json", index))
}

// AnalysisPath returns the analysis phase handoff file. It carries
// the terminal analysis state, including ranked pending solutions,
// into the resolution phase.
func AnalysisPath(root string) string {
	return filepath.Join(root, StateDir, "analysis.json")
}

// ReportPath returns the final resolution report path
func ReportPath(root string) string {
	return filepath.Join(root, StateDir, "report.json")
}

// NextConsultationIndex scans the consultations directory and returns
// one past the highest index on disk, starting from 1.
func NextConsultationIndex(root string) int {
	dir := filepath.Join(root, StateDir, "consultations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}

	next := 1
	for _, entry := range entries {
		var idx int
		if _, err := fmt.Sscanf(entry.Name(), "web-%d.json", &idx); err == nil && idx >= next {
			next = idx + 1
		}
	}
	return next
}
