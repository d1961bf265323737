// Package executor runs package-manager commands and captures their
// output. Non-zero exit is a normal outcome here, never an error: the
// loops decide what a failure means.
package executor

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/utils"
)

// Config holds executor configuration
type Config struct {
	PipBinary    string
	PythonBinary string
	Timeout      time.Duration
	WorkDir      string
	Env          []string
}

// DefaultConfig returns default executor configuration
func DefaultConfig(workDir string) *Config {
	return &Config{
		PipBinary:    "pip",
		PythonBinary: "python3",
		Timeout:      5 * time.Minute,
		WorkDir:      workDir,
	}
}

// Executor runs shell commands against a pip environment
type Executor struct {
	config *Config
}

// New creates a new executor
func New(config *Config) *Executor {
	if config.PipBinary != "" {
		config.PipBinary = utils.ResolveBinaryPath(config.PipBinary)
	}
	if config.PythonBinary != "" {
		config.PythonBinary = utils.ResolveBinaryPath(config.PythonBinary)
	}
	return &Executor{config: config}
}

// Config returns the executor configuration
func (e *Executor) Config() *Config {
	return e.config
}

// Result holds the captured outcome of one command
type Result struct {
	Command    string
	ExitStatus int
	Stdout     string
	Stderr     string
	Duration   time.Duration
	TimedOut   bool
}

// Output returns combined stdout and stderr
func (r *Result) Output() string {
	if r.Stdout == "" {
		return r.Stderr
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// Ok reports whether the command exited zero with no error text in its
// output. pip sometimes reports dependency breakage on a zero exit, so
// exit status alone is not trusted.
func (r *Result) Ok() bool {
	return r.ExitStatus == 0 && !HasErrorText(r.Output())
}

// Execute runs a single command through the shell and captures exit
// status, stdout, stderr, and duration. A timeout counts as a failed
// result, not an error; only setup problems return a non-nil error.
// Cancellation of the caller's context is observed by the loops at
// iteration boundaries, never here: once running, a command is only
// killed by the configured timeout, so an interrupt lets the in-flight
// install finish.
func (e *Executor) Execute(_ context.Context, command string) (*Result, error) {
	runCtx := context.Background()
	var cancel context.CancelFunc
	if e.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(context.Background(), e.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = e.config.WorkDir
	if len(e.config.Env) > 0 {
		cmd.Env = e.config.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Command:  command,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitStatus = -1
		if result.Stderr == "" {
			result.Stderr = "command timed out after " + e.config.Timeout.String()
		}
		return result, nil
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitStatus = exitErr.ExitCode()
			return result, nil
		}
		return nil, err
	}
	return result, nil
}

// errorMarkers flag an output as failed even on a zero exit
var errorMarkers = []string{"error:", "failed", "could not", "conflict"}

// HasErrorText reports whether output contains error indicators
func HasErrorText(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// InstallCommand builds the pip install command for a package spec
func (e *Executor) InstallCommand(pkg string) string {
	return e.config.PipBinary + " install " + pkg
}
