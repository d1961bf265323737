package executor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Verify runs a solution's declared verification step. An empty step
// falls back to the dependency-consistency check.
func (e *Executor) Verify(ctx context.Context, step string) (*Result, error) {
	if step == "" {
		step = e.FinalVerificationCommand()
	}
	return e.Execute(ctx, step)
}

// FinalVerificationCommand is the full-environment consistency check
// run before declaring a resolution solved.
func (e *Executor) FinalVerificationCommand() string {
	return e.config.PipBinary + " check"
}

// CreateIsolatedEnv creates a fresh virtualenv with a random suffix
// and returns an executor pointed at its pip. Used by the
// environment-isolation flag so installs never touch the host site.
func (e *Executor) CreateIsolatedEnv(ctx context.Context) (*Executor, error) {
	name := "testvenv-" + uuid.NewString()[:8]
	create, err := e.Execute(ctx, e.config.PythonBinary+" -m venv "+name)
	if err != nil {
		return nil, err
	}
	if create.ExitStatus != 0 {
		return nil, fmt.Errorf("cannot create virtualenv %s: %s", name, create.Stderr)
	}

	cfg := *e.config
	cfg.PipBinary = filepath.Join(e.config.WorkDir, name, "bin", "pip")
	cfg.PythonBinary = filepath.Join(e.config.WorkDir, name, "bin", "python")
	return &Executor{config: &cfg}, nil
}
