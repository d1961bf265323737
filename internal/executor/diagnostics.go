package executor

import "context"

// DiagnosticCommands returns the environment probes run before an
// enhanced analysis: interpreter and pip versions, installed packages,
// and pip's own dependency consistency check.
func (e *Executor) DiagnosticCommands() []string {
	return []string{
		e.config.PythonBinary + " --version",
		e.config.PipBinary + " --version",
		e.config.PipBinary + " list",
		e.config.PipBinary + " check",
	}
}

// RunDiagnostics executes the diagnostic probes in order. Probe
// failures are captured in their results, never fatal.
func (e *Executor) RunDiagnostics(ctx context.Context) ([]*Result, error) {
	var results []*Result
	for _, cmd := range e.DiagnosticCommands() {
		result, err := e.Execute(ctx, cmd)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
