// Package oracle consults an external reasoning service for conflict
// diagnoses and candidate solutions. The service is a black box behind
// a request/response contract; callers own all budgets and recording.
package oracle

import (
	"context"
	"fmt"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

// CommandOutput carries one executed command and its captured output
// into an analysis request.
type CommandOutput struct {
	Command    string `json:"command_executed"`
	ExitStatus int    `json:"return_code"`
	Output     string `json:"output"`
}

// AnalyzeRequest is the input to an analysis consultation
type AnalyzeRequest struct {
	Mode        types.AnalysisMode
	Context     types.FailureContext
	Outputs     []CommandOutput
	Diagnostics []CommandOutput // environment probes, enhanced mode only
}

// Analysis is the structured result of an analysis consultation
type Analysis struct {
	OverallStatus  string           `json:"overall_status"`
	Summary        string           `json:"summary"`
	Diagnosis      *types.Diagnosis `json:"diagnosis,omitempty"`
	Solutions      []types.Solution `json:"solutions"`
	PreventionTips []string         `json:"prevention_tips,omitempty"`
}

// Clean reports whether the analysis found nothing wrong
func (a *Analysis) Clean() bool {
	return a.OverallStatus == "success" && len(a.Solutions) == 0
}

// ConsultRequest is the input to a web-search consultation. It must
// only be issued after at least one local attempt has failed for the
// current failure fingerprint.
type ConsultRequest struct {
	Index           int
	OriginalIssue   string
	Context         types.FailureContext
	FailedSolutions []types.SolutionAttempt
}

// Client is the narrow oracle contract. Both operations are slow and
// unreliable; neither has side effects on resolution state.
type Client interface {
	// Analyze returns a diagnosis and candidate solutions for the
	// given failure context. A low-confidence or empty result means
	// "no new information" and is not an error.
	Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error)

	// WebSearchConsult asks the web-search oracle for externally
	// sourced solutions with provenance.
	WebSearchConsult(ctx context.Context, req ConsultRequest) (*types.Consultation, error)
}

// OracleUnavailableError signals the external service cannot be
// reached. It is propagated, never silently retried.
type OracleUnavailableError struct {
	Op  string
	Err error
}

func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("oracle unavailable during %s: %v", e.Op, e.Err)
}

func (e *OracleUnavailableError) Unwrap() error {
	return e.Err
}
