// Package types defines the data model shared by the analysis and
// resolution loops: attempt records, failure context, oracle output,
// and the final resolution report.
package types

import (
	"time"
)

// AttemptRecord is the immutable record of one executed command.
// It is appended to the ledger and never mutated or deleted.
type AttemptRecord struct {
	ID         string        `json:"id"`
	Command    string        `json:"command"`
	Signature  string        `json:"signature"`
	Tier       Tier          `json:"tier"`
	IssuedBy   IssuedBy      `json:"issued_by"`
	ExitStatus int           `json:"exit_status"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	Duration   time.Duration `json:"duration_ns"`
	Timestamp  time.Time     `json:"timestamp"`
	Outcome    Outcome       `json:"outcome"`

	// Fingerprint of the combined error output, empty on success
	Fingerprint string `json:"fingerprint,omitempty"`

	// Reissue explains why a previously failed command is being retried
	// (e.g. "environment reset"). Empty for first attempts.
	Reissue string `json:"reissue,omitempty"`
}

// Failed reports whether the attempt ended in any failure class
func (r *AttemptRecord) Failed() bool {
	return r.Outcome != OutcomeSuccess
}

// Diagnosis is the oracle's structured read of a failure
type Diagnosis struct {
	ConflictKind     string     `json:"conflict_kind"`
	RootCauseSummary string     `json:"root_cause_summary"`
	Confidence       Confidence `json:"confidence"`
}

// Empty reports whether the diagnosis carries no information.
// An empty or low-confidence diagnosis is "no new information", not an error.
func (d *Diagnosis) Empty() bool {
	return d == nil || (d.ConflictKind == "" && d.RootCauseSummary == "")
}

// Solution is a candidate remediation. It is produced by the oracle or
// by static rules and becomes one AttemptRecord per command once executed.
type Solution struct {
	Description  string     `json:"description"`
	Commands     []string   `json:"commands"`
	UndoCommands []string   `json:"undo_commands,omitempty"`
	Tier         Tier       `json:"tier"`
	Confidence   Confidence `json:"confidence"`

	// VerificationStep is a command that must also pass for the solution
	// to count as successful (e.g. "pip check").
	VerificationStep string `json:"verification_step,omitempty"`

	// Fallback describes what to try if this solution fails
	Fallback string `json:"fallback,omitempty"`

	// SourceReference is the URL or provenance for web-verified solutions
	SourceReference string `json:"source_reference,omitempty"`
}

// FailureContext is a compact, deduplicated summary of everything tried
// and everything learned. It is derived from the ledger and rebuildable
// at any time; it is never hand-edited.
type FailureContext struct {
	AttemptedCommands   []string        `json:"attempted_commands"`
	AttemptedSignatures map[string]bool `json:"attempted_signatures"`
	ErrorFingerprints   []string        `json:"error_fingerprints"`
	PriorDiagnoses      []Diagnosis     `json:"prior_diagnoses"`

	// RecentErrors carries extracted error lines for oracle prompts
	RecentErrors []string `json:"recent_errors,omitempty"`
}

// Attempted reports whether a command signature was ever tried
func (c *FailureContext) Attempted(signature string) bool {
	return c.AttemptedSignatures[signature]
}

// LastFingerprint returns the most recent error fingerprint, or ""
func (c *FailureContext) LastFingerprint() string {
	if len(c.ErrorFingerprints) == 0 {
		return ""
	}
	return c.ErrorFingerprints[len(c.ErrorFingerprints)-1]
}

// ResolutionState is the single mutable object owned by whichever loop
// is active. Terminal once Status leaves StatusRunning.
type ResolutionState struct {
	SessionID      string           `json:"session_id"`
	Status         Status           `json:"status"`
	Reason         ExhaustionReason `json:"reason,omitempty"`
	Iterations     int              `json:"iterations"`
	Consultations  int              `json:"ai_consultations"`
	WebSearches    int              `json:"web_searches"`
	Pending        []Solution       `json:"pending_solutions"`
	PreventionTips []string         `json:"prevention_tips,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
}

// SolutionAttempt records one applied solution for the report
type SolutionAttempt struct {
	Number      int       `json:"number"`
	Description string    `json:"description"`
	Commands    []string  `json:"commands"`
	Tier        Tier      `json:"tier"`
	Outcome     Outcome   `json:"outcome"`
	Timestamp   time.Time `json:"timestamp"`
}

// AlternativePackage is an oracle suggestion to substitute a package
type AlternativePackage struct {
	Original    string `json:"original"`
	Alternative string `json:"alternative"`
	Reason      string `json:"reason"`
}

// WebSearch records one query the web-search oracle performed
type WebSearch struct {
	Query      string   `json:"query"`
	Findings   string   `json:"findings"`
	SourceURLs []string `json:"source_urls,omitempty"`
	Relevance  string   `json:"relevance,omitempty"`
}

// Consultation is the full result of one web-search oracle call.
// Consultations are numbered monotonically across a session.
type Consultation struct {
	Index          int                  `json:"index"`
	Searches       []WebSearch          `json:"web_searches_performed"`
	RootCause      string               `json:"root_cause_analysis,omitempty"`
	NewStrategy    string               `json:"new_strategy,omitempty"`
	Solutions      []Solution           `json:"recommended_solutions"`
	Alternatives   []AlternativePackage `json:"alternative_packages,omitempty"`
	ShouldContinue bool                 `json:"should_continue"`
	NextSteps      string               `json:"next_steps,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

// ResolutionReport is the write-once final artifact of a run
type ResolutionReport struct {
	SessionID          string               `json:"session_id"`
	Timestamp          time.Time            `json:"timestamp"`
	ResolutionStatus   Status               `json:"resolution_status"`
	Reason             ExhaustionReason     `json:"reason,omitempty"`
	AIConsultations    int                  `json:"ai_consultations"`
	WebSearches        int                  `json:"web_searches"`
	TotalCommands      int                  `json:"total_commands"`
	SuccessfulCommands int                  `json:"successful_commands"`
	SolutionHistory    []SolutionAttempt    `json:"solution_history"`
	Ledger             []AttemptRecord      `json:"execution_log"`
	PreventionTips     []string             `json:"prevention_tips,omitempty"`
	Alternatives       []AlternativePackage `json:"alternative_packages,omitempty"`
}

// Solved reports whether the run ended with a verified resolution
func (r *ResolutionReport) Solved() bool {
	return r.ResolutionStatus == StatusSolved
}
