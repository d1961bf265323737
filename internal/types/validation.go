package types

import (
	"fmt"
	"strings"
)

// Validate checks an AttemptRecord before it enters the ledger
func (r *AttemptRecord) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Command) == "" {
		errs = append(errs, "command is required")
	}
	if strings.TrimSpace(r.Signature) == "" {
		errs = append(errs, "signature is required")
	}
	if !r.Tier.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid tier: %d", r.Tier))
	}
	if !r.IssuedBy.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid issued_by: %q", r.IssuedBy))
	}
	if !r.Outcome.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid outcome: %q", r.Outcome))
	}
	if r.Timestamp.IsZero() {
		errs = append(errs, "timestamp is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid attempt record: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks a Solution before it enters the candidate queue
func (s *Solution) Validate() error {
	var errs []string

	if len(s.Commands) == 0 {
		errs = append(errs, "at least one command is required")
	}
	for i, cmd := range s.Commands {
		if strings.TrimSpace(cmd) == "" {
			errs = append(errs, fmt.Sprintf("command %d is empty", i+1))
		}
	}
	if !s.Tier.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid tier: %d", s.Tier))
	}
	if !s.Confidence.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid confidence: %q", s.Confidence))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid solution: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks a ResolutionReport before it is written
func (r *ResolutionReport) Validate() error {
	var errs []string

	if r.SessionID == "" {
		errs = append(errs, "session_id is required")
	}
	if !r.ResolutionStatus.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid resolution_status: %q", r.ResolutionStatus))
	}
	if !r.ResolutionStatus.IsTerminal() {
		errs = append(errs, "report requires a terminal status")
	}
	if r.ResolutionStatus == StatusExhausted && r.Reason == ReasonNone {
		errs = append(errs, "exhausted report requires a reason")
	}
	if !r.Reason.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid reason: %q", r.Reason))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid resolution report: %s", strings.Join(errs, "; "))
	}
	return nil
}
