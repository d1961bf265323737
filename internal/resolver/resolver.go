// Package resolver implements the second phase of conflict resolution.
// It walks the ranked solution tiers, applies one solution at a time
// behind a verification gate, and escalates to the web-search oracle
// when a tier runs dry. Every run ends in a terminal state with an
// explicit reason and a written report.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/display"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/executor"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/ledger"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/oracle"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/ranker"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/workspace"
)

// Runner abstracts command execution for the loop
type Runner interface {
	Execute(ctx context.Context, command string) (*executor.Result, error)
	Verify(ctx context.Context, step string) (*executor.Result, error)
}

// ConfirmFunc asks the user whether a solution may be applied.
// A nil ConfirmFunc means apply everything.
type ConfirmFunc func(description string) bool

// Config holds resolution loop configuration
type Config struct {
	// MaxConsultations bounds web-search oracle calls (M)
	MaxConsultations int

	// Root is the workspace root for consultation and report files;
	// empty disables persistence.
	Root string

	SessionID     string
	OriginalIssue string

	// Confirm gates each solution before it runs
	Confirm ConfirmFunc
}

// Resolver drives the Phase 2 loop
type Resolver struct {
	cfg     Config
	runner  Runner
	oracle  oracle.Client // nil limits the loop to the seeded candidates
	ledger  *ledger.Ledger
	display *display.Display
	logger  *zap.Logger

	history      []types.SolutionAttempt
	alternatives []types.AlternativePackage
	tips         []string
}

// New creates a resolver
func New(cfg Config, runner Runner, client oracle.Client, led *ledger.Ledger, disp *display.Display, logger *zap.Logger) *Resolver {
	if cfg.MaxConsultations <= 0 {
		cfg.MaxConsultations = 8
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if disp == nil {
		disp = display.NewWithOptions(true)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cfg:     cfg,
		runner:  runner,
		oracle:  client,
		ledger:  led,
		display: disp,
		logger:  logger,
	}
}

// Run drives the loop to a terminal state and returns the report.
// The seed carries the analysis phase's pending candidates and
// consultation counts; a nil seed starts with an empty queue, and the
// web-search oracle is only consulted once the ledger holds at least
// one failed attempt. The report is written to the workspace when
// Root is set.
func (r *Resolver) Run(ctx context.Context, seed *types.ResolutionState) (*types.ResolutionReport, error) {
	state := r.seedState(seed)
	r.AddPreventionTips(state.PreventionTips)
	pending := r.rerank(state.Pending)
	state.Pending = nil
	if len(pending) > 0 {
		r.logger.Info("candidate queue seeded",
			zap.Int("candidates", len(pending)),
			zap.Int("lowest_tier", int(ranker.LowestTier(pending))))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(pending) == 0 {
			var done bool
			var err error
			pending, done, err = r.escalate(ctx, state)
			if err != nil {
				return nil, err
			}
			if done {
				break
			}
			continue
		}

		solution := pending[0]
		pending = pending[1:]
		state.Iterations++

		if r.cfg.Confirm != nil && !r.cfg.Confirm(solution.Description) {
			r.display.Info("Skipped", solution.Description)
			continue
		}

		r.display.Info(fmt.Sprintf("Solution %d", len(r.history)+1),
			fmt.Sprintf("[tier %d] %s", solution.Tier, solution.Description))

		outcome, err := r.applySolution(ctx, &solution)
		if err != nil {
			return nil, err
		}
		r.history = append(r.history, types.SolutionAttempt{
			Number:      len(r.history) + 1,
			Description: solution.Description,
			Commands:    solution.Commands,
			Tier:        solution.Tier,
			Outcome:     outcome,
			Timestamp:   time.Now(),
		})

		if outcome == types.OutcomeSuccess {
			state.Status = types.StatusSolved
			break
		}

		// A newly recorded failure can invalidate later candidates
		// that share a command, so the queue is re-filtered.
		pending = r.rerank(pending)
	}

	report := r.buildReport(state)
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report: %w", err)
	}
	if r.cfg.Root != "" {
		if err := workspace.SaveJSON(workspace.ReportPath(r.cfg.Root), report); err != nil {
			return nil, fmt.Errorf("cannot save report: %w", err)
		}
	}
	return report, nil
}

func (r *Resolver) seedState(seed *types.ResolutionState) *types.ResolutionState {
	if seed != nil {
		s := *seed
		s.Status = types.StatusRunning
		s.Reason = types.ReasonNone
		return &s
	}
	return &types.ResolutionState{
		SessionID: r.cfg.SessionID,
		Status:    types.StatusRunning,
		StartedAt: time.Now(),
	}
}

// rerank re-applies ordering and the no-repeat filter against the
// current ledger state.
func (r *Resolver) rerank(candidates []types.Solution) []types.Solution {
	return ranker.RankAndFilter(candidates, ledger.BuildContext(r.ledger))
}

// escalate consults the web-search oracle for a fresh strategy. It
// returns done=true when the loop must stop, with the terminal status
// and reason already set on state.
func (r *Resolver) escalate(ctx context.Context, state *types.ResolutionState) (pending []types.Solution, done bool, err error) {
	// Escalation is earned by failure. Without at least one failed
	// local attempt on the ledger there is nothing to research, so
	// the oracle is never consulted speculatively.
	if !r.ledger.HasFailures() {
		r.display.Warning("no failed attempts to escalate from")
		state.Status = types.StatusExhausted
		state.Reason = types.ReasonTierExhausted
		return nil, true, nil
	}
	if r.oracle == nil {
		state.Status = types.StatusExhausted
		state.Reason = types.ReasonTierExhausted
		return nil, true, nil
	}
	if state.WebSearches >= r.cfg.MaxConsultations {
		state.Status = types.StatusExhausted
		state.Reason = types.ReasonBudgetExhausted
		r.logger.Info("consultation budget exhausted", zap.Int("web_searches", state.WebSearches))
		return nil, true, nil
	}

	index := state.WebSearches + 1
	if r.cfg.Root != "" {
		index = workspace.NextConsultationIndex(r.cfg.Root)
	}
	r.display.Info("Escalating", fmt.Sprintf("web-search consultation %d/%d", index, r.cfg.MaxConsultations))

	consultation, err := r.oracle.WebSearchConsult(ctx, oracle.ConsultRequest{
		Index:           index,
		OriginalIssue:   r.cfg.OriginalIssue,
		Context:         ledger.BuildContext(r.ledger),
		FailedSolutions: r.history,
	})
	if err != nil {
		var unavailable *oracle.OracleUnavailableError
		if errors.As(err, &unavailable) {
			// No more candidates and no oracle to produce them.
			r.display.Warning("web-search oracle unavailable")
			state.Status = types.StatusExhausted
			state.Reason = types.ReasonTierExhausted
			return nil, true, nil
		}
		return nil, false, err
	}

	state.WebSearches++
	state.Consultations++
	r.alternatives = append(r.alternatives, consultation.Alternatives...)
	if consultation.RootCause != "" {
		r.display.Oracle(display.Truncate(consultation.RootCause, 300))
	}
	if r.cfg.Root != "" {
		if saveErr := workspace.SaveJSON(workspace.ConsultationPath(r.cfg.Root, index), consultation); saveErr != nil {
			r.logger.Warn("cannot save consultation", zap.Error(saveErr))
		}
	}

	if !consultation.ShouldContinue {
		state.Status = types.StatusExhausted
		state.Reason = types.ReasonDeclaredImpossible
		if consultation.NextSteps != "" {
			r.display.Info("Next steps", consultation.NextSteps)
		}
		return nil, true, nil
	}
	return r.rerank(consultation.Solutions), false, nil
}

// applySolution runs a solution end to end: undo commands, main
// commands, the solution's verification step, and the final
// environment check. The outcome is decided before any record is
// appended, so the ledger only ever sees final outcomes.
func (r *Resolver) applySolution(ctx context.Context, solution *types.Solution) (types.Outcome, error) {
	for _, cmd := range solution.UndoCommands {
		r.display.Command(cmd)
		result, err := r.runner.Execute(ctx, cmd)
		if err != nil {
			return types.OutcomeFailure, fmt.Errorf("execution failed: %w", err)
		}
		// Undo commands are best effort and not part of the attempt
		// identity, but they are still shown.
		if !result.Ok() {
			r.display.Warning("undo step failed, continuing")
		}
	}

	results := make([]*executor.Result, 0, len(solution.Commands))
	commandsOK := true
	for _, cmd := range solution.Commands {
		r.display.Command(cmd)
		result, err := r.runner.Execute(ctx, cmd)
		if err != nil {
			return types.OutcomeFailure, fmt.Errorf("execution failed: %w", err)
		}
		results = append(results, result)
		if !result.Ok() {
			commandsOK = false
			r.display.Error(fmt.Sprintf("failed (exit %d)", result.ExitStatus))
			r.display.CommandOutput(result.Output())
			break
		}
		r.display.Success("ok")
	}

	outcome := types.OutcomeSuccess
	if !commandsOK {
		outcome = types.OutcomeFailure
	} else {
		verified, err := r.verify(ctx, solution.VerificationStep)
		if err != nil {
			return types.OutcomeFailure, err
		}
		if !verified {
			outcome = types.OutcomeVerifyFailed
			r.display.Warning("solution applied but verification failed")
		}
	}

	for _, result := range results {
		// A command that exited cleanly keeps its success record even
		// when a later command in the batch failed; the batch outcome
		// only downgrades clean commands when verification failed.
		recordOutcome := outcome
		if result.Ok() && outcome == types.OutcomeFailure {
			recordOutcome = types.OutcomeSuccess
		}
		if err := r.record(result, solution, recordOutcome); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// verify runs the solution's own verification step and then the final
// environment check. Both must pass.
func (r *Resolver) verify(ctx context.Context, step string) (bool, error) {
	if step != "" {
		r.display.Command(step)
		result, err := r.runner.Verify(ctx, step)
		if err != nil {
			return false, fmt.Errorf("verification failed to run: %w", err)
		}
		if !result.Ok() {
			r.display.CommandOutput(result.Output())
			return false, nil
		}
	}

	result, err := r.runner.Verify(ctx, "")
	if err != nil {
		return false, fmt.Errorf("verification failed to run: %w", err)
	}
	if !result.Ok() {
		r.display.CommandOutput(result.Output())
		return false, nil
	}
	return true, nil
}

func (r *Resolver) record(result *executor.Result, solution *types.Solution, outcome types.Outcome) error {
	issuedBy := types.IssuedByOracle
	switch {
	case solution.Tier == types.TierWebVerified:
		issuedBy = types.IssuedByWebSearch
	case strings.HasPrefix(solution.SourceReference, "static-rule:"):
		issuedBy = types.IssuedBySelf
	}

	record := types.AttemptRecord{
		ID:         uuid.NewString(),
		Command:    result.Command,
		Signature:  ledger.CommandSignature(result.Command),
		Tier:       solution.Tier,
		IssuedBy:   issuedBy,
		ExitStatus: result.ExitStatus,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		Duration:   result.Duration,
		Timestamp:  time.Now(),
		Outcome:    outcome,
	}
	if outcome != types.OutcomeSuccess {
		record.Fingerprint = ledger.ErrorFingerprint(result.Output())
	}
	if r.ledger.Failed(record.Signature) {
		record.Reissue = "re-issued in session " + r.cfg.SessionID
	}

	if err := r.ledger.Append(record); err != nil {
		var dup *ledger.DuplicateAttemptError
		if errors.As(err, &dup) {
			return nil
		}
		return fmt.Errorf("cannot record attempt: %w", err)
	}
	return nil
}
