// Package analyzer implements the first phase of conflict resolution:
// a bounded execute/analyze retry loop. It runs the requested installs,
// asks the oracle what went wrong, and retries with proposed fixes
// until it succeeds or its retry budget is spent. Exhaustion here is
// the designed handoff boundary to the resolution loop, not a failure.
package analyzer

import (
	"context"
	"errors"
	"fmt"
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

// Runner abstracts command execution so the loop can be tested with a
// scripted executor.
type Runner interface {
	Execute(ctx context.Context, command string) (*executor.Result, error)
	RunDiagnostics(ctx context.Context) ([]*executor.Result, error)
	InstallCommand(pkg string) string
}

// Config holds analysis loop configuration
type Config struct {
	// MaxRetries bounds execute+analyze cycles (R)
	MaxRetries int

	// AutoApply retries with the top-ranked proposed solution after
	// each failed analysis. Without it the loop analyzes once and
	// hands off.
	AutoApply bool

	// Root is the workspace root for attempt files; empty disables
	// on-disk analysis snapshots.
	Root string

	SessionID string
}

// Analyzer drives the Phase 1 loop
type Analyzer struct {
	cfg     Config
	runner  Runner
	oracle  oracle.Client // nil disables oracle consultations
	ledger  *ledger.Ledger
	rules   []oracle.Rule
	display *display.Display
	logger  *zap.Logger
}

// New creates an analyzer. A nil oracle client limits the loop to
// static Tier-1 rules.
func New(cfg Config, runner Runner, client oracle.Client, led *ledger.Ledger, rules []oracle.Rule, disp *display.Display, logger *zap.Logger) *Analyzer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
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
	return &Analyzer{
		cfg:     cfg,
		runner:  runner,
		oracle:  client,
		ledger:  led,
		rules:   rules,
		display: disp,
		logger:  logger,
	}
}

// batchCommand is one command scheduled for the next iteration
type batchCommand struct {
	Text     string
	Tier     types.Tier
	IssuedBy types.IssuedBy
}

// Run executes the analysis loop for the given package specs and
// returns the terminal state. The returned state is StatusSolved or
// StatusExhausted; exhaustion hands the full ledger and context to the
// resolution loop.
func (a *Analyzer) Run(ctx context.Context, packages []string) (*types.ResolutionState, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("no packages requested")
	}

	state := &types.ResolutionState{
		SessionID: a.cfg.SessionID,
		Status:    types.StatusRunning,
		StartedAt: time.Now(),
	}

	batch := make([]batchCommand, 0, len(packages))
	for _, pkg := range packages {
		batch = append(batch, batchCommand{
			Text:     a.runner.InstallCommand(pkg),
			Tier:     types.TierStatic,
			IssuedBy: types.IssuedBySelf,
		})
	}

	prevFingerprint := ""
	for iteration := 1; iteration <= a.cfg.MaxRetries; iteration++ {
		// Cancellation is checked only at iteration boundaries; an
		// in-flight command always completes or times out.
		if err := ctx.Err(); err != nil {
			return state, err
		}

		state.Iterations = iteration
		a.display.Iteration(iteration, a.cfg.MaxRetries, fmt.Sprintf("%d command(s)", len(batch)))

		outputs, fingerprint, failed, err := a.executeBatch(ctx, batch)
		if err != nil {
			return state, err
		}

		candidates, clean, oracleDown, err := a.analyze(ctx, state, iteration, outputs, failed, packages)
		if err != nil {
			return state, err
		}

		if !failed && clean {
			state.Status = types.StatusSolved
			a.logger.Info("analysis loop solved", zap.Int("iteration", iteration))
			return state, nil
		}

		// Two consecutive failures with the same fingerprint escalate
		// to the web-search oracle. The mandatory-escalation rule is
		// satisfied: a local attempt already failed with it.
		if failed && fingerprint != "" && fingerprint == prevFingerprint && !oracleDown && a.oracle != nil {
			webSolutions, err := a.consultWeb(ctx, state, packages)
			if err != nil {
				var unavailable *oracle.OracleUnavailableError
				if !errors.As(err, &unavailable) {
					return state, err
				}
				a.display.Warning("web-search oracle unavailable, continuing with local candidates")
			} else {
				candidates = append(candidates, webSolutions...)
			}
		}
		prevFingerprint = fingerprint

		fc := ledger.BuildContext(a.ledger)
		state.Pending = ranker.RankAndFilter(candidates, fc)

		if !a.cfg.AutoApply {
			break
		}
		if len(state.Pending) == 0 {
			a.display.Warning("no unattempted candidates remain")
			break
		}

		next := state.Pending[0]
		state.Pending = state.Pending[1:]
		batch = solutionBatch(next)
		a.display.Info("Retry", next.Description)
	}

	state.Status = types.StatusExhausted
	a.logger.Info("analysis loop exhausted, handing off",
		zap.Int("iterations", state.Iterations),
		zap.Int("pending_solutions", len(state.Pending)))
	return state, nil
}

// executeBatch runs one iteration's commands. Every command produces
// exactly one attempt record; nothing runs without being recorded.
func (a *Analyzer) executeBatch(ctx context.Context, batch []batchCommand) (outputs []oracle.CommandOutput, fingerprint string, failed bool, err error) {
	for _, cmd := range batch {
		if a.ledger.Succeeded(ledger.CommandSignature(cmd.Text)) {
			a.display.Info("Skip", "command already succeeded: "+cmd.Text)
			continue
		}

		a.display.Command(cmd.Text)
		result, err := a.runner.Execute(ctx, cmd.Text)
		if err != nil {
			return nil, "", false, fmt.Errorf("execution failed: %w", err)
		}

		record := a.recordFor(result, cmd.Tier, cmd.IssuedBy)
		if appendErr := a.appendRecord(record); appendErr != nil {
			return nil, "", false, appendErr
		}

		outputs = append(outputs, oracle.CommandOutput{
			Command:    cmd.Text,
			ExitStatus: result.ExitStatus,
			Output:     result.Output(),
		})

		if record.Failed() {
			failed = true
			fingerprint = record.Fingerprint
			a.display.Error(fmt.Sprintf("failed (exit %d)", result.ExitStatus))
			a.display.CommandOutput(result.Output())
		} else {
			a.display.Success("ok")
		}
	}
	return outputs, fingerprint, failed, nil
}

// analyze runs the basic and, on failure, enhanced oracle analyses.
// It returns candidate solutions, whether the basic analysis came back
// clean, and whether the oracle was unreachable.
func (a *Analyzer) analyze(ctx context.Context, state *types.ResolutionState, iteration int, outputs []oracle.CommandOutput, failed bool, packages []string) (candidates []types.Solution, clean, oracleDown bool, err error) {
	if a.oracle == nil {
		// Oracle disabled: static rules only, clean iff nothing failed.
		return oracle.StaticSolutions(a.rules, packages), !failed, false, nil
	}

	fc := ledger.BuildContext(a.ledger)
	basic, err := a.oracle.Analyze(ctx, oracle.AnalyzeRequest{
		Mode:    types.ModeBasic,
		Context: fc,
		Outputs: outputs,
	})
	if err != nil {
		var unavailable *oracle.OracleUnavailableError
		if errors.As(err, &unavailable) {
			// Recover locally: fall back to static Tier-1 rules.
			a.display.Warning("oracle unavailable, falling back to static rules")
			a.logger.Warn("oracle unavailable", zap.Error(err))
			return oracle.StaticSolutions(a.rules, packages), !failed, true, nil
		}
		return nil, false, false, err
	}
	state.Consultations++

	a.saveAttempt(iteration, "basic", basic)
	if basic.Diagnosis != nil {
		a.ledger.AppendDiagnosis(*basic.Diagnosis)
	}
	state.PreventionTips = appendTips(state.PreventionTips, basic.PreventionTips)
	a.display.Oracle(display.Truncate(basic.Summary, 200))

	if !failed && basic.Clean() {
		return nil, true, false, nil
	}
	candidates = append(candidates, basic.Solutions...)

	diagnostics, diagErr := a.runner.RunDiagnostics(ctx)
	if diagErr != nil {
		return nil, false, false, fmt.Errorf("diagnostics failed: %w", diagErr)
	}

	enhanced, err := a.oracle.Analyze(ctx, oracle.AnalyzeRequest{
		Mode:        types.ModeEnhanced,
		Context:     fc,
		Outputs:     outputs,
		Diagnostics: toCommandOutputs(diagnostics),
	})
	if err != nil {
		var unavailable *oracle.OracleUnavailableError
		if errors.As(err, &unavailable) {
			a.display.Warning("enhanced analysis unavailable")
			return candidates, false, true, nil
		}
		return nil, false, false, err
	}
	state.Consultations++

	a.saveAttempt(iteration, "enhanced", enhanced)
	if enhanced.Diagnosis != nil {
		a.ledger.AppendDiagnosis(*enhanced.Diagnosis)
	}
	state.PreventionTips = appendTips(state.PreventionTips, enhanced.PreventionTips)
	candidates = append(candidates, enhanced.Solutions...)

	// Static rules ride along at Tier 1 so a known pin is tried even
	// when the oracle misses it.
	candidates = append(candidates, oracle.StaticSolutions(a.rules, packages)...)
	return candidates, false, false, nil
}

// appendTips merges oracle prevention guidance, dropping repeats
func appendTips(tips, more []string) []string {
	for _, tip := range more {
		seen := false
		for _, have := range tips {
			if have == tip {
				seen = true
				break
			}
		}
		if !seen && tip != "" {
			tips = append(tips, tip)
		}
	}
	return tips
}

func (a *Analyzer) consultWeb(ctx context.Context, state *types.ResolutionState, packages []string) ([]types.Solution, error) {
	fc := ledger.BuildContext(a.ledger)
	index := 1
	if a.cfg.Root != "" {
		index = workspace.NextConsultationIndex(a.cfg.Root)
	} else {
		index = state.WebSearches + 1
	}

	a.display.Info("Escalating", "same failure twice, consulting web-search oracle")
	consultation, err := a.oracle.WebSearchConsult(ctx, oracle.ConsultRequest{
		Index:         index,
		OriginalIssue: fmt.Sprintf("install %v", packages),
		Context:       fc,
	})
	if err != nil {
		return nil, err
	}

	state.WebSearches++
	state.Consultations++
	if a.cfg.Root != "" {
		if err := workspace.SaveJSON(workspace.ConsultationPath(a.cfg.Root, index), consultation); err != nil {
			a.logger.Warn("cannot save consultation", zap.Error(err))
		}
	}
	return consultation.Solutions, nil
}

// recordFor builds the attempt record for an executed command. The
// outcome is fixed here; records are immutable once appended.
func (a *Analyzer) recordFor(result *executor.Result, tier types.Tier, issuedBy types.IssuedBy) types.AttemptRecord {
	record := types.AttemptRecord{
		ID:         uuid.NewString(),
		Command:    result.Command,
		Signature:  ledger.CommandSignature(result.Command),
		Tier:       tier,
		IssuedBy:   issuedBy,
		ExitStatus: result.ExitStatus,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		Duration:   result.Duration,
		Timestamp:  time.Now(),
		Outcome:    types.OutcomeSuccess,
	}
	if !result.Ok() {
		record.Outcome = types.OutcomeFailure
		record.Fingerprint = ledger.ErrorFingerprint(result.Output())
	}
	return record
}

// appendRecord writes to the ledger, marking cross-session re-issues
// of previously failed commands with this session's identity.
func (a *Analyzer) appendRecord(record types.AttemptRecord) error {
	if a.ledger.Failed(record.Signature) {
		record.Reissue = "re-issued in session " + a.cfg.SessionID
	}
	if err := a.ledger.Append(record); err != nil {
		var dup *ledger.DuplicateAttemptError
		if errors.As(err, &dup) {
			// Already succeeded before; nothing to redo.
			a.display.Info("Skip", "command already succeeded: "+record.Command)
			return nil
		}
		return fmt.Errorf("cannot record attempt: %w", err)
	}
	return nil
}

func (a *Analyzer) saveAttempt(iteration int, mode string, analysis *oracle.Analysis) {
	if a.cfg.Root == "" {
		return
	}
	path := workspace.AttemptPath(a.cfg.Root, iteration, mode)
	if err := workspace.SaveJSON(path, analysis); err != nil {
		a.logger.Warn("cannot save analysis", zap.String("path", path), zap.Error(err))
	}
}

func solutionBatch(s types.Solution) []batchCommand {
	issuedBy := types.IssuedByOracle
	if s.SourceReference != "" && s.Tier == types.TierWebVerified {
		issuedBy = types.IssuedByWebSearch
	}

	var batch []batchCommand
	for _, cmd := range append(append([]string{}, s.UndoCommands...), s.Commands...) {
		batch = append(batch, batchCommand{Text: cmd, Tier: s.Tier, IssuedBy: issuedBy})
	}
	return batch
}

func toCommandOutputs(results []*executor.Result) []oracle.CommandOutput {
	outputs := make([]oracle.CommandOutput, 0, len(results))
	for _, r := range results {
		outputs = append(outputs, oracle.CommandOutput{
			Command:    r.Command,
			ExitStatus: r.ExitStatus,
			Output:     r.Output(),
		})
	}
	return outputs
}
