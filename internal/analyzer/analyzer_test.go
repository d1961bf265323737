package analyzer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/executor"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/ledger"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/oracle"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

// scriptedRunner returns canned results per command. Commands without
// a script entry fail with a fixed conflict error.
type scriptedRunner struct {
	ok       map[string]bool
	stderr   map[string]string
	executed []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{ok: make(map[string]bool), stderr: make(map[string]string)}
}

func (s *scriptedRunner) succeed(commands ...string) {
	for _, cmd := range commands {
		s.ok[cmd] = true
	}
}

func (s *scriptedRunner) failWith(command, stderr string) {
	s.ok[command] = false
	s.stderr[command] = stderr
}

func (s *scriptedRunner) Execute(ctx context.Context, command string) (*executor.Result, error) {
	s.executed = append(s.executed, command)
	if s.ok[command] {
		return &executor.Result{Command: command, Stdout: "Successfully installed"}, nil
	}
	stderr := s.stderr[command]
	if stderr == "" {
		stderr = "ERROR: dependency conflict while running " + command
	}
	return &executor.Result{Command: command, ExitStatus: 1, Stderr: stderr}, nil
}

func (s *scriptedRunner) RunDiagnostics(ctx context.Context) ([]*executor.Result, error) {
	return []*executor.Result{
		{Command: "pip check", Stdout: "No broken requirements found."},
	}, nil
}

func (s *scriptedRunner) InstallCommand(pkg string) string {
	return "pip install " + pkg
}

// stubOracle returns canned analyses in call order
type stubOracle struct {
	analyses      []*oracle.Analysis
	analyzeErr    error
	consultations []*types.Consultation
	consultErr    error

	analyzeCalls int
	consultCalls int
}

func (s *stubOracle) Analyze(ctx context.Context, req oracle.AnalyzeRequest) (*oracle.Analysis, error) {
	s.analyzeCalls++
	if s.analyzeErr != nil {
		return nil, s.analyzeErr
	}
	if len(s.analyses) == 0 {
		return &oracle.Analysis{OverallStatus: "success"}, nil
	}
	next := s.analyses[0]
	s.analyses = s.analyses[1:]
	return next, nil
}

func (s *stubOracle) WebSearchConsult(ctx context.Context, req oracle.ConsultRequest) (*types.Consultation, error) {
	s.consultCalls++
	if s.consultErr != nil {
		return nil, s.consultErr
	}
	if len(s.consultations) == 0 {
		return &types.Consultation{ShouldContinue: true, Index: req.Index, Timestamp: time.Now()}, nil
	}
	next := s.consultations[0]
	s.consultations = s.consultations[1:]
	return next, nil
}

func cleanAnalysis() *oracle.Analysis {
	return &oracle.Analysis{OverallStatus: "success", Summary: "environment healthy"}
}

func conflictAnalysis(solutions ...types.Solution) *oracle.Analysis {
	return &oracle.Analysis{
		OverallStatus: "needs_attention",
		Summary:       "version conflict detected",
		Diagnosis: &types.Diagnosis{
			ConflictKind:     "version_conflict",
			RootCauseSummary: "tensorflow 2.10 requires numpy<1.24",
			Confidence:       types.ConfidenceHigh,
		},
		Solutions: solutions,
	}
}

func pinSolution(command string) types.Solution {
	return types.Solution{
		Description: "pin the conflicting package",
		Commands:    []string{command},
		Tier:        types.TierStatic,
		Confidence:  types.ConfidenceHigh,
	}
}

func TestRunSolvedOnCleanInstall(t *testing.T) {
	runner := newScriptedRunner()
	runner.succeed("pip install requests")
	client := &stubOracle{analyses: []*oracle.Analysis{cleanAnalysis()}}
	led := ledger.New()

	a := New(Config{MaxRetries: 3}, runner, client, led, nil, nil, nil)
	state, err := a.Run(context.Background(), []string{"requests"})

	require.NoError(t, err)
	assert.Equal(t, types.StatusSolved, state.Status)
	assert.Equal(t, 1, state.Iterations)
	assert.Equal(t, 1, state.Consultations)
	assert.Equal(t, 0, state.WebSearches)
	assert.Equal(t, 1, led.Len())
	assert.True(t, led.Succeeded(ledger.CommandSignature("pip install requests")))
}

func TestRunAppliesProposedFixAndSolves(t *testing.T) {
	runner := newScriptedRunner()
	runner.failWith("pip install numpy==1.24.0",
		"ERROR: tensorflow 2.10 requires numpy<1.24, but you have numpy 1.24.0 which is incompatible")
	runner.succeed(`pip install "numpy<1.24"`)

	client := &stubOracle{analyses: []*oracle.Analysis{
		conflictAnalysis(),
		conflictAnalysis(pinSolution(`pip install "numpy<1.24"`)),
		cleanAnalysis(),
	}}
	led := ledger.New()

	a := New(Config{MaxRetries: 3, AutoApply: true}, runner, client, led, nil, nil, nil)
	state, err := a.Run(context.Background(), []string{"numpy==1.24.0"})

	require.NoError(t, err)
	assert.Equal(t, types.StatusSolved, state.Status)
	assert.Equal(t, 2, state.Iterations)
	assert.GreaterOrEqual(t, state.Consultations, 1)
	assert.Equal(t, 0, state.WebSearches)

	// Both the failed install and the successful pin are on the ledger.
	assert.True(t, led.Failed(ledger.CommandSignature("pip install numpy==1.24.0")))
	assert.True(t, led.Succeeded(ledger.CommandSignature(`pip install "numpy<1.24"`)))
	assert.NotEmpty(t, led.Diagnoses())
}

func TestRunCollectsPreventionTips(t *testing.T) {
	runner := newScriptedRunner()
	client := &stubOracle{analyses: []*oracle.Analysis{
		{
			OverallStatus:  "needs_attention",
			Summary:        "version conflict detected",
			PreventionTips: []string{"pin numpy in requirements.txt"},
		},
		{
			OverallStatus:  "needs_attention",
			Summary:        "version conflict detected",
			PreventionTips: []string{"pin numpy in requirements.txt", "prefer --dry-run before large upgrades"},
		},
	}}
	led := ledger.New()

	a := New(Config{MaxRetries: 1}, runner, client, led, nil, nil, nil)
	state, err := a.Run(context.Background(), []string{"numpy==1.24.0"})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"pin numpy in requirements.txt",
		"prefer --dry-run before large upgrades",
	}, state.PreventionTips, "tips must survive the handoff without duplicates")
}

func TestRunEscalatesOnRepeatedFingerprint(t *testing.T) {
	// Both iterations fail with the same error text, so the second
	// failure shares the first's fingerprint and triggers web search.
	runner := newScriptedRunner()
	runner.failWith("pip install torch", "ERROR: no matching distribution for torch")
	runner.failWith("pip install torch==1.13", "ERROR: no matching distribution for torch")

	client := &stubOracle{
		analyses: []*oracle.Analysis{
			conflictAnalysis(pinSolution("pip install torch==1.13")),
			conflictAnalysis(pinSolution("pip install torch==1.13")),
			conflictAnalysis(),
			conflictAnalysis(),
		},
		consultations: []*types.Consultation{{
			ShouldContinue: true,
			Solutions:      []types.Solution{pinSolution("pip install torch==1.12")},
		}},
	}
	led := ledger.New()

	a := New(Config{MaxRetries: 2, AutoApply: true}, runner, client, led, nil, nil, nil)
	state, err := a.Run(context.Background(), []string{"torch"})

	require.NoError(t, err)
	assert.Equal(t, types.StatusExhausted, state.Status)
	assert.Equal(t, 1, client.consultCalls, "expected exactly one web escalation")
	assert.Equal(t, 1, state.WebSearches)
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	runner := newScriptedRunner()
	client := &stubOracle{analyses: []*oracle.Analysis{
		conflictAnalysis(pinSolution("pip install fix-one")),
		conflictAnalysis(pinSolution("pip install fix-one")),
		conflictAnalysis(pinSolution("pip install fix-two")),
		conflictAnalysis(pinSolution("pip install fix-two")),
		conflictAnalysis(pinSolution("pip install fix-three")),
		conflictAnalysis(pinSolution("pip install fix-three")),
	}}
	led := ledger.New()

	a := New(Config{MaxRetries: 3, AutoApply: true}, runner, client, led, nil, nil, nil)
	state, err := a.Run(context.Background(), []string{"broken-package"})

	require.NoError(t, err)
	assert.Equal(t, types.StatusExhausted, state.Status)
	assert.Equal(t, 3, state.Iterations, "loop must stop at the retry budget")
}

func TestRunWithoutAutoApplyHandsOffAfterOneIteration(t *testing.T) {
	runner := newScriptedRunner()
	client := &stubOracle{analyses: []*oracle.Analysis{
		conflictAnalysis(),
		conflictAnalysis(pinSolution(`pip install "numpy<1.24"`)),
	}}
	led := ledger.New()

	a := New(Config{MaxRetries: 3}, runner, client, led, nil, nil, nil)
	state, err := a.Run(context.Background(), []string{"numpy==1.24.0"})

	require.NoError(t, err)
	assert.Equal(t, types.StatusExhausted, state.Status)
	assert.Equal(t, 1, state.Iterations)
	require.Len(t, state.Pending, 1, "proposed solutions must survive the handoff")
	assert.Equal(t, `pip install "numpy<1.24"`, state.Pending[0].Commands[0])
}

func TestRunFallsBackToStaticRulesWhenOracleDown(t *testing.T) {
	runner := newScriptedRunner()
	client := &stubOracle{analyzeErr: &oracle.OracleUnavailableError{Op: "analyze", Err: fmt.Errorf("connection refused")}}
	led := ledger.New()

	a := New(Config{MaxRetries: 1}, runner, client, led, oracle.DefaultRules(), nil, nil)
	state, err := a.Run(context.Background(), []string{"tensorflow==2.10.0", "numpy==1.24.0"})

	require.NoError(t, err)
	assert.Equal(t, types.StatusExhausted, state.Status)
	require.NotEmpty(t, state.Pending, "static rule must supply a candidate")
	assert.Equal(t, types.TierStatic, state.Pending[0].Tier)
	assert.Contains(t, state.Pending[0].SourceReference, "static-rule:")
}

func TestRunWithNilOracleUsesStaticRulesOnly(t *testing.T) {
	runner := newScriptedRunner()
	runner.succeed("pip install requests")
	led := ledger.New()

	a := New(Config{MaxRetries: 1}, runner, nil, led, oracle.DefaultRules(), nil, nil)
	state, err := a.Run(context.Background(), []string{"requests"})

	require.NoError(t, err)
	assert.Equal(t, types.StatusSolved, state.Status)
	assert.Equal(t, 0, state.Consultations)
}

func TestRunNeverReproposesAttemptedCommands(t *testing.T) {
	runner := newScriptedRunner()
	// The oracle keeps proposing the original failing command.
	client := &stubOracle{analyses: []*oracle.Analysis{
		conflictAnalysis(),
		conflictAnalysis(pinSolution("pip install broken-package")),
	}}
	led := ledger.New()

	a := New(Config{MaxRetries: 1}, runner, client, led, nil, nil, nil)
	state, err := a.Run(context.Background(), []string{"broken-package"})

	require.NoError(t, err)
	assert.Empty(t, state.Pending, "an already-attempted command must be filtered out")
}

func TestRunStopsAtCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newScriptedRunner()
	a := New(Config{MaxRetries: 3}, runner, &stubOracle{}, ledger.New(), nil, nil, nil)
	_, err := a.Run(ctx, []string{"requests"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runner.executed, "no command may start after cancellation")
}

func TestRunRequiresPackages(t *testing.T) {
	a := New(Config{}, newScriptedRunner(), &stubOracle{}, ledger.New(), nil, nil, nil)
	_, err := a.Run(context.Background(), nil)
	assert.Error(t, err)
}
