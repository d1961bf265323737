package resolver

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/executor"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/ledger"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/oracle"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
	"github.com/TarqGaur/Perfect-Package-Downloader/internal/workspace"
)

// scriptedRunner returns canned results per command. Unknown commands
// fail with a fixed conflict error; verification passes unless a step
// is scripted to fail.
type scriptedRunner struct {
	ok         map[string]bool
	failVerify map[string]bool
	finalFails bool
	executed   []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{ok: make(map[string]bool), failVerify: make(map[string]bool)}
}

func (s *scriptedRunner) succeed(commands ...string) {
	for _, cmd := range commands {
		s.ok[cmd] = true
	}
}

func (s *scriptedRunner) Execute(ctx context.Context, command string) (*executor.Result, error) {
	s.executed = append(s.executed, command)
	if s.ok[command] {
		return &executor.Result{Command: command, Stdout: "Successfully installed"}, nil
	}
	return &executor.Result{
		Command:    command,
		ExitStatus: 1,
		Stderr:     "ERROR: dependency conflict while running " + command,
	}, nil
}

func (s *scriptedRunner) Verify(ctx context.Context, step string) (*executor.Result, error) {
	if step == "" {
		step = "pip check"
		if s.finalFails {
			return &executor.Result{Command: step, ExitStatus: 1, Stderr: "ERROR: broken requirements"}, nil
		}
		return &executor.Result{Command: step, Stdout: "No broken requirements found."}, nil
	}
	if s.failVerify[step] {
		return &executor.Result{Command: step, ExitStatus: 1, Stderr: "ERROR: verification failed"}, nil
	}
	return &executor.Result{Command: step, Stdout: "ok"}, nil
}

// stubOracle returns canned consultations in call order
type stubOracle struct {
	consultations []*types.Consultation
	consultErr    error
	consultCalls  int
}

func (s *stubOracle) Analyze(ctx context.Context, req oracle.AnalyzeRequest) (*oracle.Analysis, error) {
	return &oracle.Analysis{OverallStatus: "success"}, nil
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

func pinSolution(description, command string) types.Solution {
	return types.Solution{
		Description:      description,
		Commands:         []string{command},
		Tier:             types.TierStatic,
		Confidence:       types.ConfidenceHigh,
		VerificationStep: "pip show numpy",
	}
}

// ledgerWithFailure returns a ledger carrying one failed local
// attempt, the precondition for any web-search escalation.
func ledgerWithFailure(t *testing.T) *ledger.Ledger {
	t.Helper()
	led := ledger.New()
	stderr := "ERROR: dependency conflict installing tensorflow==2.10"
	require.NoError(t, led.Append(types.AttemptRecord{
		ID:          "attempt-0",
		Command:     "pip install tensorflow==2.10",
		Signature:   ledger.CommandSignature("pip install tensorflow==2.10"),
		Tier:        types.TierStatic,
		IssuedBy:    types.IssuedBySelf,
		Timestamp:   time.Now().Add(-time.Minute),
		Outcome:     types.OutcomeFailure,
		ExitStatus:  1,
		Stderr:      stderr,
		Fingerprint: ledger.ErrorFingerprint(stderr),
	}))
	return led
}

func seedWith(solutions ...types.Solution) *types.ResolutionState {
	return &types.ResolutionState{
		SessionID: "session-test",
		Status:    types.StatusExhausted,
		Pending:   solutions,
		StartedAt: time.Now(),
	}
}

func TestRunSolvesWithFirstSolution(t *testing.T) {
	runner := newScriptedRunner()
	runner.succeed(`pip install "numpy<1.24"`)
	led := ledger.New()

	r := New(Config{MaxConsultations: 8}, runner, &stubOracle{}, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith(pinSolution("pin numpy", `pip install "numpy<1.24"`)))

	require.NoError(t, err)
	assert.True(t, report.Solved())
	assert.Equal(t, types.ReasonNone, report.Reason)
	require.Len(t, report.SolutionHistory, 1)
	assert.Equal(t, types.OutcomeSuccess, report.SolutionHistory[0].Outcome)
	assert.Equal(t, "session-test", report.SessionID)
	assert.True(t, led.Succeeded(ledger.CommandSignature(`pip install "numpy<1.24"`)))
	assert.Equal(t, 1, report.SuccessfulCommands)
}

func TestRunVerificationGateBlocksSuccess(t *testing.T) {
	// The install command exits clean but its verification step fails,
	// so the solution must not count as a resolution.
	runner := newScriptedRunner()
	runner.succeed(`pip install "numpy<1.24"`)
	runner.failVerify["pip show numpy"] = true
	led := ledger.New()

	r := New(Config{MaxConsultations: 8}, runner, nil, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith(pinSolution("pin numpy", `pip install "numpy<1.24"`)))

	require.NoError(t, err)
	assert.False(t, report.Solved())
	assert.Equal(t, types.ReasonTierExhausted, report.Reason)
	require.Len(t, report.SolutionHistory, 1)
	assert.Equal(t, types.OutcomeVerifyFailed, report.SolutionHistory[0].Outcome)

	// The verification failure is on the ledger as a failure class.
	assert.True(t, led.Failed(ledger.CommandSignature(`pip install "numpy<1.24"`)))
}

func TestRunFinalCheckBlocksSuccess(t *testing.T) {
	runner := newScriptedRunner()
	runner.succeed(`pip install "numpy<1.24"`)
	runner.finalFails = true
	led := ledger.New()

	r := New(Config{MaxConsultations: 8}, runner, nil, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith(pinSolution("pin numpy", `pip install "numpy<1.24"`)))

	require.NoError(t, err)
	assert.False(t, report.Solved())
	assert.Equal(t, types.OutcomeVerifyFailed, report.SolutionHistory[0].Outcome)
}

func TestRunEscalatesToWebSearchAndSolves(t *testing.T) {
	runner := newScriptedRunner()
	runner.succeed("pip install numpy==1.23.5")
	led := ledgerWithFailure(t)

	client := &stubOracle{consultations: []*types.Consultation{{
		ShouldContinue: true,
		Solutions: []types.Solution{{
			Description:     "install last compatible numpy",
			Commands:        []string{"pip install numpy==1.23.5"},
			Tier:            types.TierWebVerified,
			Confidence:      types.ConfidenceHigh,
			SourceReference: "https://github.com/tensorflow/tensorflow/issues/12345",
		}},
	}}}

	r := New(Config{MaxConsultations: 8}, runner, client, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith())

	require.NoError(t, err)
	assert.True(t, report.Solved())
	assert.Equal(t, 1, report.WebSearches)
	assert.Equal(t, 1, client.consultCalls)

	records := led.Records()
	require.Len(t, records, 2)
	assert.Equal(t, types.IssuedByWebSearch, records[1].IssuedBy)
	assert.Equal(t, types.TierWebVerified, records[1].Tier)
}

func TestRunNeverConsultsWithoutLocalFailure(t *testing.T) {
	// A fresh session with nothing on the ledger has nothing to
	// research; the web-search oracle must stay untouched.
	runner := newScriptedRunner()
	client := &stubOracle{consultations: []*types.Consultation{{
		ShouldContinue: true,
		Solutions:      []types.Solution{pinSolution("speculative fix", "pip install whatever")},
	}}}

	r := New(Config{MaxConsultations: 8}, runner, client, ledger.New(), nil, nil)
	report, err := r.Run(context.Background(), nil)

	require.NoError(t, err)
	assert.False(t, report.Solved())
	assert.Equal(t, types.ReasonTierExhausted, report.Reason)
	assert.Equal(t, 0, client.consultCalls, "web-search oracle consulted with no failed attempt on record")
	assert.Equal(t, 0, report.WebSearches)
	assert.Empty(t, runner.executed)
}

func TestRunCarriesPreventionTipsIntoReport(t *testing.T) {
	runner := newScriptedRunner()
	runner.succeed(`pip install "numpy<1.24"`)

	seed := seedWith(pinSolution("pin numpy", `pip install "numpy<1.24"`))
	seed.PreventionTips = []string{"pin numpy below 1.24 next to tensorflow 2.10"}

	r := New(Config{MaxConsultations: 8}, runner, nil, ledger.New(), nil, nil)
	report, err := r.Run(context.Background(), seed)

	require.NoError(t, err)
	assert.True(t, report.Solved())
	assert.Contains(t, report.PreventionTips, "pin numpy below 1.24 next to tensorflow 2.10")
}

func TestRunConsultationBudgetExhausted(t *testing.T) {
	// The oracle keeps answering with nothing usable; the loop must
	// stop at the consultation budget, not spin forever.
	runner := newScriptedRunner()
	client := &stubOracle{}
	led := ledgerWithFailure(t)

	r := New(Config{MaxConsultations: 3}, runner, client, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith())

	require.NoError(t, err)
	assert.False(t, report.Solved())
	assert.Equal(t, types.ReasonBudgetExhausted, report.Reason)
	assert.Equal(t, 3, report.WebSearches)
	assert.Equal(t, 3, client.consultCalls)
}

func TestRunDeclaredImpossible(t *testing.T) {
	runner := newScriptedRunner()
	client := &stubOracle{consultations: []*types.Consultation{{
		ShouldContinue: false,
		NextSteps:      "use conda-forge builds instead",
		Alternatives: []types.AlternativePackage{{
			Original:    "tensorflow",
			Alternative: "tensorflow-cpu",
			Reason:      "same API without the GPU pin",
		}},
	}}}
	led := ledgerWithFailure(t)

	r := New(Config{MaxConsultations: 8}, runner, client, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith())

	require.NoError(t, err)
	assert.False(t, report.Solved())
	assert.Equal(t, types.ReasonDeclaredImpossible, report.Reason)
	require.Len(t, report.Alternatives, 1)
	assert.Equal(t, "tensorflow-cpu", report.Alternatives[0].Alternative)
}

func TestRunTierExhaustedWithoutOracle(t *testing.T) {
	runner := newScriptedRunner()
	led := ledger.New()

	r := New(Config{MaxConsultations: 8}, runner, nil, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith(pinSolution("pin", "pip install fix")))

	require.NoError(t, err)
	assert.False(t, report.Solved())
	assert.Equal(t, types.ReasonTierExhausted, report.Reason)
	assert.Equal(t, 0, report.WebSearches)
}

func TestRunTierExhaustedWhenOracleUnreachable(t *testing.T) {
	runner := newScriptedRunner()
	client := &stubOracle{consultErr: &oracle.OracleUnavailableError{Op: "web-search", Err: fmt.Errorf("connection refused")}}
	led := ledgerWithFailure(t)

	r := New(Config{MaxConsultations: 8}, runner, client, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith())

	require.NoError(t, err)
	assert.Equal(t, types.ReasonTierExhausted, report.Reason)
}

func TestRunTriesTiersInOrder(t *testing.T) {
	runner := newScriptedRunner()
	runner.succeed("pip install from-tier-two")
	led := ledger.New()

	seed := seedWith(
		types.Solution{
			Description: "system fix",
			Commands:    []string{"apt-get install libfoo"},
			Tier:        types.TierSystem,
			Confidence:  types.ConfidenceHigh,
		},
		types.Solution{
			Description: "web fix",
			Commands:    []string{"pip install from-tier-two"},
			Tier:        types.TierWebVerified,
			Confidence:  types.ConfidenceLow,
		},
	)

	r := New(Config{MaxConsultations: 8}, runner, nil, led, nil, nil)
	report, err := r.Run(context.Background(), seed)

	require.NoError(t, err)
	assert.True(t, report.Solved())
	// The lower tier ran first and succeeded; the system fix never ran.
	assert.Equal(t, []string{"pip install from-tier-two"}, runner.executed)
}

func TestRunNeverRetriesFailedCommand(t *testing.T) {
	runner := newScriptedRunner()
	led := ledger.New()

	// Two candidates share the same command; once it fails the second
	// candidate must be dropped, not retried.
	shared := "pip install conflicted"
	seed := seedWith(
		pinSolution("first try", shared),
		types.Solution{
			Description: "same command again",
			Commands:    []string{shared},
			Tier:        types.TierAlternative,
			Confidence:  types.ConfidenceMedium,
		},
	)

	r := New(Config{MaxConsultations: 8}, runner, nil, led, nil, nil)
	report, err := r.Run(context.Background(), seed)

	require.NoError(t, err)
	assert.False(t, report.Solved())

	count := 0
	for _, cmd := range runner.executed {
		if cmd == shared {
			count++
		}
	}
	assert.Equal(t, 1, count, "a failed command must never be re-executed")
}

func TestRunUndoCommandsRunFirst(t *testing.T) {
	runner := newScriptedRunner()
	runner.succeed("pip uninstall -y numpy", "pip install numpy==1.23.5")
	led := ledger.New()

	seed := seedWith(types.Solution{
		Description:  "replace numpy",
		Commands:     []string{"pip install numpy==1.23.5"},
		UndoCommands: []string{"pip uninstall -y numpy"},
		Tier:         types.TierStatic,
		Confidence:   types.ConfidenceHigh,
	})

	r := New(Config{MaxConsultations: 8}, runner, nil, led, nil, nil)
	report, err := r.Run(context.Background(), seed)

	require.NoError(t, err)
	assert.True(t, report.Solved())
	require.GreaterOrEqual(t, len(runner.executed), 2)
	assert.Equal(t, "pip uninstall -y numpy", runner.executed[0])
	assert.Equal(t, "pip install numpy==1.23.5", runner.executed[1])

	// Undo commands are not attempts; only the main command is recorded.
	assert.Equal(t, 1, led.Len())
}

func TestRunConfirmDeclinedSkipsSolution(t *testing.T) {
	runner := newScriptedRunner()
	led := ledger.New()

	declined := 0
	confirm := func(description string) bool {
		declined++
		return false
	}

	r := New(Config{MaxConsultations: 8, Confirm: confirm}, runner, nil, led, nil, nil)
	report, err := r.Run(context.Background(), seedWith(pinSolution("pin", "pip install fix")))

	require.NoError(t, err)
	assert.False(t, report.Solved())
	assert.Equal(t, 1, declined)
	assert.Empty(t, runner.executed, "declined solution must not run")
}

func TestRunWritesReportToWorkspace(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, workspace.Init(root))

	runner := newScriptedRunner()
	runner.succeed("pip install fix")
	led := ledger.New()

	r := New(Config{MaxConsultations: 8, Root: root}, runner, nil, led, nil, nil)
	_, err := r.Run(context.Background(), seedWith(pinSolution("pin", "pip install fix")))
	require.NoError(t, err)

	var report types.ResolutionReport
	require.NoError(t, workspace.LoadJSON(workspace.ReportPath(root), &report))
	assert.True(t, report.Solved())
	assert.NotEmpty(t, report.Ledger)
}

func TestRunWritesConsultationFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, workspace.Init(root))

	runner := newScriptedRunner()
	client := &stubOracle{consultations: []*types.Consultation{{ShouldContinue: false}}}
	led := ledgerWithFailure(t)

	r := New(Config{MaxConsultations: 8, Root: root}, runner, client, led, nil, nil)
	_, err := r.Run(context.Background(), seedWith())
	require.NoError(t, err)

	if _, statErr := os.Stat(workspace.ConsultationPath(root, 1)); statErr != nil {
		t.Errorf("consultation file not written: %v", statErr)
	}
}

func TestRunStopsAtCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newScriptedRunner()
	r := New(Config{MaxConsultations: 8}, runner, nil, ledger.New(), nil, nil)
	_, err := r.Run(ctx, seedWith(pinSolution("pin", "pip install fix")))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runner.executed)
}
