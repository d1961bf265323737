package oracle

import (
	"strings"
	"testing"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "prose around object",
			input: "Sure, here is the analysis:\n{\"a\":1}\nLet me know!",
			want:  `{"a":1}`,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:    "no object",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ExtractJSON(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAnalysis(t *testing.T) {
	content := `Here is my assessment:
{
  "overall_status": "needs_attention",
  "summary": "tensorflow and numpy versions conflict",
  "issues_found": [
    {
      "command_index": "1",
      "issue_type": "version_conflict",
      "severity": "critical",
      "description": "tensorflow 2.10 cannot use numpy 1.24",
      "affected_packages": ["tensorflow", "numpy"],
      "root_cause": "tensorflow 2.10 requires numpy<1.24"
    }
  ],
  "recommended_solutions": [
    {
      "solution_type": "commands",
      "priority": 1,
      "description": "pin numpy below 1.24",
      "commands": ["pip install \"numpy<1.24\""],
      "verification_command": "pip check",
      "confidence": "high"
    },
    {
      "solution_type": "user_action",
      "priority": 2,
      "description": "consider upgrading tensorflow",
      "commands": []
    }
  ],
  "prevention_tips": ["pin versions in requirements.txt"]
}`

	analysis, err := parseAnalysis(content, types.ModeBasic)
	if err != nil {
		t.Fatalf("parseAnalysis failed: %v", err)
	}

	if analysis.OverallStatus != "needs_attention" {
		t.Errorf("overall status = %q", analysis.OverallStatus)
	}
	if analysis.Clean() {
		t.Error("needs_attention analysis reported clean")
	}
	if analysis.Diagnosis == nil {
		t.Fatal("diagnosis missing")
	}
	if analysis.Diagnosis.ConflictKind != "version_conflict" {
		t.Errorf("conflict kind = %q", analysis.Diagnosis.ConflictKind)
	}
	if analysis.Diagnosis.Confidence != types.ConfidenceHigh {
		t.Errorf("critical severity mapped to %q, want high", analysis.Diagnosis.Confidence)
	}

	// The user_action solution carries no commands and is dropped.
	if len(analysis.Solutions) != 1 {
		t.Fatalf("got %d solutions, want 1", len(analysis.Solutions))
	}
	sol := analysis.Solutions[0]
	if sol.Tier != types.TierStatic {
		t.Errorf("tier = %d, want %d", sol.Tier, types.TierStatic)
	}
	if sol.Confidence != types.ConfidenceHigh {
		t.Errorf("confidence = %q, want high", sol.Confidence)
	}
	if sol.VerificationStep != "pip check" {
		t.Errorf("verification step = %q", sol.VerificationStep)
	}
	if len(analysis.PreventionTips) != 1 {
		t.Errorf("prevention tips = %v", analysis.PreventionTips)
	}
}

func TestParseAnalysisCleanSuccess(t *testing.T) {
	analysis, err := parseAnalysis(`{"overall_status":"success","summary":"all good","issues_found":[],"recommended_solutions":[]}`, types.ModeBasic)
	if err != nil {
		t.Fatalf("parseAnalysis failed: %v", err)
	}
	if !analysis.Clean() {
		t.Error("success with no solutions not reported clean")
	}
	if analysis.Diagnosis != nil {
		t.Error("unexpected diagnosis on clean analysis")
	}
}

func TestParseConsultation(t *testing.T) {
	content := `{
  "web_searches_performed": [
    {
      "query": "tensorflow 2.10 numpy 1.24 incompatible",
      "findings": "known incompatibility, numpy must stay below 1.24",
      "source_urls": ["https://github.com/tensorflow/tensorflow/issues/12345"],
      "relevance": "exact match"
    }
  ],
  "root_cause_analysis": "tensorflow 2.10 pins numpy<1.24 at build time",
  "new_strategy": "downgrade numpy rather than upgrade tensorflow",
  "confidence_level": "high",
  "recommended_solutions": [
    {
      "solution_type": "commands",
      "description": "install the last compatible numpy",
      "commands": ["pip install numpy==1.23.5"],
      "source": "https://github.com/tensorflow/tensorflow/issues/12345",
      "verification_command": "pip check"
    },
    {
      "solution_type": "environment_setup",
      "description": "rebuild in a clean virtualenv",
      "commands": ["python3 -m venv fresh", "fresh/bin/pip install tensorflow==2.10"]
    }
  ],
  "alternative_packages": [
    {"original": "tensorflow", "alternative": "tensorflow-cpu", "reason": "lighter build, same pin"}
  ],
  "should_continue": true,
  "next_steps": "try the pin first"
}`

	consultation, err := parseConsultation(content)
	if err != nil {
		t.Fatalf("parseConsultation failed: %v", err)
	}

	if len(consultation.Searches) != 1 {
		t.Fatalf("got %d searches, want 1", len(consultation.Searches))
	}
	if !consultation.ShouldContinue {
		t.Error("should_continue lost")
	}
	if len(consultation.Solutions) != 2 {
		t.Fatalf("got %d solutions, want 2", len(consultation.Solutions))
	}

	// A sourced solution is web-verified, Tier 2.
	sourced := consultation.Solutions[0]
	if sourced.Tier != types.TierWebVerified {
		t.Errorf("sourced solution tier = %d, want %d", sourced.Tier, types.TierWebVerified)
	}
	if sourced.SourceReference == "" {
		t.Error("source reference lost")
	}
	if sourced.Confidence != types.ConfidenceHigh {
		t.Errorf("global confidence_level not applied: %q", sourced.Confidence)
	}

	// environment_setup maps to the alternative tier.
	env := consultation.Solutions[1]
	if env.Tier != types.TierAlternative {
		t.Errorf("environment solution tier = %d, want %d", env.Tier, types.TierAlternative)
	}

	if len(consultation.Alternatives) != 1 {
		t.Errorf("alternatives = %v", consultation.Alternatives)
	}
}

func TestParseConsultationDefaultsToContinue(t *testing.T) {
	consultation, err := parseConsultation(`{"recommended_solutions":[]}`)
	if err != nil {
		t.Fatalf("parseConsultation failed: %v", err)
	}
	if !consultation.ShouldContinue {
		t.Error("missing should_continue must default to true")
	}
}

func TestParseConsultationDeclaredImpossible(t *testing.T) {
	consultation, err := parseConsultation(`{"should_continue": false, "next_steps": "use conda instead"}`)
	if err != nil {
		t.Fatalf("parseConsultation failed: %v", err)
	}
	if consultation.ShouldContinue {
		t.Error("explicit should_continue=false ignored")
	}
	if consultation.NextSteps == "" {
		t.Error("next_steps lost")
	}
}

func TestTierForExplicitTierWins(t *testing.T) {
	sw := solutionWire{Tier: 3, WebVerified: true, Commands: []string{"x"}}
	if got := tierFor(sw, types.ModeBasic); got != types.TierAlternative {
		t.Errorf("explicit tier ignored, got %d", got)
	}
}

func TestTierForEnhancedPriority(t *testing.T) {
	sw := solutionWire{Priority: 3, Commands: []string{"x"}}
	if got := tierFor(sw, types.ModeEnhanced); got != types.TierSystem {
		t.Errorf("enhanced high-priority solution tier = %d, want %d", got, types.TierSystem)
	}
	if got := tierFor(sw, types.ModeBasic); got != types.TierStatic {
		t.Errorf("basic mode tier = %d, want %d", got, types.TierStatic)
	}
}

func TestSeverityToConfidence(t *testing.T) {
	tests := []struct {
		severity string
		want     types.Confidence
	}{
		{"critical", types.ConfidenceHigh},
		{"HIGH", types.ConfidenceHigh},
		{"medium", types.ConfidenceMedium},
		{"low", types.ConfidenceLow},
		{"", types.ConfidenceLow},
	}
	for _, tt := range tests {
		if got := severityToConfidence(tt.severity); got != tt.want {
			t.Errorf("severityToConfidence(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestBuildAnalysisPromptCarriesContext(t *testing.T) {
	fc := types.FailureContext{
		AttemptedCommands: []string{"pip install numpy==1.24.0"},
		RecentErrors:      []string{"ERROR: tensorflow 2.10 requires numpy<1.24"},
	}
	prompt, err := buildAnalysisPrompt(AnalyzeRequest{
		Mode:    types.ModeEnhanced,
		Context: fc,
		Outputs: []CommandOutput{{Command: "pip install numpy==1.24.0", ExitStatus: 1, Output: "boom"}},
		Diagnostics: []CommandOutput{
			{Command: "pip check", ExitStatus: 1, Output: "broken deps"},
		},
	})
	if err != nil {
		t.Fatalf("buildAnalysisPrompt failed: %v", err)
	}

	for _, want := range []string{
		"pip install numpy==1.24.0",
		"requires numpy<1.24",
		"pip check",
		"JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
