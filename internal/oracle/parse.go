package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

// wire schema the oracle is prompted to produce

type issueWire struct {
	CommandIndex     string   `json:"command_index"`
	IssueType        string   `json:"issue_type"`
	Severity         string   `json:"severity"`
	Description      string   `json:"description"`
	AffectedPackages []string `json:"affected_packages"`
	RootCause        string   `json:"root_cause"`
}

type solutionWire struct {
	SolutionType    string   `json:"solution_type"`
	Priority        int      `json:"priority"`
	Description     string   `json:"description"`
	UndoCommands    []string `json:"undo_commands"`
	Commands        []string `json:"commands"`
	UserActions     []string `json:"user_actions"`
	SearchQuery     string   `json:"search_query"`
	ExpectedOutcome string   `json:"expected_outcome"`
	Verification    string   `json:"verification_command"`
	Confidence      string   `json:"confidence"`
	Tier            int      `json:"tier"`
	Source          string   `json:"source"`
	WebVerified     bool     `json:"web_verified"`
	FallbackIfFails string   `json:"fallback_if_fails"`
}

type analysisWire struct {
	OverallStatus  string         `json:"overall_status"`
	Summary        string         `json:"summary"`
	IssuesFound    []issueWire    `json:"issues_found"`
	Solutions      []solutionWire `json:"recommended_solutions"`
	PreventionTips []string       `json:"prevention_tips"`
	EnvRecs        []string       `json:"environment_recommendations"`
}

type searchWire struct {
	Query        string   `json:"query"`
	Findings     string   `json:"findings"`
	SourceURLs   []string `json:"source_urls"`
	Relevance    string   `json:"relevance"`
	SolutionType string   `json:"solution_type"`
}

type consultationWire struct {
	Searches        []searchWire               `json:"web_searches_performed"`
	RootCause       string                     `json:"root_cause_analysis"`
	NewStrategy     string                     `json:"new_strategy"`
	ConfidenceLevel string                     `json:"confidence_level"`
	Solutions       []solutionWire             `json:"recommended_solutions"`
	Alternatives    []types.AlternativePackage `json:"alternative_packages"`
	ShouldContinue  *bool                      `json:"should_continue"`
	NextSteps       string                     `json:"next_steps"`
}

// ExtractJSON pulls the outermost JSON object from a response that may
// be wrapped in prose or markdown fences.
func ExtractJSON(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	return []byte(text[start : end+1]), nil
}

func parseAnalysis(content string, mode types.AnalysisMode) (*Analysis, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var wire analysisWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("cannot decode analysis: %w", err)
	}

	analysis := &Analysis{
		OverallStatus:  wire.OverallStatus,
		Summary:        wire.Summary,
		PreventionTips: wire.PreventionTips,
	}

	if len(wire.IssuesFound) > 0 {
		issue := wire.IssuesFound[0]
		analysis.Diagnosis = &types.Diagnosis{
			ConflictKind:     issue.IssueType,
			RootCauseSummary: issue.RootCause,
			Confidence:       severityToConfidence(issue.Severity),
		}
	}

	for _, sw := range wire.Solutions {
		sol, ok := mapSolution(sw, mode)
		if !ok {
			continue
		}
		analysis.Solutions = append(analysis.Solutions, sol)
	}
	return analysis, nil
}

func parseConsultation(content string) (*types.Consultation, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var wire consultationWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("cannot decode consultation: %w", err)
	}

	consultation := &types.Consultation{
		RootCause:      wire.RootCause,
		NewStrategy:    wire.NewStrategy,
		Alternatives:   wire.Alternatives,
		NextSteps:      wire.NextSteps,
		ShouldContinue: true,
	}
	if wire.ShouldContinue != nil {
		consultation.ShouldContinue = *wire.ShouldContinue
	}

	for _, sw := range wire.Searches {
		consultation.Searches = append(consultation.Searches, types.WebSearch{
			Query:      sw.Query,
			Findings:   sw.Findings,
			SourceURLs: sw.SourceURLs,
			Relevance:  sw.Relevance,
		})
	}

	for _, sw := range wire.Solutions {
		sw.WebVerified = sw.WebVerified || sw.Source != ""
		sol, ok := mapSolution(sw, types.ModeEnhanced)
		if !ok {
			continue
		}
		if sol.Confidence == types.ConfidenceMedium && wire.ConfidenceLevel != "" {
			if c := types.Confidence(strings.ToLower(wire.ConfidenceLevel)); c.IsValid() {
				sol.Confidence = c
			}
		}
		consultation.Solutions = append(consultation.Solutions, sol)
	}
	return consultation, nil
}

// mapSolution converts a wire solution to the domain model. Only
// command-bearing solutions survive; user actions and bare search
// suggestions are dropped here.
func mapSolution(sw solutionWire, mode types.AnalysisMode) (types.Solution, bool) {
	if len(sw.Commands) == 0 {
		return types.Solution{}, false
	}
	switch sw.SolutionType {
	case "commands", "environment_setup", "":
	default:
		return types.Solution{}, false
	}

	sol := types.Solution{
		Description:      sw.Description,
		Commands:         sw.Commands,
		UndoCommands:     sw.UndoCommands,
		Tier:             tierFor(sw, mode),
		Confidence:       types.ConfidenceMedium,
		VerificationStep: sw.Verification,
		Fallback:         sw.FallbackIfFails,
		SourceReference:  sw.Source,
	}
	if c := types.Confidence(strings.ToLower(sw.Confidence)); c.IsValid() {
		sol.Confidence = c
	}
	return sol, true
}

func tierFor(sw solutionWire, mode types.AnalysisMode) types.Tier {
	if t := types.Tier(sw.Tier); t.IsValid() {
		return t
	}
	if sw.WebVerified {
		return types.TierWebVerified
	}
	if sw.SolutionType == "environment_setup" {
		return types.TierAlternative
	}
	if mode == types.ModeEnhanced && sw.Priority > 2 {
		return types.TierSystem
	}
	return types.TierStatic
}

func severityToConfidence(severity string) types.Confidence {
	switch strings.ToLower(severity) {
	case "critical", "high":
		return types.ConfidenceHigh
	case "medium":
		return types.ConfidenceMedium
	}
	return types.ConfidenceLow
}
