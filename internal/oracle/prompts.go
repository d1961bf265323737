package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The prompts demand JSON-only responses conforming to the wire schema
// in parse.go. Schemas are spelled out inline because the oracle has no
// other way to learn them.

func buildAnalysisPrompt(req AnalyzeRequest) (string, error) {
	outputs, err := json.MarshalIndent(numberedOutputs(req.Outputs), "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot serialize outputs: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("CRITICAL: You MUST respond with ONLY valid JSON. No text before or after the JSON.\n\n")
	sb.WriteString("TASK: Analyze the command outputs below and provide solutions for any package conflicts, dependency issues, or installation errors.\n\n")

	sb.WriteString("ANALYSIS CRITERIA:\n")
	sb.WriteString("- Version conflicts between packages\n")
	sb.WriteString("- Incompatible dependency versions\n")
	sb.WriteString("- Missing dependencies or build requirements\n")
	sb.WriteString("- Python version compatibility issues\n")
	sb.WriteString("- Permission or environment issues\n\n")

	if req.Mode.String() == "enhanced" {
		diagnostics, err := json.MarshalIndent(numberedOutputs(req.Diagnostics), "", "  ")
		if err != nil {
			return "", fmt.Errorf("cannot serialize diagnostics: %w", err)
		}
		sb.WriteString("ENVIRONMENT DIAGNOSTICS:\n")
		sb.Write(diagnostics)
		sb.WriteString("\n\n")
		sb.WriteString("ENHANCED ANALYSIS INSTRUCTIONS:\n")
		sb.WriteString("1. Use the diagnostic info to understand the current environment state\n")
		sb.WriteString("2. Cross-reference package versions to identify compatibility matrices\n")
		sb.WriteString("3. Consider transitive dependencies\n")
		sb.WriteString("4. Evaluate whether the issue needs a clean environment or an in-place fix\n\n")
	}

	if len(req.Context.AttemptedCommands) > 0 {
		sb.WriteString("ALREADY ATTEMPTED (do NOT propose these again):\n")
		for _, cmd := range req.Context.AttemptedCommands {
			sb.WriteString("- " + cmd + "\n")
		}
		sb.WriteString("\n")
	}
	if len(req.Context.RecentErrors) > 0 {
		sb.WriteString("RECENT ERROR MESSAGES:\n")
		sb.WriteString(strings.Join(req.Context.RecentErrors, "\n"))
		sb.WriteString("\n\n")
	}

	sb.WriteString(analysisSchema)
	sb.WriteString("\n\nCOMMAND OUTPUTS TO ANALYZE:\n")
	sb.Write(outputs)
	return sb.String(), nil
}

func buildConsultPrompt(req ConsultRequest) (string, error) {
	failed, err := json.MarshalIndent(req.FailedSolutions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot serialize failed solutions: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("CRITICAL SITUATION - ALL AUTOMATED SOLUTIONS HAVE FAILED\n")
	fmt.Fprintf(&sb, "Consultation #%d\n\n", req.Index)
	sb.WriteString("ORIGINAL PROBLEM:\n" + req.OriginalIssue + "\n\n")

	sb.WriteString("FAILED SOLUTIONS:\n")
	sb.Write(failed)
	sb.WriteString("\n\n")

	if len(req.Context.RecentErrors) > 0 {
		sb.WriteString("EXTRACTED ERROR MESSAGES:\n")
		sb.WriteString(strings.Join(req.Context.RecentErrors, "\n"))
		sb.WriteString("\n\n")
	}
	if len(req.Context.AttemptedCommands) > 0 {
		sb.WriteString("COMMANDS ALREADY TRIED (suggesting any of these again is a failure):\n")
		for _, cmd := range req.Context.AttemptedCommands {
			sb.WriteString("- " + cmd + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("MANDATORY WEB SEARCH TASKS:\n")
	sb.WriteString("1. Search for the exact error messages\n")
	sb.WriteString("2. Search version compatibility matrices for the affected packages\n")
	sb.WriteString("3. Search official documentation for known issues and workarounds\n")
	sb.WriteString("4. Search community solutions (issue trackers, forums)\n")
	sb.WriteString("5. Search for alternative packages if the originals are problematic\n\n")

	sb.WriteString(consultationSchema)
	return sb.String(), nil
}

func numberedOutputs(outputs []CommandOutput) map[string]CommandOutput {
	m := make(map[string]CommandOutput, len(outputs))
	for i, out := range outputs {
		m[fmt.Sprintf("%d", i+1)] = out
	}
	return m
}

const analysisSchema = `RESPONSE FORMAT: Respond ONLY in valid JSON with this exact structure:

{
  "overall_status": "success" | "needs_attention" | "critical_error",
  "summary": "Brief description of findings",
  "issues_found": [
    {
      "command_index": "1",
      "issue_type": "version_conflict" | "missing_dependency" | "build_error" | "permission_error" | "deprecation_warning" | "python_version_conflict" | "other",
      "severity": "low" | "medium" | "high" | "critical",
      "description": "Clear description of the specific issue",
      "affected_packages": ["package1", "package2"],
      "root_cause": "Explanation of why this happened"
    }
  ],
  "recommended_solutions": [
    {
      "solution_type": "commands" | "user_action" | "web_search" | "environment_setup",
      "priority": 1,
      "description": "What this solution does",
      "undo_commands": ["commands to undo past priority changes, empty array if none"],
      "commands": ["exact pip commands to run"],
      "verification_command": "command that must pass after applying",
      "confidence": "high" | "medium" | "low",
      "expected_outcome": "what should happen after applying this solution"
    }
  ],
  "prevention_tips": ["How to avoid similar issues in the future"]
}

IMPORTANT RULES:
1. If ALL commands executed successfully with no errors, set overall_status to "success" and keep issues_found empty
2. For version conflicts, suggest specific compatible version combinations
3. Always provide exact pip commands, not generic advice
4. Prioritize solutions by effectiveness and safety
5. RESPOND WITH ONLY JSON - NO OTHER TEXT`

const consultationSchema = `RESPONSE FORMAT (ONLY JSON):

{
  "web_searches_performed": [
    {
      "query": "exact search query used",
      "findings": "key insights discovered",
      "source_urls": ["url1", "url2"],
      "relevance": "high" | "medium" | "low"
    }
  ],
  "root_cause_analysis": "Why ALL previous solutions failed",
  "new_strategy": "Completely different approach based on web research",
  "confidence_level": "high" | "medium" | "low",
  "recommended_solutions": [
    {
      "solution_type": "commands",
      "priority": 1,
      "description": "What this does (based on web research)",
      "source": "URL where this solution was found",
      "web_verified": true,
      "undo_commands": [],
      "commands": ["exact pip commands"],
      "verification_command": "pip check",
      "confidence": "high" | "medium" | "low",
      "fallback_if_fails": "What to try next if this fails"
    }
  ],
  "alternative_packages": [
    {
      "original": "problematic-package",
      "alternative": "alternative-package",
      "reason": "Why this alternative is better"
    }
  ],
  "should_continue": true,
  "next_steps": "What to do if this consultation also fails"
}

CRITICAL REQUIREMENTS:
- DO NOT suggest anything already listed as tried
- Provide at least 3 completely different solutions
- Each solution must carry a source URL
- ONLY return valid JSON, no other text`
