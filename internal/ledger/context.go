package ledger

import (
	"sort"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

// maxRecentErrors caps the error lines carried into oracle prompts
const maxRecentErrors = 10

// BuildContext derives a FailureContext from the ledger. It is a pure
// function of the ledger contents: rebuilding at any point yields the
// same result for the same records.
func BuildContext(l *Ledger) types.FailureContext {
	ctx := types.FailureContext{
		AttemptedSignatures: make(map[string]bool),
	}

	seenCmd := make(map[string]bool)
	seenFp := make(map[string]bool)

	for _, r := range l.records {
		ctx.AttemptedSignatures[r.Signature] = true
		if !seenCmd[r.Command] {
			seenCmd[r.Command] = true
			ctx.AttemptedCommands = append(ctx.AttemptedCommands, r.Command)
		}

		if !r.Failed() {
			continue
		}

		fp := r.Fingerprint
		if fp == "" {
			fp = ErrorFingerprint(r.Stdout + "\n" + r.Stderr)
		}
		if fp != "" && !seenFp[fp] {
			seenFp[fp] = true
			ctx.ErrorFingerprints = append(ctx.ErrorFingerprints, fp)
		}

		for _, line := range ExtractErrorLines(r.Stderr) {
			ctx.RecentErrors = append(ctx.RecentErrors, line)
		}
	}

	if len(ctx.RecentErrors) > maxRecentErrors {
		ctx.RecentErrors = ctx.RecentErrors[len(ctx.RecentErrors)-maxRecentErrors:]
	}

	sort.Strings(ctx.AttemptedCommands)
	ctx.PriorDiagnoses = append(ctx.PriorDiagnoses, l.diagnoses...)
	return ctx
}
