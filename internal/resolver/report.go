package resolver

import (
	"time"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

// buildReport assembles the write-once final artifact from the
// terminal state and the full merged ledger.
func (r *Resolver) buildReport(state *types.ResolutionState) *types.ResolutionReport {
	records := r.ledger.Records()
	successful := 0
	for i := range records {
		if !records[i].Failed() {
			successful++
		}
	}

	return &types.ResolutionReport{
		SessionID:          state.SessionID,
		Timestamp:          time.Now(),
		ResolutionStatus:   state.Status,
		Reason:             state.Reason,
		AIConsultations:    state.Consultations,
		WebSearches:        state.WebSearches,
		TotalCommands:      len(records),
		SuccessfulCommands: successful,
		SolutionHistory:    r.history,
		Ledger:             records,
		PreventionTips:     r.tips,
		Alternatives:       r.alternatives,
	}
}

// AddPreventionTips records oracle guidance for the report
func (r *Resolver) AddPreventionTips(tips []string) {
	r.tips = append(r.tips, tips...)
}
