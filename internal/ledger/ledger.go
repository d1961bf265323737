// Package ledger implements the append-only attempt ledger and the
// failure context derived from it. The ledger is the single source of
// truth for everything tried across a run and across sessions.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

// historyVersion guards the persisted history schema
const historyVersion = "1.0"

// Ledger accumulates attempt records and diagnoses. Records are
// append-only: never mutated, never deleted. A single loop writes at a
// time; writes are flushed to the history file on each append when a
// persist path is set.
type Ledger struct {
	records   []types.AttemptRecord
	diagnoses []types.Diagnosis

	// bysig indexes record positions by command signature
	bysig map[string][]int

	persistPath string
}

// historyFile is the on-disk shape of the merged history
type historyFile struct {
	Version   string                `json:"version"`
	Records   []types.AttemptRecord `json:"records"`
	Diagnoses []types.Diagnosis     `json:"diagnoses"`
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{bysig: make(map[string][]int)}
}

// SetPersistPath enables flush-on-append to the given history file
func (l *Ledger) SetPersistPath(path string) {
	l.persistPath = path
}

// Append records an attempt. It fails with DuplicateAttemptError if an
// identical signature already succeeded, and with RepeatedFailureError
// if it already failed and the record carries no reissue context.
func (l *Ledger) Append(record types.AttemptRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	for _, idx := range l.bysig[record.Signature] {
		prior := l.records[idx]
		if prior.Outcome == types.OutcomeSuccess {
			return &DuplicateAttemptError{Signature: record.Signature}
		}
		if record.Reissue == "" {
			return &RepeatedFailureError{Signature: record.Signature}
		}
	}

	l.records = append(l.records, record)
	l.bysig[record.Signature] = append(l.bysig[record.Signature], len(l.records)-1)

	if l.persistPath != "" {
		if err := l.Save(l.persistPath); err != nil {
			return fmt.Errorf("cannot flush ledger: %w", err)
		}
	}
	return nil
}

// AppendDiagnosis adds an oracle diagnosis to the history
func (l *Ledger) AppendDiagnosis(d types.Diagnosis) {
	l.diagnoses = append(l.diagnoses, d)
	if l.persistPath != "" {
		// Best effort: diagnoses ride along with the next record flush
		// if this write fails.
		_ = l.Save(l.persistPath)
	}
}

// Records returns a copy of all records in append order
func (l *Ledger) Records() []types.AttemptRecord {
	out := make([]types.AttemptRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Diagnoses returns a copy of all diagnoses in append order
func (l *Ledger) Diagnoses() []types.Diagnosis {
	out := make([]types.Diagnosis, len(l.diagnoses))
	copy(out, l.diagnoses)
	return out
}

// Len returns the number of records
func (l *Ledger) Len() int {
	return len(l.records)
}

// Signatures returns the set of all command identities ever attempted
func (l *Ledger) Signatures() map[string]bool {
	set := make(map[string]bool, len(l.bysig))
	for sig := range l.bysig {
		set[sig] = true
	}
	return set
}

// Succeeded reports whether a signature ever succeeded
func (l *Ledger) Succeeded(signature string) bool {
	for _, idx := range l.bysig[signature] {
		if l.records[idx].Outcome == types.OutcomeSuccess {
			return true
		}
	}
	return false
}

// HasFailures reports whether any attempt on the ledger failed
func (l *Ledger) HasFailures() bool {
	for i := range l.records {
		if l.records[i].Failed() {
			return true
		}
	}
	return false
}

// Failed reports whether a signature ever failed
func (l *Ledger) Failed(signature string) bool {
	for _, idx := range l.bysig[signature] {
		if l.records[idx].Failed() {
			return true
		}
	}
	return false
}

// Load merges a history file into the ledger. Prior sessions' records
// are merged, never discarded. Loading the same file twice is a no-op:
// records are deduplicated by signature plus timestamp.
func (l *Ledger) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no history yet
		}
		return fmt.Errorf("cannot open history: %w", err)
	}
	defer file.Close()

	var hist historyFile
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&hist); err != nil {
		return fmt.Errorf("cannot decode history: %w", err)
	}

	seen := make(map[string]bool, len(l.records))
	for _, r := range l.records {
		seen[mergeKey(&r)] = true
	}

	for _, r := range hist.Records {
		if seen[mergeKey(&r)] {
			continue
		}
		seen[mergeKey(&r)] = true
		l.records = append(l.records, r)
		l.bysig[r.Signature] = append(l.bysig[r.Signature], len(l.records)-1)
	}

	seenDiag := make(map[string]bool, len(l.diagnoses))
	for _, d := range l.diagnoses {
		seenDiag[d.ConflictKind+"\x00"+d.RootCauseSummary] = true
	}
	for _, d := range hist.Diagnoses {
		key := d.ConflictKind + "\x00" + d.RootCauseSummary
		if seenDiag[key] {
			continue
		}
		seenDiag[key] = true
		l.diagnoses = append(l.diagnoses, d)
	}

	// Keep the merged view in chronological order so the derived
	// context's ordered sequences stay deterministic.
	l.sortByTimestamp()
	return nil
}

// Save writes the full history atomically (temp file, then rename)
func (l *Ledger) Save(path string) error {
	hist := historyFile{
		Version:   historyVersion,
		Records:   l.records,
		Diagnoses: l.diagnoses,
	}

	data, err := json.MarshalIndent(hist, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal history: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("cannot write temp history file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("cannot rename temp history file: %w", err)
	}
	return nil
}

func mergeKey(r *types.AttemptRecord) string {
	return r.Signature + "\x00" + r.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000")
}

func (l *Ledger) sortByTimestamp() {
	sort.SliceStable(l.records, func(i, j int) bool {
		return l.records[i].Timestamp.Before(l.records[j].Timestamp)
	})
	l.bysig = make(map[string][]int, len(l.records))
	for i, r := range l.records {
		l.bysig[r.Signature] = append(l.bysig[r.Signature], i)
	}
}
