// Package store is the run ledger: one entry per stage and per observation
// outcome of every pipeline run.
package store

// DefaultDBName is the ledger file name inside the output directory.
const DefaultDBName = "nicer.db"

// Entry is one ledger row. Stage-level entries have an empty ObsID; plot
// outcomes carry the plotted variable there.
type Entry struct {
	ID         int64
	RunID      string
	Stage      string
	ObsID      string
	Status     string
	Output     string
	Message    string
	StartedAt  string
	FinishedAt string
}

// Run summarises the entries of one run.
type Run struct {
	RunID      string
	StartedAt  string
	FinishedAt string
	Stages     int
	Failed     int
}

// Store is the persistence facade for the ledger. The pipeline and CLI use
// only this interface; the implementation is SQLite or in-memory.
type Store interface {
	RecordStage(e *Entry) (int64, error)
	ListRun(runID string) ([]*Entry, error)
	ListRuns() ([]*Run, error)
	// LatestByObservation returns the newest non-stage entry per ObsID and
	// stage.
	LatestByObservation() ([]*Entry, error)
	Close() error
}
