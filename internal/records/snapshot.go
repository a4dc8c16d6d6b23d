package records

import "time"

// Snapshot bundles a record list with its derived index and the time of the
// last successful refresh. A Snapshot is immutable: refresh builds a new one
// and the previous one is dropped once no reader holds it.
type Snapshot struct {
	Records   []Record
	Index     Index
	UpdatedAt time.Time
}

// NewSnapshot builds a Snapshot from a record list. The index is always
// derived here, so a Snapshot's index and records can never disagree.
func NewSnapshot(recs []Record, updatedAt time.Time) *Snapshot {
	return &Snapshot{
		Records:   recs,
		Index:     DeriveIndex(recs),
		UpdatedAt: updatedAt,
	}
}
