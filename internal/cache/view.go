package cache

import (
	"sync/atomic"
	"time"

	"github.com/opencomp/recordcache/internal/records"
)

// View is the single-slot holder of the current snapshot. Readers call Get
// with zero coordination cost; the refresher is the only writer and replaces
// the whole snapshot with one pointer swap, so a reader always sees a record
// list and index that belong together.
type View struct {
	current atomic.Pointer[records.Snapshot]
}

// NewView creates an empty view. Get returns nil until the first Publish.
func NewView() *View {
	return &View{}
}

// Get returns the currently published snapshot. It never blocks.
func (v *View) Get() *records.Snapshot {
	return v.current.Load()
}

// Publish atomically replaces the current snapshot. Single-writer discipline:
// only the refresher calls this.
func (v *View) Publish(snap *records.Snapshot) {
	v.current.Store(snap)
}

// Records returns the published record list in fetch order.
func (v *View) Records() []records.Record {
	if snap := v.current.Load(); snap != nil {
		return snap.Records
	}
	return nil
}

// Index returns the published records index.
func (v *View) Index() records.Index {
	if snap := v.current.Load(); snap != nil {
		return snap.Index
	}
	return nil
}

// UpdatedAt returns the time of the last successful refresh, or the zero time
// if nothing has been published yet.
func (v *View) UpdatedAt() time.Time {
	if snap := v.current.Load(); snap != nil {
		return snap.UpdatedAt
	}
	return time.Time{}
}
