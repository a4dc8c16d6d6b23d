package cache

import (
	"context"

	"github.com/opencomp/recordcache/internal/records"
)

// Fetcher is the slice of the fetch contract the refresher needs.
// fetch.HTTPFetcher satisfies it; tests supply their own.
type Fetcher interface {
	FetchRegionalRecords(ctx context.Context) ([]records.Record, error)
}

// Store is the slice of the durable store the refresher needs.
type Store interface {
	Read() (*records.Snapshot, error)
	Write(snap *records.Snapshot) error
}
