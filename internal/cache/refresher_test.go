package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/containerd/errdefs"

	"github.com/opencomp/recordcache/internal/records"
	"github.com/opencomp/recordcache/internal/store"
)

// MockFetcher implements Fetcher for testing
type MockFetcher struct {
	mu    sync.Mutex
	recs  []records.Record
	err   error
	calls int
}

func (m *MockFetcher) FetchRegionalRecords(_ context.Context) ([]records.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.recs, nil
}

func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockStore implements Store for testing
type MockStore struct {
	mu       sync.Mutex
	snap     *records.Snapshot
	readErr  error
	writeErr error
	writes   int
}

func (m *MockStore) Read() (*records.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.snap, nil
}

func (m *MockStore) Write(snap *records.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.snap = snap
	m.writes++
	return nil
}

func (m *MockStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func notFoundStore() *MockStore {
	return &MockStore{readErr: fmt.Errorf("snapshot file: %w", errdefs.ErrNotFound)}
}

func testRecords() []records.Record {
	return []records.Record{
		{Region: "NA", EventID: "333", Type: "single", Result: 412, PersonID: "2016LEEX01", PersonName: "E. Lee"},
		{Region: "NA", EventID: "333", Type: "average", Result: 577, PersonID: "2016LEEX01", PersonName: "E. Lee"},
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNextDelay(t *testing.T) {
	interval := time.Hour
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		updatedAt time.Time
		want      time.Duration
	}{
		{"refreshed 10 minutes ago", now.Add(-10 * time.Minute), 50 * time.Minute},
		{"refreshed 2 hours ago", now.Add(-2 * time.Hour), 0},
		{"refreshed exactly one interval ago", now.Add(-time.Hour), 0},
		{"refreshed just now", now, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextDelay(interval, tt.updatedAt, now)
			if got != tt.want {
				t.Errorf("nextDelay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefresher_Start_ServesPersistedSnapshotWithoutFetching(t *testing.T) {
	persisted := records.NewSnapshot(testRecords(), time.Now().Add(-10*time.Minute))
	st := &MockStore{snap: persisted}
	f := &MockFetcher{recs: testRecords()}
	v := NewView()

	ctx, cancel := context.WithCancel(context.Background())
	done, err := NewRefresher(v, st, f, time.Hour).Start(ctx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	if v.Get() != persisted {
		t.Error("expected persisted snapshot to be published immediately")
	}
	if f.Calls() != 0 {
		t.Errorf("expected no fetch on warm start, got %d", f.Calls())
	}

	cancel()
	<-done
}

func TestRefresher_Start_ColdStartFetchesSynchronously(t *testing.T) {
	st := notFoundStore()
	f := &MockFetcher{recs: testRecords()}
	v := NewView()

	ctx, cancel := context.WithCancel(context.Background())
	done, err := NewRefresher(v, st, f, time.Hour).Start(ctx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	// Servable and persisted before Start returned.
	if f.Calls() != 1 {
		t.Errorf("expected exactly one synchronous fetch, got %d", f.Calls())
	}
	snap := v.Get()
	if snap == nil || len(snap.Records) != 2 {
		t.Fatalf("expected published snapshot with 2 records, got %+v", snap)
	}
	if st.Writes() != 1 {
		t.Errorf("expected snapshot persisted once, got %d writes", st.Writes())
	}

	cancel()
	<-done
}

func TestRefresher_Start_ColdStartFetchFailureIsFatal(t *testing.T) {
	st := notFoundStore()
	f := &MockFetcher{err: errors.New("remote unreachable")}
	v := NewView()

	_, err := NewRefresher(v, st, f, time.Hour).Start(context.Background())
	if err == nil {
		t.Fatal("expected fatal start error with no fallback data")
	}
	if v.Get() != nil {
		t.Error("expected no partially-initialized servable state")
	}
}

func TestRefresher_Start_CorruptSnapshotIsFatal(t *testing.T) {
	st := &MockStore{readErr: fmt.Errorf("decode snapshot: %w", errdefs.ErrDataLoss)}
	f := &MockFetcher{recs: testRecords()}
	v := NewView()

	_, err := NewRefresher(v, st, f, time.Hour).Start(context.Background())
	if err == nil {
		t.Fatal("expected fatal start error for corrupt snapshot")
	}
	if f.Calls() != 0 {
		t.Error("expected no fetch attempt when startup aborts on corrupt state")
	}
	if v.Get() != nil {
		t.Error("expected nothing published on corrupt state")
	}
}

func TestRefresher_StaleSnapshotRetainedOnFetchFailure(t *testing.T) {
	// Stale enough that the first refresh fires immediately.
	persisted := records.NewSnapshot(testRecords(), time.Now().Add(-2*time.Hour))
	st := &MockStore{snap: persisted}
	f := &MockFetcher{err: errors.New("remote unreachable")}
	v := NewView()

	ctx, cancel := context.WithCancel(context.Background())
	done, err := NewRefresher(v, st, f, 10*time.Millisecond).Start(ctx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	// At least two failed cycles prove the timer is rearmed after a failure.
	waitFor(t, 2*time.Second, func() bool { return f.Calls() >= 2 })

	if v.Get() != persisted {
		t.Error("expected the stale snapshot to remain published, untouched")
	}
	if st.Writes() != 0 {
		t.Errorf("expected no persist on failed refreshes, got %d writes", st.Writes())
	}

	cancel()
	<-done
}

func TestRefresher_PublishesFreshSnapshotOnTimer(t *testing.T) {
	persisted := records.NewSnapshot(nil, time.Now().Add(-2*time.Hour))
	st := &MockStore{snap: persisted}
	f := &MockFetcher{recs: testRecords()}
	v := NewView()

	ctx, cancel := context.WithCancel(context.Background())
	done, err := NewRefresher(v, st, f, 10*time.Millisecond).Start(ctx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap := v.Get()
		return snap != nil && len(snap.Records) == 2
	})
	waitFor(t, 2*time.Second, func() bool { return st.Writes() >= 1 })

	cancel()
	<-done
}

func TestRefresher_PersistFailureDoesNotUnpublish(t *testing.T) {
	st := &MockStore{
		readErr:  fmt.Errorf("snapshot file: %w", errdefs.ErrNotFound),
		writeErr: errors.New("disk full"),
	}
	f := &MockFetcher{recs: testRecords()}
	v := NewView()

	ctx, cancel := context.WithCancel(context.Background())
	done, err := NewRefresher(v, st, f, 10*time.Millisecond).Start(ctx)
	if err != nil {
		t.Fatalf("expected write failure to be non-fatal, got %v", err)
	}

	if snap := v.Get(); snap == nil || len(snap.Records) != 2 {
		t.Fatal("expected snapshot published despite persist failure")
	}

	// The loop keeps refreshing on the normal cadence.
	waitFor(t, 2*time.Second, func() bool { return f.Calls() >= 2 })

	cancel()
	<-done
}

// Full restart scenario against the real file store: fetch once, restart with
// an unreachable source, and the same records are served with no network call.
func TestRefresher_RestartServesPersistedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.snapshot.json")
	st, err := store.NewSnapshotStore(path)
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}

	// First process lifetime: cold start, live fetch, persist.
	f1 := &MockFetcher{recs: testRecords()}
	v1 := NewView()
	ctx1, cancel1 := context.WithCancel(context.Background())
	done1, err := NewRefresher(v1, st, f1, time.Hour).Start(ctx1)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	firstServed := v1.Records()
	cancel1()
	<-done1

	// Second process lifetime: source down, snapshot file still there.
	f2 := &MockFetcher{err: errors.New("remote unreachable")}
	v2 := NewView()
	ctx2, cancel2 := context.WithCancel(context.Background())
	done2, err := NewRefresher(v2, st, f2, time.Hour).Start(ctx2)
	if err != nil {
		t.Fatalf("expected warm start to succeed with source down: %v", err)
	}

	if f2.Calls() != 0 {
		t.Errorf("expected no fetch on warm start, got %d", f2.Calls())
	}
	got := v2.Records()
	if len(got) != len(firstServed) {
		t.Fatalf("expected %d records after restart, got %d", len(firstServed), len(got))
	}
	for i := range got {
		if got[i] != firstServed[i] {
			t.Errorf("record %d changed across restart: %+v != %+v", i, got[i], firstServed[i])
		}
	}
	if snap := v2.Get(); len(snap.Index["NA|333|single"]) != 1 {
		t.Error("expected index rebuilt from persisted records")
	}

	cancel2()
	<-done2
}
