package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/containerd/errdefs"
	"github.com/go-playground/validator/v10"

	"github.com/opencomp/recordcache/internal/records"
)

// snapshotVersion tags the on-disk envelope. The file is a private detail of
// this process; the version exists so a future format change can be detected
// instead of misparsed.
const snapshotVersion = 1

// snapshotFile is the on-disk encoding of one snapshot. The index is not
// written: it is re-derived on read, which keeps the file smaller and makes
// an index/records mismatch impossible.
type snapshotFile struct {
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Records   []records.Record `json:"records" validate:"dive"`
}

// SnapshotStore persists the latest snapshot to a single local file so a
// restart can serve the last known-good data before any network access.
type SnapshotStore struct {
	path      string
	dir       string
	base      string
	validator *validator.Validate
}

// NewSnapshotStore creates a store for the given file path.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if path == "" {
		return nil, errors.New("snapshot file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" {
		dir = "."
	}

	return &SnapshotStore{path: path, dir: dir, base: base, validator: validator.New()}, nil
}

// Read loads and decodes the snapshot file.
// Returns errdefs.ErrNotFound if the file does not exist, and an error
// wrapping errdefs.ErrDataLoss if the file exists but cannot be decoded or
// fails validation.
func (s *SnapshotStore) Read() (*records.Snapshot, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot file %s: %w", s.path, errdefs.ErrNotFound)
		}
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	var sf snapshotFile
	if err := json.NewDecoder(file).Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode snapshot file %s: %v: %w", s.path, err, errdefs.ErrDataLoss)
	}

	if sf.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot file %s: unsupported version %d: %w", s.path, sf.Version, errdefs.ErrDataLoss)
	}

	if err := s.validator.Struct(&sf); err != nil {
		return nil, fmt.Errorf("validate snapshot file %s: %v: %w", s.path, err, errdefs.ErrDataLoss)
	}

	return records.NewSnapshot(sf.Records, sf.UpdatedAt), nil
}

// Write encodes and atomically replaces the snapshot file, creating parent
// directories as needed. Only the refresher calls this, and only sequentially,
// so no file locking is involved.
func (s *SnapshotStore) Write(snap *records.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot is nil")
	}

	payload, err := json.MarshalIndent(snapshotFile{
		Version:   snapshotVersion,
		UpdatedAt: snap.UpdatedAt,
		Records:   snap.Records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dir, s.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}

	return nil
}
