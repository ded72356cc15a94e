package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/recsync/internal/payload"
	"github.com/roach88/recsync/internal/record"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:           id,
		StartedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ArchivePath:  "/tmp/archive.tar.gz",
		DataFolder:   "/var/lib/recorder/store/rec",
		Endpoint:     "http://localhost:8035/pub",
		User:         "alice",
		Device:       "phone",
		ArchiveCount: 3,
		LiveCount:    1,
		PendingCount: 2,
	}
}

func createTestRecord(createdAt string) record.Record {
	return record.MustNew(payload.NewObject(
		payload.F("_type", payload.String("location")),
		payload.F("created_at", payload.Number(createdAt)),
		payload.F("lon", payload.Number("11.5")),
		payload.F("lat", payload.Number("48.1")),
	), nil)
}
