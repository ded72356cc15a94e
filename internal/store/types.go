package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/roach88/recsync/internal/payload"
	"github.com/roach88/recsync/internal/record"
)

// DomainPayload prefixes payload hashes. The version suffix allows the
// hashing scheme to change without ambiguity.
const DomainPayload = "recsync/payload/v1"

// Status is the journaled outcome of one replayed record.
type Status string

const (
	StatusPublished Status = "published"
	StatusDryRun    Status = "dry_run"
	StatusFailed    Status = "failed"
)

// Run is one reconcile invocation.
type Run struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	ArchivePath  string    `json:"archive_path"`
	DataFolder   string    `json:"data_folder"`
	Endpoint     string    `json:"endpoint"`
	User         string    `json:"user"`
	Device       string    `json:"device"`
	DryRun       bool      `json:"dry_run"`
	ArchiveCount int       `json:"archive_count"`
	LiveCount    int       `json:"live_count"`
	PendingCount int       `json:"pending_count"`

	// Set by FinishRun.
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Replayed   int       `json:"replayed"`
	Error      string    `json:"error,omitempty"`
}

// Replay is one processed record within a run.
type Replay struct {
	RunID       string  `json:"run_id"`
	Seq         int     `json:"seq"`
	RecordKey   string  `json:"record_key"`
	CreatedAt   float64 `json:"created_at"`
	Payload     string  `json:"payload"`
	PayloadHash string  `json:"payload_hash"`
	Status      Status  `json:"status"`
	Error       string  `json:"error,omitempty"`
}

// NewReplay builds the journal row for r. The payload is stored as
// canonical JSON and hashed with domain separation.
func NewReplay(runID string, seq int, r record.Record, status Status, cause error) (Replay, error) {
	canonical, err := payload.MarshalCanonical(r.Payload())
	if err != nil {
		return Replay{}, fmt.Errorf("new replay: %w", err)
	}

	rep := Replay{
		RunID:       runID,
		Seq:         seq,
		RecordKey:   r.Key().String(),
		CreatedAt:   r.CreatedAt(),
		Payload:     string(canonical),
		PayloadHash: PayloadHash(canonical),
		Status:      status,
	}
	if cause != nil {
		rep.Error = cause.Error()
	}
	return rep, nil
}

// PayloadHash computes SHA256(domain + 0x00 + canonical) as hex.
// The null byte separator prevents domain/data boundary ambiguity.
func PayloadHash(canonical []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainPayload))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
