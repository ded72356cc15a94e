package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyLogSuffix is appended to the UTC date to form a daily file name.
const DailyLogSuffix = ".json.log"

// DailyLog appends lines to one file per UTC day under a directory.
// A single mutex serializes every append; the file is opened and closed
// per line so external rotation needs no coordination.
type DailyLog struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// NewDailyLog creates dir if needed. A nil now uses time.Now.
func NewDailyLog(dir string, now func() time.Time) (*DailyLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &DailyLog{dir: dir, now: now}, nil
}

// Dir returns the directory files are written to.
func (l *DailyLog) Dir() string {
	return l.dir
}

// CurrentFile returns the path lines are appended to right now.
func (l *DailyLog) CurrentFile() string {
	return filepath.Join(l.dir, FileName(l.now()))
}

// FileName returns the daily file name for t, e.g. "20240301.json.log".
func FileName(t time.Time) string {
	return t.UTC().Format("20060102") + DailyLogSuffix
}

// Append writes line followed by exactly one newline.
// Returns the number of bytes written.
func (l *DailyLog) Append(line []byte) (int, error) {
	line = bytes.Trim(line, "\n")

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.CurrentFile()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	n, err := f.Write(buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("append %s: %w", path, err)
	}
	return n, nil
}
