package ingest

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recsync/internal/testutil"
)

func TestFileName(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	assert.Equal(t, "20240301.json.log", FileName(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	// 22:00 EST on Feb 29 is already Mar 1 in UTC.
	assert.Equal(t, "20240301.json.log", FileName(time.Date(2024, 2, 29, 22, 0, 0, 0, est)))
}

func TestDailyLogAppend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	clock := testutil.NewClock(time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC))
	log, err := NewDailyLog(dir, clock.Now)
	require.NoError(t, err)

	n, err := log.Append([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	_, err = log.Append([]byte("{\"a\":2}\n\n"))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = log.Append([]byte(`{"a":3}`))
	require.NoError(t, err)

	day1, err := os.ReadFile(filepath.Join(dir, "20240301.json.log"))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(day1))

	day2, err := os.ReadFile(filepath.Join(dir, "20240302.json.log"))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":3}\n", string(day2))
	assert.Equal(t, filepath.Join(dir, "20240302.json.log"), log.CurrentFile())
}

func TestDailyLogConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	log, err := NewDailyLog(dir, testutil.NewClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)).Now)
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := log.Append([]byte(`{"_type":"location","created_at":1}`))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(dir, "20240301.json.log"))
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, writers, lines)
	assert.Len(t, data, writers*len("{\"_type\":\"location\",\"created_at\":1}\n"))
}

func TestNewDailyLogDefaultsClock(t *testing.T) {
	log, err := NewDailyLog(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, FileName(time.Now()), filepath.Base(log.CurrentFile()))
}
