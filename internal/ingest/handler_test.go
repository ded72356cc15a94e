package ingest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fakeclock "github.com/roach88/recsync/internal/testutil"
)

type fixture struct {
	dir     string
	handler *Handler
	reg     *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	clock := fakeclock.NewClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	log, err := NewDailyLog(dir, clock.Now)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	return &fixture{dir: dir, handler: NewHandler(log, nil, reg), reg: reg}
}

func (f *fixture) post(t *testing.T, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/pub", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) logged(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, "20240301.json.log"))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestPublishAppendsRecordWithAttribution(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, `{"_type":"location","created_at":100,"lat":48.1,"_meta":{"old":true}}`, map[string]string{
		"X-Limit-U":    "alice",
		"X-Limit-D":    "phone",
		"Content-Type": "application/json",
		"X-Other":      "ignored",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
	assert.Equal(t,
		`{"_type":"location","created_at":100,"lat":48.1,"_meta":{"headers":{"X-Limit-D":"phone","X-Limit-U":"alice"}}}`+"\n",
		f.logged(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.handler.metrics.RecordsStored))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.handler.metrics.Requests.WithLabelValues("200")))
}

func TestPublishWithoutAttribution(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, `{"created_at":1}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"created_at":1,"_meta":{"headers":{}}}`+"\n", f.logged(t))
}

func TestPublishRejectsEmptyBody(t *testing.T) {
	for name, body := range map[string]string{
		"empty":     "",
		"object":    "{}",
		"array":     "[1,2]",
		"string":    `"x"`,
		"malformed": `{"a":`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.post(t, body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "empty body\n", rec.Body.String())
			assert.Empty(t, f.logged(t))
		})
	}
}

func TestPublishRejectsLongLine(t *testing.T) {
	f := newFixture(t)

	body := `{"created_at":1,"note":"` + strings.Repeat("x", MaxLineBytes) + `"}`
	rec := f.post(t, body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, f.logged(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.handler.metrics.Requests.WithLabelValues("413")))
}

func TestPublishRejectsHugeBody(t *testing.T) {
	f := newFixture(t)

	body := `{"note":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := f.post(t, body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPublishMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pub", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.post(t, `{"created_at":1}`, nil)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "recsync_ingest_records_stored_total 1")
}

func TestPublishWriteFailure(t *testing.T) {
	f := newFixture(t)
	// Replace the log directory with a file so appends fail.
	require.NoError(t, os.RemoveAll(f.dir))
	require.NoError(t, os.WriteFile(f.dir, nil, 0o644))

	rec := f.post(t, `{"created_at":1}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.handler.metrics.WriteErrors))
}
