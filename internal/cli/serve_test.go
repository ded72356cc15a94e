package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeAcceptsAndStops(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text"},
		Listener:    ln,
		Now:         func() time.Time { return fixedNow },
	}
	cmd := newServeCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-dir", dataDir})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	base := "http://" + ln.Addr().String()
	req, err := http.NewRequest(http.MethodPost, base+"/pub", strings.NewReader(`{"_type":"location","created_at":1}`))
	require.NoError(t, err)
	req.Header.Set("X-Limit-U", "alice")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(body))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "recsync_ingest_records_stored_total 1")
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "20240301.json.log"))
	require.NoError(t, err)
	assert.Equal(t, `{"_type":"location","created_at":1,"_meta":{"headers":{"X-Limit-U":"alice"}}}`+"\n", string(data))
}

func TestServeResolveEnvAndFlags(t *testing.T) {
	t.Setenv("RECSYNC_HOST", "0.0.0.0")
	t.Setenv("RECSYNC_PORT", "9000")

	opts := &ServeOptions{RootOptions: &RootOptions{Format: "text"}}
	cmd := newServeCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9100"}))

	cfg, err := opts.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
}

func TestServeInvalidPort(t *testing.T) {
	opts := &ServeOptions{RootOptions: &RootOptions{Format: "text"}}
	cmd := newServeCommand(opts)
	errBuf := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{"--port", "70000"})

	assert.Equal(t, ExitCommandError, Execute(cmd))
	assert.Contains(t, errBuf.String(), "port must be between 1 and 65535")
}
