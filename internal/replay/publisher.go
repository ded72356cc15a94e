package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/roach88/recsync/internal/record"
)

// Attribution headers sent with every publish call. The ingestion
// boundary copies every x-limit-* header into the record's _meta.
const (
	HeaderUser   = "X-Limit-U"
	HeaderDevice = "X-Limit-D"
)

// DefaultTimeout bounds a single publish request.
const DefaultTimeout = 10 * time.Second

// Publisher delivers one record to the ingestion boundary.
type Publisher interface {
	Publish(ctx context.Context, r record.Record) error
}

// StatusError is returned when the ingestion boundary answers with a
// non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// HTTPPublisher posts record payloads to an ingestion endpoint.
type HTTPPublisher struct {
	Endpoint string
	User     string
	Device   string
	Client   *http.Client
}

// NewHTTPPublisher returns a publisher using a client built by NewHTTPClient.
func NewHTTPPublisher(endpoint, user, device string) *HTTPPublisher {
	return &HTTPPublisher{
		Endpoint: endpoint,
		User:     user,
		Device:   device,
		Client:   NewHTTPClient(DefaultTimeout),
	}
}

// NewHTTPClient returns a client with explicit dial and handshake timeouts.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Publish POSTs the record's payload as JSON.
func (p *HTTPPublisher) Publish(ctx context.Context, r record.Record) error {
	body, err := r.Payload().MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUser, p.User)
	req.Header.Set(HeaderDevice, p.Device)

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
