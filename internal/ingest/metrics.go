package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the ingest server's counters.
type Metrics struct {
	Requests      *prometheus.CounterVec
	RecordsStored prometheus.Counter
	BytesStored   prometheus.Counter
	WriteErrors   prometheus.Counter
}

// NewMetrics registers the ingest counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recsync_ingest_requests_total",
			Help: "Publish requests by response status code",
		}, []string{"code"}),
		RecordsStored: f.NewCounter(prometheus.CounterOpts{
			Name: "recsync_ingest_records_stored_total",
			Help: "Records appended to the daily log",
		}),
		BytesStored: f.NewCounter(prometheus.CounterOpts{
			Name: "recsync_ingest_bytes_stored_total",
			Help: "Bytes appended to the daily log",
		}),
		WriteErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "recsync_ingest_write_errors_total",
			Help: "Failed daily log appends",
		}),
	}
}
