package parse

import (
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/roach88/recsync/internal/record"
)

// Counts tallies results across one or more sources.
type Counts struct {
	Records     int `json:"records"`
	Skipped     int `json:"skipped"`
	ParseErrors int `json:"parse_errors"`
	Invalid     int `json:"invalid"`
}

// Add accumulates other into c.
func (c *Counts) Add(other Counts) {
	c.Records += other.Records
	c.Skipped += other.Skipped
	c.ParseErrors += other.ParseErrors
	c.Invalid += other.Invalid
}

// Collector drains Lines sequences under the run's error policy:
//   - parse errors are reported to Out and skipped
//   - invalid records are fatal unless SkipInvalid is set
//   - read errors are always fatal
type Collector struct {
	Out         io.Writer
	Logger      *slog.Logger
	SkipInvalid bool

	counts Counts
}

// Counts returns the totals accumulated so far.
func (c *Collector) Counts() Counts {
	return c.counts
}

// Collect drains results and returns the records from this source.
func (c *Collector) Collect(results iter.Seq[Result]) ([]record.Record, Counts, error) {
	var (
		recs   []record.Record
		counts Counts
		source string
	)
	defer func() { c.counts.Add(counts) }()

	for res := range results {
		source = res.Source
		switch res.Kind {
		case KindRecord:
			recs = append(recs, res.Record)
			counts.Records++
		case KindSkipped:
			counts.Skipped++
		case KindParseError:
			counts.ParseErrors++
			c.report("invalid json: %s: %v", res.Position(), res.Err)
		case KindInvalid:
			counts.Invalid++
			if !c.SkipInvalid {
				return recs, counts, fmt.Errorf("%s: %w", res.Position(), res.Err)
			}
			c.report("invalid record: %s: %v", res.Position(), res.Err)
		case KindReadError:
			return recs, counts, res.Err
		}
	}

	c.logger().Debug("source parsed",
		"source", source,
		"records", counts.Records,
		"skipped", counts.Skipped,
		"parse_errors", counts.ParseErrors,
		"invalid", counts.Invalid,
	)
	return recs, counts, nil
}

func (c *Collector) report(format string, args ...any) {
	if c.Out == nil {
		return
	}
	fmt.Fprintf(c.Out, format+"\n", args...)
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
