// Package parse turns newline-delimited JSON into location records.
//
// Lines yields one tagged Result per input line and never stops on a bad
// line. Policy (what to print, what is fatal) lives in Collector.
package parse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/roach88/recsync/internal/payload"
	"github.com/roach88/recsync/internal/record"
)

// Kind tags a per-line Result.
type Kind int

const (
	// KindRecord carries a constructed record.
	KindRecord Kind = iota
	// KindSkipped is a blank line, a non-object value, or a non-location object.
	KindSkipped
	// KindParseError is a line that is not valid JSON.
	KindParseError
	// KindInvalid is a location object that failed record validation.
	KindInvalid
	// KindReadError is a failure of the underlying reader. It is always last.
	KindReadError
)

// ErrNoValue is reported for lines that hold no JSON text at all.
var ErrNoValue = errors.New("no JSON value on line")

var kindNames = map[Kind]string{
	KindRecord:     "record",
	KindSkipped:    "skipped",
	KindParseError: "parse_error",
	KindInvalid:    "invalid",
	KindReadError:  "read_error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result is the outcome of one input line.
type Result struct {
	Kind   Kind
	Source string
	Line   int // 1-based; 0 for read errors before the first line
	Record record.Record
	Err    error
}

// Position renders "source:line" for diagnostics.
func (r Result) Position() string {
	return fmt.Sprintf("%s:%d", r.Source, r.Line)
}

// Preprocessor rewrites a raw line before JSON decoding.
type Preprocessor func(line string) string

// StripToBrace drops everything before the first '{'.
// Lines without a '{' become empty and are reported as parse errors.
func StripToBrace(line string) string {
	if i := strings.IndexByte(line, '{'); i >= 0 {
		return line[i:]
	}
	return ""
}

// Lines parses r line by line. The sequence is lazy and single-pass: it
// reads from r as it is iterated and cannot be restarted.
func Lines(r io.Reader, source string, pre Preprocessor) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		br := bufio.NewReader(r)
		lineNo := 0
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				lineNo++
				if !yield(parseLine(line, source, lineNo, pre)) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(Result{Kind: KindReadError, Source: source, Line: lineNo, Err: fmt.Errorf("read %s: %w", source, err)})
				}
				return
			}
		}
	}
}

func parseLine(line, source string, lineNo int, pre Preprocessor) Result {
	res := Result{Source: source, Line: lineNo}

	if pre != nil {
		line = pre(line)
	}
	if strings.TrimSpace(line) == "" {
		res.Kind = KindParseError
		res.Err = ErrNoValue
		return res
	}

	v, err := payload.Decode([]byte(line))
	if err != nil {
		res.Kind = KindParseError
		res.Err = err
		return res
	}

	obj, ok := v.(*payload.Object)
	if !ok {
		res.Kind = KindSkipped
		return res
	}
	if typ, _ := obj.Get(record.FieldType); typ != payload.String(record.TypeLocation) {
		res.Kind = KindSkipped
		return res
	}

	meta, _ := obj.Delete(record.FieldMeta)
	rec, err := record.New(obj, meta)
	if err != nil {
		res.Kind = KindInvalid
		res.Err = err
		return res
	}

	res.Kind = KindRecord
	res.Record = rec
	return res
}
