// Package record defines the location record, its identity key, and its
// chronological ordering.
package record

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/roach88/recsync/internal/payload"
)

// Reserved payload keys.
const (
	FieldType      = "_type"
	FieldMeta      = "_meta"
	FieldCreatedAt = "created_at"
	FieldLat       = "lat"
	FieldLon       = "lon"

	// TypeLocation is the only _type value retained by the parser.
	TypeLocation = "location"
)

// DescribeLayout renders timestamps in Describe.
const DescribeLayout = "Mon Jan _2 15:04:05 2006 MST"

// ErrValidation is returned when a payload cannot form a record.
var ErrValidation = errors.New("record validation failed")

// Record is one location observation. Records are immutable: the
// constructor copies its inputs and accessors return copies.
type Record struct {
	payload   *payload.Object
	meta      payload.Value
	createdAt float64
	key       Key
}

// New builds a record from a payload and optional meta value.
// Fails with ErrValidation when created_at is missing or not a number.
func New(p *payload.Object, meta payload.Value) (Record, error) {
	raw, ok := p.Get(FieldCreatedAt)
	if !ok {
		return Record{}, fmt.Errorf("%w: missing key: %s", ErrValidation, FieldCreatedAt)
	}
	num, ok := raw.(payload.Number)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s must be a number, got %s", ErrValidation, FieldCreatedAt, payload.KindOf(raw))
	}
	createdAt, err := num.Float64()
	if err != nil || math.IsInf(createdAt, 0) {
		return Record{}, fmt.Errorf("%w: %s out of range: %s", ErrValidation, FieldCreatedAt, string(num))
	}

	owned := p.Clone()
	lat, _ := owned.Get(FieldLat)
	lon, _ := owned.Get(FieldLon)

	r := Record{
		payload:   owned,
		createdAt: createdAt,
		key: Key{
			CreatedAt: createdAt,
			Lat:       componentOf(lat),
			Lon:       componentOf(lon),
		},
	}
	if meta != nil {
		r.meta = payload.Clone(meta)
	}
	return r, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(p *payload.Object, meta payload.Value) Record {
	r, err := New(p, meta)
	if err != nil {
		panic(err)
	}
	return r
}

// Payload returns a copy of the record's payload, without _meta.
func (r Record) Payload() *payload.Object {
	return r.payload.Clone()
}

// Meta returns a copy of the captured _meta value, or nil.
func (r Record) Meta() payload.Value {
	if r.meta == nil {
		return nil
	}
	return payload.Clone(r.meta)
}

// CreatedAt returns created_at as Unix seconds.
func (r Record) CreatedAt() float64 {
	return r.createdAt
}

// Time returns created_at as a time.Time in UTC.
func (r Record) Time() time.Time {
	sec, frac := math.Modf(r.createdAt)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

// Key returns the record's identity key.
func (r Record) Key() Key {
	return r.key
}

// Compare orders records by created_at only.
// Returns -1, 0 or +1 for use with slices.SortStableFunc.
func (r Record) Compare(other Record) int {
	switch {
	case r.createdAt < other.createdAt:
		return -1
	case r.createdAt > other.createdAt:
		return 1
	default:
		return 0
	}
}

// Describe renders the record's time in loc plus its coordinates.
// Example: "Tue Nov 14 22:13:20 2023 UTC (48.1375, 11.5755)"
func (r Record) Describe(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("%s (%s, %s)",
		r.Time().In(loc).Format(DescribeLayout),
		r.coordinate(FieldLat),
		r.coordinate(FieldLon),
	)
}

// String implements fmt.Stringer using local time.
func (r Record) String() string {
	return r.Describe(time.Local)
}

func (r Record) coordinate(field string) string {
	v, ok := r.payload.Get(field)
	if !ok {
		return "null"
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return "?"
	}
	return string(data)
}
