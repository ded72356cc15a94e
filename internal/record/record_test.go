package record

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recsync/internal/payload"
)

func location(createdAt string, fields ...payload.Field) *payload.Object {
	obj := payload.NewObject(
		payload.F(FieldType, payload.String(TypeLocation)),
		payload.F(FieldCreatedAt, payload.Number(createdAt)),
	)
	for _, f := range fields {
		obj.Set(f.Key, f.Value)
	}
	return obj
}

func TestNewRequiresCreatedAt(t *testing.T) {
	obj := payload.NewObject(payload.F("lat", payload.Number("1")))

	_, err := New(obj, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "missing key: created_at")
}

func TestNewRejectsNonNumericCreatedAt(t *testing.T) {
	obj := payload.NewObject(payload.F(FieldCreatedAt, payload.String("yesterday")))

	_, err := New(obj, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "must be a number")
}

func TestNewNilPayload(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordIsImmutable(t *testing.T) {
	obj := location("100", payload.F(FieldLat, payload.Number("1.5")))
	meta := payload.NewObject(payload.F("headers", payload.NewObject()))
	r := MustNew(obj, meta)

	// Mutating the constructor inputs does not leak into the record.
	obj.Set(FieldLat, payload.Number("9"))
	meta.Set("headers", payload.Null{})

	lat, _ := r.Payload().Get(FieldLat)
	assert.Equal(t, payload.Number("1.5"), lat)
	got, _ := r.Meta().(*payload.Object).Get("headers")
	assert.IsType(t, &payload.Object{}, got)

	// Mutating an accessor result does not leak either.
	p := r.Payload()
	p.Set("extra", payload.Bool(true))
	_, ok := r.Payload().Get("extra")
	assert.False(t, ok)
}

func TestKeyIgnoresOtherFields(t *testing.T) {
	a := MustNew(location("100", payload.F(FieldLat, payload.Number("1")), payload.F(FieldLon, payload.Number("2")),
		payload.F("batt", payload.Number("80"))), nil)
	b := MustNew(location("100", payload.F(FieldLat, payload.Number("1")), payload.F(FieldLon, payload.Number("2")),
		payload.F("batt", payload.Number("12")), payload.F("acc", payload.Number("5"))), payload.NewObject())

	assert.Equal(t, a.Key(), b.Key())
}

func TestKeyNumericEquality(t *testing.T) {
	a := MustNew(location("100", payload.F(FieldLat, payload.Number("48.10"))), nil)
	b := MustNew(location("100.0", payload.F(FieldLat, payload.Number("48.1"))), nil)
	c := MustNew(location("1e2", payload.F(FieldLat, payload.Number("4.81e1"))), nil)

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), c.Key())
}

func TestKeyAbsentEqualsNull(t *testing.T) {
	absent := MustNew(location("100"), nil)
	null := MustNew(location("100", payload.F(FieldLat, payload.Null{}), payload.F(FieldLon, payload.Null{})), nil)

	assert.Equal(t, absent.Key(), null.Key())
}

func TestKeyDistinguishesCoordinates(t *testing.T) {
	base := MustNew(location("100", payload.F(FieldLat, payload.Number("1")), payload.F(FieldLon, payload.Number("2"))), nil)

	tests := []struct {
		name string
		rec  Record
	}{
		{"different created_at", MustNew(location("101", payload.F(FieldLat, payload.Number("1")), payload.F(FieldLon, payload.Number("2"))), nil)},
		{"different lat", MustNew(location("100", payload.F(FieldLat, payload.Number("1.1")), payload.F(FieldLon, payload.Number("2"))), nil)},
		{"missing lon", MustNew(location("100", payload.F(FieldLat, payload.Number("1"))), nil)},
		{"swapped", MustNew(location("100", payload.F(FieldLat, payload.Number("2")), payload.F(FieldLon, payload.Number("1"))), nil)},
		{"string lat", MustNew(location("100", payload.F(FieldLat, payload.String("1")), payload.F(FieldLon, payload.Number("2"))), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base.Key(), tt.rec.Key())
		})
	}
}

func TestKeyUsableInMap(t *testing.T) {
	seen := map[Key]struct{}{}
	seen[MustNew(location("100", payload.F(FieldLat, payload.Number("1"))), nil).Key()] = struct{}{}

	_, ok := seen[MustNew(location("100.00", payload.F(FieldLat, payload.Number("1.0"))), nil).Key()]
	assert.True(t, ok)
}

func TestCompareOrdersByCreatedAtOnly(t *testing.T) {
	early := MustNew(location("100", payload.F(FieldLat, payload.Number("9"))), nil)
	late := MustNew(location("200", payload.F(FieldLat, payload.Number("1"))), nil)
	tie := MustNew(location("100", payload.F(FieldLat, payload.Number("0"))), nil)

	assert.Equal(t, -1, early.Compare(late))
	assert.Equal(t, 1, late.Compare(early))
	assert.Equal(t, 0, early.Compare(tie))
}

func TestCompareStableSort(t *testing.T) {
	recs := []Record{
		MustNew(location("300"), nil),
		MustNew(location("100", payload.F(FieldLat, payload.Number("1"))), nil),
		MustNew(location("200"), nil),
		MustNew(location("100", payload.F(FieldLat, payload.Number("2"))), nil),
	}

	slices.SortStableFunc(recs, Record.Compare)

	var lats []string
	for _, r := range recs[:2] {
		lat, _ := r.Payload().Get(FieldLat)
		lats = append(lats, string(lat.(payload.Number)))
	}
	assert.Equal(t, []string{"1", "2"}, lats)
	assert.Equal(t, 200.0, recs[2].CreatedAt())
	assert.Equal(t, 300.0, recs[3].CreatedAt())
}

func TestDescribe(t *testing.T) {
	r := MustNew(location("1700000000", payload.F(FieldLat, payload.Number("48.1375")), payload.F(FieldLon, payload.Number("11.5755"))), nil)

	assert.Equal(t, "Tue Nov 14 22:13:20 2023 UTC (48.1375, 11.5755)", r.Describe(time.UTC))

	berlin := time.FixedZone("CET", 3600)
	assert.Equal(t, "Tue Nov 14 23:13:20 2023 CET (48.1375, 11.5755)", r.Describe(berlin))
}

func TestDescribeMissingCoordinates(t *testing.T) {
	r := MustNew(location("0"), nil)
	assert.Equal(t, "Thu Jan  1 00:00:00 1970 UTC (null, null)", r.Describe(time.UTC))
}

func TestTimeFractionalSeconds(t *testing.T) {
	r := MustNew(location("100.25"), nil)
	assert.Equal(t, time.Unix(100, 250_000_000).UTC(), r.Time())
}

func TestKeyString(t *testing.T) {
	r := MustNew(location("100", payload.F(FieldLat, payload.Number("1.5")), payload.F(FieldLon, payload.String("x"))), nil)
	assert.Equal(t, `(100, 1.5, "x")`, r.Key().String())
}
