package record

import (
	"fmt"
	"strconv"

	"github.com/roach88/recsync/internal/payload"
)

// Key is the identity of a record: (created_at, lat, lon).
//
// Key is comparable and is meant to be used directly as a map key.
// Numbers compare by value, so 100 and 100.0 are the same key. An absent
// coordinate and an explicit null are the same component.
type Key struct {
	CreatedAt float64
	Lat       Component
	Lon       Component
}

// String renders the key for diagnostics.
func (k Key) String() string {
	return fmt.Sprintf("(%s, %s, %s)", strconv.FormatFloat(k.CreatedAt, 'f', -1, 64), k.Lat, k.Lon)
}

// ComponentKind classifies a key component.
type ComponentKind uint8

const (
	// ComponentAbsent is a missing or null field.
	ComponentAbsent ComponentKind = iota
	// ComponentNumber is a numeric field compared by value.
	ComponentNumber
	// ComponentOther is any other JSON value compared by canonical text.
	ComponentOther
)

// Component is one optional coordinate of a Key.
type Component struct {
	Kind ComponentKind
	Num  float64
	Text string
}

// String renders the component for diagnostics.
func (c Component) String() string {
	switch c.Kind {
	case ComponentNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case ComponentOther:
		return c.Text
	default:
		return "null"
	}
}

func componentOf(v payload.Value) Component {
	switch val := v.(type) {
	case nil, payload.Null:
		return Component{Kind: ComponentAbsent}
	case payload.Number:
		if f, err := val.Float64(); err == nil {
			return Component{Kind: ComponentNumber, Num: f}
		}
	}
	text, err := payload.MarshalCanonical(v)
	if err != nil {
		text = []byte(payload.KindOf(v))
	}
	return Component{Kind: ComponentOther, Text: string(text)}
}
