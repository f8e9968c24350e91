package sharepoint

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row read from the store, addressed by local field names.
type Record struct {
	ID        string
	CreatedAt time.Time
	fields    map[string]any
	schema    Schema
}

func newRecord(id string, created time.Time, fields map[string]any, schema Schema) Record {
	return Record{ID: id, CreatedAt: created, fields: fields, schema: schema}
}

// Value returns the raw value of a local field.
func (r Record) Value(field string) (any, bool) {
	col, ok := r.schema.Column(field)
	if !ok {
		return nil, false
	}

	v, ok := r.fields[col.Key()]
	if !ok && col.IsReference() {
		v, ok = r.fields[col.Internal]
	}

	if !ok || v == nil {
		return nil, false
	}

	return v, true
}

func (r Record) String(field string) string {
	v, ok := r.Value(field)
	if !ok {
		return ""
	}

	return stringValue(v)
}

func (r Record) Int(field string) int64 {
	v, ok := r.Value(field)
	if !ok {
		return 0
	}

	switch n := v.(type) {
	case float64:
		return int64(math.Round(n))
	case int:
		return int64(n)
	case int64:
		return n
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			return int64(math.Round(f))
		}

		return i
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}

		return int64(math.Round(f))
	default:
		return 0
	}
}

func (r Record) Bool(field string) bool {
	v, ok := r.Value(field)
	if !ok {
		return false
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(b))
		return parsed
	case float64:
		return b != 0
	default:
		return false
	}
}

// Time parses date and date-time values. Unparseable values read as the zero time.
func (r Record) Time(field string) time.Time {
	s := r.String(field)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

func (r Record) Decimal(field string) decimal.NullDecimal {
	v, ok := r.Value(field)
	if !ok {
		return decimal.NullDecimal{}
	}

	switch n := v.(type) {
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(n))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.NullDecimal{}
		}

		return decimal.NewNullDecimal(d)
	default:
		return decimal.NullDecimal{}
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case map[string]any:
		// hyperlink columns
		if u, ok := s["Url"].(string); ok {
			return u
		}

		return ""
	default:
		return fmt.Sprint(s)
	}
}

// Fields collects the values of a write, keyed by resolved column.
type Fields struct {
	schema Schema
	values map[string]any
}

func newFields(schema Schema) *Fields {
	return &Fields{schema: schema, values: make(map[string]any)}
}

// Set writes a local field. Reference columns take a row id, and an empty id
// clears the reference. Unknown local fields are ignored.
func (f *Fields) Set(field string, v any) {
	col, ok := f.schema.Column(field)
	if !ok {
		return
	}

	f.values[col.Key()] = encodeValue(col, v)
}

func (f *Fields) Len() int { return len(f.values) }

func (f *Fields) Map() map[string]any { return f.values }

func encodeValue(col Column, v any) any {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}

		if col.Kind == KindDateTime || col.Kind == KindUnknown {
			return x.UTC().Format(time.RFC3339)
		}

		return x.Format(time.DateOnly)
	case decimal.Decimal:
		return x.InexactFloat64()
	case decimal.NullDecimal:
		if !x.Valid {
			return nil
		}

		return x.Decimal.InexactFloat64()
	case string:
		if col.IsReference() && strings.TrimSpace(x) == "" {
			return nil
		}

		return x
	default:
		return v
	}
}
