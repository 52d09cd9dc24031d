package views

import (
	"cmp"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
)

type Kind uint8

const (
	KindUnavailable Kind = iota
	KindInt
	KindDecimal
	KindString
	KindTime
)

// Value is a single cell. The zero Value is unavailable: it never takes part
// in sums and is left out of JSON output.
type Value struct {
	kind Kind
	i    int64
	d    decimal.Decimal
	s    string
	t    time.Time
}

func Unavailable() Value { return Value{} }

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func NullInt(v null.Int) Value {
	if !v.Valid {
		return Unavailable()
	}
	return Int(v.Int64)
}

func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

func NullDecimal(d decimal.NullDecimal) Value {
	if !d.Valid {
		return Unavailable()
	}
	return Decimal(d.Decimal)
}

func String(s string) Value { return Value{kind: KindString, s: s} }

func NullString(s null.String) Value {
	if !s.Valid {
		return Unavailable()
	}
	return String(s.String)
}

func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

func NullTime(t null.Time) Value {
	if !t.Valid {
		return Unavailable()
	}
	return Time(t.Time)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Valid() bool { return v.kind != KindUnavailable }

func (v Value) Int64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) Dec() (decimal.Decimal, bool) {
	switch v.kind {
	case KindDecimal:
		return v.d, true
	case KindInt:
		return decimal.NewFromInt(v.i), true
	}
	return decimal.Decimal{}, false
}

// Compare orders present values before unavailable ones. Values of different
// kinds compare by kind so the ordering stays total.
func (v Value) Compare(o Value) int {
	switch {
	case !v.Valid() && !o.Valid():
		return 0
	case !v.Valid():
		return 1
	case !o.Valid():
		return -1
	}
	if v.kind != o.kind {
		if vd, ok := v.Dec(); ok {
			if od, ok := o.Dec(); ok {
				return vd.Cmp(od)
			}
		}
		return cmp.Compare(v.kind, o.kind)
	}
	switch v.kind {
	case KindInt:
		return cmp.Compare(v.i, o.i)
	case KindDecimal:
		return v.d.Cmp(o.d)
	case KindString:
		return cmp.Compare(v.s, o.s)
	case KindTime:
		return v.t.Compare(o.t)
	}
	return 0
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindDecimal:
		return []byte(v.d.String()), nil
	case KindString:
		return json.Marshal(v.s)
	case KindTime:
		return json.Marshal(v.t.UTC().Format(time.RFC3339))
	}
	return []byte("null"), nil
}
