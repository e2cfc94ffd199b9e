package record

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single scalar field value. The zero Value is null.
type Value struct {
	kind Kind
	num  decimal.Decimal
	text string
	date time.Time
}

func Null() Value {
	return Value{}
}

func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, num: d}
}

func Int(n int64) Value {
	return Number(decimal.NewFromInt(n))
}

// Float maps NaN and the infinities to their text form, which never parses
// as a number.
func Float(f float64) Value {
	if !isFinite(f) {
		return Text(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return Number(decimal.NewFromFloat(f))
}

func Float32(f float32) Value {
	if !isFinite(float64(f)) {
		return Text(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	return Number(decimal.NewFromFloat32(f))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Text strips the trailing NUL padding of fixed-width legacy fields.
func Text(s string) Value {
	return Value{kind: KindText, text: strings.TrimRight(s, "\x00")}
}

func Date(t time.Time) Value {
	return Value{kind: KindDate, date: t}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsNumber reports the numeric form of v. Text parses as a number when the
// whole trimmed string is a decimal literal.
func (v Value) AsNumber() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		trimmed := strings.TrimSpace(v.text)
		if trimmed == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

func (v Value) AsDate() (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.date, true
	case KindText:
		trimmed := strings.TrimSpace(v.text)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return v.num.String()
	case KindText:
		return v.text
	case KindDate:
		return formatDate(v.date)
	default:
		return ""
	}
}

// Interface returns v as a plain Go value suitable for encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return json.Number(v.num.String())
	case KindText:
		return v.text
	case KindDate:
		return formatDate(v.date)
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindNull:
		return []byte("null"), nil
	default:
		return json.Marshal(v.String())
	}
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num.Equal(other.num)
	case KindText:
		return v.text == other.text
	case KindDate:
		return v.date.Equal(other.date)
	default:
		return true
	}
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339Nano)
}

type float64er interface {
	Float64() float64
}

// ValueOf normalizes a Go or database driver value. Composite driver values
// such as lists, structs and intervals are rendered as JSON text.
func ValueOf(raw any) (Value, error) {
	if value, ok := scalarValue(raw); ok {
		return value, nil
	}
	if stringer, ok := raw.(fmt.Stringer); ok {
		return Text(stringer.String()), nil
	}
	switch reflect.TypeOf(raw).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		encoded, err := json.Marshal(raw)
		if err != nil {
			return Text(fmt.Sprint(raw)), nil
		}
		return Text(string(encoded)), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// LiteralOf normalizes a comparison literal supplied by a caller. Only
// scalars are accepted and floats must be finite.
func LiteralOf(raw any) (Value, error) {
	switch typed := raw.(type) {
	case float64:
		if !isFinite(typed) {
			return Value{}, fmt.Errorf("non-finite literal %v", typed)
		}
	case float32:
		if !isFinite(float64(typed)) {
			return Value{}, fmt.Errorf("non-finite literal %v", typed)
		}
	case float64er:
		if !isFinite(typed.Float64()) {
			return Value{}, fmt.Errorf("non-finite literal %v", typed.Float64())
		}
	}
	value, ok := scalarValue(raw)
	if !ok {
		return Value{}, fmt.Errorf("unsupported literal type %T", raw)
	}
	return value, nil
}

func scalarValue(raw any) (Value, bool) {
	switch typed := raw.(type) {
	case nil:
		return Null(), true
	case Value:
		return typed, true
	case string:
		return Text(typed), true
	case []byte:
		return Text(string(typed)), true
	case bool:
		return Text(strconv.FormatBool(typed)), true
	case int:
		return Int(int64(typed)), true
	case int8:
		return Int(int64(typed)), true
	case int16:
		return Int(int64(typed)), true
	case int32:
		return Int(int64(typed)), true
	case int64:
		return Int(typed), true
	case uint:
		return Number(decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(typed)), 0)), true
	case uint8:
		return Int(int64(typed)), true
	case uint16:
		return Int(int64(typed)), true
	case uint32:
		return Int(int64(typed)), true
	case uint64:
		return Number(decimal.NewFromBigInt(new(big.Int).SetUint64(typed), 0)), true
	case *big.Int:
		if typed == nil {
			return Null(), true
		}
		return Number(decimal.NewFromBigInt(typed, 0)), true
	case float32:
		return Float32(typed), true
	case float64:
		return Float(typed), true
	case decimal.Decimal:
		return Number(typed), true
	case json.Number:
		d, err := decimal.NewFromString(typed.String())
		if err != nil {
			return Text(typed.String()), true
		}
		return Number(d), true
	case time.Time:
		return Date(typed), true
	case float64er:
		return Float(typed.Float64()), true
	}
	if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Null(), true
		}
		return scalarValue(rv.Elem().Interface())
	}
	return Value{}, false
}
