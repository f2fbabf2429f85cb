package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Caster converts a raw query value into the Go value for a field type.
type Caster func(v any) (any, error)

// CasterFor returns the caster of t. Types without a conversion get identity.
func CasterFor(t TypeTag) Caster {
	switch {
	case t.IsNumeric():
		return castNumber
	case t == TypeString:
		return castString
	case t == TypeBoolean:
		return castBoolean
	case t == TypeDate:
		return castDate
	case t == TypeBinary:
		return castBinary
	}
	return identity
}

func identity(v any) (any, error) { return v, nil }

func castNumber(v any) (any, error) {
	if f, ok := ToFloat(v); ok {
		return f, nil
	}
	switch x := v.(type) {
	case bool:
		if x {
			return float64(1), nil
		}
		return float64(0), nil
	case json.Number:
		return x.Float64()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return float64(0), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%q is not a number", x)
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot cast %T to number", v)
}

func castString(v any) (any, error) {
	return Stringify(v), nil
}

func castBoolean(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", x)
		}
		return b, nil
	}
	if f, ok := ToFloat(v); ok {
		return f != 0, nil
	}
	return nil, fmt.Errorf("cannot cast %T to boolean", v)
}

func castDate(v any) (any, error) {
	return ParseDate(v)
}

func castBinary(v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("cannot cast %T to binary", v)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC3339 timestamps, plain dates and unix milliseconds.
// Zone-less layouts are read as UTC.
func ParseDate(v any) (time.Time, error) {
	return ParseDateIn(v, time.UTC)
}

// ParseDateIn is ParseDate with zone-less layouts read in loc.
func ParseDateIn(v any, loc *time.Location) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("%q is not a date", x)
	}
	if f, ok := ToFloat(v); ok {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot cast %T to date", v)
}

// ToFloat converts any Go numeric kind to float64.
func ToFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// Stringify renders v the way a query string would carry it: lists are
// joined with commas.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ",")
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
