package parser

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Filter is the document-style filter produced by a parse. Values are
// either plain equality values, Cond fragments, Regex patterns, or for the
// logical keys $or/$and, lists of sub-filters.
type Filter map[string]any

// Cond is a comparison fragment such as {"$gte": x, "$lte": y}.
type Cond map[string]any

// Regex is a case-insensitive pattern match on a field.
type Regex struct {
	Pattern string `json:"$regex"`
	Options string `json:"$options"`
}

// Projection maps a field to 1 (include) or 0 (exclude).
type Projection map[string]int

// SortField is one ordering directive; Direction is 1 or -1.
type SortField struct {
	Field     string
	Direction int
}

// Sort keeps directives in the order they were given.
type Sort []SortField

// Map returns the field to direction view of s.
func (s Sort) Map() map[string]int {
	if s == nil {
		return nil
	}
	m := make(map[string]int, len(s))
	for _, f := range s {
		m[f.Field] = f.Direction
	}
	return m
}

// MarshalJSON writes s as an object whose key order follows the sort order.
func (s Sort) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(f.Field)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		if f.Direction < 0 {
			b.WriteString("-1")
		} else {
			b.WriteString("1")
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (s Sort) clone() Sort {
	if s == nil {
		return nil
	}
	return append(Sort(nil), s...)
}

// Result is the outcome of one Parse call. Errors is nil when the query
// was accepted.
type Result struct {
	Errors Errors     `json:"errors"`
	Filter Filter     `json:"filter"`
	Fields Projection `json:"fields"`
	Page   *int       `json:"page"`
	Limit  *int       `json:"limit"`
	Skip   *int       `json:"skip,omitempty"`
	Sort   Sort       `json:"sort,omitempty"`
}

// OK reports whether the parse produced no errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Err returns nil for an accepted query, otherwise the ERR_INVALID_QUERY
// error carrying every recorded problem.
func (r *Result) Err(model string) error {
	if r.OK() {
		return nil
	}
	return NewInvalidQueryError(model, r.Errors)
}

// asCond views v as a comparison fragment.
func asCond(v any) (Cond, bool) {
	switch c := v.(type) {
	case Cond:
		return c, true
	case map[string]any:
		return Cond(c), true
	}
	return nil, false
}

// asList views any slice (except []byte) as []any.
func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case nil, []byte:
		return nil, false
	case []any:
		return x, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func intPtr(v int) *int { return &v }

func cloneFilter(f Filter) Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies maps and slices; leaves are values and are shared.
func cloneValue(v any) any {
	switch x := v.(type) {
	case Filter:
		return cloneFilter(x)
	case Cond:
		out := make(Cond, len(x))
		for k, item := range x {
			out[k] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case []Filter:
		out := make([]Filter, len(x))
		for i, item := range x {
			out[i] = cloneFilter(item)
		}
		return out
	}
	return v
}
