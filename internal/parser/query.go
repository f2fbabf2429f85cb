package parser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Param is one key of an incoming query.
type Param struct {
	Key   string
	Value any
}

// Query is an ordered list of params. Keys are parsed in this order, which
// decides the order of the reported errors.
type Query []Param

// Add appends key with value.
func (q Query) Add(key string, value any) Query {
	return append(q, Param{Key: key, Value: value})
}

// Get returns the value of the first param named key.
func (q Query) Get(key string) (any, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// ParseRawQuery reads a URL query string keeping the order of first
// appearance. Repeated keys are collected into a []string.
func ParseRawQuery(raw string) (Query, error) {
	raw = strings.TrimPrefix(raw, "?")
	var q Query
	index := map[string]int{}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid query key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid value for key %q: %w", key, err)
		}
		i, seen := index[key]
		if !seen {
			index[key] = len(q)
			q = append(q, Param{Key: key, Value: value})
			continue
		}
		switch prev := q[i].Value.(type) {
		case string:
			q[i].Value = []string{prev, value}
		case []string:
			q[i].Value = append(prev, value)
		}
	}
	return q, nil
}

// QueryFromValues converts url.Values with keys in lexical order.
func QueryFromValues(values url.Values) Query {
	q := make(Query, 0, len(values))
	for _, key := range sortedKeys(values) {
		vs := values[key]
		switch len(vs) {
		case 0:
			q = append(q, Param{Key: key, Value: ""})
		case 1:
			q = append(q, Param{Key: key, Value: vs[0]})
		default:
			q = append(q, Param{Key: key, Value: append([]string(nil), vs...)})
		}
	}
	return q
}

// QueryFromMap converts a map with keys in lexical order.
func QueryFromMap(m map[string]any) Query {
	q := make(Query, 0, len(m))
	for _, key := range sortedKeys(m) {
		q = append(q, Param{Key: key, Value: m[key]})
	}
	return q
}

// QueryFromJSON reads a JSON object keeping the key order of the document.
func QueryFromJSON(raw []byte) (Query, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("invalid JSON query")
	}
	return QueryFromGJSON(gjson.ParseBytes(raw))
}

// QueryFromGJSON converts an already located JSON object.
func QueryFromGJSON(obj gjson.Result) (Query, error) {
	if !obj.Exists() || obj.Type == gjson.Null {
		return Query{}, nil
	}
	if !obj.IsObject() {
		return nil, errors.New("query must be a JSON object")
	}
	var q Query
	obj.ForEach(func(key, value gjson.Result) bool {
		q = append(q, Param{Key: key.String(), Value: value.Value()})
		return true
	})
	return q, nil
}
