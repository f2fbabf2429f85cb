package parser

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"QueryFilter/internal/schema"
)

// hasPermission checks every value against the caller's allow-list for
// field. Fields without an allow-list are unrestricted. The first value
// outside the list is reported and the check fails.
func (c *parseContext) hasPermission(field string, values ...any) bool {
	allowed := c.permission[field]
	if allowed == nil {
		return true
	}
	for _, v := range values {
		if !containsValue(allowed, v) {
			c.fail(&Error{
				Code:    ErrNotPermission,
				Field:   field,
				Value:   v,
				Message: fmt.Sprintf("Can't see item has %s = %s", field, schema.Stringify(v)),
			})
			return false
		}
	}
	return true
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if sameValue(item, v) {
			return true
		}
	}
	return false
}

// sameValue is strict equality with numeric kinds compared by value, so
// 1000, int64(1000) and 1000.0 are equal while "1000" is not.
func sameValue(a, b any) bool {
	if fa, ok := schema.ToFloat(a); ok {
		fb, ok := schema.ToFloat(b)
		return ok && fa == fb
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	}
	if b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
