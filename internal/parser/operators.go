package parser

import (
	"fmt"
	"strings"
	"time"

	"QueryFilter/internal/schema"
)

// OperatorKind enumerates the closed set of key suffix operators.
type OperatorKind int

const (
	OpEq OperatorKind = iota
	OpNe
	OpGt
	OpGte
	OpFromDate
	OpLt
	OpLte
	OpToDate
	OpIn
	OpNin
	OpLike
	OpEquals
)

type operator struct {
	kind    OperatorKind
	name    string
	suffix  string
	applyOn []schema.TypeTag // nil means any type
	apply   func(c *parseContext, field string, value any, spec schema.FieldSpec)
}

var (
	numberOrDate = []schema.TypeTag{schema.TypeNumber, schema.TypeDate}
	onlyDate     = []schema.TypeTag{schema.TypeDate}
	onlyString   = []schema.TypeTag{schema.TypeString}
)

// operators is tried in order; the empty suffix matches every key and
// must stay last.
var operators = []operator{
	{kind: OpEq, name: "eq", suffix: "_eq", apply: applyEq},
	{kind: OpNe, name: "ne", suffix: "_ne", apply: compare("$ne")},
	{kind: OpGt, name: "gt", suffix: "_gt", applyOn: numberOrDate, apply: compare("$gt")},
	{kind: OpGte, name: "gte", suffix: "_gte", applyOn: numberOrDate, apply: compare("$gte")},
	{kind: OpFromDate, name: "from_date", suffix: "_from_date", applyOn: onlyDate, apply: dayBound("from_date", "$gte", false)},
	{kind: OpLt, name: "lt", suffix: "_lt", applyOn: numberOrDate, apply: compare("$lt")},
	{kind: OpLte, name: "lte", suffix: "_lte", applyOn: numberOrDate, apply: compare("$lte")},
	{kind: OpToDate, name: "to_date", suffix: "_to_date", applyOn: onlyDate, apply: dayBound("to_date", "$lte", true)},
	{kind: OpIn, name: "in", suffix: "_in", apply: applyList("in", "$in", true)},
	{kind: OpNin, name: "nin", suffix: "_nin", apply: applyList("nin", "$nin", false)},
	{kind: OpLike, name: "like", suffix: "_like", applyOn: onlyString, apply: applyLike},
	{kind: OpEquals, name: "", suffix: "", apply: applyEquals},
}

// matchOperator returns the first operator whose suffix ends key and the
// field name left once the suffix is stripped.
func matchOperator(key string) (operator, string) {
	for _, op := range operators {
		if strings.HasSuffix(key, op.suffix) {
			return op, key[:len(key)-len(op.suffix)]
		}
	}
	// unreachable: the last operator has an empty suffix
	return operators[len(operators)-1], key
}

func (op operator) appliesTo(t schema.TypeTag) bool {
	if op.applyOn == nil {
		return true
	}
	for _, want := range op.applyOn {
		if t.Matches(want) {
			return true
		}
	}
	return false
}

// applyOperator runs the operator table on one query key.
func (c *parseContext) applyOperator(key string, value any) {
	op, field := matchOperator(key)
	field = c.p.canonical(field)

	spec := c.p.schema.Resolve(field)
	if !spec.Exists {
		c.fail(&Error{
			Code:    ErrInvalidField,
			Field:   field,
			Message: fmt.Sprintf("Invalid field %s", field),
		})
		return
	}

	if !op.appliesTo(spec.Type) {
		c.fail(&Error{
			Code:     ErrWrongOperator,
			Field:    field,
			Type:     spec.Type.String(),
			Operator: op.name,
			Message:  fmt.Sprintf("Can't use operator %s on %s has type %s", op.name, field, spec.Type),
		})
		return
	}

	op.apply(c, field, value, spec)
}

// cast converts value with the field caster, reporting failures.
func (c *parseContext) cast(field, opName string, spec schema.FieldSpec, value any) (any, bool) {
	v, err := spec.Cast(value)
	if err != nil {
		c.fail(&Error{
			Code:     ErrInvalidType,
			Field:    field,
			Operator: opName,
			Type:     spec.Type.String(),
			Value:    value,
			Message:  fmt.Sprintf("Can't cast %s to %s for field %s: %v", schema.Stringify(value), spec.Type, field, err),
		})
		return nil, false
	}
	return v, true
}

func applyEq(c *parseContext, field string, value any, spec schema.FieldSpec) {
	v, ok := c.cast(field, "eq", spec, value)
	if !ok {
		return
	}
	if c.hasPermission(field, v) {
		c.assign(field, Cond{"$eq": v})
	}
}

func applyEquals(c *parseContext, field string, value any, spec schema.FieldSpec) {
	v, ok := c.cast(field, "", spec, value)
	if !ok {
		return
	}
	if c.hasPermission(field, v) {
		c.set(field, v)
	}
}

// compare assigns the raw value; $ne is deliberately not permission checked.
func compare(key string) func(*parseContext, string, any, schema.FieldSpec) {
	return func(c *parseContext, field string, value any, _ schema.FieldSpec) {
		c.assign(field, Cond{key: value})
	}
}

// dayBound parses value as a date and moves it to the first or last
// millisecond of its day in the parser location.
func dayBound(opName, key string, endOfDay bool) func(*parseContext, string, any, schema.FieldSpec) {
	return func(c *parseContext, field string, value any, spec schema.FieldSpec) {
		t, err := schema.ParseDateIn(value, c.p.loc)
		if err != nil {
			c.fail(&Error{
				Code:     ErrInvalidType,
				Field:    field,
				Operator: opName,
				Type:     spec.Type.String(),
				Value:    value,
				Message:  fmt.Sprintf("Operator %s expect a date value, but received %s", opName, schema.Stringify(value)),
			})
			return
		}
		t = t.In(c.p.loc)
		y, m, d := t.Date()
		if endOfDay {
			t = time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), c.p.loc)
		} else {
			t = time.Date(y, m, d, 0, 0, 0, 0, c.p.loc)
		}
		c.assign(field, Cond{key: t})
	}
}

// applyList handles _in and _nin. Only _in is permission checked.
func applyList(opName, key string, checkPermission bool) func(*parseContext, string, any, schema.FieldSpec) {
	return func(c *parseContext, field string, value any, spec schema.FieldSpec) {
		raw, ok := splitList(value)
		if !ok {
			c.fail(&Error{
				Code:     ErrInvalidType,
				Field:    field,
				Operator: opName,
				Expected: []string{"array", "string"},
				Value:    value,
				Message:  fmt.Sprintf("Operator %s expect a string or array value, but received %s", opName, schema.Stringify(value)),
			})
			return
		}
		values := make([]any, 0, len(raw))
		for _, item := range raw {
			v, ok := c.cast(field, opName, spec, item)
			if !ok {
				return
			}
			values = append(values, v)
		}
		if checkPermission && !c.hasPermission(field, values...) {
			return
		}
		c.assign(field, Cond{key: values})
	}
}

func applyLike(c *parseContext, field string, value any, _ schema.FieldSpec) {
	c.set(field, Regex{Pattern: schema.Stringify(value), Options: "gi"})
}

// splitList accepts a comma separated string or any list.
func splitList(value any) ([]any, bool) {
	if s, ok := value.(string); ok {
		parts := strings.Split(s, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, true
	}
	return asList(value)
}
