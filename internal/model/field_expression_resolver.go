package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"QueryFilter/internal/schema"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var pathSegment = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// fieldRef is the SQL view of one filter path. Top-level fields are table
// columns; anything deeper is read out of the JSONB column.
type fieldRef struct {
	expr string
	typ  schema.TypeTag
	// text is set when expr is an uncast #>> extraction
	text bool
	// JSON arrays crossed on the way, outermost first
	hops []arrayHop
}

type arrayHop struct {
	source string // jsonb expression of the array
	alias  string
}

func (m *Model) columnExpr(name string) string {
	return pgx.Identifier{"main", name}.Sanitize()
}

func (m *Model) tableExpr() string {
	return pgx.Identifier(strings.Split(m.Table, ".")).Sanitize()
}

// resolveFieldExpression maps a dotted filter path to its SQL expression.
//
//	shop_id             -> "main"."shop_id"
//	customer.name       -> "main"."customer" #>> '{name}'
//	line_items.barcode  -> el0 #>> '{barcode}' inside EXISTS over line_items
func (m *Model) resolveFieldExpression(path string) (fieldRef, error) {
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if !pathSegment.MatchString(seg) {
			return fieldRef{}, fmt.Errorf("invalid path segment %q in %s", seg, path)
		}
	}
	node := m.Fields.Lookup(segs[0])
	if node == nil {
		return fieldRef{}, fmt.Errorf("unknown field %s", path)
	}
	column := m.columnExpr(segs[0])
	if len(segs) == 1 {
		return fieldRef{expr: column, typ: node.TypeTag()}, nil
	}

	ref := fieldRef{typ: schema.TypeUnknown}
	base := column
	var jsonPath []string
	rest := segs[1:]
walk:
	for i, seg := range rest {
		if node == nil {
			jsonPath = append(jsonPath, rest[i:]...)
			break
		}
		switch node.Kind {
		case schema.KindObject:
			node = node.Fields[seg]
			jsonPath = append(jsonPath, seg)
		case schema.KindArray:
			if _, err := strconv.Atoi(seg); err == nil {
				node = node.Elem
				jsonPath = append(jsonPath, seg)
				continue
			}
			alias := fmt.Sprintf("el%d", len(ref.hops))
			ref.hops = append(ref.hops, arrayHop{source: jsonValue(base, jsonPath), alias: alias})
			base = alias
			jsonPath = []string{seg}
			if node.Elem != nil && node.Elem.Kind == schema.KindObject {
				node = node.Elem.Fields[seg]
			} else {
				node = nil
			}
		default:
			// free-form JSON leaf
			if t := node.TypeTag(); t != schema.TypeObject && t != schema.TypeUnknown {
				return fieldRef{}, fmt.Errorf("cannot address %s inside a %s field", path, t)
			}
			jsonPath = append(jsonPath, rest[i:]...)
			node = nil
			break walk
		}
	}
	if node != nil {
		ref.typ = node.TypeTag()
	}
	ref.expr, ref.text = castText(fmt.Sprintf("%s #>> '{%s}'", base, strings.Join(jsonPath, ",")), ref.typ)
	return ref, nil
}

func jsonValue(base string, path []string) string {
	if len(path) == 0 {
		return base
	}
	return fmt.Sprintf("%s #> '{%s}'", base, strings.Join(path, ","))
}

// castText turns a #>> text extraction into the SQL type of t.
func castText(expr string, t schema.TypeTag) (string, bool) {
	switch {
	case t.IsNumeric():
		return "(" + expr + ")::numeric", false
	case t == schema.TypeBoolean:
		return "(" + expr + ")::boolean", false
	case t == schema.TypeDate:
		return "(" + expr + ")::timestamptz", false
	}
	return "(" + expr + ")", true
}

// wrap nests cond in one EXISTS per crossed array, so every condition on
// the path has to hold for the same element.
func (r fieldRef) wrap(cond squirrel.Sqlizer) squirrel.Sqlizer {
	for i := len(r.hops) - 1; i >= 0; i-- {
		cond = existsIn{hop: r.hops[i], cond: cond}
	}
	return cond
}

type existsIn struct {
	hop  arrayHop
	cond squirrel.Sqlizer
}

func (e existsIn) ToSql() (string, []any, error) {
	sql, args, err := e.cond.ToSql()
	if err != nil {
		return "", nil, err
	}
	src := e.hop.source
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM jsonb_array_elements(CASE WHEN jsonb_typeof(%s) = 'array' THEN %s ELSE '[]'::jsonb END) AS %s WHERE %s)",
		src, src, e.hop.alias, sql,
	), args, nil
}

// arg converts a filter value into the Go value bound for the field.
func (r fieldRef) arg(v any) any {
	if r.text {
		return schema.Stringify(v)
	}
	switch r.typ {
	case schema.TypeUnknown, schema.TypeObject, schema.TypeArray:
		return v
	}
	cast, err := schema.CasterFor(r.typ)(v)
	if err != nil {
		return v
	}
	if f, ok := cast.(float64); ok && isIntegerType(r.typ) && f == float64(int64(f)) {
		return int64(f)
	}
	return cast
}

// arrayArg builds a typed slice for "= ANY(?)".
func (r fieldRef) arrayArg(list []any) any {
	switch {
	case r.text || r.typ == schema.TypeString:
		out := make([]string, len(list))
		for i, v := range list {
			out[i] = schema.Stringify(v)
		}
		return out
	case r.typ.IsNumeric():
		out := make([]float64, 0, len(list))
		for _, v := range list {
			f, ok := schema.ToFloat(r.arg(v))
			if !ok {
				return stringSlice(list)
			}
			out = append(out, f)
		}
		return out
	case r.typ == schema.TypeBoolean:
		out := make([]bool, 0, len(list))
		for _, v := range list {
			b, ok := r.arg(v).(bool)
			if !ok {
				return stringSlice(list)
			}
			out = append(out, b)
		}
		return out
	case r.typ == schema.TypeDate:
		out := make([]time.Time, 0, len(list))
		for _, v := range list {
			t, ok := r.arg(v).(time.Time)
			if !ok {
				return stringSlice(list)
			}
			out = append(out, t)
		}
		return out
	}
	return stringSlice(list)
}

func isIntegerType(t schema.TypeTag) bool {
	switch t {
	case schema.TypeInteger, schema.TypeLong, schema.TypeShort, schema.TypeByte:
		return true
	}
	return false
}

func stringSlice(list []any) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = schema.Stringify(v)
	}
	return out
}
