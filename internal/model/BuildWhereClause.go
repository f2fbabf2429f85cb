package model

import (
	"fmt"
	"reflect"
	"strings"

	"QueryFilter/internal/parser"

	"github.com/Masterminds/squirrel"
)

// BuildWhereClause переводит фильтр парсера в условие WHERE. Returns nil
// for an empty filter.
func (m *Model) BuildWhereClause(filter parser.Filter) (squirrel.Sqlizer, error) {
	exprs, err := m.whereParts(filter)
	if err != nil {
		return nil, err
	}
	if len(exprs) == 0 {
		return nil, nil
	}
	return squirrel.And(exprs), nil
}

func (m *Model) whereParts(filter map[string]any) ([]squirrel.Sqlizer, error) {
	var exprs []squirrel.Sqlizer

	// ключи сортируем, чтобы SQL был детерминированным (важно для кэша)
	for _, key := range sortedNames(filter) {
		val := filter[key]
		switch key {
		case "$or", "$and":
			subs, err := subFilters(key, val)
			if err != nil {
				return nil, err
			}
			groups := make([]squirrel.Sqlizer, 0, len(subs))
			for _, sub := range subs {
				parts, err := m.whereParts(sub)
				if err != nil {
					return nil, err
				}
				if len(parts) == 0 {
					// пустой под-фильтр совпадает с любой строкой
					groups = append(groups, squirrel.Expr("TRUE"))
					continue
				}
				groups = append(groups, squirrel.And(parts))
			}
			if key == "$or" {
				exprs = append(exprs, squirrel.Or(groups))
			} else if len(groups) > 0 {
				exprs = append(exprs, squirrel.And(groups))
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			return nil, fmt.Errorf("unsupported top-level operator %s", key)
		}

		ref, err := m.resolveFieldExpression(key)
		if err != nil {
			return nil, err
		}
		cond, err := ref.condition(val)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", key, err)
		}
		exprs = append(exprs, ref.wrap(cond))
	}
	return exprs, nil
}

// condition builds the predicate of one field.
func (r fieldRef) condition(value any) (squirrel.Sqlizer, error) {
	switch v := value.(type) {
	case nil:
		return squirrel.Eq{r.expr: nil}, nil
	case parser.Regex:
		return squirrel.Expr(r.expr+" ~* ?", v.Pattern), nil
	case *parser.Regex:
		return squirrel.Expr(r.expr+" ~* ?", v.Pattern), nil
	case parser.Cond:
		return r.operators(v)
	case map[string]any:
		return r.operators(v)
	}
	if list, ok := listOf(value); ok {
		return squirrel.Expr(r.expr+" = ANY(?)", r.arrayArg(list)), nil
	}
	return eqExpr(r.expr, r.arg(value)), nil
}

// eqExpr keeps []byte values away from squirrel.Eq, which would expand
// them into an IN list.
func eqExpr(expr string, v any) squirrel.Sqlizer {
	if b, ok := v.([]byte); ok {
		return squirrel.Expr(expr+" = ?", b)
	}
	return squirrel.Eq{expr: v}
}

func (r fieldRef) operators(cond map[string]any) (squirrel.Sqlizer, error) {
	parts := make([]squirrel.Sqlizer, 0, len(cond))
	for _, op := range sortedNames(cond) {
		v := cond[op]
		switch op {
		case "$eq":
			if v == nil {
				parts = append(parts, squirrel.Eq{r.expr: nil})
			} else {
				parts = append(parts, eqExpr(r.expr, r.arg(v)))
			}
		case "$ne":
			// как в документных БД: $ne пропускает отсутствующие значения
			if v == nil {
				parts = append(parts, squirrel.NotEq{r.expr: nil})
			} else {
				parts = append(parts, squirrel.Or{squirrel.Eq{r.expr: nil}, squirrel.Expr(r.expr+" <> ?", r.arg(v))})
			}
		case "$gt":
			parts = append(parts, squirrel.Gt{r.expr: r.arg(v)})
		case "$gte":
			parts = append(parts, squirrel.GtOrEq{r.expr: r.arg(v)})
		case "$lt":
			parts = append(parts, squirrel.Lt{r.expr: r.arg(v)})
		case "$lte":
			parts = append(parts, squirrel.LtOrEq{r.expr: r.arg(v)})
		case "$in", "$nin":
			list, ok := listOf(v)
			if !ok {
				return nil, fmt.Errorf("%s expects a list, got %T", op, v)
			}
			if op == "$in" {
				parts = append(parts, squirrel.Expr(r.expr+" = ANY(?)", r.arrayArg(list)))
			} else {
				parts = append(parts, squirrel.Expr("("+r.expr+" IS NULL OR NOT ("+r.expr+" = ANY(?)))", r.arrayArg(list)))
			}
		case "$regex":
			parts = append(parts, squirrel.Expr(r.expr+" ~* ?", fmt.Sprint(v)))
		case "$options":
			// флаги регулярки: ~* уже без учёта регистра
		default:
			return nil, fmt.Errorf("unsupported operator %s", op)
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return squirrel.And(parts), nil
}

// subFilters reads the operand of $or/$and.
func subFilters(key string, val any) ([]map[string]any, error) {
	list, ok := listOf(val)
	if !ok {
		return nil, fmt.Errorf("%s expects a list of filters, got %T", key, val)
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		switch f := item.(type) {
		case parser.Filter:
			out = append(out, f)
		case map[string]any:
			out = append(out, f)
		default:
			return nil, fmt.Errorf("%s entries must be filters, got %T", key, item)
		}
	}
	return out, nil
}

// listOf views any slice except []byte as []any.
func listOf(v any) ([]any, bool) {
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
