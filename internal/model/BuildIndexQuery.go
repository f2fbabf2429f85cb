package model

import (
	"fmt"
	"strings"

	"QueryFilter/internal/parser"
	"QueryFilter/internal/schema"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// BuildIndexQuery строит SELECT-запрос для /index эндпоинта из результата
// разбора: фильтр, проекция, сортировка и пагинация.
func (m *Model) BuildIndexQuery(res *parser.Result) (squirrel.SelectBuilder, error) {
	sb := squirrel.Select().PlaceholderFormat(squirrel.Dollar)

	// 1. FROM
	sb = sb.From(fmt.Sprintf("%s AS main", m.tableExpr()))

	// 2. Колонки с учётом проекции
	cols, err := m.projectionColumns(res.Fields)
	if err != nil {
		return sb, err
	}
	sb = sb.Columns(cols...)

	// 3. WHERE фильтры
	whereBuilder, err := m.BuildWhereClause(res.Filter)
	if err != nil {
		return sb, err
	}
	if whereBuilder != nil {
		sb = sb.Where(whereBuilder)
	}

	// 4. ORDER BY
	for _, s := range res.Sort {
		ref, err := m.resolveFieldExpression(s.Field)
		if err != nil {
			return sb, fmt.Errorf("sort: %w", err)
		}
		if len(ref.hops) > 0 {
			return sb, fmt.Errorf("sort: cannot order by %s, it lies inside an array", s.Field)
		}
		dir := "ASC"
		if s.Direction < 0 {
			dir = "DESC"
		}
		sb = sb.OrderBy(ref.expr + " " + dir)
	}

	// 5. LIMIT / OFFSET
	if res.Limit != nil && *res.Limit > 0 {
		sb = sb.Limit(uint64(*res.Limit))
	}
	if res.Skip != nil && *res.Skip > 0 {
		sb = sb.Offset(uint64(*res.Skip))
	}

	return sb, nil
}

// projectionColumns lists the selected columns. Inclusions select whole
// top-level columns plus the primary keys; nested exclusions on object
// columns are cut out with the jsonb #- operator.
func (m *Model) projectionColumns(fields parser.Projection) ([]string, error) {
	included := map[string]bool{}
	excluded := map[string][]string{}
	for path, flag := range fields {
		segs := strings.Split(path, ".")
		if m.Fields.Lookup(segs[0]) == nil {
			continue
		}
		if flag != 0 {
			included[segs[0]] = true
			continue
		}
		excluded[segs[0]] = append(excluded[segs[0]], strings.Join(segs[1:], "."))
	}

	var cols []string
	if len(included) > 0 {
		for _, pk := range m.GetPrimaryKeys() {
			if m.Fields.Lookup(pk) != nil {
				included[pk] = true
			}
		}
		for _, name := range m.Fields.TopLevel() {
			if included[name] {
				cols = append(cols, m.columnExpr(name))
			}
		}
		return cols, nil
	}

	for _, name := range m.Fields.TopLevel() {
		rests, ok := excluded[name]
		if !ok {
			cols = append(cols, m.columnExpr(name))
			continue
		}
		expr, keep, err := m.trimColumn(name, rests)
		if err != nil {
			return nil, err
		}
		if keep {
			cols = append(cols, expr)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("projection excludes every column of %s", m.Name)
	}
	return cols, nil
}

// trimColumn applies the nested exclusions of one column. An exclusion of
// the column itself drops it.
func (m *Model) trimColumn(name string, rests []string) (string, bool, error) {
	node := m.Fields.Lookup(name)
	expr := m.columnExpr(name)
	trimmed := false
	for _, rest := range rests {
		if rest == "" {
			return "", false, nil
		}
		if node.Kind != schema.KindObject {
			// только для вложенных документов; массивы не режем
			continue
		}
		segs := strings.Split(rest, ".")
		for _, seg := range segs {
			if !pathSegment.MatchString(seg) {
				return "", false, fmt.Errorf("invalid path segment %q in %s.%s", seg, name, rest)
			}
		}
		expr = fmt.Sprintf("%s #- '{%s}'", expr, strings.Join(segs, ","))
		trimmed = true
	}
	if trimmed {
		expr += " AS " + pgx.Identifier{name}.Sanitize()
	}
	return expr, true, nil
}
