package model

import (
	"fmt"

	"QueryFilter/internal/parser"

	"github.com/Masterminds/squirrel"
)

func (m *Model) BuildCountQuery(filter parser.Filter) (squirrel.SelectBuilder, error) {
	sb := squirrel.Select().PlaceholderFormat(squirrel.Dollar)
	sb = sb.From(fmt.Sprintf("%s AS main", m.tableExpr()))
	// EXISTS по массивам не размножает строки, поэтому DISTINCT не нужен
	sb = sb.Column("COUNT(*)")

	wherePart, err := m.BuildWhereClause(filter)
	if err != nil {
		return sb, err
	}
	if wherePart != nil {
		sb = sb.Where(wherePart)
	}
	return sb, nil
}
