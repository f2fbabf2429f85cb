package model

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ScanRows преобразует результат SQL в []map[string]any. Ключи берутся из
// описания колонок, так что "#-" выражения с AS сохраняют имя поля.
func ScanRows(rows pgx.Rows) ([]map[string]any, error) {
	if rows == nil {
		return nil, fmt.Errorf("rows is nil")
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	keys := make([]string, len(descs))
	for i, d := range descs {
		keys[i] = d.Name
	}

	out := make([]map[string]any, 0, 64)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		// берём минимум от фактических и ожидаемых колонок
		n := len(vals)
		if len(keys) < n {
			n = len(keys)
		}
		row := make(map[string]any, n)
		for i := 0; i < n; i++ {
			row[keys[i]] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
