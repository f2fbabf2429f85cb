package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"QueryFilter/internal/db"
	"QueryFilter/internal/logger"
	"QueryFilter/internal/parser"

	"github.com/redis/go-redis/v9"
)

// CountWithCache считает строки по фильтру. Если передан Redis и ttl > 0,
// результат кэшируется под ключом, построенным из SQL и его аргументов.
func (m *Model) CountWithCache(ctx context.Context, q db.Querier, rdb redis.Cmdable, ttl time.Duration, filter parser.Filter) (int64, error) {
	query, err := m.BuildCountQuery(filter)
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("count sql: %w", err)
	}
	logger.Debug("count_sql", map[string]any{"model": m.Name, "sql": sqlStr, "args": args})

	if rdb == nil || ttl <= 0 {
		return runCount(ctx, q, sqlStr, args)
	}
	key, err := countCacheKey(m.Name, sqlStr, args)
	if err != nil {
		logger.Warn("count_cache_key_failed", map[string]any{"model": m.Name, "error": err.Error()})
		return runCount(ctx, q, sqlStr, args)
	}

	// 1. Попытка загрузить из Redis
	cached, err := rdb.Get(ctx, key).Int64()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		logger.Warn("count_cache_read_failed", map[string]any{"model": m.Name, "error": err.Error()})
	}

	// 2. Считаем в БД
	count, err := runCount(ctx, q, sqlStr, args)
	if err != nil {
		return 0, err
	}

	// 3. Сохраняем в Redis
	if err := rdb.Set(ctx, key, count, ttl).Err(); err != nil {
		logger.Warn("count_cache_store_failed", map[string]any{"model": m.Name, "error": err.Error()})
	}
	return count, nil
}

func runCount(ctx context.Context, q db.Querier, sqlStr string, args []any) (int64, error) {
	var count int64
	if err := q.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return count, nil
}

// Index выполняет SELECT по результату разбора и возвращает строки.
func (m *Model) Index(ctx context.Context, q db.Querier, res *parser.Result) ([]map[string]any, error) {
	query, err := m.BuildIndexQuery(res)
	if err != nil {
		return nil, fmt.Errorf("build index query: %w", err)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("index sql: %w", err)
	}
	logger.Debug("index_sql", map[string]any{"model": m.Name, "sql": sqlStr, "args": args})

	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}
	return ScanRows(rows)
}
