package model

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// FlushCountCache удаляет закэшированные счётчики модели из Redis
// (всех моделей, если modelName пустой).
func FlushCountCache(ctx context.Context, conn redis.Cmdable, modelName string) error {
	pattern := countCachePrefix + "*"
	if modelName != "" {
		pattern = countCachePrefix + modelName + ":*"
	}

	iter := conn.Scan(ctx, 0, pattern, 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		err := conn.Del(ctx, key).Err()
		if err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan error: %w", err)
	}

	return nil
}
