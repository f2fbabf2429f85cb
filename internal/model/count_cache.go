package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goccy/go-json"
)

const countCachePrefix = "count:"

type countKeyPayload struct {
	Model string `json:"model"`
	SQL   string `json:"sql"`
	Args  []any  `json:"args"`
}

// countCacheKey identifies a count by model and the exact SQL it runs.
// Format: count:<model>:<sha256 hex>.
func countCacheKey(modelName, sql string, args []any) (string, error) {
	norm := make([]any, len(args))
	for i, a := range args {
		norm[i] = cacheArg(a)
	}
	data, err := json.Marshal(countKeyPayload{Model: modelName, SQL: sql, Args: norm})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return countCachePrefix + modelName + ":" + hex.EncodeToString(sum[:]), nil
}

// cacheArg приводит время к UTC: одно мгновение в разных зонах даёт один ключ.
func cacheArg(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []time.Time:
		out := make([]string, len(x))
		for i, t := range x {
			out[i] = t.UTC().Format(time.RFC3339Nano)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cacheArg(item)
		}
		return out
	}
	return v
}
