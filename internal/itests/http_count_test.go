package itests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"QueryFilter/internal/db"
	"QueryFilter/internal/model"
	"QueryFilter/internal/parser"
)

func Test_Count_Orders(t *testing.T) {
	requireDB(t)

	cases := []struct {
		name  string
		query url.Values
		want  float64
	}{
		{"shop without deleted", url.Values{"shop_id": {"1"}}, 3},
		{"pagination is ignored", url.Values{"shop_id": {"1"}, "limit": {"1"}, "page": {"3"}}, 3},
		{"array alias", url.Values{"shop_id": {"1"}, "barcode": {"HEO"}}, 1},
		{"nin keeps missing values", url.Values{"shop_id": {"1"}, "location_id_nin": {"3000"}}, 2},
		{"other shop", url.Values{"shop_id": {"2"}}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := url.Values{"model": {"orders"}}
			for k, v := range tc.query {
				q[k] = v
			}
			status, out := getJSON(t, "/api/count", q)
			if status != http.StatusOK {
				t.Fatalf("expected 200 OK, got %d. body=%v", status, out)
			}
			if out["count"] != tc.want {
				t.Fatalf("wrong count: got %v, want %v", out["count"], tc.want)
			}
		})
	}
}

func Test_Count_Orders_POST(t *testing.T) {
	requireDB(t)

	status, out := postJSON(t, "/api/count", `{"model":"orders","query":{"shop_id":1,"status_in":["open","cancelled"]}}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d. body=%v", status, out)
	}
	if out["count"] != float64(2) {
		t.Fatalf("wrong count: %v", out["count"])
	}
}

// Кэш счётчиков: второй вызов читается из Redis, FlushCountCache чистит ключи.
func Test_Count_Cache_Redis(t *testing.T) {
	requireDB(t)
	if db.RDB == nil {
		t.Skip("ITEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, ok := model.Get("orders")
	if !ok {
		t.Fatalf("orders model missing in registry")
	}
	if err := model.FlushCountCache(ctx, db.RDB, "orders"); err != nil {
		t.Fatalf("flush: %v", err)
	}

	filter := parser.Filter{"shop_id": float64(1), "is_deleted": false}
	first, err := m.CountWithCache(ctx, db.Pool, db.RDB, time.Minute, filter)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	keys, err := db.RDB.Keys(ctx, "count:orders:*").Result()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected one cached count, got %v", keys)
	}
	second, err := m.CountWithCache(ctx, db.Pool, db.RDB, time.Minute, filter)
	if err != nil || second != first || first != 3 {
		t.Fatalf("cached count mismatch: first=%d second=%d err=%v", first, second, err)
	}

	if err := model.FlushCountCache(ctx, db.RDB, "orders"); err != nil {
		t.Fatalf("flush: %v", err)
	}
	keys, _ = db.RDB.Keys(ctx, "count:orders:*").Result()
	if len(keys) != 0 {
		t.Fatalf("keys left after flush: %v", keys)
	}
}
