package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"QueryFilter/internal/parser"
)

const ordersYAML = `
table: orders
fields:
  id: integer
  shop_id: number
  status: string
  created_at: date
  is_deleted: boolean
  private_field: number
  order_number: string
  customer:
    id: number
    name: string
    phone: string
  line_items:
    - barcode: string
      quantity: number
required: [shop_id]
deny_list: [private_field]
alias:
  barcode: line_items.barcode
defaults:
  page: 1
  limit: 20
  sort: created_at_desc
  is_deleted: false
denied_values: [""]
search:
  keyword: [order_number, customer.phone]
`

func ordersModel(t *testing.T) *Model {
	t.Helper()
	m, err := ParseModel("orders", []byte(ordersYAML))
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	if err := Register(m, time.UTC); err != nil {
		t.Fatalf("Register: %v", err)
	}
	t.Cleanup(ResetRegistry)
	return m
}

func toSQL(t *testing.T, m *Model, filter parser.Filter) (string, []any) {
	t.Helper()
	where, err := m.BuildWhereClause(filter)
	if err != nil {
		t.Fatalf("BuildWhereClause: %v", err)
	}
	sql, args, err := where.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	return sql, args
}

func TestBuildWhereClauseTopLevel(t *testing.T) {
	m := ordersModel(t)
	sql, args := toSQL(t, m, parser.Filter{
		"shop_id": float64(7),
		"status":  parser.Cond{"$in": []any{"A", "B"}},
	})

	wantSQL := `("main"."shop_id" = ? AND "main"."status" = ANY(?))`
	if sql != wantSQL {
		t.Fatalf("sql:\n got %s\nwant %s", sql, wantSQL)
	}
	if diff := cmp.Diff([]any{float64(7), []string{"A", "B"}}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWhereClauseNestedAndArrays(t *testing.T) {
	m := ordersModel(t)
	sql, args := toSQL(t, m, parser.Filter{
		"customer.name":      parser.Regex{Pattern: "hoang", Options: "gi"},
		"line_items.barcode": "HEO",
	})

	wantSQL := `(("main"."customer" #>> '{name}') ~* ? AND ` +
		`EXISTS (SELECT 1 FROM jsonb_array_elements(CASE WHEN jsonb_typeof("main"."line_items") = 'array' THEN "main"."line_items" ELSE '[]'::jsonb END) AS el0 WHERE (el0 #>> '{barcode}') = ?))`
	if sql != wantSQL {
		t.Fatalf("sql:\n got %s\nwant %s", sql, wantSQL)
	}
	if diff := cmp.Diff([]any{"hoang", "HEO"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWhereClauseLogicalAndCasts(t *testing.T) {
	m := ordersModel(t)
	sql, args := toSQL(t, m, parser.Filter{
		"$or": []any{
			parser.Filter{"order_number": parser.Regex{Pattern: "12"}},
			parser.Filter{"customer.phone": parser.Regex{Pattern: "12"}},
		},
		"is_deleted":          parser.Cond{"$ne": "true"},
		"line_items.quantity": parser.Cond{"$gte": "2"},
		"created_at":          parser.Cond{"$lt": "2024-01-01"},
	})

	wantSQL := `((("main"."order_number" ~* ?) OR (("main"."customer" #>> '{phone}') ~* ?)) AND ` +
		`"main"."created_at" < ? AND ` +
		`("main"."is_deleted" IS NULL OR "main"."is_deleted" <> ?) AND ` +
		`EXISTS (SELECT 1 FROM jsonb_array_elements(CASE WHEN jsonb_typeof("main"."line_items") = 'array' THEN "main"."line_items" ELSE '[]'::jsonb END) AS el0 WHERE (el0 #>> '{quantity}')::numeric >= ?))`
	if sql != wantSQL {
		t.Fatalf("sql:\n got %s\nwant %s", sql, wantSQL)
	}
	want := []any{"12", "12", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true, float64(2)}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWhereClauseRejectsUnsafePaths(t *testing.T) {
	m := ordersModel(t)
	for _, filter := range []parser.Filter{
		{"customer.na'me": "x"},
		{"status.length": "x"},
		{"$where": "1"},
		{"status": parser.Cond{"$exists": true}},
	} {
		if _, err := m.BuildWhereClause(filter); err == nil {
			t.Fatalf("expected error for %v", filter)
		}
	}
	if where, err := m.BuildWhereClause(parser.Filter{}); err != nil || where != nil {
		t.Fatalf("empty filter: %v %v", where, err)
	}
}

func TestBuildIndexQueryFromParse(t *testing.T) {
	m := ordersModel(t)
	res := m.Parser().Parse(parser.Query{}.
		Add("shop_id", "7").
		Add("fields", "status,customer").
		Add("page", "2").
		Add("limit", "10"))
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	sb, err := m.BuildIndexQuery(res)
	if err != nil {
		t.Fatalf("BuildIndexQuery: %v", err)
	}
	sql, args, err := sb.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}

	wantSQL := `SELECT "main"."customer", "main"."id", "main"."status" FROM "orders" AS main ` +
		`WHERE ("main"."is_deleted" = $1 AND "main"."shop_id" = $2) ` +
		`ORDER BY "main"."created_at" DESC LIMIT 10 OFFSET 10`
	if sql != wantSQL {
		t.Fatalf("sql:\n got %s\nwant %s", sql, wantSQL)
	}
	if diff := cmp.Diff([]any{false, float64(7)}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectionColumnsExclusions(t *testing.T) {
	m := ordersModel(t)
	cols, err := m.projectionColumns(parser.Projection{"customer.name": 0, "private_field": 0})
	if err != nil {
		t.Fatalf("projectionColumns: %v", err)
	}
	want := []string{
		`"main"."created_at"`,
		`"main"."customer" #- '{name}' AS "customer"`,
		`"main"."id"`,
		`"main"."is_deleted"`,
		`"main"."line_items"`,
		`"main"."order_number"`,
		`"main"."shop_id"`,
		`"main"."status"`,
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildIndexQueryRejectsArraySort(t *testing.T) {
	m := ordersModel(t)
	res := &parser.Result{Filter: parser.Filter{}, Sort: parser.Sort{{Field: "line_items.quantity", Direction: 1}}}
	if _, err := m.BuildIndexQuery(res); err == nil {
		t.Fatalf("expected error for sort inside array")
	}
}

func TestBuildCountQuery(t *testing.T) {
	m := ordersModel(t)
	sb, err := m.BuildCountQuery(parser.Filter{"status": "A"})
	if err != nil {
		t.Fatalf("BuildCountQuery: %v", err)
	}
	sql, args, err := sb.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if sql != `SELECT COUNT(*) FROM "orders" AS main WHERE ("main"."status" = $1)` {
		t.Fatalf("unexpected sql: %s", sql)
	}
	if diff := cmp.Diff([]any{"A"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchHandlerEscapesPattern(t *testing.T) {
	m := ordersModel(t)
	res := m.Parser().Parse(parser.Query{}.Add("shop_id", 1).Add("keyword", "a.b"))
	want := []any{
		parser.Filter{"order_number": parser.Regex{Pattern: `a\.b`, Options: "gi"}},
		parser.Filter{"customer.phone": parser.Regex{Pattern: `a\.b`, Options: "gi"}},
	}
	if diff := cmp.Diff(want, res.Filter["$or"]); diff != "" {
		t.Fatalf("$or mismatch (-want +got):\n%s", diff)
	}
}

func TestCountCacheKeyIsStable(t *testing.T) {
	at := time.Date(2024, 1, 1, 3, 0, 0, 0, time.FixedZone("X", 3*3600))
	a, err := countCacheKey("orders", "SELECT 1", []any{float64(1), []string{"A"}, at})
	if err != nil {
		t.Fatalf("countCacheKey: %v", err)
	}
	b, _ := countCacheKey("orders", "SELECT 1", []any{float64(1), []string{"A"}, at.UTC()})
	c, _ := countCacheKey("orders", "SELECT 1", []any{float64(2), []string{"A"}, at})
	if a != b {
		t.Fatalf("same instant must give the same key: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("different args must give different keys")
	}
	if !strings.HasPrefix(a, "count:orders:") {
		t.Fatalf("unexpected prefix: %s", a)
	}
}

func TestValidateModel(t *testing.T) {
	bad := strings.Replace(ordersYAML, "barcode: line_items.barcode", "barcode: sku_code", 1)
	bad = strings.Replace(bad, "keyword: [order_number, customer.phone]", "keyword: [shop_id]", 1)
	m, err := ParseModel("orders", []byte(bad))
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	err = ValidateModel(m)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, part := range []string{`alias "barcode"`, `field "shop_id" has type number`} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("error %q does not mention %q", err, part)
		}
	}
}

func TestLoadModelsFromDirCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("orders.yml", ordersYAML)
	write("broken.yml", "table: broken\nfoo: 1\nfields: {a: string}\n")
	write("badtype.yml", "fields: {a: strin}\n")

	models, err := LoadModelsFromDir(dir)
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "unknown key 'foo'") || !strings.Contains(err.Error(), "unknown type value") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0].Name != "orders" || models[0].Table != "orders" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestInitRegistry(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "orders.yml"), []byte(ordersYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(ResetRegistry)
	if err := InitRegistry(dir, time.UTC); err != nil {
		t.Fatalf("InitRegistry: %v", err)
	}
	m, ok := Get("orders")
	if !ok || m.Parser() == nil {
		t.Fatalf("orders not registered")
	}
	if diff := cmp.Diff([]string{"orders"}, Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}
