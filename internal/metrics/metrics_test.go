package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"QueryFilter/internal/parser"
)

func TestObserveParse(t *testing.T) {
	before := testutil.ToFloat64(parseTotal.WithLabelValues("orders", "rejected"))
	requiredBefore := testutil.ToFloat64(parseErrors.WithLabelValues(string(parser.ErrRequired)))

	ObserveParse("orders", &parser.Result{Errors: parser.Errors{
		{Code: parser.ErrRequired, Field: "shop_id"},
		{Code: parser.ErrRequired, Field: "status"},
	}})
	ObserveParse("orders", &parser.Result{})

	if got := testutil.ToFloat64(parseTotal.WithLabelValues("orders", "rejected")); got != before+1 {
		t.Fatalf("rejected counter = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(parseErrors.WithLabelValues(string(parser.ErrRequired))); got != requiredBefore+2 {
		t.Fatalf("ERR_REQUIRED counter = %v, want %v", got, requiredBefore+2)
	}
	if got := testutil.ToFloat64(parseTotal.WithLabelValues("orders", "ok")); got < 1 {
		t.Fatalf("ok counter not incremented")
	}
}

func TestObserveHTTP(t *testing.T) {
	ObserveHTTP("/api/parse", 400)
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("/api/parse", "400")); got < 1 {
		t.Fatalf("http counter not incremented")
	}
}
