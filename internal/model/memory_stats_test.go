package model

import "testing"

func TestParseLimitValue(t *testing.T) {
	cases := []struct {
		raw  string
		want uint64
		ok   bool
	}{
		{"536870912\n", 536870912, true},
		{"max\n", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseLimitValue(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseLimitValue(%q) = %d, %v; want %d, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		512:                    "512 B",
		2048:                   "2.00 KB",
		5 * 1024 * 1024:        "5.00 MB",
		3 * 1024 * 1024 * 1024: "3.00 GB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestCountRegistryEntries(t *testing.T) {
	ordersModel(t)
	models, fields, keys := countRegistryEntries()
	if models != 1 || fields != 9 || keys != 2 {
		t.Fatalf("unexpected counts: models=%d fields=%d keys=%d", models, fields, keys)
	}
}
