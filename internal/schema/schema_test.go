package schema

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func orderSchema() *Schema {
	return New(map[string]*Node{
		"shop_id": Field("Number"),
		"customer": Object(map[string]*Node{
			"id":   Field("number"),
			"name": Field("string"),
		}),
		"line_items": ArrayOf(Object(map[string]*Node{
			"barcode":  Field("string"),
			"quantity": Field("integer"),
		})),
		"tags":       ArrayOf(Field("string")),
		"created_at": Field("date"),
		"is_deleted": Field("boolean"),
	})
}

func TestResolveExactPath(t *testing.T) {
	s := orderSchema()
	cases := map[string]TypeTag{
		"shop_id":       TypeNumber,
		"customer.name": TypeString,
		"customer":      TypeObject,
		"line_items":    TypeArray,
		"tags.0":        TypeString,
		"created_at":    TypeDate,
	}
	for path, want := range cases {
		spec := s.Resolve(path)
		if !spec.Exists {
			t.Fatalf("%s: expected field to exist", path)
		}
		if spec.Type != want {
			t.Fatalf("%s: got type %q, want %q", path, spec.Type, want)
		}
	}
}

func TestResolveThroughArrayElement(t *testing.T) {
	s := orderSchema()
	spec := s.Resolve("line_items.barcode")
	if !spec.Exists || spec.Type != TypeString {
		t.Fatalf("line_items.barcode resolved to %+v", spec)
	}
	spec = s.Resolve("line_items.quantity")
	if spec.Type != TypeInteger {
		t.Fatalf("line_items.quantity type = %q", spec.Type)
	}
	if v, err := spec.Cast("3"); err != nil || v != float64(3) {
		t.Fatalf("integer cast: %v, %v", v, err)
	}
}

func TestResolveFallsBackToFirstSegment(t *testing.T) {
	s := orderSchema()
	spec := s.Resolve("customer.phone")
	if !spec.Exists || spec.Type != TypeObject {
		t.Fatalf("customer.phone resolved to %+v", spec)
	}
	if v, _ := spec.Cast("x"); v != "x" {
		t.Fatalf("object fields should cast with identity, got %v", v)
	}
}

func TestResolveUnknownField(t *testing.T) {
	s := orderSchema()
	for _, path := range []string{"unknown_field", "unknown.deep", ""} {
		if spec := s.Resolve(path); spec.Exists {
			t.Fatalf("%q should not exist: %+v", path, spec)
		}
	}
}

func TestCasters(t *testing.T) {
	num := CasterFor(TypeNumber)
	if v, err := num("100000001"); err != nil || v != float64(100000001) {
		t.Fatalf("number cast: %v %v", v, err)
	}
	if v, err := num(""); err != nil || v != float64(0) {
		t.Fatalf("empty number cast: %v %v", v, err)
	}
	if _, err := num("abc"); err == nil {
		t.Fatalf("expected error for non numeric input")
	}
	if v, _ := num(7); v != float64(7) {
		t.Fatalf("int input should become float64, got %#v", v)
	}

	if v, err := CasterFor(TypeBoolean)("false"); err != nil || v != false {
		t.Fatalf("boolean cast: %v %v", v, err)
	}
	if _, err := CasterFor(TypeBoolean)("maybe"); err == nil {
		t.Fatalf("expected error for bad boolean")
	}

	if v, _ := CasterFor(TypeString)([]string{"a", "b"}); v != "a,b" {
		t.Fatalf("string cast of list: %v", v)
	}

	d, err := CasterFor(TypeDate)("2019-04-01T03:15:00.000Z")
	if err != nil {
		t.Fatalf("date cast: %v", err)
	}
	want := time.Date(2019, 4, 1, 3, 15, 0, 0, time.UTC)
	if !d.(time.Time).Equal(want) {
		t.Fatalf("date cast got %v, want %v", d, want)
	}

	if v, _ := CasterFor(TypeUnknown)(struct{}{}); v != struct{}{} {
		t.Fatalf("unknown types should pass through")
	}
}

func TestUnmarshalYAML(t *testing.T) {
	src := `
shop_id: number
created_at: {type: Date, index: true}
customer:
  name: string
  phone: {type: string}
line_items:
  - barcode: string
tags: [string]
payload: []
`
	var s Schema
	if err := yaml.Unmarshal([]byte(src), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := s.Resolve("created_at").Type; got != TypeDate {
		t.Fatalf("descriptor not unwrapped: %q", got)
	}
	if got := s.Resolve("customer.phone").Type; got != TypeString {
		t.Fatalf("nested descriptor: %q", got)
	}
	if got := s.Resolve("line_items.barcode").Type; got != TypeString {
		t.Fatalf("array element: %q", got)
	}
	if got := s.Resolve("payload").Type; got != TypeArray {
		t.Fatalf("empty array: %q", got)
	}
	if names := s.TopLevel(); len(names) != 6 || names[0] != "created_at" {
		t.Fatalf("top level names: %v", names)
	}
}

func TestUnmarshalYAMLRejectsUnknownType(t *testing.T) {
	var s Schema
	err := yaml.Unmarshal([]byte("shop_id: decimal128\n"), &s)
	if err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestParseDateInReadsZonelessLayoutsInLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	got, err := ParseDateIn("2024-01-15T02:00:00", est)
	if err != nil {
		t.Fatalf("ParseDateIn: %v", err)
	}
	if want := time.Date(2024, 1, 15, 2, 0, 0, 0, est); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	// explicit offsets win over loc
	got, _ = ParseDateIn("2024-01-15T02:00:00Z", est)
	if want := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	got, _ = ParseDate("2024-01-15")
	if want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("ParseDate must keep UTC: %v", got)
	}
}
