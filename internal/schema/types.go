package schema

import "strings"

// TypeTag is the normalized type name of a schema field.
type TypeTag string

const (
	TypeNumber  TypeTag = "number"
	TypeString  TypeTag = "string"
	TypeBoolean TypeTag = "boolean"
	TypeObject  TypeTag = "object"
	TypeArray   TypeTag = "array"
	TypeDate    TypeTag = "date"
	TypeInteger TypeTag = "integer"
	TypeLong    TypeTag = "long"
	TypeShort   TypeTag = "short"
	TypeByte    TypeTag = "byte"
	TypeDouble  TypeTag = "double"
	TypeFloat   TypeTag = "float"
	TypeBinary  TypeTag = "binary"
	TypeUnknown TypeTag = "unknown"
)

// known type names, including the capitalized spellings used by mongoose-like schemas
var typeNames = map[string]TypeTag{
	"number":  TypeNumber,
	"string":  TypeString,
	"boolean": TypeBoolean,
	"bool":    TypeBoolean,
	"object":  TypeObject,
	"mixed":   TypeObject,
	"array":   TypeArray,
	"date":    TypeDate,
	"integer": TypeInteger,
	"long":    TypeLong,
	"short":   TypeShort,
	"byte":    TypeByte,
	"double":  TypeDouble,
	"float":   TypeFloat,
	"binary":  TypeBinary,
	"buffer":  TypeBinary,
}

// NormalizeType maps a declared type name to its tag. Unrecognized names
// become TypeUnknown.
func NormalizeType(name string) TypeTag {
	if t, ok := typeNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return TypeUnknown
}

// IsKnownType reports whether name normalizes to something other than TypeUnknown.
func IsKnownType(name string) bool {
	return NormalizeType(name) != TypeUnknown
}

// IsNumeric reports whether t is number or one of its fixed-width aliases.
func (t TypeTag) IsNumeric() bool {
	switch t {
	case TypeNumber, TypeInteger, TypeLong, TypeShort, TypeByte, TypeDouble, TypeFloat:
		return true
	}
	return false
}

// Matches reports whether t belongs to the family of want. Numeric aliases
// match TypeNumber.
func (t TypeTag) Matches(want TypeTag) bool {
	if t == want {
		return true
	}
	return want == TypeNumber && t.IsNumeric()
}

func (t TypeTag) String() string {
	return string(t)
}
