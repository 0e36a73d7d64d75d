// Package schema describes the shape of tool parameters and structured
// results as a closed set of kinds, and validates arbitrary values
// against those descriptions.
//
// Information Hiding:
// - The set of supported kinds and how each one validates
// - How a description maps onto the wire descriptor sent to providers
package schema

import "fmt"

// Kind identifies one of the supported schema variants.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindArray
	KindObject
	KindEnum
	KindOptional
	KindUnion
	KindLiteral
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindEnum:
		return "enum"
	case KindOptional:
		return "optional"
	case KindUnion:
		return "union"
	case KindLiteral:
		return "literal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Schema is a tagged variant: Kind selects which of the remaining
// fields are meaningful. Construct with the package functions rather
// than struct literals so the tag and payload stay consistent.
type Schema struct {
	Kind        Kind
	Description string

	Fields   []Field   // object
	Elem     *Schema   // array element, optional inner
	Values   []string  // enum members
	Variants []*Schema // union alternatives
	Value    any       // literal value
}

// Field is one named member of an object schema.
type Field struct {
	Name   string
	Schema *Schema
}

// String returns a string schema.
func String() *Schema { return &Schema{Kind: KindString} }

// Number returns a number schema. Integers and floats both satisfy it.
func Number() *Schema { return &Schema{Kind: KindNumber} }

// Boolean returns a boolean schema.
func Boolean() *Schema { return &Schema{Kind: KindBoolean} }

// Array returns an array schema with the given element schema.
func Array(elem *Schema) *Schema { return &Schema{Kind: KindArray, Elem: elem} }

// Object returns an object schema with the given fields.
func Object(fields ...Field) *Schema { return &Schema{Kind: KindObject, Fields: fields} }

// F builds one object field.
func F(name string, s *Schema) Field { return Field{Name: name, Schema: s} }

// Enum returns a schema matching exactly one of the given string values.
func Enum(values ...string) *Schema { return &Schema{Kind: KindEnum, Values: values} }

// Optional wraps a schema so that a missing or null value also passes.
// Inside an object, optional fields are excluded from the required list.
func Optional(inner *Schema) *Schema { return &Schema{Kind: KindOptional, Elem: inner} }

// Union returns a schema matching any one of the given variants.
func Union(variants ...*Schema) *Schema { return &Schema{Kind: KindUnion, Variants: variants} }

// Literal returns a schema matching exactly the given value.
func Literal(value any) *Schema { return &Schema{Kind: KindLiteral, Value: value} }

// Any returns a schema that accepts every value.
func Any() *Schema { return &Schema{Kind: KindAny} }

// Desc attaches a description and returns the schema for chaining.
func (s *Schema) Desc(text string) *Schema {
	s.Description = text
	return s
}

// IsOptional reports whether the schema is optional-wrapped.
func (s *Schema) IsOptional() bool {
	return s != nil && s.Kind == KindOptional
}
