package codegen

import (
	"github.com/mark3labs/oas2ir/internal/spec"
)

// classify picks exactly one kind for a schema. The order matters: a string
// enum wins over everything, and a composite wins over its own properties.
func classify(s *spec.Object) ModelKind {
	switch {
	case spec.IsReference(s):
		// alias of another component
		return KindAllOf
	case spec.IsStringEnum(s):
		return KindEnum
	case spec.IsComposite(s):
		return KindAllOf
	case s.Has("not"):
		return KindNot
	case spec.IsArray(s):
		return KindArray
	case spec.IsDictionary(s):
		return KindDictionary
	case spec.HasProperties(s), spec.HasType(s, "object"):
		return KindInterface
	default:
		return KindPrimitive
	}
}

// primitiveKind maps declared JSON types onto a primitive kind. Unknown or
// missing types are "any".
func primitiveKind(types []string) PrimitiveKind {
	for _, t := range types {
		switch t {
		case "string":
			return PrimitiveString
		case "integer":
			return PrimitiveInteger
		case "number":
			return PrimitiveNumber
		case "boolean":
			return PrimitiveBoolean
		}
	}
	return PrimitiveAny
}

// enumValues returns the enum members without null, and whether null was
// one of them.
func enumValues(s *spec.Object) ([]any, bool) {
	raw := s.Array("enum")
	if len(raw) == 0 {
		return nil, false
	}
	out := make([]any, 0, len(raw))
	hasNull := false
	for _, v := range raw {
		if v == nil {
			hasNull = true
			continue
		}
		out = append(out, v)
	}
	return out, hasNull
}
