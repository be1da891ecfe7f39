package spec

import "strings"

// HoistedExtension marks component schemas that were lifted out of another
// schema during normalization.
const HoistedExtension = "x-oas2ir-hoisted"

// CompositeKeywords are checked in this order.
var CompositeKeywords = []string{"allOf", "anyOf", "oneOf"}

// SchemaTypes returns the declared types of s without "null", and whether
// the schema admits null through either 3.0 `nullable` or a 3.1 type array.
func SchemaTypes(s *Object) ([]string, bool) {
	nullable := s.Bool("nullable")
	var types []string
	typ, _ := s.Get("type")
	switch v := typ.(type) {
	case string:
		if v == "null" {
			nullable = true
		} else {
			types = append(types, v)
		}
	case []any:
		for _, t := range v {
			name, ok := t.(string)
			if !ok {
				continue
			}
			if name == "null" {
				nullable = true
				continue
			}
			types = append(types, name)
		}
	}
	return types, nullable
}

// HasType reports whether s declares t among its types.
func HasType(s *Object, t string) bool {
	types, _ := SchemaTypes(s)
	for _, have := range types {
		if have == t {
			return true
		}
	}
	return false
}

// IsComposite reports whether s has a non-empty allOf, anyOf or oneOf.
func IsComposite(s *Object) bool {
	for _, kw := range CompositeKeywords {
		if len(s.Array(kw)) > 0 {
			return true
		}
	}
	return false
}

// HasEnum reports whether s carries a non-empty enum.
func HasEnum(s *Object) bool {
	return len(s.Array("enum")) > 0
}

// IsStringEnum reports whether s is an enum of strings, either declared as
// type string or untyped with only string members.
func IsStringEnum(s *Object) bool {
	if !HasEnum(s) {
		return false
	}
	if HasType(s, "string") {
		return true
	}
	if types, _ := SchemaTypes(s); len(types) > 0 {
		return false
	}
	for _, v := range s.Array("enum") {
		if _, ok := v.(string); !ok && v != nil {
			return false
		}
	}
	return true
}

// HasProperties reports whether s declares at least one named property.
func HasProperties(s *Object) bool {
	return s.Object("properties").Len() > 0
}

// HasPatternProperties reports whether s declares pattern properties.
func HasPatternProperties(s *Object) bool {
	return s.Object("patternProperties").Len() > 0
}

// IsArray reports whether s describes a list.
func IsArray(s *Object) bool {
	if HasType(s, "array") {
		return true
	}
	types, _ := SchemaTypes(s)
	return len(types) == 0 && s.Has("items")
}

// IsDictionary reports whether s is a map: additionalProperties (a schema or
// true) or patternProperties, and no named properties.
func IsDictionary(s *Object) bool {
	if HasProperties(s) {
		return false
	}
	if HasPatternProperties(s) {
		return true
	}
	ap, _ := s.Get("additionalProperties")
	switch v := ap.(type) {
	case *Object:
		return true
	case bool:
		return v
	}
	return false
}

// IsObject reports whether s is an object type or has object keywords.
func IsObject(s *Object) bool {
	return HasType(s, "object") || s.Has("properties") || s.Has("additionalProperties") || s.Has("patternProperties")
}

// IsNamedShape reports whether s is a shape that deserves its own component:
// an object with properties, a composite, a pattern-property object, an
// enum, a negation, or an object that is not a plain map.
func IsNamedShape(s *Object) bool {
	switch {
	case s == nil || IsReference(s):
		return false
	case HasProperties(s), IsComposite(s), HasPatternProperties(s), HasEnum(s), s.Has("not"):
		return true
	case IsArray(s):
		return false
	}
	return HasType(s, "object") && !IsDictionary(s)
}

// IsJSONMediaType reports whether a content type carries JSON.
func IsJSONMediaType(mediaType string) bool {
	mt, _, _ := strings.Cut(mediaType, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
