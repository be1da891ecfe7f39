package spec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

const (
	// RefKey is the key that turns a mapping into a reference.
	RefKey = "$ref"
	// SchemasPrefix prefixes references to component schemas.
	SchemasPrefix = "#/components/schemas/"
)

// ReferenceError reports a pointer that does not designate any node.
type ReferenceError struct {
	Pointer  string
	Document string
}

func (e *ReferenceError) Error() string {
	if e.Document == "" {
		return fmt.Sprintf("unresolved reference %q", e.Pointer)
	}
	return fmt.Sprintf("unresolved reference %q in %s", e.Pointer, e.Document)
}

// IsReference reports whether node is a mapping carrying a $ref key.
func IsReference(node any) bool {
	obj, ok := node.(*Object)
	return ok && obj != nil && obj.Has(RefKey)
}

// RefOf returns the $ref string of node, or "".
func RefOf(node any) string {
	obj, ok := node.(*Object)
	if !ok {
		return ""
	}
	return obj.String(RefKey)
}

// SplitPointer turns "#/a/b~1c" into ["a", "b/c"]. Each segment is
// unescaped on its own, ~1 before ~0.
func SplitPointer(ref string) []string {
	fragment := strings.TrimPrefix(ref, "#")
	if fragment == "" {
		return nil
	}
	if !strings.HasPrefix(fragment, "/") {
		fragment = "/" + fragment
	}
	ptr, err := jsonpointer.New(fragment)
	if err != nil {
		return nil
	}
	return ptr.DecodedTokens()
}

// Resolve walks ref through the document and returns the designated node.
func Resolve(doc *Document, ref string) (any, error) {
	if !strings.HasPrefix(ref, "#") {
		return nil, &ReferenceError{Pointer: ref, Document: doc.Location}
	}
	var node any = doc.Root
	for _, seg := range SplitPointer(ref) {
		next, ok := child(node, seg)
		if !ok {
			return nil, &ReferenceError{Pointer: ref, Document: doc.Location}
		}
		node = next
	}
	return node, nil
}

// ResolveIfReference returns node unchanged unless it is a reference.
func ResolveIfReference(doc *Document, node any) (any, error) {
	if !IsReference(node) {
		return node, nil
	}
	return Resolve(doc, RefOf(node))
}

const maxRefChain = 32

// ResolveObject follows references, including chains of them, until it
// reaches a non-reference node, and returns it if it is a mapping.
func ResolveObject(doc *Document, node any) (*Object, error) {
	for i := 0; i < maxRefChain; i++ {
		if !IsReference(node) {
			obj, _ := node.(*Object)
			return obj, nil
		}
		next, err := Resolve(doc, RefOf(node))
		if err != nil {
			return nil, err
		}
		node = next
	}
	return nil, fmt.Errorf("reference chain longer than %d at %s", maxRefChain, RefOf(node))
}

// ComponentRef returns the reference to the named component schema.
func ComponentRef(name string) string {
	return SchemasPrefix + escapeToken(name)
}

// ComponentName returns the schema name designated by ref, or "" when ref
// does not point directly at a component schema.
func ComponentName(ref string) string {
	if !strings.HasPrefix(ref, SchemasPrefix) {
		return ""
	}
	segs := SplitPointer(ref)
	if len(segs) != 3 {
		return ""
	}
	return segs[2]
}

// NewRef returns a fresh reference node.
func NewRef(ref string) *Object {
	obj := NewObject()
	obj.Set(RefKey, ref)
	return obj
}

func child(node any, seg string) (any, bool) {
	switch n := node.(type) {
	case *Object:
		return n.Get(seg)
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(n) {
			return nil, false
		}
		return n[i], true
	default:
		return nil, false
	}
}

func escapeToken(s string) string {
	return jsonpointer.Escape(s)
}
