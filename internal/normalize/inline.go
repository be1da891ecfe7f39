package normalize

import (
	"slices"
	"strings"

	"github.com/mark3labs/oas2ir/internal/spec"
)

// inlinePrimitives replaces every reference to a component that is not a
// named shape (primitives, arrays, plain maps, aliases of those) with a copy
// of the component, then drops the inlined components nothing refers to
// anymore. Aliases of named shapes keep their name.
func (n *normalizer) inlinePrimitives() error {
	schemas := n.doc.Schemas()
	if schemas == nil {
		return nil
	}
	inlined := map[string]bool{}

	var visit func(node any, stack []string, sc scope) (any, error)
	visit = func(node any, stack []string, sc scope) (any, error) {
		switch v := node.(type) {
		case *spec.Object:
			if spec.IsReference(v) {
				ref := spec.RefOf(v)
				name := spec.ComponentName(ref)
				if name == "" {
					return v, nil
				}
				target, ok := schemas.Get(name)
				if !ok {
					return nil, &spec.ReferenceError{Pointer: ref, Document: n.doc.Location}
				}
				if obj, isObj := target.(*spec.Object); isObj && spec.IsNamedShape(aliasTarget(schemas, obj)) {
					return v, nil
				}
				if slices.Contains(stack, name) {
					// recursive alias
					return v, nil
				}
				inlined[name] = true
				copied := spec.CloneValue(target)
				if obj, isObj := copied.(*spec.Object); isObj {
					// Keywords next to the $ref override the copied ones.
					for _, k := range v.Keys {
						if k != spec.RefKey {
							obj.Set(k, v.Values[k])
						}
					}
				}
				return visit(copied, append(stack, name), scopeNode)
			}
			for _, k := range v.Keys {
				if sc.opaque(k) {
					continue
				}
				nv, err := visit(v.Values[k], stack, sc.child(k))
				if err != nil {
					return nil, err
				}
				v.Values[k] = nv
			}
		case []any:
			for i := range v {
				nv, err := visit(v[i], stack, scopeNode)
				if err != nil {
					return nil, err
				}
				v[i] = nv
			}
		}
		return node, nil
	}

	for _, key := range n.doc.Root.Keys {
		if key == "components" || strings.HasPrefix(key, "x-") {
			continue
		}
		nv, err := visit(n.doc.Root.Values[key], nil, scopeNode.child(key))
		if err != nil {
			return err
		}
		n.doc.Root.Values[key] = nv
	}
	if components := n.doc.Root.Object("components"); components != nil {
		for _, key := range components.Keys {
			if key == "schemas" || strings.HasPrefix(key, "x-") {
				continue
			}
			nv, err := visit(components.Values[key], nil, scopeNode)
			if err != nil {
				return err
			}
			components.Values[key] = nv
		}
	}
	for _, name := range schemas.Keys {
		// A component being rewritten is already on the stack.
		nv, err := visit(schemas.Values[name], []string{name}, scopeNode)
		if err != nil {
			return err
		}
		schemas.Values[name] = nv
	}

	n.dropUnreferenced(inlined)
	return nil
}

// scope tells inlinePrimitives how to read the keys of the object it visits.
type scope int

const (
	scopeNode      scope = iota
	scopeNames           // properties or patternProperties: keys are names
	scopeResponses       // responses: default is a response, not a value
)

var literalKeys = map[string]bool{
	"example":  true,
	"examples": true,
	"enum":     true,
	"const":    true,
	"default":  true,
}

// opaque reports whether the value under key holds extension or literal
// data that must not be rewritten.
func (sc scope) opaque(key string) bool {
	switch {
	case sc == scopeNames:
		return false
	case sc == scopeResponses && key == "default":
		return false
	}
	return strings.HasPrefix(key, "x-") || literalKeys[key]
}

func (sc scope) child(key string) scope {
	switch {
	case sc == scopeNames:
		return scopeNode
	case key == "properties", key == "patternProperties":
		return scopeNames
	case key == "responses":
		return scopeResponses
	}
	return scopeNode
}

// aliasTarget follows component aliases from s and returns the schema the
// chain ends at, or nil for a dangling or circular chain.
func aliasTarget(schemas *spec.Object, s *spec.Object) *spec.Object {
	seen := map[string]bool{}
	for spec.IsReference(s) {
		name := spec.ComponentName(spec.RefOf(s))
		if name == "" || seen[name] {
			return nil
		}
		seen[name] = true
		s = schemas.Object(name)
	}
	return s
}

// dropUnreferenced deletes inlined components until every remaining one is
// still referenced from somewhere else in the document.
func (n *normalizer) dropUnreferenced(inlined map[string]bool) {
	schemas := n.doc.Schemas()
	for {
		counts := map[string]int{}
		spec.WalkReferences(n.doc.Root, func(ref string) {
			if name := spec.ComponentName(ref); name != "" {
				counts[name]++
			}
		})
		removed := false
		for _, name := range append([]string(nil), schemas.Keys...) {
			if inlined[name] && counts[name] == 0 {
				schemas.Delete(name)
				n.log.Debug("inlined %s", name)
				removed = true
			}
		}
		if !removed {
			return
		}
	}
}
