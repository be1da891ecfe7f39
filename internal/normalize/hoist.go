package normalize

import (
	"fmt"
	"strconv"

	"github.com/mark3labs/oas2ir/internal/naming"
	"github.com/mark3labs/oas2ir/internal/spec"
)

// isBodyCandidate reports whether an inline body schema is structured
// enough to get a name: anything but a reference or a bare primitive.
func isBodyCandidate(s *spec.Object) bool {
	if s == nil || spec.IsReference(s) {
		return false
	}
	return spec.IsObject(s) || spec.IsArray(s) || spec.IsComposite(s) || s.Has("not") || spec.HasEnum(s)
}

// hoistOperationSchemas names the inline JSON request and response bodies
// of every operation, plus structured parameter schemas.
func (n *normalizer) hoistOperationSchemas(ops []spec.Operation) error {
	for _, op := range ops {
		base := naming.PascalCase(op.Node.String("operationId"))

		body, err := spec.ResolveObject(n.doc, op.Node.Values["requestBody"])
		if err != nil {
			return fmt.Errorf("normalize: %s requestBody: %w", op.Pointer(), err)
		}
		if body != nil {
			n.hoistContent(body.Object("content"), base+"RequestContent")
		}

		responses := op.Node.Object("responses")
		for _, code := range spec.ResponseCodes(responses) {
			resp, err := spec.ResolveObject(n.doc, responses.Values[code])
			if err != nil {
				return fmt.Errorf("normalize: %s response %s: %w", op.Pointer(), code, err)
			}
			if resp != nil {
				n.hoistContent(resp.Object("content"), base+naming.UpperFirst(code)+"Response")
			}
		}

		pathBase := naming.PascalCase(op.Path)
		if err := n.hoistParameters(op.PathItem.Array("parameters"), pathBase); err != nil {
			return fmt.Errorf("normalize: path %s: %w", op.Path, err)
		}
		if err := n.hoistParameters(op.Node.Array("parameters"), base); err != nil {
			return fmt.Errorf("normalize: %s: %w", op.Pointer(), err)
		}
	}
	return nil
}

func (n *normalizer) hoistContent(content *spec.Object, name string) {
	if content == nil {
		return
	}
	for _, mediaType := range content.Keys {
		if !spec.IsJSONMediaType(mediaType) {
			continue
		}
		media := content.Object(mediaType)
		schema := media.Object("schema")
		if !isBodyCandidate(schema) {
			continue
		}
		media.Set("schema", n.addComponent(name, schema))
	}
}

func (n *normalizer) hoistParameters(params []any, base string) error {
	for _, p := range params {
		param, err := spec.ResolveObject(n.doc, p)
		if err != nil {
			return err
		}
		schema := param.Object("schema")
		if schema == nil || spec.IsReference(schema) {
			continue
		}
		name := base + naming.PascalCase(param.String("name")) + "Parameter"
		switch {
		case spec.IsNamedShape(schema):
			param.Set("schema", n.addComponent(name, schema))
		case spec.IsArray(schema):
			if items := schema.Object("items"); spec.IsNamedShape(items) {
				schema.Set("items", n.addComponent(name+"Item", items))
			}
		}
	}
	return nil
}

// hoistComponents lifts the structured sub-schemas of every component into
// components of their own. Components added along the way are already
// processed, so only the names present at the start are walked.
func (n *normalizer) hoistComponents() {
	schemas := n.doc.Schemas()
	if schemas == nil {
		return
	}
	names := append([]string(nil), schemas.Keys...)
	for _, name := range names {
		s, ok := schemas.Values[name].(*spec.Object)
		if !ok || spec.IsReference(s) {
			continue
		}
		n.hoistWithin(s, name)
	}
}

// hoistWithin visits the sub-schemas of s. chain is the name of s, from
// which child names are built.
func (n *normalizer) hoistWithin(s *spec.Object, chain string) {
	if v, ok := s.Get("not"); ok {
		s.Set("not", n.hoistChild(v, chain, "Not"))
	}
	for _, kw := range spec.CompositeKeywords {
		members := s.Array(kw)
		for i, m := range members {
			suffix := naming.UpperFirst(kw)
			if len(members) > 1 {
				suffix += strconv.Itoa(i)
			}
			members[i] = n.hoistChild(m, chain, suffix)
		}
	}
	if items, ok := s.Get("items"); ok {
		if _, single := items.(*spec.Object); single {
			s.Set("items", n.hoistChild(items, chain, "Item"))
		}
	}
	if props := s.Object("properties"); props != nil {
		for _, key := range props.Keys {
			props.Values[key] = n.hoistChild(props.Values[key], chain, key)
		}
	}
	if ap := s.Object("additionalProperties"); ap != nil {
		s.Set("additionalProperties", n.hoistChild(ap, chain, "Value"))
	}
	if patterns := s.Object("patternProperties"); patterns != nil {
		suffixes := patternSuffixes(patterns.Keys)
		for i, key := range patterns.Keys {
			patterns.Values[key] = n.hoistChild(patterns.Values[key], chain, suffixes[i])
		}
	}
}

// hoistChild processes the children of node first, then replaces node with
// a reference when it is a shape that gets its own component.
func (n *normalizer) hoistChild(node any, chain, suffix string) any {
	s, ok := node.(*spec.Object)
	if !ok || spec.IsReference(s) {
		return node
	}
	name := naming.PascalCase(s.String("title"))
	if name == "" {
		name = chain + naming.PascalCase(suffix)
	}
	n.hoistWithin(s, name)
	if !isHoistable(s) {
		return s
	}
	s.Set(spec.HoistedExtension, true)
	return n.addComponent(name, s)
}

// isHoistable: properties objects, composites, pattern-property objects,
// string enums and negations. Arrays and plain maps stay inline.
func isHoistable(s *spec.Object) bool {
	return spec.HasProperties(s) ||
		spec.IsComposite(s) ||
		spec.HasPatternProperties(s) ||
		spec.IsStringEnum(s) ||
		s.Has("not")
}

// patternSuffixes names pattern properties after their pattern, adding the
// position when two patterns would produce the same name.
func patternSuffixes(patterns []string) []string {
	out := make([]string, len(patterns))
	seen := make(map[string]int, len(patterns))
	for i, p := range patterns {
		name := naming.PascalCase(p)
		if name == "" {
			name = "Pattern"
		}
		out[i] = name
		seen[name]++
	}
	for i, name := range out {
		if seen[name] > 1 {
			out[i] = name + strconv.Itoa(i)
		}
	}
	return out
}
