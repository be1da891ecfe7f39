package codegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/oas2ir/internal/naming"
	"github.com/mark3labs/oas2ir/internal/spec"
)

type builder struct {
	doc       *spec.Document
	kinds     map[string]ModelKind
	resolving map[string]bool
}

// Build walks a normalized document and returns the IR. Filters from opts
// drop operations; models are always complete.
func Build(ctx context.Context, doc *spec.Document, opts ...BuildOption) (*Data, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("codegen: nil document")
	}
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	b := &builder{doc: doc, kinds: map[string]ModelKind{}, resolving: map[string]bool{}}
	data := &Data{
		Info:             doc.Root.Object("info"),
		Servers:          servers(doc.Root),
		Models:           []*Model{},
		Services:         []*Service{},
		AllOperations:    []*Operation{},
		VendorExtensions: spec.Extensions(doc.Root),
	}

	if schemas := doc.Schemas(); schemas != nil {
		for _, name := range schemas.Keys {
			b.kinds[name] = KindPrimitive
			if s, ok := schemas.Values[name].(*spec.Object); ok && s != nil {
				b.kinds[name] = classify(s)
			}
		}
		for _, name := range schemas.Keys {
			data.Models = append(data.Models, b.model(name, schemas.Values[name]))
		}
	}

	ops, err := doc.Operations()
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	services := map[string]*Service{}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tags := spec.Tags(op.Node)
		if !cfg.allows(op, tags) {
			continue
		}
		o, err := b.operation(op, tags)
		if err != nil {
			return nil, fmt.Errorf("codegen: %s %s: %w", strings.ToUpper(string(op.Method)), op.Path, err)
		}
		data.AllOperations = append(data.AllOperations, o)

		groups := tags
		if len(groups) == 0 {
			groups = []string{""}
		}
		seen := map[string]bool{}
		for _, tag := range groups {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			svc := services[tag]
			if svc == nil {
				svc = &Service{Tag: tag}
				services[tag] = svc
				data.Services = append(data.Services, svc)
			}
			svc.Operations = append(svc.Operations, o)
		}
	}
	return data, nil
}

func servers(root *spec.Object) []Server {
	var out []Server
	for _, v := range root.Array("servers") {
		s, ok := v.(*spec.Object)
		if !ok {
			continue
		}
		out = append(out, Server{URL: strings.TrimSpace(s.String("url")), Description: strings.TrimSpace(s.String("description"))})
	}
	return out
}

func (b *builder) model(name string, node any) *Model {
	m := &Model{Name: name, Kind: b.kinds[name]}
	s, ok := node.(*spec.Object)
	if !ok || s == nil {
		// boolean schema
		m.Primitive = PrimitiveAny
		return m
	}
	types, nullable := spec.SchemaTypes(s)
	m.Description = s.String("description")
	m.Nullable = nullable
	m.Format = s.String("format")
	m.Hoisted = s.Bool(spec.HoistedExtension)
	m.VendorExtensions = spec.Extensions(s)

	switch m.Kind {
	case KindEnum:
		m.Primitive = PrimitiveString
		values, hasNull := enumValues(s)
		m.Enum = values
		m.Nullable = m.Nullable || hasNull
	case KindAllOf:
		if spec.IsReference(s) {
			m.Composition = "allOf"
			b.addMember(m, s)
			break
		}
		for _, kw := range spec.CompositeKeywords {
			members := s.Array(kw)
			if len(members) == 0 {
				continue
			}
			if m.Composition == "" {
				m.Composition = kw
			}
			for _, member := range members {
				b.addMember(m, member)
			}
		}
		m.Properties = b.properties(s)
	case KindNot:
		not, _ := s.Get("not")
		t := b.typeOf(not)
		m.Not = &t
	case KindArray:
		items, _ := s.Get("items")
		t := b.typeOf(items)
		m.Items = &t
	case KindDictionary:
		t := b.valuesType(s)
		m.Values = &t
	case KindInterface:
		m.Properties = b.properties(s)
		switch ap := s.Values["additionalProperties"].(type) {
		case *spec.Object:
			t := b.typeOf(ap)
			m.AdditionalProperties = &t
		case bool:
			if ap {
				t := anyType()
				m.AdditionalProperties = &t
			}
		}
	default:
		m.Primitive = primitiveKind(types)
		values, hasNull := enumValues(s)
		m.Enum = values
		m.Nullable = m.Nullable || hasNull
	}
	return m
}

// addMember files a composite member under composedModels when it names a
// component, else under composedPrimitives. A bare null member only makes
// the model nullable.
func (b *builder) addMember(m *Model, member any) {
	if obj, ok := member.(*spec.Object); ok {
		if spec.IsReference(obj) {
			if name := spec.ComponentName(spec.RefOf(obj)); name != "" {
				m.ComposedModels = append(m.ComposedModels, name)
				return
			}
		} else if types, nullable := spec.SchemaTypes(obj); nullable && len(types) == 0 && obj.Has("type") {
			m.Nullable = true
			return
		}
	}
	m.ComposedPrimitives = append(m.ComposedPrimitives, b.typeOf(member))
}

func (b *builder) properties(s *spec.Object) []Property {
	props := s.Object("properties")
	if props == nil {
		return nil
	}
	required := map[string]bool{}
	for _, r := range s.Array("required") {
		if name, ok := r.(string); ok {
			required[name] = true
		}
	}
	out := make([]Property, 0, props.Len())
	for _, key := range props.Keys {
		p := Property{Name: key, Type: b.typeOf(props.Values[key]), Required: required[key]}
		if obj, ok := props.Values[key].(*spec.Object); ok {
			p.Description = obj.String("description")
		}
		out = append(out, p)
	}
	return out
}

// valuesType is the value type of a map: the additionalProperties schema,
// else the single pattern property schema, else any.
func (b *builder) valuesType(s *spec.Object) Type {
	if ap := s.Object("additionalProperties"); ap != nil {
		return b.typeOf(ap)
	}
	if patterns := s.Object("patternProperties"); patterns.Len() == 1 {
		return b.typeOf(patterns.Values[patterns.Keys[0]])
	}
	return anyType()
}

func anyType() Type {
	return Type{Kind: KindPrimitive, Primitive: PrimitiveAny}
}

// typeOf resolves a schema in property, parameter or response position.
func (b *builder) typeOf(node any) Type {
	s, ok := node.(*spec.Object)
	if !ok || s == nil {
		return anyType()
	}
	if spec.IsReference(s) {
		ref := spec.RefOf(s)
		if name := spec.ComponentName(ref); name != "" {
			kind, known := b.kinds[name]
			if !known {
				kind = KindPrimitive
			}
			_, nullable := spec.SchemaTypes(s)
			return Type{Kind: kind, Model: name, Nullable: nullable}
		}
		if b.resolving[ref] {
			return anyType()
		}
		target, err := spec.Resolve(b.doc, ref)
		if err != nil {
			return anyType()
		}
		b.resolving[ref] = true
		defer delete(b.resolving, ref)
		return b.typeOf(target)
	}

	types, nullable := spec.SchemaTypes(s)
	switch classify(s) {
	case KindArray:
		raw, _ := s.Get("items")
		items := b.typeOf(raw)
		return Type{Kind: KindArray, Items: &items, Nullable: nullable}
	case KindDictionary:
		values := b.valuesType(s)
		return Type{Kind: KindDictionary, Values: &values, Nullable: nullable}
	case KindPrimitive:
		values, hasNull := enumValues(s)
		return Type{Kind: KindPrimitive, Primitive: primitiveKind(types), Format: s.String("format"), Nullable: nullable || hasNull, Enum: values}
	case KindEnum:
		values, hasNull := enumValues(s)
		return Type{Kind: KindPrimitive, Primitive: PrimitiveString, Format: s.String("format"), Nullable: nullable || hasNull, Enum: values}
	default:
		// Structured shapes only stay inline where normalization does not
		// reach, such as non-JSON bodies.
		return Type{Kind: KindPrimitive, Primitive: PrimitiveAny, Nullable: nullable}
	}
}

func (b *builder) operation(op spec.Operation, tags []string) (*Operation, error) {
	o := &Operation{
		Name:             strings.TrimSpace(op.Node.String("operationId")),
		Method:           strings.ToUpper(string(op.Method)),
		Path:             op.Path,
		Tags:             tags,
		Summary:          strings.TrimSpace(op.Node.String("summary")),
		Description:      strings.TrimSpace(op.Node.String("description")),
		Deprecated:       op.Node.Bool("deprecated"),
		VendorExtensions: spec.Extensions(op.Node),
	}
	if o.Name == "" {
		o.Name = naming.OperationID(string(op.Method), op.Path)
	}

	params, err := b.parameters(op)
	if err != nil {
		return nil, err
	}
	o.Parameters = params

	rawBody, _ := op.Node.Get("requestBody")
	body, err := spec.ResolveObject(b.doc, rawBody)
	if err != nil {
		return nil, fmt.Errorf("requestBody: %w", err)
	}
	if body != nil {
		param := Parameter{
			Name:        "body",
			In:          "body",
			Required:    body.Bool("required"),
			Description: strings.TrimSpace(body.String("description")),
			Type:        anyType(),
		}
		if mediaType, schema, ok := pickMedia(body.Object("content")); ok {
			param.Type = b.typeOf(schema)
			param.MediaType = mediaType
		}
		o.Parameters = append(o.Parameters, param)
	}

	responses := op.Node.Object("responses")
	for _, code := range spec.ResponseCodes(responses) {
		r, err := spec.ResolveObject(b.doc, responses.Values[code])
		if err != nil {
			return nil, fmt.Errorf("response %s: %w", code, err)
		}
		if r == nil {
			continue
		}
		resp := Response{Code: code, Description: strings.TrimSpace(r.String("description"))}
		if mediaType, schema, ok := pickMedia(r.Object("content")); ok {
			t := b.typeOf(schema)
			resp.Type = &t
			resp.MediaType = mediaType
		}
		o.Responses = append(o.Responses, resp)
	}
	return o, nil
}

// parameters merges path-level parameters with the operation's own; the
// operation wins on the same in+name and keeps the path-level position.
func (b *builder) parameters(op spec.Operation) ([]Parameter, error) {
	var out []Parameter
	index := map[string]int{}
	for _, list := range [][]any{op.PathItem.Array("parameters"), op.Node.Array("parameters")} {
		for _, raw := range list {
			p, err := spec.ResolveObject(b.doc, raw)
			if err != nil {
				return nil, fmt.Errorf("parameter: %w", err)
			}
			if p == nil {
				continue
			}
			param := b.parameter(p)
			key := paramKey(param.In, param.Name)
			if i, ok := index[key]; ok {
				out[i] = param
				continue
			}
			index[key] = len(out)
			out = append(out, param)
		}
	}
	return out, nil
}

func (b *builder) parameter(p *spec.Object) Parameter {
	param := Parameter{
		Name:        strings.TrimSpace(p.String("name")),
		In:          strings.TrimSpace(p.String("in")),
		Required:    p.Bool("required"),
		Description: strings.TrimSpace(p.String("description")),
		Type:        anyType(),
	}
	if param.In == "path" {
		param.Required = true
	}
	if schema, ok := p.Get("schema"); ok {
		param.Type = b.typeOf(schema)
	} else if mediaType, schema, ok := pickMedia(p.Object("content")); ok {
		param.Type = b.typeOf(schema)
		param.MediaType = mediaType
	}
	return param
}

func paramKey(in, name string) string { return in + ":" + name }

// pickMedia returns the first JSON media type carrying a schema, else the
// first media type carrying one.
func pickMedia(content *spec.Object) (string, any, bool) {
	if content == nil {
		return "", nil, false
	}
	for _, jsonOnly := range []bool{true, false} {
		for _, mediaType := range content.Keys {
			if jsonOnly && !spec.IsJSONMediaType(mediaType) {
				continue
			}
			if schema, ok := content.Object(mediaType).Get("schema"); ok {
				return mediaType, schema, true
			}
		}
	}
	return "", nil, false
}
