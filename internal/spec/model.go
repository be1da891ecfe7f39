package spec

import (
	"fmt"
	"strings"
)

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// IsHttpMethod reports whether a path item key names an operation.
func IsHttpMethod(key string) bool {
	switch HttpMethod(key) {
	case GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE:
		return true
	}
	return false
}

// Document is a bundled OpenAPI v3 document held entirely in memory.
type Document struct {
	// Location is the root locator the document was loaded from.
	Location string
	Root     *Object
}

// Clone returns a deep copy that shares nothing with d.
func (d *Document) Clone() *Document {
	return &Document{Location: d.Location, Root: d.Root.Clone()}
}

// Version returns the declared openapi version string.
func (d *Document) Version() string {
	return strings.TrimSpace(d.Root.String("openapi"))
}

// Schemas returns components.schemas, or nil when absent.
func (d *Document) Schemas() *Object {
	return d.Root.Object("components").Object("schemas")
}

// EnsureSchemas returns components.schemas, creating it when absent.
func (d *Document) EnsureSchemas() *Object {
	components := d.Root.Object("components")
	if components == nil {
		components = NewObject()
		d.Root.Set("components", components)
	}
	schemas := components.Object("schemas")
	if schemas == nil {
		schemas = NewObject()
		components.Set("schemas", schemas)
	}
	return schemas
}

// Operation is one method of one path item.
type Operation struct {
	Path     string
	Method   HttpMethod
	PathItem *Object
	Node     *Object
}

// Pointer returns the JSON pointer of the operation node.
func (o Operation) Pointer() string {
	return "#/paths/" + escapeToken(o.Path) + "/" + string(o.Method)
}

// Operations lists every operation in path and method declaration order.
// Path items given as references are resolved.
func (d *Document) Operations() ([]Operation, error) {
	paths := d.Root.Object("paths")
	if paths == nil {
		return nil, nil
	}
	var out []Operation
	for _, p := range paths.Keys {
		node, err := ResolveIfReference(d, paths.Values[p])
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", p, err)
		}
		item, ok := node.(*Object)
		if !ok {
			continue
		}
		for _, key := range item.Keys {
			if !IsHttpMethod(key) {
				continue
			}
			op, ok := item.Values[key].(*Object)
			if !ok {
				continue
			}
			out = append(out, Operation{Path: p, Method: HttpMethod(key), PathItem: item, Node: op})
		}
	}
	return out, nil
}

// Extensions returns the vendor extension (x-*) entries of o, or nil.
func Extensions(o *Object) map[string]any {
	if o == nil {
		return nil
	}
	var out map[string]any
	for _, k := range o.Keys {
		if !strings.HasPrefix(k, "x-") {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}
		out[k] = o.Values[k]
	}
	return out
}

// Tags returns the trimmed, non-empty tags of an operation node, each once,
// in declaration order.
func Tags(op *Object) []string {
	var tags []string
	seen := map[string]bool{}
	for _, v := range op.Array("tags") {
		t, ok := v.(string)
		if t = strings.TrimSpace(t); !ok || t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// ResponseCodes lists the status codes of a responses object in
// declaration order, skipping vendor extensions.
func ResponseCodes(responses *Object) []string {
	if responses == nil {
		return nil
	}
	codes := make([]string, 0, len(responses.Keys))
	for _, code := range responses.Keys {
		if !strings.HasPrefix(code, "x-") {
			codes = append(codes, code)
		}
	}
	return codes
}
