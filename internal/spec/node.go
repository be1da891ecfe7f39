package spec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"
)

// Object is a JSON/YAML mapping that remembers the order its keys were
// declared in. Values are *Object, []any, string, bool, int, float64 or nil.
//
// Fields are exported so deepcopy can clone whole trees.
type Object struct {
	Keys   []string
	Values map[string]any
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{Values: map[string]any{}}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Keys)
}

// Has reports whether key is present, even with a null value.
func (o *Object) Has(key string) bool {
	if o == nil || o.Values == nil {
		return false
	}
	_, ok := o.Values[key]
	return ok
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil || o.Values == nil {
		return nil, false
	}
	v, ok := o.Values[key]
	return v, ok
}

// Set stores value under key. New keys are appended after existing ones;
// replacing a value keeps the key's position.
func (o *Object) Set(key string, value any) {
	if o.Values == nil {
		o.Values = map[string]any{}
	}
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = value
}

// Delete removes key if present.
func (o *Object) Delete(key string) {
	if !o.Has(key) {
		return
	}
	delete(o.Values, key)
	for i, k := range o.Keys {
		if k == key {
			o.Keys = append(o.Keys[:i], o.Keys[i+1:]...)
			break
		}
	}
}

// Object returns the mapping stored under key, or nil.
func (o *Object) Object(key string) *Object {
	v, _ := o.Get(key)
	obj, _ := v.(*Object)
	return obj
}

// Array returns the sequence stored under key, or nil.
func (o *Object) Array(key string) []any {
	v, _ := o.Get(key)
	arr, _ := v.([]any)
	return arr
}

// String returns the string stored under key, or "".
func (o *Object) String(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

// Bool returns the boolean stored under key, or false.
func (o *Object) Bool(key string) bool {
	v, _ := o.Get(key)
	b, _ := v.(bool)
	return b
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	return deepcopy.Copy(o).(*Object)
}

// CloneValue deep copies any tree value.
func CloneValue(v any) any {
	if v == nil {
		return nil
	}
	return deepcopy.Copy(v)
}

// MarshalJSON writes the keys in declaration order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.Values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML emits a mapping node with keys in declaration order.
func (o *Object) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if o == nil {
		return node, nil
	}
	for _, k := range o.Keys {
		var v yaml.Node
		if err := v.Encode(o.Values[k]); err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&v,
		)
	}
	return node, nil
}

// Equal reports whether two tree values serialize identically.
func Equal(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// ParseTree parses YAML or JSON text into an ordered tree. Empty input
// yields nil.
func ParseTree(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, nil
	}
	return fromNode(&root)
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			val, err := fromNode(v)
			if err != nil {
				return nil, err
			}
			if k.Tag == "!!merge" {
				mergeInto(obj, val)
				continue
			}
			obj.Set(k.Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		return scalar(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

// mergeInto applies a YAML merge key; explicit keys win.
func mergeInto(dst *Object, src any) {
	switch v := src.(type) {
	case *Object:
		for _, k := range v.Keys {
			if !dst.Has(k) {
				dst.Set(k, v.Values[k])
			}
		}
	case []any:
		for _, item := range v {
			mergeInto(dst, item)
		}
	}
}

func scalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int
		if err := n.Decode(&i); err != nil {
			// Too large for int; keep the float approximation.
			var f float64
			if ferr := n.Decode(&f); ferr != nil {
				return nil, err
			}
			return f, nil
		}
		return i, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return n.Value, nil
	}
}
