// Package codegen turns a normalized OpenAPI document into the flat
// Models/Operations intermediate representation consumed by emitters.
package codegen

import "github.com/mark3labs/oas2ir/internal/spec"

// ModelKind is the language-neutral classification of a schema.
type ModelKind string

const (
	KindPrimitive  ModelKind = "primitive"
	KindInterface  ModelKind = "interface"
	KindEnum       ModelKind = "enum"
	KindArray      ModelKind = "array"
	KindDictionary ModelKind = "dictionary"
	KindAllOf      ModelKind = "all-of"
	KindNot        ModelKind = "not"
)

// PrimitiveKind is the scalar type of a primitive or enum.
type PrimitiveKind string

const (
	PrimitiveString  PrimitiveKind = "string"
	PrimitiveNumber  PrimitiveKind = "number"
	PrimitiveInteger PrimitiveKind = "integer"
	PrimitiveBoolean PrimitiveKind = "boolean"
	PrimitiveAny     PrimitiveKind = "any"
)

// Data is the root of the IR.
type Data struct {
	Info             *spec.Object   `json:"info" yaml:"info"`
	Servers          []Server       `json:"servers,omitempty" yaml:"servers,omitempty"`
	Models           []*Model       `json:"models" yaml:"models"`
	Services         []*Service     `json:"services" yaml:"services"`
	AllOperations    []*Operation   `json:"allOperations" yaml:"allOperations"`
	VendorExtensions map[string]any `json:"vendorExtensions,omitempty" yaml:"vendorExtensions,omitempty"`
}

type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Model is one entry of components.schemas.
type Model struct {
	Name        string        `json:"name" yaml:"name"`
	Kind        ModelKind     `json:"kind" yaml:"kind"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Nullable    bool          `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Primitive   PrimitiveKind `json:"primitive,omitempty" yaml:"primitive,omitempty"`
	Format      string        `json:"format,omitempty" yaml:"format,omitempty"`
	Enum        []any         `json:"enum,omitempty" yaml:"enum,omitempty"`

	// interface
	Properties           []Property `json:"properties,omitempty" yaml:"properties,omitempty"`
	AdditionalProperties *Type      `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`

	Items  *Type `json:"items,omitempty" yaml:"items,omitempty"`
	Values *Type `json:"values,omitempty" yaml:"values,omitempty"`

	// all-of: Composition is allOf, anyOf or oneOf. Members that reference
	// a component are listed by name; the others are inline types.
	Composition        string   `json:"composition,omitempty" yaml:"composition,omitempty"`
	ComposedModels     []string `json:"composedModels,omitempty" yaml:"composedModels,omitempty"`
	ComposedPrimitives []Type   `json:"composedPrimitives,omitempty" yaml:"composedPrimitives,omitempty"`

	Not *Type `json:"not,omitempty" yaml:"not,omitempty"`

	Hoisted          bool           `json:"hoisted,omitempty" yaml:"hoisted,omitempty"`
	VendorExtensions map[string]any `json:"vendorExtensions,omitempty" yaml:"vendorExtensions,omitempty"`
}

// Type is what a property, parameter or response resolves to: a named
// Model, or an inline primitive, array or map.
type Type struct {
	Kind      ModelKind     `json:"kind" yaml:"kind"`
	Model     string        `json:"model,omitempty" yaml:"model,omitempty"`
	Primitive PrimitiveKind `json:"primitive,omitempty" yaml:"primitive,omitempty"`
	Format    string        `json:"format,omitempty" yaml:"format,omitempty"`
	Nullable  bool          `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Enum      []any         `json:"enum,omitempty" yaml:"enum,omitempty"`
	Items     *Type         `json:"items,omitempty" yaml:"items,omitempty"`
	Values    *Type         `json:"values,omitempty" yaml:"values,omitempty"`
}

// IsModel reports whether t names a Model.
func (t Type) IsModel() bool { return t.Model != "" }

type Property struct {
	Name        string `json:"name" yaml:"name"`
	Type        Type   `json:"type" yaml:"type"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Operation struct {
	Name             string         `json:"name" yaml:"name"`
	Method           string         `json:"method" yaml:"method"`
	Path             string         `json:"path" yaml:"path"`
	Tags             []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Summary          string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
	Deprecated       bool           `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Parameters       []Parameter    `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Responses        []Response     `json:"responses,omitempty" yaml:"responses,omitempty"`
	VendorExtensions map[string]any `json:"vendorExtensions,omitempty" yaml:"vendorExtensions,omitempty"`
}

// Parameter In is path, query, header, cookie, or body for the synthetic
// request body parameter.
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	In          string `json:"in" yaml:"in"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Type        Type   `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	MediaType   string `json:"mediaType,omitempty" yaml:"mediaType,omitempty"`
}

// Response Code is a status, a range such as 5XX, or default. Type is nil
// when the response has no content.
type Response struct {
	Code        string `json:"code" yaml:"code"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	MediaType   string `json:"mediaType,omitempty" yaml:"mediaType,omitempty"`
	Type        *Type  `json:"type,omitempty" yaml:"type,omitempty"`
}

// Service groups operations by tag. Tag is empty for untagged operations.
type Service struct {
	Tag        string       `json:"tag" yaml:"tag"`
	Operations []*Operation `json:"operations" yaml:"operations"`
}

// Model returns the model with the given name, or nil.
func (d *Data) Model(name string) *Model {
	for _, m := range d.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Operation returns the operation with the given name, or nil.
func (d *Data) Operation(name string) *Operation {
	for _, op := range d.AllOperations {
		if op.Name == name {
			return op
		}
	}
	return nil
}
