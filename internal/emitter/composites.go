package emitter

import (
	"fmt"

	"github.com/mark3labs/oas2ir/internal/codegen"
)

// AmbiguousCompositeError reports an anyOf/oneOf response whose branches
// cannot be told apart by looking at a decoded JSON payload.
type AmbiguousCompositeError struct {
	Operation string
	Code      string
	Model     string
	Reason    string
}

func (e *AmbiguousCompositeError) Error() string {
	return fmt.Sprintf("emitter: response %s of operation %s uses ambiguous composite %s: %s", e.Code, e.Operation, e.Model, e.Reason)
}

// CheckComposites rejects responses typed by an anyOf/oneOf model with more
// than one primitive kind among its branches, or more than one array of
// models.
func CheckComposites(data *codegen.Data) error {
	if data == nil {
		return nil
	}
	models := make(map[string]*codegen.Model, len(data.Models))
	for _, m := range data.Models {
		models[m.Name] = m
	}
	for _, op := range data.AllOperations {
		for _, resp := range op.Responses {
			if resp.Type == nil || !resp.Type.IsModel() {
				continue
			}
			m := models[resp.Type.Model]
			if m == nil || m.Kind != codegen.KindAllOf || m.Composition == "allOf" {
				continue
			}
			if reason := ambiguity(m, models); reason != "" {
				return &AmbiguousCompositeError{Operation: op.Name, Code: resp.Code, Model: m.Name, Reason: reason}
			}
		}
	}
	return nil
}

func ambiguity(m *codegen.Model, models map[string]*codegen.Model) string {
	primitives := map[codegen.PrimitiveKind]bool{}
	arrays := 0
	visit := func(t codegen.Type) {
		switch t.Kind {
		case codegen.KindPrimitive:
			primitives[t.Primitive] = true
		case codegen.KindEnum:
			primitives[codegen.PrimitiveString] = true
		case codegen.KindArray:
			if t.Items != nil && t.Items.IsModel() {
				arrays++
			}
		}
	}
	for _, t := range m.ComposedPrimitives {
		visit(t)
	}
	for _, name := range m.ComposedModels {
		member := models[name]
		if member == nil {
			continue
		}
		switch member.Kind {
		case codegen.KindPrimitive, codegen.KindEnum:
			visit(codegen.Type{Kind: member.Kind, Primitive: member.Primitive})
		case codegen.KindArray:
			if member.Items != nil {
				visit(codegen.Type{Kind: codegen.KindArray, Items: member.Items})
			}
		}
	}
	switch {
	case len(primitives) > 1:
		return fmt.Sprintf("%d primitive branches", len(primitives))
	case arrays > 1:
		return fmt.Sprintf("%d array-of-model branches", arrays)
	}
	return ""
}
