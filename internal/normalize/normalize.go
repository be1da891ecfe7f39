// Package normalize rewrites a bundled OpenAPI document into the canonical
// shape the code generation data builder expects: unique operation ids,
// named components for every structured inline schema, and no references to
// trivial primitive components.
package normalize

import (
	"fmt"

	"github.com/mark3labs/oas2ir/internal/logging"
	"github.com/mark3labs/oas2ir/internal/spec"
)

// Settings configures a normalization pass.
type Settings struct {
	Logger logging.Logger
}

// Option mutates Settings.
type Option func(*Settings)

func WithLogger(logger logging.Logger) Option { return func(s *Settings) { s.Logger = logger } }

type normalizer struct {
	doc *spec.Document
	log logging.Logger
}

// Normalize returns a normalized deep copy of doc; doc itself is left
// untouched. Normalizing the result again yields an equal document.
func Normalize(doc *spec.Document, opts ...Option) (*spec.Document, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("normalize: nil document")
	}
	settings := Settings{Logger: logging.Nop()}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Logger == nil {
		settings.Logger = logging.Nop()
	}

	n := &normalizer{doc: doc.Clone(), log: settings.Logger}
	ops, err := n.doc.Operations()
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if err := n.assignOperationIDs(ops); err != nil {
		return nil, err
	}
	if err := n.hoistOperationSchemas(ops); err != nil {
		return nil, err
	}
	n.hoistComponents()
	if err := n.inlinePrimitives(); err != nil {
		return nil, err
	}
	return n.doc, nil
}

// uniqueName returns base, or base with the smallest numeric suffix that is
// not yet a component name.
func (n *normalizer) uniqueName(base string) string {
	schemas := n.doc.Schemas()
	if !schemas.Has(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !schemas.Has(candidate) {
			return candidate
		}
	}
}

// addComponent stores s under a fresh name derived from base and returns a
// reference to it.
func (n *normalizer) addComponent(base string, s *spec.Object) *spec.Object {
	name := n.uniqueName(base)
	n.doc.EnsureSchemas().Set(name, s)
	n.log.Debug("hoisted %s", name)
	return spec.NewRef(spec.ComponentRef(name))
}
