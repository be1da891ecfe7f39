package normalize

import (
	"fmt"
	"strings"

	"github.com/mark3labs/oas2ir/internal/naming"
	"github.com/mark3labs/oas2ir/internal/spec"
)

// DuplicateOperationIDError reports two operations that share an id within
// one tag, or among the untagged operations.
type DuplicateOperationIDError struct {
	OperationID string
	Tag         string
	Untagged    bool
}

func (e *DuplicateOperationIDError) Error() string {
	if e.Untagged {
		return fmt.Sprintf("normalize: duplicate operationId %q among untagged operations", e.OperationID)
	}
	return fmt.Sprintf("normalize: duplicate operationId %q in tag %q", e.OperationID, e.Tag)
}

// canonicalID is the declared operationId camel-cased, or one synthesized
// from method and path.
func canonicalID(op spec.Operation) string {
	if id := naming.CamelCase(op.Node.String("operationId")); id != "" {
		return id
	}
	return naming.OperationID(string(op.Method), op.Path)
}

// assignOperationIDs writes a unique operationId into every operation.
// Ids that collide across the document are prefixed with the operation's
// tags, plus a numeric suffix when the prefixed id is taken; a collision
// that persists inside one tag scope is an error.
func (n *normalizer) assignOperationIDs(ops []spec.Operation) error {
	canonical := make([]string, len(ops))
	counts := make(map[string]int, len(ops))
	for i, op := range ops {
		canonical[i] = canonicalID(op)
		counts[canonical[i]]++
	}
	// Ids that keep their name win over tag-prefixed renames.
	assigned := map[string]bool{}
	for i, op := range ops {
		if counts[canonical[i]] == 1 || len(spec.Tags(op.Node)) == 0 {
			assigned[canonical[i]] = true
		}
	}

	seenByTag := map[string]map[string]bool{}
	seenUntagged := map[string]bool{}
	for i, op := range ops {
		id := canonical[i]
		tags := spec.Tags(op.Node)
		if len(tags) == 0 {
			if seenUntagged[id] {
				return &DuplicateOperationIDError{OperationID: id, Untagged: true}
			}
			seenUntagged[id] = true
		}
		for _, tag := range tags {
			seen := seenByTag[tag]
			if seen == nil {
				seen = map[string]bool{}
				seenByTag[tag] = seen
			}
			if seen[id] {
				return &DuplicateOperationIDError{OperationID: id, Tag: tag}
			}
			seen[id] = true
		}

		final := id
		if counts[id] > 1 && len(tags) > 0 {
			final = naming.CamelCase(strings.Join(tags, " ") + " " + id)
			if assigned[final] {
				base := final
				for k := 2; assigned[final]; k++ {
					final = fmt.Sprintf("%s%d", base, k)
				}
			}
			assigned[final] = true
			n.log.Debug("operation %s %s: renamed %s to %s", strings.ToUpper(string(op.Method)), op.Path, id, final)
		}
		op.Node.Set("operationId", final)
	}
	return nil
}
