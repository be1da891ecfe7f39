package spec

import (
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operationsDoc = `openapi: 3.0.3
info: {title: t, version: "1"}
paths:
  /b:
    parameters: []
    post:
      tags: [write, " write ", "", read]
      responses:
        "201": {description: created}
        x-note: skipped
        default: {description: error}
    get:
      responses: {}
  /a:
    $ref: '#/components/pathItems/A'
components:
  pathItems:
    A:
      delete:
        x-internal: true
        responses: {}
`

func mustParseDocument(t *testing.T, src string) *Document {
	t.Helper()
	tree, err := ParseTree([]byte(src))
	require.NoError(t, err)
	root, ok := tree.(*Object)
	require.True(t, ok)
	return &Document{Location: "openapi.yaml", Root: root}
}

func TestDocument_Operations(t *testing.T) {
	doc := mustParseDocument(t, operationsDoc)
	ops, err := doc.Operations()
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, "/b", ops[0].Path)
	assert.Equal(t, HttpMethod("post"), ops[0].Method)
	assert.Equal(t, HttpMethod("get"), ops[1].Method)
	assert.Equal(t, "/a", ops[2].Path)
	assert.Equal(t, "#/paths/~1b/post", ops[0].Pointer())

	assert.Equal(t, []string{"write", "read"}, Tags(ops[0].Node))
	assert.Nil(t, Tags(ops[1].Node))
	assert.Equal(t, []string{"201", "default"}, ResponseCodes(ops[0].Node.Object("responses")))
	assert.Equal(t, map[string]any{"x-internal": true}, Extensions(ops[2].Node))
	assert.Nil(t, Extensions(ops[1].Node))
}

func TestDocument_OperationsBrokenPathRef(t *testing.T) {
	doc := mustParseDocument(t, "openapi: 3.0.3\npaths:\n  /x:\n    $ref: '#/components/pathItems/Missing'\n")
	_, err := doc.Operations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path /x")
}

func TestCanProceedDespiteValidation(t *testing.T) {
	assert.True(t, canProceedDespiteValidation(nil))
	assert.True(t, canProceedDespiteValidation(errors.New("found unresolved ref: #/x")))
	assert.True(t, canProceedDespiteValidation(openapi3.MultiError{
		errors.New("two operations share the same operation id"),
		errors.New("path parameter \"id\" must be required"),
	}))
	assert.False(t, canProceedDespiteValidation(openapi3.MultiError{
		errors.New("found unresolved ref"),
		errors.New("invalid components: schema \"Pet\": unsupported type"),
	}))
	assert.False(t, canProceedDespiteValidation(errors.New("value of openapi must be a non-empty string")))
}
