package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	t.Parallel()
	cases := map[string][]string{
		"XMLHttp_request": {"XML", "Http", "request"},
		"/pets/{petId}":   {"pets", "pet", "Id"},
		"  ":              nil,
		"café au lait":    {"cafe", "au", "lait"},
		"v2Items":         {"v2", "Items"},
	}
	for in, want := range cases {
		assert.Equal(t, want, Words(in), "Words(%q)", in)
	}
}

func TestCases(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "PetStatus", PascalCase("pet status"))
	assert.Equal(t, "PetDTO", PascalCase("PetDTO"))
	assert.Equal(t, "createPet", CamelCase("create_pet"))
	assert.Equal(t, "getThing", CamelCase("GetThing"))
	assert.Equal(t, "tag1GetThing", CamelCase("tag1 getThing"))
	assert.Equal(t, "", CamelCase("--"))
	assert.Equal(t, "200", UpperFirst("200"))
	assert.Equal(t, "Default", UpperFirst("default"))
	assert.Equal(t, "", UpperFirst(""))
	assert.Equal(t, "PetsItemNested", PascalJoin("pets", "item", "nested"))
}

func TestOperationID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "getPets", OperationID("get", "/pets"))
	assert.Equal(t, "getPetsPetId", OperationID("get", "/pets/{petId}"))
	assert.Equal(t, "deleteStoreOrderOrderId", OperationID("DELETE", "/store/order/{order_id}"))
}
