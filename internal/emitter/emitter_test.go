package emitter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/oas2ir/internal/codegen"
)

func TestPlan_SortedAndSlashed(t *testing.T) {
	t.Parallel()
	files := map[string][]byte{}
	files["b.json"] = []byte("{}")
	files[filepath.Join("nested", "a.yaml")] = []byte("a: 1\n")
	files["a.json"] = nil
	planned := Plan(files)
	want := []string{"a.json", "b.json", "nested/a.yaml"}
	if len(planned) != len(want) {
		t.Fatalf("planned %d files, want %d", len(planned), len(want))
	}
	for i, p := range planned {
		if p.RelPath != want[i] {
			t.Fatalf("planned[%d] = %s, want %s", i, p.RelPath, want[i])
		}
	}
	if planned[1].Size != 2 {
		t.Fatalf("size mismatch: %+v", planned[1])
	}
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")
	files := map[string][]byte{}
	files["ir.json"] = []byte("{}\n")
	files[filepath.Join("sub", "x.yaml")] = []byte("x: 1\n")
	if err := WriteFiles(dir, files, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "sub", "x.yaml"))
	if err != nil || string(b) != "x: 1\n" {
		t.Fatalf("unexpected content %q: %v", b, err)
	}

	// non-empty dir without force
	err = WriteFiles(dir, files, false)
	if err == nil || !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("expected not-empty error, got %v", err)
	}
	if err := WriteFiles(dir, map[string][]byte{"ir.json": []byte("[]\n")}, true); err != nil {
		t.Fatalf("force write: %v", err)
	}
	b, _ = os.ReadFile(filepath.Join(dir, "ir.json"))
	if string(b) != "[]\n" {
		t.Fatalf("expected overwrite, got %q", b)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func compositeData(members []string, primitives []codegen.Type, extra ...*codegen.Model) *codegen.Data {
	union := &codegen.Model{
		Name:               "Result",
		Kind:               codegen.KindAllOf,
		Composition:        "oneOf",
		ComposedModels:     members,
		ComposedPrimitives: primitives,
	}
	models := append([]*codegen.Model{union}, extra...)
	return &codegen.Data{
		Models: models,
		AllOperations: []*codegen.Operation{{
			Name: "getResult",
			Responses: []codegen.Response{
				{Code: "200", Type: &codegen.Type{Kind: codegen.KindAllOf, Model: "Result"}},
			},
		}},
	}
}

func TestCheckComposites(t *testing.T) {
	t.Parallel()

	str := codegen.Type{Kind: codegen.KindPrimitive, Primitive: codegen.PrimitiveString}
	num := codegen.Type{Kind: codegen.KindPrimitive, Primitive: codegen.PrimitiveNumber}
	pets := &codegen.Model{Name: "Pets", Kind: codegen.KindArray, Items: &codegen.Type{Kind: codegen.KindInterface, Model: "Pet"}}
	owners := &codegen.Model{Name: "Owners", Kind: codegen.KindArray, Items: &codegen.Type{Kind: codegen.KindInterface, Model: "Owner"}}
	color := &codegen.Model{Name: "Color", Kind: codegen.KindEnum, Primitive: codegen.PrimitiveString}
	pet := &codegen.Model{Name: "Pet", Kind: codegen.KindInterface}

	cases := []struct {
		name      string
		data      *codegen.Data
		ambiguous bool
	}{
		{"models only", compositeData([]string{"Pet"}, nil, pet), false},
		{"one primitive", compositeData([]string{"Pet"}, []codegen.Type{str}, pet), false},
		{"two primitives", compositeData(nil, []codegen.Type{str, num}), true},
		{"same primitive twice", compositeData(nil, []codegen.Type{str, str}), false},
		{"enum counts as string", compositeData([]string{"Color"}, []codegen.Type{num}, color), true},
		{"enum and string", compositeData([]string{"Color"}, []codegen.Type{str}, color), false},
		{"two model arrays", compositeData([]string{"Pets", "Owners"}, nil, pets, owners), true},
		{"one model array", compositeData([]string{"Pets", "Pet"}, nil, pets, pet), false},
	}
	for _, tc := range cases {
		err := CheckComposites(tc.data)
		var amb *AmbiguousCompositeError
		if got := errors.As(err, &amb); got != tc.ambiguous {
			t.Fatalf("%s: ambiguous=%v, err=%v", tc.name, got, err)
		}
		if tc.ambiguous && (amb.Operation != "getResult" || amb.Code != "200" || amb.Model != "Result") {
			t.Fatalf("%s: unexpected error fields %+v", tc.name, amb)
		}
	}
}

func TestCheckComposites_AllOfIgnored(t *testing.T) {
	t.Parallel()
	data := compositeData(nil, []codegen.Type{
		{Kind: codegen.KindPrimitive, Primitive: codegen.PrimitiveString},
		{Kind: codegen.KindPrimitive, Primitive: codegen.PrimitiveInteger},
	})
	data.Models[0].Composition = "allOf"
	if err := CheckComposites(data); err != nil {
		t.Fatalf("allOf should not be checked: %v", err)
	}
	if err := CheckComposites(nil); err != nil {
		t.Fatalf("nil data: %v", err)
	}
}
