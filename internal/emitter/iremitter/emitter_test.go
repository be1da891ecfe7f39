package iremitter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oas2ir/internal/codegen"
	"github.com/mark3labs/oas2ir/internal/emitter"
	"github.com/mark3labs/oas2ir/internal/spec"
)

func sampleData() *codegen.Data {
	info := spec.NewObject()
	info.Set("title", "Sample API")
	info.Set("version", "1.0.0")
	op := &codegen.Operation{
		Name:   "getHello",
		Method: "GET",
		Path:   "/hello",
		Tags:   []string{"read"},
		Responses: []codegen.Response{
			{Code: "200", MediaType: "application/json", Type: &codegen.Type{Kind: codegen.KindInterface, Model: "Hello"}},
		},
	}
	return &codegen.Data{
		Info:          info,
		Models:        []*codegen.Model{{Name: "Hello", Kind: codegen.KindInterface, Description: "Greeting"}},
		Services:      []*codegen.Service{{Tag: "read", Operations: []*codegen.Operation{op}}},
		AllOperations: []*codegen.Operation{op},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, " yml ": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	doc := &spec.Document{Location: "openapi.yaml", Root: spec.NewObject()}
	doc.Root.Set("openapi", "3.0.3")
	res, err := (&Emitter{Normalized: doc}).Emit(context.Background(), sampleData(), emitter.Options{OutDir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(res.Planned) != 2 || res.Planned[0].RelPath != "ir.json" || res.Planned[1].RelPath != NormalizedFile {
		t.Fatalf("unexpected plan: %+v", res.Planned)
	}
	// Dry-run should not have written files
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_WriteJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if _, err := (&Emitter{}).Emit(context.Background(), sampleData(), emitter.Options{OutDir: dir}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "ir.json"))
	if err != nil {
		t.Fatalf("read ir.json: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"info", "models", "services", "allOperations"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("ir.json missing %s: %s", key, b)
		}
	}
	// info keeps document key order
	if !strings.Contains(string(b), `"title": "Sample API",`) {
		t.Fatalf("unexpected info rendering: %s", b)
	}
	if _, err := os.Stat(filepath.Join(dir, NormalizedFile)); err == nil {
		t.Fatalf("normalized document written without being requested")
	}
}

func TestEmit_WriteYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if _, err := (&Emitter{Format: FormatYAML}).Emit(context.Background(), sampleData(), emitter.Options{OutDir: dir}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "ir.yaml"))
	if err != nil {
		t.Fatalf("read ir.yaml: %v", err)
	}
	var got struct {
		Models []struct {
			Name string `yaml:"name"`
			Kind string `yaml:"kind"`
		} `yaml:"models"`
	}
	if err := yaml.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Models) != 1 || got.Models[0].Name != "Hello" || got.Models[0].Kind != "interface" {
		t.Fatalf("unexpected models: %+v", got.Models)
	}
}

func TestEmit_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if _, err := (&Emitter{}).Emit(ctx, sampleData(), emitter.Options{}); err == nil {
		t.Fatalf("expected error without OutDir")
	}
	if _, err := (&Emitter{}).Emit(ctx, nil, emitter.Options{OutDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for nil data")
	}
	if _, err := (&Emitter{Format: "xml"}).Emit(ctx, sampleData(), emitter.Options{OutDir: t.TempDir(), DryRun: true}); err == nil {
		t.Fatalf("expected error for unknown format")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := (&Emitter{}).Emit(cancelled, sampleData(), emitter.Options{OutDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEmit_AmbiguousComposite(t *testing.T) {
	t.Parallel()
	data := sampleData()
	data.Models[0] = &codegen.Model{
		Name:        "Hello",
		Kind:        codegen.KindAllOf,
		Composition: "anyOf",
		ComposedPrimitives: []codegen.Type{
			{Kind: codegen.KindPrimitive, Primitive: codegen.PrimitiveString},
			{Kind: codegen.KindPrimitive, Primitive: codegen.PrimitiveBoolean},
		},
	}
	data.AllOperations[0].Responses[0].Type.Kind = codegen.KindAllOf

	_, err := (&Emitter{}).Emit(context.Background(), data, emitter.Options{OutDir: t.TempDir(), DryRun: true})
	var amb *emitter.AmbiguousCompositeError
	if !errors.As(err, &amb) {
		t.Fatalf("expected ambiguous composite error, got %v", err)
	}
	if _, err := (&Emitter{}).Emit(context.Background(), data, emitter.Options{OutDir: t.TempDir(), DryRun: true, AllowAmbiguousComposites: true}); err != nil {
		t.Fatalf("allowed ambiguity: %v", err)
	}
}
