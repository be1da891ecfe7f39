package e2e

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	cli "github.com/mark3labs/oas2ir/internal/cli"
)

// a multi-file OpenAPI v3 document exercising bundling, hoisting, inlining
// and tag deduplication in one run
var sources = map[string]string{
	"openapi.yaml": "" +
		"openapi: 3.0.3\n" +
		"info:\n" +
		"  title: E2E Sample\n" +
		"  version: '1.0.0'\n" +
		"servers:\n" +
		"  - url: https://api.example.com\n" +
		"tags: [{name: read}, {name: write}]\n" +
		"paths:\n" +
		"  /pets:\n" +
		"    get:\n" +
		"      summary: List pets\n" +
		"      tags: [read]\n" +
		"      parameters:\n" +
		"        - {name: limit, in: query, schema: {$ref: '#/components/schemas/Limit'}}\n" +
		"      responses:\n" +
		"        '200':\n" +
		"          description: ok\n" +
		"          content:\n" +
		"            application/json:\n" +
		"              schema:\n" +
		"                type: array\n" +
		"                items:\n" +
		"                  $ref: 'models/pet.yaml#/Pet'\n" +
		"    post:\n" +
		"      operationId: createPet\n" +
		"      tags: [write]\n" +
		"      requestBody:\n" +
		"        required: true\n" +
		"        content:\n" +
		"          application/json:\n" +
		"            schema:\n" +
		"              type: object\n" +
		"              properties:\n" +
		"                pet: {$ref: 'models/pet.yaml#/Pet'}\n" +
		"      responses:\n" +
		"        '201':\n" +
		"          description: created\n" +
		"  /things/{id}:\n" +
		"    parameters:\n" +
		"      - {name: id, in: path, schema: {type: string}}\n" +
		"    get:\n" +
		"      operationId: getThing\n" +
		"      tags: [read]\n" +
		"      responses:\n" +
		"        '204': {description: empty}\n" +
		"    delete:\n" +
		"      operationId: getThing\n" +
		"      tags: [write]\n" +
		"      responses:\n" +
		"        '204': {description: empty}\n" +
		"components:\n" +
		"  schemas:\n" +
		"    Limit:\n" +
		"      type: integer\n" +
		"      maximum: 100\n",
	"models/pet.yaml": "" +
		"Pet:\n" +
		"  type: object\n" +
		"  required: [name]\n" +
		"  properties:\n" +
		"    name: {type: string}\n" +
		"    status:\n" +
		"      type: string\n" +
		"      enum: [available, sold]\n" +
		"    owner: {$ref: 'owner.yaml#/Owner'}\n",
	"models/owner.yaml": "" +
		"Owner:\n" +
		"  type: object\n" +
		"  properties:\n" +
		"    pets:\n" +
		"      type: array\n" +
		"      items: {$ref: 'pet.yaml#/Pet'}\n",
}

func writeTempSpec(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range sources {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write spec: %v", err)
		}
	}
	return filepath.Join(dir, "openapi.yaml")
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		list = append(list, rel)
		// hash path + contents to be robust
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(list)
	return list, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_Generate_Deterministic(t *testing.T) {
	t.Parallel()
	spec := writeTempSpec(t)
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	runCLI(t, "generate", "--input", spec, "--out", dir1, "--force", "--emit-normalized")
	runCLI(t, "generate", "--input", spec, "--out", dir2, "--force", "--emit-normalized")

	files1, sum1 := digestDir(t, dir1)
	files2, sum2 := digestDir(t, dir2)
	if !slicesEqual(files1, files2) || sum1 != sum2 {
		t.Fatalf("generated outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
	}
	if want := []string{"ir.json", "openapi.normalized.yaml"}; !slicesEqual(files1, want) {
		t.Fatalf("unexpected files: %v", files1)
	}
}

func TestE2E_Generate_IRContents(t *testing.T) {
	t.Parallel()
	spec := writeTempSpec(t)
	out := t.TempDir()

	runCLI(t, "generate", "--input", spec, "--out", out, "--force")

	raw, err := os.ReadFile(filepath.Join(out, "ir.json"))
	if err != nil {
		t.Fatalf("read ir.json: %v", err)
	}
	var ir struct {
		Servers []struct {
			URL string `json:"url"`
		} `json:"servers"`
		Models []struct {
			Name    string `json:"name"`
			Kind    string `json:"kind"`
			Hoisted bool   `json:"hoisted"`
		} `json:"models"`
		Services []struct {
			Tag        string `json:"tag"`
			Operations []struct {
				Name string `json:"name"`
			} `json:"operations"`
		} `json:"services"`
		AllOperations []struct {
			Name       string `json:"name"`
			Parameters []struct {
				Name     string `json:"name"`
				In       string `json:"in"`
				Required bool   `json:"required"`
				Type     struct {
					Kind      string `json:"kind"`
					Model     string `json:"model"`
					Primitive string `json:"primitive"`
				} `json:"type"`
			} `json:"parameters"`
		} `json:"allOperations"`
	}
	if err := json.Unmarshal(raw, &ir); err != nil {
		t.Fatalf("decode ir.json: %v", err)
	}

	if len(ir.Servers) != 1 || ir.Servers[0].URL != "https://api.example.com" {
		t.Fatalf("unexpected servers: %+v", ir.Servers)
	}

	kinds := map[string]string{}
	var names []string
	for _, m := range ir.Models {
		kinds[m.Name] = m.Kind
		names = append(names, m.Name)
	}
	// Limit is a primitive alias and is inlined away.
	if _, ok := kinds["Limit"]; ok {
		t.Fatalf("expected Limit to be inlined, models: %v", names)
	}
	for name, kind := range map[string]string{
		"Pet":                     "interface",
		"PetStatus":               "enum",
		"Owner":                   "interface",
		"CreatePetRequestContent": "interface",
	} {
		if kinds[name] != kind {
			t.Errorf("model %s: want kind %q, got %q (models: %v)", name, kind, kinds[name], names)
		}
	}

	ops := map[string]int{}
	for i, op := range ir.AllOperations {
		ops[op.Name] = i
	}
	for _, name := range []string{"getPets", "createPet", "readGetThing", "writeGetThing"} {
		if _, ok := ops[name]; !ok {
			t.Fatalf("missing operation %s in %v", name, ops)
		}
	}

	list := ir.AllOperations[ops["getPets"]]
	if len(list.Parameters) != 1 || list.Parameters[0].Type.Primitive != "integer" || list.Parameters[0].Type.Model != "" {
		t.Fatalf("expected inlined integer limit parameter, got %+v", list.Parameters)
	}
	create := ir.AllOperations[ops["createPet"]]
	if len(create.Parameters) != 1 || create.Parameters[0].In != "body" || create.Parameters[0].Type.Model != "CreatePetRequestContent" || !create.Parameters[0].Required {
		t.Fatalf("unexpected body parameter: %+v", create.Parameters)
	}
	thing := ir.AllOperations[ops["readGetThing"]]
	if len(thing.Parameters) != 1 || thing.Parameters[0].Name != "id" || !thing.Parameters[0].Required {
		t.Fatalf("expected required path parameter, got %+v", thing.Parameters)
	}

	var tags []string
	for _, s := range ir.Services {
		tags = append(tags, s.Tag)
	}
	if !slicesEqual(tags, []string{"read", "write"}) {
		t.Fatalf("unexpected services: %v", tags)
	}
}

func TestE2E_NormalizedDocumentReloads(t *testing.T) {
	t.Parallel()
	spec := writeTempSpec(t)
	out := t.TempDir()
	runCLI(t, "generate", "--input", spec, "--out", out, "--force", "--emit-normalized")

	// Generating from the normalized output yields the same IR.
	again := t.TempDir()
	runCLI(t, "generate", "--input", filepath.Join(out, "openapi.normalized.yaml"), "--out", again, "--force")

	first, err := os.ReadFile(filepath.Join(out, "ir.json"))
	if err != nil {
		t.Fatalf("read first ir: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(again, "ir.json"))
	if err != nil {
		t.Fatalf("read second ir: %v", err)
	}
	if strings.TrimSpace(string(first)) != strings.TrimSpace(string(second)) {
		t.Fatalf("normalizing twice changed the IR\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
