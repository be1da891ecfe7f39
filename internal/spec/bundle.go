package spec

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/oas2ir/internal/naming"
)

// position tells the bundler what kind of node it is walking, which decides
// whether an external reference becomes a component or an inline copy.
type position int

const (
	posOther      position = iota
	posRoot                // top of the entry document
	posComponents          // the root components object
	posSchema              // a schema
	posSchemaMap           // a mapping whose values are schemas
	posSchemaList          // a sequence whose elements are schemas
)

var schemaChildKeys = map[string]position{
	"items":                 posSchema,
	"not":                   posSchema,
	"additionalProperties":  posSchema,
	"additionalItems":       posSchema,
	"contains":              posSchema,
	"propertyNames":         posSchema,
	"if":                    posSchema,
	"then":                  posSchema,
	"else":                  posSchema,
	"unevaluatedItems":      posSchema,
	"unevaluatedProperties": posSchema,
	"properties":            posSchemaMap,
	"patternProperties":     posSchemaMap,
	"dependentSchemas":      posSchemaMap,
	"$defs":                 posSchemaMap,
	"definitions":           posSchemaMap,
	"allOf":                 posSchemaList,
	"anyOf":                 posSchemaList,
	"oneOf":                 posSchemaList,
	"prefixItems":           posSchemaList,
}

// Literal values inside a schema are data, not document structure.
var schemaLiteralKeys = map[string]bool{
	"example":  true,
	"examples": true,
	"default":  true,
	"enum":     true,
	"const":    true,
}

// skipKey reports whether the value under key is opaque at pos: vendor
// extensions, except inside a schema map where x- is a plain name, and
// literal schema values.
func skipKey(pos position, key string) bool {
	if pos == posSchema && schemaLiteralKeys[key] {
		return true
	}
	return pos != posSchemaMap && strings.HasPrefix(key, "x-")
}

func elementPosition(pos position) position {
	if pos == posSchemaList || pos == posSchema {
		return posSchema
	}
	return posOther
}

func childPosition(parent position, key string) position {
	switch parent {
	case posRoot:
		if key == "components" {
			return posComponents
		}
	case posComponents:
		if key == "schemas" {
			return posSchemaMap
		}
	case posSchemaMap:
		return posSchema
	case posSchema:
		if p, ok := schemaChildKeys[key]; ok {
			return p
		}
		return posOther
	}
	if key == "schema" {
		return posSchema
	}
	return posOther
}

type bundler struct {
	fsys     fs.FS
	rootPath string
	settings Settings

	files    map[string]any    // parsed sources by path
	imported map[string]string // origin (file + fragment) -> component name
	inlining map[string]bool   // origins currently being inlined
	schemas  *Object
}

func newBundler(fsys fs.FS, rootPath string, settings Settings) *bundler {
	return &bundler{
		fsys:     fsys,
		rootPath: rootPath,
		settings: settings,
		files:    map[string]any{},
		imported: map[string]string{},
		inlining: map[string]bool{},
	}
}

func (b *bundler) read(file string) (any, error) {
	raw, err := fs.ReadFile(b.fsys, file)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: read %s: %v", file, err), Location: file, Cause: err}
	}
	tree, err := ParseTree(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("spec: parse %s: %v", file, err), Location: file, Cause: err}
	}
	b.settings.Logger.Debug("read %s", file)
	return tree, nil
}

// fetchJob is a subtree the bundler will walk at pos once file is loaded.
type fetchJob struct {
	file     string
	fragment string
	pos      position
}

// prefetch reads every file reachable through external references, one
// wave of siblings at a time. Each referenced subtree is scanned at the
// position walk will later visit it, so vendor extensions and literal
// values never pull in files.
func (b *bundler) prefetch(ctx context.Context) error {
	seen := map[fetchJob]bool{}
	jobs, err := b.references(b.rootPath, b.files[b.rootPath], posRoot, seen)
	if err != nil {
		return err
	}
	for len(jobs) > 0 {
		var missing []string
		queued := map[string]bool{}
		for _, j := range jobs {
			if _, loaded := b.files[j.file]; !loaded && !queued[j.file] {
				queued[j.file] = true
				missing = append(missing, j.file)
			}
		}
		if err := b.load(ctx, missing); err != nil {
			return err
		}

		var next []fetchJob
		for _, j := range jobs {
			node, err := b.resolveIn(j.file, j.fragment)
			if err != nil {
				// walk reports it with the referencing context
				continue
			}
			found, err := b.references(j.file, node, j.pos, seen)
			if err != nil {
				return err
			}
			next = append(next, found...)
		}
		jobs = next
	}
	return nil
}

func (b *bundler) load(ctx context.Context, files []string) error {
	trees := make([]any, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.settings.Concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, err := b.read(file)
			if err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, file := range files {
		b.files[file] = trees[i]
	}
	return nil
}

// references lists the not yet scanned subtrees of other files that node,
// found in file at pos, refers to.
func (b *bundler) references(file string, node any, pos position, seen map[fetchJob]bool) ([]fetchJob, error) {
	var out []fetchJob
	var firstErr error
	walkRefs(node, pos, func(ref string, at position) {
		if firstErr != nil {
			return
		}
		target, fragment := splitRef(ref)
		p := file
		if target != "" {
			var err error
			if p, err = joinLocator(file, target); err != nil {
				firstErr = &SpecError{Code: ResolutionError, Message: fmt.Sprintf("spec: %v", err), Location: file, JSONPointer: ref, Cause: err}
				return
			}
		}
		if p == b.rootPath {
			return
		}
		job := fetchJob{file: p, fragment: fragment, pos: at}
		if seen[job] {
			return
		}
		seen[job] = true
		out = append(out, job)
	})
	return out, firstErr
}

// bundle rewrites the entry document in place until it no longer refers to
// any other file, then checks every remaining reference.
func (b *bundler) bundle() (*Document, error) {
	root := b.files[b.rootPath].(*Object)
	doc := &Document{Location: b.rootPath, Root: root}
	b.schemas = doc.Schemas()

	if b.schemas != nil {
		if err := b.importSlots(b.schemas); err != nil {
			return nil, err
		}
	}
	if _, err := b.walk(root, b.rootPath, posRoot); err != nil {
		return nil, err
	}
	if err := verifyReferences(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *bundler) walk(node any, file string, pos position) (any, error) {
	switch n := node.(type) {
	case *Object:
		if IsReference(n) {
			return b.rewrite(n, file, pos)
		}
		for _, k := range n.Keys {
			if skipKey(pos, k) {
				continue
			}
			v, err := b.walk(n.Values[k], file, childPosition(pos, k))
			if err != nil {
				return nil, err
			}
			n.Values[k] = v
		}
	case []any:
		elem := elementPosition(pos)
		for i := range n {
			v, err := b.walk(n[i], file, elem)
			if err != nil {
				return nil, err
			}
			n[i] = v
		}
	}
	return node, nil
}

// target splits a raw $ref into the file it designates and the fragment.
func (b *bundler) target(raw, file string) (string, string, error) {
	target, fragment := splitRef(raw)
	if target == "" {
		return file, fragment, nil
	}
	p, err := joinLocator(file, target)
	if err != nil {
		return "", "", &SpecError{Code: ResolutionError, Message: fmt.Sprintf("spec: %v", err), Location: file, JSONPointer: raw, Cause: err}
	}
	return p, fragment, nil
}

// importSlots replaces root component schemas that merely point at another
// file with the imported schema, keeping the component's own name.
func (b *bundler) importSlots(schemas *Object) error {
	for _, k := range schemas.Keys {
		ref, ok := schemas.Values[k].(*Object)
		if !ok || !IsReference(ref) || ref.Len() != 1 {
			continue
		}
		source, fragment, err := b.target(ref.String(RefKey), b.rootPath)
		if err != nil {
			return err
		}
		if source == b.rootPath {
			continue
		}
		if _, done := b.imported[source+fragment]; done {
			continue
		}
		if err := b.importAs(k, source, fragment); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundler) rewrite(ref *Object, file string, pos position) (any, error) {
	source, fragment, err := b.target(ref.String(RefKey), file)
	if err != nil {
		return nil, err
	}

	if source == b.rootPath {
		if fragment == "" {
			fragment = "#"
		}
		ref.Set(RefKey, fragment)
		return ref, nil
	}

	if pos == posSchema {
		name, err := b.importSchema(source, fragment)
		if err != nil {
			return nil, err
		}
		ref.Set(RefKey, ComponentRef(name))
		return ref, nil
	}
	return b.inline(source, fragment, pos)
}

// importSchema copies an external schema into the root components and
// returns its name. The name is registered before the copy is walked so
// recursive schemas terminate.
func (b *bundler) importSchema(source, fragment string) (string, error) {
	if name, ok := b.imported[source+fragment]; ok {
		return name, nil
	}
	if b.schemas == nil {
		b.schemas = (&Document{Root: b.files[b.rootPath].(*Object)}).EnsureSchemas()
	}
	name := b.uniqueName(importName(source, fragment))
	if err := b.importAs(name, source, fragment); err != nil {
		return "", err
	}
	return name, nil
}

func (b *bundler) importAs(name, source, fragment string) error {
	origin := source + fragment
	node, err := b.resolveIn(source, fragment)
	if err != nil {
		return err
	}
	b.imported[origin] = name
	copied := CloneValue(node)
	b.schemas.Set(name, copied)
	b.settings.Logger.Debug("imported %s as %s", origin, name)

	walked, err := b.walk(copied, source, posSchema)
	if err != nil {
		return err
	}
	b.schemas.Set(name, walked)
	return nil
}

func (b *bundler) inline(source, fragment string, pos position) (any, error) {
	origin := source + fragment
	if b.inlining[origin] {
		return nil, &SpecError{
			Code:        ResolutionError,
			Message:     fmt.Sprintf("spec: circular reference %s cannot be inlined", origin),
			Location:    source,
			JSONPointer: fragment,
		}
	}
	node, err := b.resolveIn(source, fragment)
	if err != nil {
		return nil, err
	}
	b.inlining[origin] = true
	defer delete(b.inlining, origin)
	return b.walk(CloneValue(node), source, pos)
}

func (b *bundler) resolveIn(file, fragment string) (any, error) {
	tree, ok := b.files[file]
	if !ok {
		return nil, &SpecError{Code: ResolutionError, Message: fmt.Sprintf("spec: %s was not loaded", file), Location: file}
	}
	if fragment == "" || fragment == "#" {
		return tree, nil
	}
	obj, _ := tree.(*Object)
	node, err := Resolve(&Document{Location: file, Root: obj}, fragment)
	if err != nil {
		return nil, &SpecError{Code: ResolutionError, Message: fmt.Sprintf("spec: %v", err), Location: file, JSONPointer: fragment, Cause: err}
	}
	return node, nil
}

func (b *bundler) uniqueName(base string) string {
	if !b.schemas.Has(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !b.schemas.Has(candidate) {
			return candidate
		}
	}
}

// importName picks a component name for an external schema: the last
// pointer segment, or the PascalCased file name for whole-file refs.
func importName(file, fragment string) string {
	base := naming.PascalCase(strings.TrimSuffix(path.Base(file), path.Ext(file)))
	if base == "" {
		base = "Schema"
	}
	segs := SplitPointer(fragment)
	if len(segs) == 0 {
		return base
	}
	last := segs[len(segs)-1]
	if last == "" || (last[0] >= '0' && last[0] <= '9') {
		return base + naming.PascalJoin(segs...)
	}
	return last
}

// splitRef separates "other.yaml#/a/b" into "other.yaml" and "#/a/b".
func splitRef(ref string) (string, string) {
	if i := strings.Index(ref, "#"); i >= 0 {
		return ref[:i], ref[i:]
	}
	return ref, ""
}

// WalkReferences calls fn for every $ref string under node.
func WalkReferences(node any, fn func(ref string)) {
	switch n := node.(type) {
	case *Object:
		if ref, ok := n.Values[RefKey].(string); ok {
			fn(ref)
		}
		for _, k := range n.Keys {
			WalkReferences(n.Values[k], fn)
		}
	case []any:
		for _, v := range n {
			WalkReferences(v, fn)
		}
	}
}

// walkRefs calls fn for every reference object walk would rewrite under
// node, with the position it sits at. It does not descend into references.
func walkRefs(node any, pos position, fn func(ref string, pos position)) {
	switch n := node.(type) {
	case *Object:
		if IsReference(n) {
			fn(n.String(RefKey), pos)
			return
		}
		for _, k := range n.Keys {
			if !skipKey(pos, k) {
				walkRefs(n.Values[k], childPosition(pos, k), fn)
			}
		}
	case []any:
		elem := elementPosition(pos)
		for _, v := range n {
			walkRefs(v, elem, fn)
		}
	}
}

// verifyReferences checks that every reference left in doc's structure is
// local and resolves. Extensions and literal values are not checked.
func verifyReferences(doc *Document) error {
	var failure error
	walkRefs(doc.Root, posRoot, func(ref string, _ position) {
		if failure != nil || ref == "" {
			return
		}
		if _, err := Resolve(doc, ref); err != nil {
			failure = &SpecError{
				Code:        ResolutionError,
				Message:     fmt.Sprintf("spec: %v", err),
				Location:    doc.Location,
				JSONPointer: ref,
				Cause:       err,
			}
		}
	})
	return failure
}
