package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/oas2ir/internal/codegen"
	"github.com/mark3labs/oas2ir/internal/emitter"
	"github.com/mark3labs/oas2ir/internal/logging"
	"github.com/mark3labs/oas2ir/internal/normalize"
	"github.com/mark3labs/oas2ir/internal/spec"
)

// pipelineInput is what generate and validate share: where the document
// lives and how it is loaded and filtered.
type pipelineInput struct {
	Input       string
	Root        string
	Validate    bool
	Concurrency int
	Filters     []codegen.BuildOption
	Logger      logging.Logger
}

type pipelineOutput struct {
	Bundled    *spec.Document
	Normalized *spec.Document
	Data       *codegen.Data
}

// runPipeline loads, normalizes and builds the IR for one document.
func runPipeline(ctx context.Context, in pipelineInput) (*pipelineOutput, error) {
	log := in.Logger
	if log == nil {
		log = logging.Nop()
	}

	fsys, rel, err := openSource(in.Input, in.Root)
	if err != nil {
		return nil, err
	}

	opts := []spec.Option{spec.WithValidation(in.Validate), spec.WithLogger(log)}
	if in.Concurrency > 0 {
		opts = append(opts, spec.WithConcurrency(in.Concurrency))
	}
	doc, err := spec.Load(ctx, fsys, rel, opts...)
	if err != nil {
		return nil, mapPipelineError(err)
	}

	normalized, err := normalize.Normalize(doc, normalize.WithLogger(log))
	if err != nil {
		return nil, mapPipelineError(err)
	}

	data, err := codegen.Build(ctx, normalized, in.Filters...)
	if err != nil {
		return nil, fmt.Errorf("build ir: %w", err)
	}
	log.Debug("built %d models and %d operations", len(data.Models), len(data.AllOperations))

	return &pipelineOutput{Bundled: doc, Normalized: normalized, Data: data}, nil
}

// openSource roots a file system at root (the input's directory when empty)
// and returns the input's locator inside it. References may not leave root.
func openSource(input, root string) (fs.FS, string, error) {
	input = strings.TrimSpace(input)
	lower := strings.ToLower(input)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return nil, "", newUsageError(fmt.Sprintf("input %q: remote documents are not supported; download it first", input))
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return nil, "", fmt.Errorf("resolve input: %w", err)
	}
	rootDir := strings.TrimSpace(root)
	if rootDir == "" {
		rootDir = filepath.Dir(absIn)
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolve root: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absIn)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, "", newUsageError(fmt.Sprintf("input %q is outside --root %q", input, rootDir))
	}
	return os.DirFS(absRoot), filepath.ToSlash(rel), nil
}

// mapPipelineError turns the typed pipeline errors into friendly usage errors.
func mapPipelineError(err error) error {
	var se *spec.SpecError
	if errors.As(err, &se) {
		msg := se.Message
		if !strings.HasPrefix(msg, "spec: ") {
			msg = "spec: " + msg
		}
		if se.Location != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
		}
		if se.JSONPointer != "" {
			msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
		}
		return newUsageError(msg)
	}

	var dup *normalize.DuplicateOperationIDError
	if errors.As(err, &dup) {
		return newUsageError(fmt.Sprintf("%s\nHint: give the operations distinct operationIds or distinct tags.", dup.Error()))
	}

	var amb *emitter.AmbiguousCompositeError
	if errors.As(err, &amb) {
		return newUsageError(fmt.Sprintf("%s\nHint: pass --allow-ambiguous-composites to emit it anyway.", amb.Error()))
	}
	return err
}

func newLogger(out io.Writer, verbose bool) logging.Logger {
	if verbose {
		return logging.New(out, logging.Above(logging.LevelDebug))
	}
	return logging.New(out, logging.Above(logging.LevelWarning))
}

func buildFilters(includeTags, excludeTags, methods, paths []string) []codegen.BuildOption {
	ms := make([]spec.HttpMethod, 0, len(methods))
	for _, m := range methods {
		ms = append(ms, spec.HttpMethod(m))
	}
	return []codegen.BuildOption{
		codegen.WithIncludeTags(includeTags),
		codegen.WithExcludeTags(excludeTags),
		codegen.WithMethods(ms),
		codegen.WithPathPatterns(paths),
	}
}
