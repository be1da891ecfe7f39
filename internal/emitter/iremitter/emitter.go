// Package iremitter writes the IR itself, as JSON or YAML, optionally next
// to the normalized document it was built from.
package iremitter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oas2ir/internal/codegen"
	"github.com/mark3labs/oas2ir/internal/emitter"
	"github.com/mark3labs/oas2ir/internal/spec"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// NormalizedFile is the name the normalized document is written under.
const NormalizedFile = "openapi.normalized.yaml"

// ParseFormat accepts json, yaml or yml in any case. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected json or yaml)", s)
	}
}

// Emitter renders ir.json or ir.yaml.
type Emitter struct {
	Format Format
	// Normalized, when set, is also written as openapi.normalized.yaml.
	Normalized *spec.Document
}

var _ emitter.Emitter = (*Emitter)(nil)

// Emit renders the IR files and writes them unless opts.DryRun is set.
func (e *Emitter) Emit(ctx context.Context, data *codegen.Data, opts emitter.Options) (*emitter.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("iremitter: nil data")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("iremitter: OutDir is required")
	}
	if !opts.AllowAmbiguousComposites {
		if err := emitter.CheckComposites(data); err != nil {
			return nil, err
		}
	}

	files, err := e.render(data)
	if err != nil {
		return nil, err
	}
	if !opts.DryRun {
		if err := emitter.WriteFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &emitter.Result{OutDir: opts.OutDir, Planned: emitter.Plan(files)}, nil
}

func (e *Emitter) render(data *codegen.Data) (map[string][]byte, error) {
	files := map[string][]byte{}
	format := e.Format
	if format == "" {
		format = FormatJSON
	}
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal ir.json: %w", err)
		}
		files["ir.json"] = append(out, '\n')
	case FormatYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal ir.yaml: %w", err)
		}
		files["ir.yaml"] = out
	default:
		return nil, fmt.Errorf("iremitter: unknown format %q", format)
	}

	if e.Normalized != nil && e.Normalized.Root != nil {
		out, err := yaml.Marshal(e.Normalized.Root)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", NormalizedFile, err)
		}
		files[NormalizedFile] = out
	}
	return files, nil
}
