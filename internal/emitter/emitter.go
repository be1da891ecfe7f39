// Package emitter holds what every IR consumer shares: the Emitter
// contract, the file planning and writing helpers, and the composite
// ambiguity rule emitters enforce.
package emitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mark3labs/oas2ir/internal/codegen"
)

// Emitter renders the IR into files.
type Emitter interface {
	Emit(ctx context.Context, data *codegen.Data, opts Options) (*Result, error)
}

// Options controls how an emitter writes its output.
type Options struct {
	OutDir  string // required; target directory
	Force   bool   // overwrite existing files
	DryRun  bool   // don't write, only plan
	Verbose bool
	// AllowAmbiguousComposites skips CheckComposites.
	AllowAmbiguousComposites bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files.
type Result struct {
	OutDir  string
	Planned []PlannedFile
}

// Plan lists files in deterministic order.
func Plan(files map[string][]byte) []PlannedFile {
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: filepath.ToSlash(rel), Size: len(files[rel]), Mode: 0o644})
	}
	return planned
}

// WriteFiles writes files under outDir. A non-empty outDir is refused
// unless force is set.
func WriteFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("emitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
