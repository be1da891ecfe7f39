package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mark3labs/oas2ir/internal/emitter"
	"github.com/mark3labs/oas2ir/internal/emitter/iremitter"
	"github.com/mark3labs/oas2ir/internal/spec"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input                    string
	Root                     string
	Out                      string
	Format                   string
	IncludeTags              []string
	ExcludeTags              []string
	Methods                  []string
	Paths                    []string
	ConfigPath               string
	Concurrency              int
	DryRun                   bool
	Force                    bool
	Verbose                  bool
	Validate                 bool
	EmitNormalized           bool
	AllowAmbiguousComposites bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Format: string(iremitter.FormatJSON), Validate: true}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Bundle, normalize and emit the codegen IR of an OpenAPI v3 document",
		Long: "Bundle an OpenAPI v3 document and its local references, normalize it, " +
			"and write the codegen IR. Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  oas2ir generate --input openapi.yaml --out ./ir
  oas2ir --config oas2ir.yaml generate --format yaml --emit-normalized --force`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path to the OpenAPI v3 document")
	flags.String("root", "", "Directory that bounds reference resolution (defaults to the input's directory)")
	flags.String("out", "", "Output directory (derived from the document title when omitted)")
	flags.String("format", "", "IR format to write (json|yaml); defaults to json")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringSlice("paths", nil, "Only include operations whose path matches one of these regular expressions")
	flags.Int("concurrency", 0, "Maximum number of referenced files read in parallel")
	flags.Bool("validate", true, "Validate the bundled document before normalizing")
	flags.Bool("emit-normalized", false, "Also write the normalized document as "+iremitter.NormalizedFile)
	flags.Bool("allow-ambiguous-composites", false, "Emit anyOf/oneOf responses whose branches cannot be told apart")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"input", &cfg.Input},
		{"root", &cfg.Root},
		{"out", &cfg.Out},
		{"format", &cfg.Format},
	}
	for _, f := range strs {
		if !flags.Changed(f.name) {
			continue
		}
		value, err := flags.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = strings.TrimSpace(value)
	}

	slices := []struct {
		name string
		dst  *[]string
	}{
		{"include-tags", &cfg.IncludeTags},
		{"exclude-tags", &cfg.ExcludeTags},
		{"methods", &cfg.Methods},
		{"paths", &cfg.Paths},
	}
	for _, f := range slices {
		if !flags.Changed(f.name) {
			continue
		}
		value, err := flags.GetStringSlice(f.name)
		if err != nil {
			return err
		}
		*f.dst = sanitizeTags(value)
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"validate", &cfg.Validate},
		{"emit-normalized", &cfg.EmitNormalized},
		{"allow-ambiguous-composites", &cfg.AllowAmbiguousComposites},
		{"dry-run", &cfg.DryRun},
		{"force", &cfg.Force},
		{"verbose", &cfg.Verbose},
	}
	for _, f := range bools {
		if !flags.Changed(f.name) {
			continue
		}
		value, err := flags.GetBool(f.name)
		if err != nil {
			return err
		}
		*f.dst = value
	}

	if flags.Changed("concurrency") {
		value, err := flags.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Root = strings.TrimSpace(c.Root)
	c.Out = strings.TrimSpace(c.Out)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Paths = sanitizeTags(c.Paths)
	methods := sanitizeTags(c.Methods)
	for i, m := range methods {
		methods[i] = strings.ToLower(m)
	}
	c.Methods = methods
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	format, err := iremitter.ParseFormat(c.Format)
	if err != nil {
		return newUsageError(fmt.Sprintf("generate: %v", err))
	}
	c.Format = string(format)

	for _, m := range c.Methods {
		if !spec.IsHttpMethod(m) {
			return newUsageError(fmt.Sprintf("generate: unsupported --methods value %q", m))
		}
	}
	for _, p := range c.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("generate: invalid --paths pattern %q: %v", p, err))
		}
	}
	if c.Concurrency < 0 {
		return newUsageError("generate: --concurrency must not be negative")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	log := newLogger(os.Stderr, cfg.Verbose)

	// 1) Load, normalize and build the IR with the configured filters
	out, err := runPipeline(ctx, pipelineInput{
		Input:       cfg.Input,
		Root:        cfg.Root,
		Validate:    cfg.Validate,
		Concurrency: cfg.Concurrency,
		Filters:     buildFilters(cfg.IncludeTags, cfg.ExcludeTags, cfg.Methods, cfg.Paths),
		Logger:      log,
	})
	if err != nil {
		return err
	}

	// 2) Derive the out dir from the document title when omitted
	outDir := cfg.Out
	if outDir == "" {
		outDir = deriveOutDir(out.Data.Info.String("title"))
		if outDir == "" {
			outDir = "oas2ir-out"
		}
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}

	// 3) Emit
	em := &iremitter.Emitter{Format: iremitter.Format(cfg.Format)}
	if cfg.EmitNormalized {
		em.Normalized = out.Normalized
	}
	res, err := em.Emit(ctx, out.Data, emitter.Options{
		OutDir:                   outDir,
		Force:                    cfg.Force,
		DryRun:                   cfg.DryRun,
		Verbose:                  cfg.Verbose,
		AllowAmbiguousComposites: cfg.AllowAmbiguousComposites,
	})
	if err != nil {
		if mapped := mapPipelineError(err); errors.Is(mapped, ErrUsage) {
			return mapped
		}
		return wrapOutputError(err, absOut)
	}

	paths := make([]string, 0, len(res.Planned))
	for _, p := range res.Planned {
		paths = append(paths, p.RelPath)
	}
	if cfg.DryRun {
		printPlan(absOut, len(res.Planned), paths)
		return nil
	}
	log.Info("wrote %d files to %s (%d models, %d operations)", len(paths), absOut, len(out.Data.Models), len(out.Data.AllOperations))
	return nil
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

// deriveOutDir turns a document title into a lowercase dashed directory name.
func deriveOutDir(title string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		return ""
	}
	t = strings.ToLower(t)
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ", "\\", " ")
	t = repl.Replace(t)
	parts := strings.Fields(t)
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "-") + "-ir"
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		var ferr error
		switch normalizeKey(key) {
		case "input":
			cfg.Input, ferr = valueAsString(value)
		case "root":
			cfg.Root, ferr = valueAsString(value)
		case "out":
			cfg.Out, ferr = valueAsString(value)
		case "format":
			cfg.Format, ferr = valueAsString(value)
		case "includetags":
			cfg.IncludeTags, ferr = valueAsStringSlice(value)
		case "excludetags":
			cfg.ExcludeTags, ferr = valueAsStringSlice(value)
		case "methods":
			cfg.Methods, ferr = valueAsStringSlice(value)
		case "paths":
			cfg.Paths, ferr = valueAsStringSlice(value)
		case "concurrency":
			cfg.Concurrency, ferr = valueAsInt(value)
		case "validate":
			cfg.Validate, ferr = valueAsBool(value)
		case "emitnormalized":
			cfg.EmitNormalized, ferr = valueAsBool(value)
		case "allowambiguouscomposites":
			cfg.AllowAmbiguousComposites, ferr = valueAsBool(value)
		case "dryrun":
			cfg.DryRun, ferr = valueAsBool(value)
		case "force":
			cfg.Force, ferr = valueAsBool(value)
		case "verbose":
			cfg.Verbose, ferr = valueAsBool(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if ferr != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, ferr))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int(val), nil
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
