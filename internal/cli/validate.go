package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/oas2ir/internal/emitter"
	"github.com/spf13/cobra"
)

// ValidateConfig captures the options for the validate command.
type ValidateConfig struct {
	Input                    string
	Root                     string
	Strict                   bool
	AllowAmbiguousComposites bool
	Verbose                  bool
}

var validateRunner = runValidate

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a document bundles, normalizes and builds without writing anything",
		Long: "Run the whole pipeline on an OpenAPI v3 document and report the first problem " +
			"found: broken references, duplicate operation ids or ambiguous composite responses.",
		Example: strings.TrimSpace(`  oas2ir validate --input openapi.yaml
  oas2ir validate --input api/openapi.yaml --root . --strict=false`),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			input, err := flags.GetString("input")
			if err != nil {
				return err
			}
			root, err := flags.GetString("root")
			if err != nil {
				return err
			}
			strict, err := flags.GetBool("strict")
			if err != nil {
				return err
			}
			allow, err := flags.GetBool("allow-ambiguous-composites")
			if err != nil {
				return err
			}
			verbose, err := flags.GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &ValidateConfig{
				Input:                    strings.TrimSpace(input),
				Root:                     strings.TrimSpace(root),
				Strict:                   strict,
				AllowAmbiguousComposites: allow,
				Verbose:                  verbose,
			}
			if cfg.Input == "" {
				return newUsageError("validate: --input is required")
			}
			return validateRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("input", "", "Path to the OpenAPI v3 document")
	cmd.Flags().String("root", "", "Directory that bounds reference resolution (defaults to the input's directory)")
	cmd.Flags().Bool("strict", true, "Also run OpenAPI schema validation on the bundled document")
	cmd.Flags().Bool("allow-ambiguous-composites", false, "Do not report ambiguous anyOf/oneOf responses")

	return cmd
}

func runValidate(ctx context.Context, cfg *ValidateConfig) error {
	out, err := runPipeline(ctx, pipelineInput{
		Input:    cfg.Input,
		Root:     cfg.Root,
		Validate: cfg.Strict,
		Logger:   newLogger(os.Stderr, cfg.Verbose),
	})
	if err != nil {
		return err
	}
	if !cfg.AllowAmbiguousComposites {
		if err := emitter.CheckComposites(out.Data); err != nil {
			return mapPipelineError(err)
		}
	}
	fmt.Fprintf(os.Stdout, "%s: OK (%d models, %d operations, %d services)\n",
		cfg.Input, len(out.Data.Models), len(out.Data.AllOperations), len(out.Data.Services))
	return nil
}
