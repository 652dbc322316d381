package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/pipeline"
	"github.com/vyrodovalexey/avaxform/internal/remote"
	"github.com/vyrodovalexey/avaxform/internal/schema"
)

type transformOptions struct {
	rulePath     string
	ruleName     string
	inputPath    string
	outputPath   string
	sourceFormat string
	targetFormat string
	timeout      time.Duration
	noSchema     bool
}

func newTransformCmd(root *rootOptions) *cobra.Command {
	opts := &transformOptions{}

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Run a transformation rule over an input document",
		Example: `  xformctl transform --rule rules.yaml --name orders --input orders.csv --target-format json
  cat in.json | xformctl transform --rule rule.json --input -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.rulePath, "rule", "", "Rule or rule set file (.json, .yaml)")
	f.StringVar(&opts.ruleName, "name", "", "Rule name when the file holds a rule set")
	f.StringVar(&opts.inputPath, "input", "", "Input file, - for stdin; empty uses the rule's sample input")
	f.StringVar(&opts.outputPath, "output", "", "Output file; stdout when empty")
	f.StringVar(&opts.sourceFormat, "source-format", "", "Override the rule's source format")
	f.StringVar(&opts.targetFormat, "target-format", "", "Override the rule's target format")
	f.DurationVar(&opts.timeout, "timeout", config.DefaultFetchTimeout, "Timeout for remote schema and source fetches")
	f.BoolVar(&opts.noSchema, "no-schema", false, "Do not fetch schema documents referenced by validation rules")
	_ = cmd.MarkFlagRequired("rule")

	return cmd
}

func runTransform(cmd *cobra.Command, root *rootOptions, opts *transformOptions) error {
	rule, err := config.LoadRule(opts.rulePath, opts.ruleName)
	if err != nil {
		return err
	}
	if err := config.ValidateRule(rule); err != nil {
		return err
	}

	input, err := readInput(cmd.InOrStdin(), opts.inputPath)
	if err != nil {
		return err
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(root.logger),
		pipeline.WithSourceGetter(remote.New("source",
			remote.WithTimeout(opts.timeout),
			remote.WithLogger(root.logger),
		)),
	}
	if !opts.noSchema {
		fetcher := schema.NewCachedFetcher(
			schema.NewHTTPFetcher(remote.New("schema_registry",
				remote.WithTimeout(opts.timeout),
				remote.WithAccept("application/json"),
				remote.WithLogger(root.logger),
			)),
			root.logger,
			opts.timeout,
		)
		pipelineOpts = append(pipelineOpts,
			pipeline.WithSchemaResolver(schema.NewResolver(fetcher, schema.WithResolverLogger(root.logger))))
	}

	orchestrator, err := pipeline.New(pipelineOpts...)
	if err != nil {
		return err
	}

	result, err := orchestrator.Transform(cmd.Context(), input, rule,
		pipeline.WithSourceFormat(opts.sourceFormat),
		pipeline.WithTargetFormat(opts.targetFormat),
	)
	if err != nil {
		return err
	}

	if report := result.Validation; report != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "validation: %d of %d records valid\n",
			report.ValidRecords, report.TotalRecords)
	}
	return writeOutput(cmd.OutOrStdout(), opts.outputPath, result.OutputText)
}

// readInput returns nil for an empty path so the pipeline falls back to
// the rule's own source.
func readInput(stdin io.Reader, path string) (interface{}, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func writeOutput(stdout io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(stdout, ensureNewline(text))
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func ensureNewline(s string) string {
	if s == "" || s[len(s)-1] == '\n' {
		return s
	}
	return s + "\n"
}
