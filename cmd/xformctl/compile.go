package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avaxform/internal/config"
	"github.com/vyrodovalexey/avaxform/internal/remote"
	"github.com/vyrodovalexey/avaxform/internal/schema"
)

var errNoRules = errors.New("schema document yields no rules")

type compileOptions struct {
	uri     string
	field   string
	timeout time.Duration
}

func newCompileSchemaCmd(root *rootOptions) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile-schema",
		Short: "Fetch a schema document and print the validation rules it compiles to",
		Long: `Fetches the schema document at --uri and prints the compiled validation
rules as JSON. With --field the document is compiled for that field; without
it every field of a multi-field document gets its own rule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := schema.NewResolver(
				schema.NewHTTPFetcher(remote.New("schema_registry",
					remote.WithTimeout(opts.timeout),
					remote.WithAccept("application/json"),
					remote.WithLogger(root.logger),
				)),
				schema.WithResolverLogger(root.logger),
			)

			rules, err := resolver.Compile(cmd.Context(), opts.uri, opts.field)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				return fmt.Errorf("%s: %w", opts.uri, errNoRules)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rules)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.uri, "uri", "", "Schema document URI")
	f.StringVar(&opts.field, "field", "", "Field the rule applies to")
	f.DurationVar(&opts.timeout, "timeout", config.DefaultFetchTimeout, "Fetch timeout")
	_ = cmd.MarkFlagRequired("uri")

	return cmd
}
