package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inodb/varsift/internal/output"
	"github.com/inodb/varsift/internal/plugin"
	"github.com/inodb/varsift/internal/store"
)

func newFieldsCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the fields of the project",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *store.Store) error {
				var (
					fields []store.Field
					err    error
				)
				if category == "" {
					fields, err = s.Fields(cmd.Context())
				} else {
					fields, err = s.FieldsByCategory(cmd.Context(), category)
				}
				if err != nil {
					return err
				}
				return output.WriteFields(cmd.OutOrStdout(), fields)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list one category: "+strings.Join(store.Categories, ", "))
	return cmd
}

func newSamplesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List the samples of the project with their pedigree",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *store.Store) error {
				samples, err := s.Samples(cmd.Context())
				if err != nil {
					return err
				}
				return output.WriteSamples(cmd.OutOrStdout(), samples)
			})
		},
	}
}

// addFilterFlags binds variant filter flags to f.
func addFilterFlags(fs *pflag.FlagSet, f *store.Filter) {
	fs.StringVar(&f.Chrom, "chrom", "", "chromosome")
	fs.Int64Var(&f.Start, "start", 0, "minimum position")
	fs.Int64Var(&f.End, "end", 0, "maximum position")
	fs.StringVar(&f.Gene, "gene", "", "gene symbol of an annotation")
	fs.StringVar(&f.MinImpact, "impact", "", "minimum annotation impact: HIGH, MODERATE, LOW or MODIFIER")
	fs.StringVar(&f.Sample, "sample", "", "sample that must carry a call")
	fs.IntVar(&f.MinGT, "min-gt", 0, "minimum genotype code of --sample (0 hom ref, 1 het, 2 hom alt)")
	fs.StringVar(&f.Selection, "selection", "", "restrict to a saved selection")
}

func newVariantsCmd(a *app) *cobra.Command {
	var (
		filter store.Filter
		fields []string
		limit  int
		offset int
		count  bool
	)
	cmd := &cobra.Command{
		Use:   "variants",
		Short: "Query variants",
		Example: `  varsift --db project.duckdb variants --fields chr,pos,ref,alt --gene KRAS
  varsift --db project.duckdb variants --sample TUMOR --min-gt 1 --count`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *store.Store) error {
				if count {
					n, err := s.CountVariants(cmd.Context(), filter)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), n)
					return nil
				}
				res, err := s.QueryVariants(cmd.Context(), store.Query{
					Fields: fields,
					Filter: filter,
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return err
				}
				return output.WriteResult(cmd.OutOrStdout(), res)
			})
		},
	}
	addFilterFlags(cmd.Flags(), &filter)
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "variants fields to show (default: all)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&count, "count", false, "print the number of matching variants only")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarize the project",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withStore(ctx, func(s *store.Store) error {
				sum, err := s.Summary(ctx)
				if err != nil {
					return err
				}
				version, err := s.Meta(ctx, "schema_version")
				if err != nil {
					return err
				}
				sources, err := s.Sources(ctx)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "project:     %s (%s)\n", s.Path(), s.Driver())
				fmt.Fprintf(w, "schema:      %s\n", version)
				fmt.Fprintf(w, "variants:    %d\n", sum.Variants)
				fmt.Fprintf(w, "annotations: %d\n", sum.Annotations)
				fmt.Fprintf(w, "samples:     %d\n", sum.Samples)
				fmt.Fprintf(w, "genotypes:   %d\n", sum.Genotypes)
				fmt.Fprintf(w, "fields:      %d\n", sum.Fields)
				fmt.Fprintf(w, "selections:  %d\n", sum.Selections)
				fmt.Fprintf(w, "sources:     %d\n", sum.Sources)
				for _, src := range sources {
					fmt.Fprintf(w, "  %s\t%s\t%d records\n", src.Path, src.Dialect, src.Records)
				}
				return nil
			})
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plugin>",
		Short: "Open the project in a plugin and print its view",
		Long:  "Open the project in a plugin and print its view. Plugins: fields_editor, selections, samples.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.plugins.Get(args[0])
			if err != nil {
				return usageError{err}
			}
			for _, name := range a.cfg.Plugins.Disabled {
				if name == p.Name() {
					return fmt.Errorf("plugin %s is disabled", name)
				}
			}
			return a.withStore(cmd.Context(), func(s *store.Store) error {
				if err := a.plugins.OpenProject(cmd.Context(), s, a.cfg.Plugins.Disabled); err != nil {
					return err
				}
				r, ok := p.(plugin.Renderer)
				if !ok {
					return fmt.Errorf("plugin %s has no view", p.Name())
				}
				return r.Render(cmd.OutOrStdout())
			})
		},
	}
}
