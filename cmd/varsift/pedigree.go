package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/varsift/internal/importer"
	"github.com/inodb/varsift/internal/store"
)

func newPedigreeCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "pedigree [flags] <file.tfam>",
		Short: "Attach pedigree information to samples",
		Long: `Read a PLINK .tfam/.ped style file (family, sample, father, mother, sex,
phenotype) and update the matching samples. Rows naming unknown samples are
reported and change nothing.`,
		Example: `  varsift --db project.duckdb pedigree family.tfam`,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("strict") {
				strict = a.cfg.Import.Strict
			}
			return a.withStore(cmd.Context(), func(s *store.Store) error {
				im := importer.New(s, importer.Options{Strict: strict})
				im.SetLogger(a.logger)

				rep, err := im.ImportPedigreeFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "rows:    %d\n", rep.Rows)
				fmt.Fprintf(w, "updated: %d\n", rep.Updated)
				fmt.Fprintf(w, "skipped: %d\n", rep.Skipped)
				for _, e := range rep.Errors {
					fmt.Fprintf(w, "  %v\n", e)
				}
				for _, e := range rep.LookupErrors {
					fmt.Fprintf(w, "  %v\n", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "abort on the first malformed row")
	return cmd
}
