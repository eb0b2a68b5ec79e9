package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/varsift/internal/importer"
	"github.com/inodb/varsift/internal/store"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		format     string
		dialect    string
		batchSize  int
		strict     bool
		skipHomRef bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "import [flags] <file.vcf[.gz]|file.maf[.gz]>",
		Short: "Import a VCF or MAF file into the project",
		Long: `Import a VCF or MAF file into the project database. Annotations written by
SnpEff (ANN) or VEP (CSQ) are detected from the VCF header. Malformed records
are skipped with a warning unless --strict is set.`,
		Example: `  varsift --db project.duckdb import sample.vcf.gz
  varsift --db project.duckdb import --dialect vep --batch-size 5000 sample.vep.vcf
  varsift --db project.duckdb import data_mutations.txt
  cat sample.vcf | varsift --db project.duckdb import -`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("dialect") {
				dialect = a.cfg.Import.Dialect
			}
			if !flags.Changed("batch-size") {
				batchSize = a.cfg.Import.BatchSize
			}
			if !flags.Changed("strict") {
				strict = a.cfg.Import.Strict
			}
			if !flags.Changed("skip-hom-ref") {
				skipHomRef = a.cfg.Import.SkipHomRef
			}

			return a.withStore(cmd.Context(), func(s *store.Store) error {
				im := importer.New(s, importer.Options{
					BatchSize:  batchSize,
					Strict:     strict,
					SkipHomRef: skipHomRef,
					Force:      force,
					Format:     format,
					Progress: func(r importer.Report) {
						a.logger.Debug("batch committed",
							zap.String("run_id", r.RunID),
							zap.Int("batch", r.Batches),
							zap.Int("records", r.Committed))
					},
				})
				im.SetLogger(a.logger)

				rep, err := im.ImportFile(cmd.Context(), args[0], dialect)
				if rep != nil {
					writeImportReport(cmd.OutOrStdout(), rep)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "input format: vcf or maf (default: detect)")
	cmd.Flags().StringVar(&dialect, "dialect", "", "annotation dialect: plain, snpeff or vep (default: detect)")
	cmd.Flags().IntVar(&batchSize, "batch-size", importer.DefaultBatchSize, "records per transaction")
	cmd.Flags().BoolVar(&strict, "strict", false, "abort on the first malformed record")
	cmd.Flags().BoolVar(&skipHomRef, "skip-hom-ref", false, "do not store homozygous reference calls")
	cmd.Flags().BoolVar(&force, "force", false, "import the file even if it was imported before")
	return cmd
}

func writeImportReport(w io.Writer, r *importer.Report) {
	fmt.Fprintf(w, "run:            %s\n", r.RunID)
	fmt.Fprintf(w, "state:          %s\n", r.State)
	fmt.Fprintf(w, "dialect:        %s\n", r.Dialect)
	fmt.Fprintf(w, "samples:        %d\n", len(r.Samples))
	fmt.Fprintf(w, "records:        %d\n", r.Committed)
	fmt.Fprintf(w, "variants:       %d\n", r.Variants)
	fmt.Fprintf(w, "annotations:    %d\n", r.Annotations)
	fmt.Fprintf(w, "genotypes:      %d\n", r.Genotypes)
	if r.OrphanAnnotations > 0 {
		fmt.Fprintf(w, "orphan annotations: %d\n", r.OrphanAnnotations)
	}
	if r.SkippedHomRef > 0 {
		fmt.Fprintf(w, "skipped hom-ref: %d\n", r.SkippedHomRef)
	}
	if r.InvalidValues > 0 {
		fmt.Fprintf(w, "invalid values: %d\n", r.InvalidValues)
	}
	fmt.Fprintf(w, "skipped:        %d\n", r.Skipped)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %v\n", e)
	}
}
