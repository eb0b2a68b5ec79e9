// Package importer loads variant files and pedigree files into a project
// store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inodb/varsift/internal/store"
	"github.com/inodb/varsift/internal/vcf"
)

// DefaultBatchSize is the number of records committed per transaction.
const DefaultBatchSize = 1000

// MaxReportedErrors bounds the parse errors kept in a report; further errors
// are only counted.
const MaxReportedErrors = 100

// State is the stage an import run is in.
type State string

// Import states. failed is terminal.
const (
	StateIdle      State = "idle"
	StateReading   State = "reading"
	StateWriting   State = "writing"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
)

// Options configures an Importer.
type Options struct {
	BatchSize  int    // records per transaction, DefaultBatchSize when <= 0
	Strict     bool   // abort on the first malformed record
	SkipHomRef bool   // do not store homozygous-reference calls
	Force      bool   // import a source even if it was imported before
	Format     string // input format of ImportFile: vcf, maf or "" to detect
	Source     *store.FileFingerprint

	// Progress is called after every committed batch with a copy of the
	// report. It runs while the import holds the store lock and must not
	// query the store.
	Progress func(Report)
}

// Report describes an import run. Row counters only include committed
// batches.
type Report struct {
	RunID   string
	State   State
	Dialect string
	Samples []string

	Records           int // well-formed records read
	Variants          int // variants rows written
	Annotations       int
	OrphanAnnotations int // annotation entries matching no alt, dropped
	Genotypes         int
	SkippedHomRef     int
	InvalidValues     int // field values stored as NULL
	Skipped           int // malformed records skipped
	Errors            []*vcf.ParseError

	Batches   int // committed batches
	Committed int // records in committed batches

	Started  time.Time
	Finished time.Time
}

// Importer writes variant records into a store.
type Importer struct {
	store  *store.Store
	opts   Options
	logger *zap.Logger
}

// New creates an importer writing to s.
func New(s *store.Store, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Importer{
		store:  s,
		opts:   opts,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (im *Importer) SetLogger(l *zap.Logger) {
	im.logger = l
}

// ImportFile opens a VCF or MAF file and imports it. The file's fingerprint is
// recorded so it is not imported twice unless Force is set. "-" reads stdin.
func (im *Importer) ImportFile(ctx context.Context, path, dialect string) (*Report, error) {
	p, err := OpenReader(path, im.opts.Format, dialect)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	if hw, ok := p.(interface{ HeaderWarnings() []string }); ok {
		for _, w := range hw.HeaderWarnings() {
			im.logger.Warn("vcf header", zap.String("path", path), zap.String("warning", w))
		}
	}

	run := *im
	if path != "-" && im.opts.Source == nil {
		fp, err := store.StatFile(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		run.opts.Source = &fp
	}
	return run.Import(ctx, p)
}

// Import reads r to the end and writes its records in batches. Malformed
// records are skipped and reported, or abort the run in strict mode. When a
// run fails, batches committed before the failure stay in the store and the
// returned report says how many records they hold.
//
// ctx is checked after every committed batch; a batch in flight is not
// interrupted.
func (im *Importer) Import(ctx context.Context, r vcf.VariantReader) (*Report, error) {
	rep := &Report{
		RunID:   uuid.NewString(),
		State:   StateIdle,
		Dialect: r.Dialect().String(),
		Samples: r.SampleNames(),
		Started: time.Now(),
	}
	log := im.logger.With(zap.String("run_id", rep.RunID))

	sess, err := im.store.BeginImport(ctx, store.ImportSpec{
		Fields:     r.Fields(),
		Samples:    r.SampleNames(),
		Dialect:    r.Dialect(),
		Source:     im.opts.Source,
		Force:      im.opts.Force,
		SkipHomRef: im.opts.SkipHomRef,
	})
	if err != nil {
		rep.State = StateFailed
		rep.Finished = time.Now()
		return rep, err
	}
	defer sess.Close()

	log.Info("import started",
		zap.String("dialect", rep.Dialect),
		zap.Int("samples", len(rep.Samples)),
		zap.Int("batch_size", im.opts.BatchSize))

	var batch *store.Batch
	var pending store.AddResult

	fail := func(err error) (*Report, error) {
		if batch != nil {
			if rbErr := batch.Rollback(); rbErr != nil {
				log.Warn("rollback failed", zap.Error(rbErr))
			}
		}
		if abortErr := sess.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			log.Warn("refresh after failed import", zap.Error(abortErr))
		}
		rep.State = StateFailed
		rep.Finished = time.Now()
		log.Error("import failed",
			zap.Int("committed", rep.Committed),
			zap.Int("batches", rep.Batches),
			zap.Error(err))
		return rep, err
	}

	commit := func() error {
		b := batch
		batch = nil
		if err := b.Commit(); err != nil {
			return &store.StoreWriteError{Batch: rep.Batches + 1, Committed: rep.Committed, Err: err}
		}
		rep.Batches++
		rep.Committed += b.Len()
		rep.Variants += pending.Variants
		rep.Annotations += pending.Annotations
		rep.Genotypes += pending.Genotypes
		rep.SkippedHomRef += pending.SkippedHomRef
		rep.InvalidValues += pending.InvalidValues
		pending = store.AddResult{}
		rep.State = StateCommitted

		log.Debug("batch committed", zap.Int("batch", rep.Batches), zap.Int("committed", rep.Committed))
		if im.opts.Progress != nil {
			im.opts.Progress(*rep)
		}
		return nil
	}

	for {
		rep.State = StateReading
		v, err := r.Next()
		if err != nil {
			var pe *vcf.ParseError
			if !errors.As(err, &pe) {
				return fail(fmt.Errorf("read variants: %w", err))
			}
			if len(rep.Errors) < MaxReportedErrors {
				rep.Errors = append(rep.Errors, pe)
			}
			if im.opts.Strict {
				return fail(err)
			}
			rep.Skipped++
			log.Warn("skipping malformed record", zap.Int("line", pe.Line), zap.String("reason", pe.Message))
			continue
		}
		if v == nil {
			break
		}
		rep.Records++
		rep.OrphanAnnotations += v.Orphans

		if batch == nil {
			if batch, err = sess.BeginBatch(ctx); err != nil {
				batch = nil
				return fail(&store.StoreWriteError{Batch: rep.Batches + 1, Committed: rep.Committed, Err: err})
			}
		}

		rep.State = StateWriting
		res, err := batch.Add(v)
		if err != nil {
			return fail(&store.StoreWriteError{Batch: rep.Batches + 1, Committed: rep.Committed, Err: err})
		}
		pending.Variants += res.Variants
		pending.Annotations += res.Annotations
		pending.Genotypes += res.Genotypes
		pending.SkippedHomRef += res.SkippedHomRef
		pending.InvalidValues += res.InvalidValues

		if batch.Len() >= im.opts.BatchSize {
			if err := commit(); err != nil {
				return fail(err)
			}
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
		}
	}

	if batch != nil {
		if err := commit(); err != nil {
			return fail(err)
		}
	}
	if err := sess.Finish(context.WithoutCancel(ctx), rep.Committed); err != nil {
		return fail(&store.StoreWriteError{Batch: rep.Batches, Committed: rep.Committed, Err: err})
	}

	rep.State = StateCommitted
	rep.Finished = time.Now()
	log.Info("import finished",
		zap.Int("records", rep.Records),
		zap.Int("variants", rep.Variants),
		zap.Int("annotations", rep.Annotations),
		zap.Int("genotypes", rep.Genotypes),
		zap.Int("skipped", rep.Skipped),
		zap.Int("batches", rep.Batches),
		zap.Duration("elapsed", rep.Finished.Sub(rep.Started)))
	if rep.OrphanAnnotations > 0 {
		log.Warn("annotations matching no alternate allele were dropped", zap.Int("count", rep.OrphanAnnotations))
	}
	return rep, nil
}
