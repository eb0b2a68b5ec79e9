package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/inodb/varsift/internal/vcf"
)

// ImportSpec describes what an import will write.
type ImportSpec struct {
	Fields     []vcf.Field // column descriptors from the reader
	Samples    []string    // sample names in header order
	Dialect    vcf.Dialect
	Source     *FileFingerprint // nil for streams
	Force      bool             // import even if Source was already imported
	SkipHomRef bool             // do not store homozygous-reference calls
}

// ImportSession is an import in progress. It holds the store's exclusive
// lock until Close.
type ImportSession struct {
	s    *Store
	spec ImportSpec

	variantFields []vcf.Field
	annFields     []vcf.Field
	sampleFields  []vcf.Field
	sampleIDs     []int64
	nextID        int64

	variantCols    []string
	annotationCols []string
	genotypeCols   []string
	variantSQL     string
	annotationSQL  string
	genotypeSQL    string

	// layout holds the full column order of the data tables (duckdb only).
	layout map[string][]string

	closed bool
}

// AddResult counts the rows written for one record.
type AddResult struct {
	Variants      int
	Annotations   int
	Genotypes     int
	SkippedHomRef int
	InvalidValues int // values stored as NULL because they did not match the field type
}

// BeginImport validates the project schema against the declared fields, adds
// the columns of new fields and registers the samples. Existing samples are
// reused by name.
func (s *Store) BeginImport(ctx context.Context, spec ImportSpec) (*ImportSession, error) {
	s.mu.Lock()
	sess, err := s.beginImport(ctx, spec)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return sess, nil
}

func (s *Store) beginImport(ctx context.Context, spec ImportSpec) (*ImportSession, error) {
	if spec.Source != nil && !spec.Force {
		done, err := sourceImported(ctx, s.db, *spec.Source)
		if err != nil {
			return nil, err
		}
		if done {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyImported, spec.Source.Path)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	sess := &ImportSession{s: s, spec: spec}
	if err := sess.prepareFields(ctx, tx); err != nil {
		return nil, err
	}
	if err := sess.registerSamples(ctx, tx); err != nil {
		return nil, err
	}
	if sess.nextID, err = nextID(ctx, tx, "variants"); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import schema: %w", err)
	}

	sess.buildStatements()
	if s.driver == DriverDuckDB {
		sess.layout = make(map[string][]string)
		for _, table := range []string{"variants", "annotations", "genotypes"} {
			cols, err := tableColumns(ctx, s.db, table)
			if err != nil {
				return nil, err
			}
			sess.layout[table] = cols
		}
	}
	return sess, nil
}

// dataTable returns the table holding the columns of a field category.
func dataTable(category string) string {
	if category == vcf.CategorySamples {
		return "genotypes"
	}
	return category
}

func (sess *ImportSession) prepareFields(ctx context.Context, tx *sql.Tx) error {
	existing, err := loadFields(ctx, tx, "")
	if err != nil {
		return err
	}
	known := make(map[string]Field, len(existing))
	var fieldID int64
	for _, f := range existing {
		known[f.Category+"."+f.Name] = f
		if f.ID > fieldID {
			fieldID = f.ID
		}
	}
	core := make(map[string]bool)
	for _, f := range vcf.VariantCoreFields {
		core[f.Category+"."+f.Name] = true
	}
	for _, f := range vcf.SampleCoreFields {
		core[f.Category+"."+f.Name] = true
	}

	for _, f := range sess.spec.Fields {
		key := f.Category + "." + f.Name
		if core[key] {
			continue
		}
		if !validCategory(f.Category) {
			return &SchemaError{Reason: fmt.Sprintf("field %q has unknown category %q", f.Name, f.Category)}
		}
		if old, ok := known[key]; ok {
			if old.Type != f.Type {
				return &SchemaError{Reason: fmt.Sprintf("%s field %q is %s in the project, %s in the source",
					f.Category, f.Name, old.Type, f.Type)}
			}
		} else {
			alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`,
				quoteIdent(dataTable(f.Category)), quoteIdent(f.Name), sqlType(f.Type))
			if _, err := tx.ExecContext(ctx, alter); err != nil {
				return fmt.Errorf("add column %s.%s: %w", dataTable(f.Category), f.Name, err)
			}
			fieldID++
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO "fields" ("id", "name", "category", "type", "description") VALUES (?, ?, ?, ?, ?)`,
				fieldID, f.Name, f.Category, f.Type, f.Description); err != nil {
				return fmt.Errorf("insert field %s: %w", f.Name, err)
			}
			known[key] = Field{ID: fieldID, Name: f.Name, Category: f.Category, Type: f.Type}
		}

		switch f.Category {
		case vcf.CategoryVariants:
			sess.variantFields = append(sess.variantFields, f)
		case vcf.CategoryAnnotations:
			sess.annFields = append(sess.annFields, f)
		case vcf.CategorySamples:
			sess.sampleFields = append(sess.sampleFields, f)
		}
	}
	return nil
}

func (sess *ImportSession) registerSamples(ctx context.Context, tx *sql.Tx) error {
	ids, err := sampleIDs(ctx, tx)
	if err != nil {
		return err
	}
	next, err := nextID(ctx, tx, "samples")
	if err != nil {
		return err
	}
	for _, name := range sess.spec.Samples {
		id, ok := ids[name]
		if !ok {
			id = next
			next++
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO "samples" ("id", "name", "fam", "father_id", "mother_id", "sex", "phenotype") VALUES (?, ?, ?, NULL, NULL, ?, ?)`,
				id, name, "", int64(0), int64(0)); err != nil {
				return fmt.Errorf("insert sample %s: %w", name, err)
			}
			ids[name] = id
		}
		sess.sampleIDs = append(sess.sampleIDs, id)
	}
	return nil
}

func (sess *ImportSession) buildStatements() {
	sess.variantCols = []string{"id", "chr", "pos", "ref", "alt", "rsid", "qual", "filter"}
	for _, f := range sess.variantFields {
		sess.variantCols = append(sess.variantCols, f.Name)
	}
	sess.variantSQL = insertSQL("variants", sess.variantCols)

	if len(sess.annFields) > 0 {
		sess.annotationCols = []string{"variant_id"}
		for _, f := range sess.annFields {
			sess.annotationCols = append(sess.annotationCols, f.Name)
		}
		sess.annotationSQL = insertSQL("annotations", sess.annotationCols)
	}

	sess.genotypeCols = []string{"variant_id", "sample_id", "gt", "phased"}
	for _, f := range sess.sampleFields {
		sess.genotypeCols = append(sess.genotypeCols, f.Name)
	}
	sess.genotypeSQL = insertSQL("genotypes", sess.genotypeCols)
}

func insertSQL(table string, cols []string) string {
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, quoteIdent(table), quoteList(cols), placeholders(len(cols)))
}

// SampleIDs returns the store ids of the import's samples in header order.
func (sess *ImportSession) SampleIDs() []int64 {
	return sess.sampleIDs
}

// rowWriter writes the rows of one table within a batch. Values follow the
// session's column list for that table.
type rowWriter interface {
	writeRow(ctx context.Context, args ...any) error
	Close() error
}

type stmtWriter struct {
	stmt *sql.Stmt
}

func (w stmtWriter) writeRow(ctx context.Context, args ...any) error {
	_, err := w.stmt.ExecContext(ctx, args...)
	return err
}

func (w stmtWriter) Close() error {
	return w.stmt.Close()
}

// Batch is one transaction of an import. On DuckDB rows are bulk-loaded with
// appenders on a dedicated connection; on SQLite through prepared inserts.
type Batch struct {
	sess *ImportSession
	tx   *sql.Tx   // sqlite3
	conn *sql.Conn // duckdb, inside BEGIN TRANSACTION
	// ctx is detached from the caller's cancellation: a started batch runs to
	// commit or rollback.
	ctx context.Context

	variants    rowWriter
	annotations rowWriter // nil when the import declares no annotation fields
	genotypes   rowWriter

	startID int64
	records int
	done    bool
}

// BeginBatch opens the transaction of the next batch.
func (sess *ImportSession) BeginBatch(ctx context.Context) (*Batch, error) {
	if sess.closed {
		return nil, errors.New("import session closed")
	}
	bctx := context.WithoutCancel(ctx)
	b := &Batch{sess: sess, ctx: bctx, startID: sess.nextID}

	var err error
	if sess.s.driver == DriverDuckDB {
		err = b.openAppenders()
	} else {
		err = b.prepareStatements()
	}
	if err != nil {
		b.closeWriters()
		b.rollbackTx()
		return nil, err
	}
	return b, nil
}

func (b *Batch) prepareStatements() error {
	sess := b.sess
	tx, err := sess.s.db.BeginTx(b.ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	b.tx = tx

	prepare := func(query, table string) (rowWriter, error) {
		stmt, err := tx.PrepareContext(b.ctx, query)
		if err != nil {
			return nil, fmt.Errorf("prepare %s insert: %w", table, err)
		}
		return stmtWriter{stmt: stmt}, nil
	}
	if b.variants, err = prepare(sess.variantSQL, "variants"); err != nil {
		return err
	}
	if sess.annotationSQL != "" {
		if b.annotations, err = prepare(sess.annotationSQL, "annotations"); err != nil {
			return err
		}
	}
	b.genotypes, err = prepare(sess.genotypeSQL, "genotypes")
	return err
}

func (b *Batch) openAppenders() error {
	sess := b.sess
	conn, err := sess.s.db.Conn(b.ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	if _, err := conn.ExecContext(b.ctx, "BEGIN TRANSACTION"); err != nil {
		conn.Close()
		return fmt.Errorf("begin batch: %w", err)
	}
	b.conn = conn

	if b.variants, err = newAppendWriter(conn, "variants", sess.layout["variants"], sess.variantCols); err != nil {
		return err
	}
	if len(sess.annotationCols) > 0 {
		if b.annotations, err = newAppendWriter(conn, "annotations", sess.layout["annotations"], sess.annotationCols); err != nil {
			return err
		}
	}
	b.genotypes, err = newAppendWriter(conn, "genotypes", sess.layout["genotypes"], sess.genotypeCols)
	return err
}

// Add writes one record: a variants row per alt, the annotations attached to
// that alt and one genotypes row per sample.
func (b *Batch) Add(v *vcf.Variant) (AddResult, error) {
	var res AddResult
	if b.done {
		return res, errors.New("batch already finished")
	}
	sess := b.sess

	var qual any
	if v.Qual != nil {
		qual = *v.Qual
	}
	filter := nullString(strings.Join(v.Filters, ";"))

	for alt := range v.Alts {
		id := sess.nextID
		sess.nextID++

		args := []any{id, v.Chrom, v.Pos, v.Ref, v.Alts[alt], nullString(v.ID), qual, filter}
		for _, f := range sess.variantFields {
			raw, ok := v.Info[f.Source]
			val, valid := fieldValue(f, raw, ok, alt)
			if !valid {
				res.InvalidValues++
			}
			args = append(args, val)
		}
		if err := b.variants.writeRow(b.ctx, args...); err != nil {
			return res, fmt.Errorf("insert variant %s: %w", v.Key(alt), err)
		}
		res.Variants++

		if b.annotations != nil {
			for _, a := range v.AnnotationsFor(alt) {
				args := []any{id}
				for _, f := range sess.annFields {
					args = append(args, nullString(a.Values[f.Name]))
				}
				if err := b.annotations.writeRow(b.ctx, args...); err != nil {
					return res, fmt.Errorf("insert annotation of %s: %w", v.Key(alt), err)
				}
				res.Annotations++
			}
		}

		for i, g := range v.Genotypes {
			if i >= len(sess.sampleIDs) {
				break
			}
			if sess.spec.SkipHomRef && g.IsHomRef() {
				res.SkippedHomRef++
				continue
			}
			args := []any{id, sess.sampleIDs[i], int64(g.Code(alt)), g.Phased}
			for _, f := range sess.sampleFields {
				raw, ok := g.Fields[f.Source]
				val, valid := fieldValue(f, raw, ok, alt)
				if !valid {
					res.InvalidValues++
				}
				args = append(args, val)
			}
			if err := b.genotypes.writeRow(b.ctx, args...); err != nil {
				return res, fmt.Errorf("insert genotype of %s: %w", v.Key(alt), err)
			}
			res.Genotypes++
		}
	}
	b.records++
	return res, nil
}

// Len returns the number of records added to the batch.
func (b *Batch) Len() int {
	return b.records
}

// Commit commits the batch. On DuckDB the appenders are flushed first; a
// flush error rolls the batch back.
func (b *Batch) Commit() error {
	if b.done {
		return errors.New("batch already finished")
	}
	b.done = true
	err := b.closeWriters()
	if err == nil {
		err = b.commitTx()
	} else {
		b.rollbackTx()
	}
	if err != nil {
		b.sess.nextID = b.startID
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch. It is a no-op after Commit.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	b.closeWriters()
	b.sess.nextID = b.startID
	return b.rollbackTx()
}

// closeWriters closes the statements or flushes the appenders of the batch.
func (b *Batch) closeWriters() error {
	var first error
	for _, w := range []rowWriter{b.variants, b.annotations, b.genotypes} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.variants, b.annotations, b.genotypes = nil, nil, nil
	return first
}

func (b *Batch) commitTx() error {
	if b.tx != nil {
		return b.tx.Commit()
	}
	if b.conn == nil {
		return nil
	}
	defer b.release()
	if _, err := b.conn.ExecContext(b.ctx, "COMMIT"); err != nil {
		b.conn.ExecContext(b.ctx, "ROLLBACK")
		return err
	}
	return nil
}

func (b *Batch) rollbackTx() error {
	if b.tx != nil {
		return b.tx.Rollback()
	}
	if b.conn == nil {
		return nil
	}
	defer b.release()
	_, err := b.conn.ExecContext(b.ctx, "ROLLBACK")
	return err
}

func (b *Batch) release() {
	b.conn.Close()
	b.conn = nil
}

// Finish records the imported source and refreshes the built-in selection.
func (sess *ImportSession) Finish(ctx context.Context, records int) error {
	return sess.finalize(ctx, records, true)
}

// Abort refreshes the built-in selection after a failed import. The source is
// not recorded, so it can be imported again.
func (sess *ImportSession) Abort(ctx context.Context) error {
	return sess.finalize(ctx, 0, false)
}

func (sess *ImportSession) finalize(ctx context.Context, records int, complete bool) error {
	if sess.closed {
		return errors.New("import session closed")
	}
	tx, err := sess.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish: %w", err)
	}
	defer tx.Rollback()

	if complete {
		if sess.spec.Source != nil {
			if err := recordSource(ctx, tx, *sess.spec.Source, sess.spec.Dialect.String(), records); err != nil {
				return err
			}
		}
		if err := setMeta(ctx, tx, "dialect", sess.spec.Dialect.String()); err != nil {
			return err
		}
	}
	if err := refreshBuiltinSelection(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish: %w", err)
	}
	return nil
}

// Close releases the store's exclusive lock. It is safe to call twice.
func (sess *ImportSession) Close() error {
	if !sess.closed {
		sess.closed = true
		sess.s.mu.Unlock()
	}
	return nil
}

func refreshBuiltinSelection(ctx context.Context, q queryer) error {
	n, err := countRows(ctx, q, "variants")
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `UPDATE "selections" SET "count" = ? WHERE "name" = ?`, n, BuiltinSelection); err != nil {
		return fmt.Errorf("refresh %s selection: %w", BuiltinSelection, err)
	}
	return nil
}
