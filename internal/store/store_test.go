package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/varsift/internal/pedigree"
	"github.com/inodb/varsift/internal/vcf"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachDriver runs fn against a fresh in-memory store of every engine.
func forEachDriver(t *testing.T, fn func(t *testing.T, s *Store)) {
	for _, driver := range []string{DriverDuckDB, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			s, err := Open(context.Background(), Options{Driver: driver})
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

func testFile(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

// importFile loads a whole VCF in a single batch.
func importFile(t *testing.T, s *Store, name string, spec ImportSpec) int {
	t.Helper()
	ctx := context.Background()

	p, err := vcf.NewParser(testFile(name), "")
	require.NoError(t, err)
	defer p.Close()

	spec.Fields = p.Fields()
	spec.Samples = p.SampleNames()
	spec.Dialect = p.Dialect()

	sess, err := s.BeginImport(ctx, spec)
	require.NoError(t, err)
	defer sess.Close()

	b, err := sess.BeginBatch(ctx)
	require.NoError(t, err)
	n := 0
	for {
		v, err := p.Next()
		require.NoError(t, err)
		if v == nil {
			break
		}
		_, err = b.Add(v)
		require.NoError(t, err)
		n++
	}
	require.NoError(t, b.Commit())
	require.NoError(t, sess.Finish(ctx, n))
	return n
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestOpenClose(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		assert.NotNil(t, s.DB())

		version, err := s.Meta(context.Background(), "schema_version")
		require.NoError(t, err)
		assert.Equal(t, SchemaVersion, version)

		sels, err := s.Selections(context.Background())
		require.NoError(t, err)
		require.Len(t, sels, 1)
		assert.Equal(t, BuiltinSelection, sels[0].Name)
		assert.Zero(t, sels[0].Count)
	})
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "postgres"})
	assert.Error(t, err)
}

func TestOpen_ReopenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "project.db")

	s, err := Open(ctx, Options{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)
	importFile(t, s, "minimal.vcf", ImportSpec{})
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountVariants(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestOpen_SchemaVersionMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "project.db")

	s, err := Open(ctx, Options{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)
	_, err = s.DB().Exec(`UPDATE "metadata" SET "value" = '0' WHERE "key" = 'schema_version'`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: DriverSQLite, Path: path})
	var se *SchemaError
	assert.True(t, errors.As(err, &se), "expected SchemaError, got %v", err)
}

func TestOpen_ForeignDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open(DriverSQLite, path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE variants (chrom TEXT, pos INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(context.Background(), Options{Driver: DriverSQLite, Path: path})
	var se *SchemaError
	assert.True(t, errors.As(err, &se), "expected SchemaError, got %v", err)
}

func TestImport_Minimal(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		importFile(t, s, "minimal.vcf", ImportSpec{})

		sum, err := s.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), sum.Variants)
		assert.Equal(t, int64(1), sum.Samples)
		assert.Equal(t, int64(3), sum.Genotypes)
		assert.Zero(t, sum.Annotations)
		assert.Zero(t, sum.Selections)

		fields, err := s.FieldsByCategory(ctx, vcf.CategoryVariants)
		require.NoError(t, err)
		assert.Equal(t, []string{"chr", "pos", "ref", "alt", "rsid", "qual", "filter", "dp"}, fieldNames(fields))

		fields, err = s.FieldsByCategory(ctx, vcf.CategorySamples)
		require.NoError(t, err)
		assert.Equal(t, []string{"gt", "phased", "dp"}, fieldNames(fields))

		res, err := s.QueryVariants(ctx, Query{Fields: []string{"chr", "pos", "qual", "filter", "dp"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "chr", "pos", "qual", "filter", "dp"}, res.Columns)
		require.Len(t, res.Rows, 3)
		assert.Equal(t, []any{int64(1), "1", int64(100), 50.0, "PASS", int64(10)}, res.Rows[0])
		assert.Equal(t, []any{int64(2), "1", int64(200), nil, nil, int64(20)}, res.Rows[1])
		assert.Equal(t, "q10;PASS", res.Rows[2][4])

		sels, err := s.Selections(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), sels[0].Count)
	})
}

func TestImport_MultiAllelicRows(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		importFile(t, s, "test.vcf", ImportSpec{})

		res, err := s.QueryVariants(ctx, Query{Fields: []string{"chr", "alt", "af", "db"}})
		require.NoError(t, err)
		require.Len(t, res.Rows, 5)
		assert.Equal(t, []any{int64(1), "11", "T", 0.5, true}, res.Rows[0])
		assert.Equal(t, []any{int64(2), "12", "A", 0.25, false}, res.Rows[1])
		assert.Equal(t, []any{int64(3), "13", "C", 0.3, false}, res.Rows[2])
		assert.Equal(t, []any{int64(4), "13", "T", 0.2, false}, res.Rows[3])

		var gt int64
		require.NoError(t, s.DB().QueryRow(
			`SELECT "gt" FROM "genotypes" WHERE "variant_id" = 5 AND "sample_id" = 2`).Scan(&gt))
		assert.Equal(t, int64(vcf.GenotypeMissing), gt)

		samples, err := s.Samples(ctx)
		require.NoError(t, err)
		require.Len(t, samples, 2)
		assert.Equal(t, "sacha", samples[0].Name)
		assert.Equal(t, "boby", samples[1].Name)
	})
}

func TestImport_SkipHomRef(t *testing.T) {
	s := openInMemory(t)
	importFile(t, s, "minimal.vcf", ImportSpec{SkipHomRef: true})

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Variants)
	assert.Equal(t, int64(2), sum.Genotypes)
}

func TestImport_AppendReusesSamples(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	importFile(t, s, "test.snpeff.vcf", ImportSpec{})
	importFile(t, s, "test.vep.vcf", ImportSpec{})

	samples, err := s.Samples(ctx)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "TUMOR", samples[0].Name)
	assert.Equal(t, "NORMAL", samples[1].Name)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4+3), sum.Variants)

	dialect, err := s.Meta(ctx, "dialect")
	require.NoError(t, err)
	assert.Equal(t, "vep", dialect)
}

func TestImport_SchemaConflict(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	importFile(t, s, "minimal.vcf", ImportSpec{})

	_, err := s.BeginImport(ctx, ImportSpec{
		Fields: []vcf.Field{{Name: "dp", Category: vcf.CategoryVariants, Type: vcf.TypeStr, Source: "DP"}},
	})
	var se *SchemaError
	require.True(t, errors.As(err, &se), "expected SchemaError, got %v", err)
	assert.Contains(t, se.Error(), `"dp"`)

	// The lock was released.
	_, err = s.Fields(ctx)
	assert.NoError(t, err)
}

func TestImport_AlreadyImported(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	fp, err := StatFile(testFile("minimal.vcf"))
	require.NoError(t, err)
	importFile(t, s, "minimal.vcf", ImportSpec{Source: &fp})

	_, err = s.BeginImport(ctx, ImportSpec{Source: &fp})
	assert.True(t, errors.Is(err, ErrAlreadyImported))

	importFile(t, s, "minimal.vcf", ImportSpec{Source: &fp, Force: true})

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, fp.Path, sources[0].Path)
	assert.Equal(t, int64(3), sources[0].Records)
	assert.Equal(t, "plain", sources[0].Dialect)
	assert.True(t, fp.ModTime.Equal(sources[0].ModTime))
}

func TestBatch_RollbackReusesIDs(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		p, err := vcf.NewParser(testFile("minimal.vcf"), "")
		require.NoError(t, err)
		defer p.Close()

		sess, err := s.BeginImport(ctx, ImportSpec{Fields: p.Fields(), Samples: p.SampleNames()})
		require.NoError(t, err)
		defer sess.Close()
		assert.Equal(t, []int64{1}, sess.SampleIDs())

		v1, _ := p.Next()
		v2, _ := p.Next()

		b, err := sess.BeginBatch(ctx)
		require.NoError(t, err)
		res, err := b.Add(v1)
		require.NoError(t, err)
		assert.Equal(t, AddResult{Variants: 1, Genotypes: 1}, res)
		require.NoError(t, b.Rollback())
		assert.NoError(t, b.Rollback())

		b, err = sess.BeginBatch(ctx)
		require.NoError(t, err)
		_, err = b.Add(v2)
		require.NoError(t, err)
		assert.Equal(t, 1, b.Len())
		require.NoError(t, b.Commit())
		assert.Error(t, b.Commit())
		require.NoError(t, sess.Abort(ctx))
		require.NoError(t, sess.Close())

		res2, err := s.QueryVariants(ctx, Query{Fields: []string{"pos"}})
		require.NoError(t, err)
		assert.Equal(t, [][]any{{int64(1), int64(200)}}, res2.Rows)

		sels, err := s.Selections(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), sels[0].Count)

		sources, err := s.Sources(ctx)
		require.NoError(t, err)
		assert.Empty(t, sources)
	})
}

func TestBatch_InvalidValuesStoredAsNull(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	fields := []vcf.Field{{Name: "dp", Category: vcf.CategoryVariants, Type: vcf.TypeInt, Number: "1", Source: "DP"}}

	sess, err := s.BeginImport(ctx, ImportSpec{Fields: fields})
	require.NoError(t, err)
	defer sess.Close()

	b, err := sess.BeginBatch(ctx)
	require.NoError(t, err)
	res, err := b.Add(&vcf.Variant{Chrom: "1", Pos: 10, Ref: "A", Alts: []string{"C"}, Info: map[string]string{"DP": "high"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.InvalidValues)
	require.NoError(t, b.Commit())
	require.NoError(t, sess.Close())

	out, err := s.QueryVariants(ctx, Query{Fields: []string{"dp"}})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), nil}}, out.Rows)
}

func TestQueryVariants_Filters(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		importFile(t, s, "test.snpeff.vcf", ImportSpec{})

		tests := []struct {
			name   string
			filter Filter
			want   int64
		}{
			{"none", Filter{}, 4},
			{"chrom", Filter{Chrom: "17"}, 2},
			{"chrom with prefix", Filter{Chrom: "chr17"}, 2},
			{"range", Filter{Start: 25245350, End: 140753336}, 2},
			{"gene", Filter{Gene: "KRAS"}, 1},
			{"high impact", Filter{MinImpact: "HIGH"}, 1},
			{"moderate impact", Filter{MinImpact: "moderate"}, 3},
			{"tumor carrier", Filter{Sample: "TUMOR", MinGT: 1}, 4},
			{"normal carrier", Filter{Sample: "NORMAL", MinGT: 1}, 0},
			{"normal called", Filter{Sample: "NORMAL"}, 4},
			{"combined", Filter{Gene: "TP53", Sample: "TUMOR", MinGT: 1, MinImpact: "LOW"}, 2},
			{"builtin selection", Filter{Selection: BuiltinSelection}, 4},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				n, err := s.CountVariants(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			})
		}

		sum, err := s.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), sum.Annotations)
	})
}

func TestQueryVariants_Errors(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	importFile(t, s, "minimal.vcf", ImportSpec{})

	_, err := s.QueryVariants(ctx, Query{Fields: []string{"nope"}})
	assert.True(t, errors.Is(err, ErrUnknownField))

	_, err = s.CountVariants(ctx, Filter{Gene: "KRAS"})
	assert.True(t, errors.Is(err, ErrUnknownField), "plain projects have no gene column")

	_, err = s.CountVariants(ctx, Filter{MinImpact: "SEVERE"})
	assert.ErrorContains(t, err, `unknown impact "SEVERE"`)

	_, err = s.CountVariants(ctx, Filter{Sample: "nobody"})
	var le *LookupError
	assert.True(t, errors.As(err, &le))

	_, err = s.CountVariants(ctx, Filter{Selection: "missing"})
	assert.True(t, errors.Is(err, ErrSelectionNotFound))
}

func TestQueryVariants_Paging(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		importFile(t, s, "minimal.vcf", ImportSpec{})

		res, err := s.QueryVariants(ctx, Query{Fields: []string{"pos"}, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, [][]any{{int64(2), int64(200)}}, res.Rows)

		res, err = s.QueryVariants(ctx, Query{Fields: []string{"pos"}, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, [][]any{{int64(3), int64(300)}}, res.Rows)

		res, err = s.QueryVariants(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "chr", "pos", "ref", "alt", "rsid", "qual", "filter", "dp"}, res.Columns)
	})
}

func TestSelections(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		importFile(t, s, "test.snpeff.vcf", ImportSpec{})

		sel, err := s.CreateSelection(ctx, "picked", []int64{2, 1, 2})
		require.NoError(t, err)
		assert.Equal(t, int64(2), sel.Count)

		_, err = s.CreateSelection(ctx, "picked", []int64{1})
		assert.True(t, errors.Is(err, ErrSelectionExists))
		_, err = s.CreateSelection(ctx, BuiltinSelection, []int64{1})
		assert.True(t, errors.Is(err, ErrReservedSelection))
		_, err = s.CreateSelection(ctx, "ghost", []int64{1, 99})
		assert.True(t, errors.Is(err, ErrUnknownVariant))
		_, err = s.CreateSelection(ctx, " ", nil)
		assert.Error(t, err)

		high, err := s.CreateSelectionFromFilter(ctx, "high", Filter{MinImpact: "HIGH"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), high.Count)
		assert.Equal(t, "impact>=HIGH", high.Query)

		n, err := s.CountVariants(ctx, Filter{Selection: "picked", Chrom: "12"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, s.RenameSelection(ctx, "picked", "kept"))
		assert.True(t, errors.Is(s.RenameSelection(ctx, "picked", "x"), ErrSelectionNotFound))
		assert.True(t, errors.Is(s.RenameSelection(ctx, "kept", "high"), ErrSelectionExists))
		assert.True(t, errors.Is(s.RenameSelection(ctx, BuiltinSelection, "all"), ErrReservedSelection))
		assert.True(t, errors.Is(s.RenameSelection(ctx, "kept", BuiltinSelection), ErrReservedSelection))

		sels, err := s.Selections(ctx)
		require.NoError(t, err)
		require.Len(t, sels, 3)
		assert.Equal(t, BuiltinSelection, sels[0].Name)
		assert.Equal(t, int64(4), sels[0].Count)
		assert.Equal(t, "kept", sels[1].Name)
		assert.Equal(t, "high", sels[2].Name)

		require.NoError(t, s.DeleteSelection(ctx, "kept"))
		assert.True(t, errors.Is(s.DeleteSelection(ctx, "kept"), ErrSelectionNotFound))
		assert.True(t, errors.Is(s.DeleteSelection(ctx, BuiltinSelection), ErrReservedSelection))

		var links int64
		require.NoError(t, s.DB().QueryRow(`SELECT count(*) FROM "selection_has_variant"`).Scan(&links))
		assert.Equal(t, int64(1), links)

		sum, err := s.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), sum.Selections)
	})
}

func TestUpdatePedigree(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		importFile(t, s, "test.snpeff.vcf", ImportSpec{})

		res, err := s.UpdatePedigree(ctx, []pedigree.Row{
			{Family: "fam1", Sample: "TUMOR", Father: "DAD", Mother: "NORMAL", Sex: pedigree.SexFemale, Phenotype: pedigree.PhenotypeAffected, Line: 2},
			{Family: "fam1", Sample: "NORMAL", Sex: pedigree.SexFemale, Phenotype: pedigree.PhenotypeUnaffected, Line: 3},
			{Family: "fam2", Sample: "GHOST", Sex: pedigree.SexMale, Line: 4},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Updated)
		require.Len(t, res.Errors, 2)
		assert.Equal(t, &LookupError{Line: 2, Sample: "TUMOR", Name: "DAD", Role: RoleFather}, res.Errors[0])
		assert.Equal(t, &LookupError{Line: 4, Sample: "GHOST", Name: "GHOST", Role: RoleSample}, res.Errors[1])
		assert.Equal(t, `line 4: sample "GHOST" not found`, res.Errors[1].Error())
		assert.Equal(t, `line 2: father "DAD" of sample "TUMOR" not found`, res.Errors[0].Error())

		tumor, err := s.Sample(ctx, "TUMOR")
		require.NoError(t, err)
		assert.Equal(t, Sample{ID: 1, Name: "TUMOR", Family: "fam1", Mother: "NORMAL", Sex: 2, Phenotype: 2}, tumor)

		_, err = s.Sample(ctx, "GHOST")
		var le *LookupError
		assert.True(t, errors.As(err, &le))

		sum, err := s.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), sum.Samples)
	})
}

func TestFieldsGrouped(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	groups, err := s.FieldsGrouped(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].Fields, len(vcf.VariantCoreFields))
	assert.Empty(t, groups[1].Fields)

	importFile(t, s, "test.vep.vcf", ImportSpec{})
	groups, err = s.FieldsGrouped(ctx)
	require.NoError(t, err)
	assert.Equal(t, vcf.CategoryAnnotations, groups[1].Category)
	assert.Contains(t, fieldNames(groups[1].Fields), "canonical")

	_, err = s.FieldsByCategory(ctx, "bogus")
	assert.Error(t, err)
}

func TestConcurrentReaders(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	importFile(t, s, "test.snpeff.vcf", ImportSpec{})

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Fields(ctx); err != nil {
				errs <- err
			}
			if _, err := s.Samples(ctx); err != nil {
				errs <- err
			}
			if _, err := s.Selections(ctx); err != nil {
				errs <- err
			}
			if _, err := s.Summary(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestBatch_ColumnsOfEarlierImportsStayNull(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		load := func(fields []vcf.Field, samples []string, v *vcf.Variant) {
			sess, err := s.BeginImport(ctx, ImportSpec{Fields: fields, Samples: samples})
			require.NoError(t, err)
			defer sess.Close()
			b, err := sess.BeginBatch(ctx)
			require.NoError(t, err)
			_, err = b.Add(v)
			require.NoError(t, err)
			require.NoError(t, b.Commit())
			require.NoError(t, sess.Finish(ctx, 1))
		}

		dp := vcf.Field{Name: "dp", Category: vcf.CategoryVariants, Type: vcf.TypeInt, Number: "1", Source: "DP"}
		af := vcf.Field{Name: "af", Category: vcf.CategoryVariants, Type: vcf.TypeFloat, Number: "A", Source: "AF"}
		gene := vcf.Field{Name: "gene", Category: vcf.CategoryAnnotations, Type: vcf.TypeStr}
		gq := vcf.Field{Name: "gq", Category: vcf.CategorySamples, Type: vcf.TypeInt, Number: "1", Source: "GQ"}

		load([]vcf.Field{dp, gene, gq}, []string{"S1"}, &vcf.Variant{
			Chrom: "1", Pos: 10, Ref: "A", Alts: []string{"C"},
			Info:        map[string]string{"DP": "30"},
			Annotations: []vcf.Annotation{{Values: map[string]string{"gene": "KRAS"}}},
			Genotypes:   []vcf.Genotype{{Alleles: []int{0, 1}, Fields: map[string]string{"GQ": "99"}}},
		})
		load([]vcf.Field{af}, []string{"S1"}, &vcf.Variant{
			Chrom: "2", Pos: 20, Ref: "G", Alts: []string{"T"},
			Info:      map[string]string{"AF": "0.5"},
			Genotypes: []vcf.Genotype{{Alleles: []int{1, 1}}},
		})

		res, err := s.QueryVariants(ctx, Query{Fields: []string{"chr", "dp", "af"}})
		require.NoError(t, err)
		assert.Equal(t, [][]any{
			{int64(1), "1", int64(30), nil},
			{int64(2), "2", nil, 0.5},
		}, res.Rows)

		rows, err := s.DB().QueryContext(ctx, `SELECT "variant_id", "gt", "gq" FROM "genotypes" ORDER BY "variant_id"`)
		require.NoError(t, err)
		defer rows.Close()
		var got [][]any
		for rows.Next() {
			var id, gt int64
			var gqv sql.NullInt64
			require.NoError(t, rows.Scan(&id, &gt, &gqv))
			got = append(got, []any{id, gt, gqv})
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, [][]any{
			{int64(1), int64(1), sql.NullInt64{Int64: 99, Valid: true}},
			{int64(2), int64(2), sql.NullInt64{}},
		}, got)
	})
}

func TestCountVariants_ChromPrefix(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		sess, err := s.BeginImport(ctx, ImportSpec{})
		require.NoError(t, err)
		b, err := sess.BeginBatch(ctx)
		require.NoError(t, err)
		for _, chrom := range []string{"chr12", "12", "chr1"} {
			_, err = b.Add(&vcf.Variant{Chrom: chrom, Pos: 100, Ref: "G", Alts: []string{"T"}})
			require.NoError(t, err)
		}
		require.NoError(t, b.Commit())
		require.NoError(t, sess.Finish(ctx, 3))
		require.NoError(t, sess.Close())

		for _, chrom := range []string{"12", "chr12"} {
			n, err := s.CountVariants(ctx, Filter{Chrom: chrom})
			require.NoError(t, err)
			assert.Equal(t, int64(2), n, chrom)
		}
	})
}
