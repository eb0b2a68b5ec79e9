package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/varsift/internal/vcf"
)

// Filter restricts the variants rows a query returns. Zero values do not
// filter.
type Filter struct {
	Chrom     string
	Start     int64  // minimum position, inclusive
	End       int64  // maximum position, inclusive
	Gene      string // requires an annotation with this gene
	MinImpact string // requires an annotation at least this severe
	Sample    string // requires a call of this sample ...
	MinGT     int    // ... with a genotype code of at least MinGT
	Selection string // restricts to a saved selection
}

// IsZero reports whether f filters nothing.
func (f Filter) IsZero() bool {
	return f == Filter{} || f == Filter{Selection: BuiltinSelection}
}

// String renders the filter as the query text stored with a selection.
func (f Filter) String() string {
	var parts []string
	if f.Chrom != "" {
		parts = append(parts, "chr="+f.Chrom)
	}
	if f.Start > 0 {
		parts = append(parts, "pos>="+strconv.FormatInt(f.Start, 10))
	}
	if f.End > 0 {
		parts = append(parts, "pos<="+strconv.FormatInt(f.End, 10))
	}
	if f.Gene != "" {
		parts = append(parts, "gene="+f.Gene)
	}
	if f.MinImpact != "" {
		parts = append(parts, "impact>="+strings.ToUpper(f.MinImpact))
	}
	if f.Sample != "" {
		parts = append(parts, fmt.Sprintf("gt(%s)>=%d", f.Sample, f.MinGT))
	}
	if f.Selection != "" && f.Selection != BuiltinSelection {
		parts = append(parts, "selection="+f.Selection)
	}
	return strings.Join(parts, " ")
}

// Query selects variants columns.
type Query struct {
	Fields []string // variants fields; empty selects all of them
	Filter Filter
	Limit  int // 0 for no limit
	Offset int
}

// Result holds query output. Values are int64, float64, string, bool or nil.
type Result struct {
	Columns []string
	Rows    [][]any
}

// QueryVariants returns variants rows matching q, ordered by id.
func (s *Store) QueryVariants(ctx context.Context, q Query) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, err := loadFields(ctx, s.db, vcf.CategoryVariants)
	if err != nil {
		return nil, err
	}
	byName := fieldIndex(fields, vcf.CategoryVariants)

	columns := []string{"id"}
	types := []string{vcf.TypeInt}
	if len(q.Fields) == 0 {
		for _, f := range fields {
			columns = append(columns, f.Name)
			types = append(types, f.Type)
		}
	} else {
		for _, name := range q.Fields {
			if name == "id" {
				continue
			}
			f, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
			}
			columns = append(columns, f.Name)
			types = append(types, f.Type)
		}
	}

	where, args, err := s.whereClause(ctx, q.Filter)
	if err != nil {
		return nil, err
	}

	sel := make([]string, len(columns))
	for i, c := range columns {
		sel[i] = "v." + quoteIdent(c)
	}
	query := `SELECT ` + strings.Join(sel, ", ") + ` FROM "variants" v` + where + ` ORDER BY v."id"`
	switch {
	case q.Limit > 0:
		query += " LIMIT " + strconv.Itoa(q.Limit)
	case q.Offset > 0 && s.driver == DriverSQLite:
		// SQLite only accepts OFFSET after a LIMIT.
		query += " LIMIT -1"
	}
	if q.Offset > 0 {
		query += " OFFSET " + strconv.Itoa(q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	res := &Result{Columns: columns}
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		for i := range vals {
			vals[i] = normalize(vals[i], types[i])
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return res, nil
}

// CountVariants returns the number of variants rows matching f.
func (s *Store) CountVariants(ctx context.Context, f Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countVariants(ctx, s.db, f)
}

func (s *Store) countVariants(ctx context.Context, q queryer, f Filter) (int64, error) {
	where, args, err := s.whereClauseWith(ctx, q, f)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM "variants" v`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count variants: %w", err)
	}
	return n, nil
}

func (s *Store) whereClause(ctx context.Context, f Filter) (string, []any, error) {
	return s.whereClauseWith(ctx, s.db, f)
}

// whereClauseWith translates f into a WHERE clause over "variants" v.
func (s *Store) whereClauseWith(ctx context.Context, q queryer, f Filter) (string, []any, error) {
	var conds []string
	var args []any

	if f.Chrom != "" {
		// 12 and chr12 name the same chromosome.
		chrom := vcf.NormalizeChrom(f.Chrom)
		conds = append(conds, `v."chr" IN (?, ?)`)
		args = append(args, chrom, "chr"+chrom)
	}
	if f.Start > 0 {
		conds = append(conds, `v."pos" >= ?`)
		args = append(args, f.Start)
	}
	if f.End > 0 {
		conds = append(conds, `v."pos" <= ?`)
		args = append(args, f.End)
	}

	var impacts []string
	if f.MinImpact != "" {
		var err error
		if impacts, err = vcf.ImpactsAtLeast(f.MinImpact); err != nil {
			return "", nil, fmt.Errorf("impact filter: %w", err)
		}
	}

	if f.Gene != "" || f.MinImpact != "" {
		annFields, err := loadFields(ctx, q, vcf.CategoryAnnotations)
		if err != nil {
			return "", nil, err
		}
		ann := fieldIndex(annFields, vcf.CategoryAnnotations)
		if f.Gene != "" {
			if _, ok := ann["gene"]; !ok {
				return "", nil, fmt.Errorf("%w: gene", ErrUnknownField)
			}
			conds = append(conds, `v."id" IN (SELECT "variant_id" FROM "annotations" WHERE "gene" = ?)`)
			args = append(args, f.Gene)
		}
		if f.MinImpact != "" {
			if _, ok := ann["impact"]; !ok {
				return "", nil, fmt.Errorf("%w: impact", ErrUnknownField)
			}
			conds = append(conds, `v."id" IN (SELECT "variant_id" FROM "annotations" WHERE "impact" IN (`+placeholders(len(impacts))+`))`)
			for _, imp := range impacts {
				args = append(args, imp)
			}
		}
	}

	if f.Sample != "" {
		ids, err := sampleIDs(ctx, q)
		if err != nil {
			return "", nil, err
		}
		id, ok := ids[f.Sample]
		if !ok {
			return "", nil, &LookupError{Sample: f.Sample, Name: f.Sample, Role: RoleSample}
		}
		conds = append(conds, `v."id" IN (SELECT "variant_id" FROM "genotypes" WHERE "sample_id" = ? AND "gt" >= ?)`)
		args = append(args, id, int64(f.MinGT))
	}

	if f.Selection != "" && f.Selection != BuiltinSelection {
		sel, err := findSelection(ctx, q, f.Selection)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, `v."id" IN (SELECT "variant_id" FROM "selection_has_variant" WHERE "selection_id" = ?)`)
		args = append(args, sel.ID)
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
