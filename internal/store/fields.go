package store

import (
	"context"
	"fmt"

	"github.com/inodb/varsift/internal/vcf"
)

// Field is a column descriptor of the project.
type Field struct {
	ID          int64
	Name        string
	Category    string // variants, annotations or samples
	Type        string
	Description string
}

// Categories lists field categories in display order.
var Categories = []string{vcf.CategoryVariants, vcf.CategoryAnnotations, vcf.CategorySamples}

// FieldGroup holds the fields of one category.
type FieldGroup struct {
	Category string
	Fields   []Field
}

// Fields returns every field in declaration order.
func (s *Store) Fields(ctx context.Context) ([]Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadFields(ctx, s.db, "")
}

// FieldsByCategory returns the fields of one category.
func (s *Store) FieldsByCategory(ctx context.Context, category string) ([]Field, error) {
	if !validCategory(category) {
		return nil, fmt.Errorf("unknown field category %q", category)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadFields(ctx, s.db, category)
}

// FieldsGrouped returns the fields grouped by category, every category
// present even when empty.
func (s *Store) FieldsGrouped(ctx context.Context) ([]FieldGroup, error) {
	fields, err := s.Fields(ctx)
	if err != nil {
		return nil, err
	}
	groups := make([]FieldGroup, len(Categories))
	for i, c := range Categories {
		groups[i].Category = c
	}
	for _, f := range fields {
		for i := range groups {
			if groups[i].Category == f.Category {
				groups[i].Fields = append(groups[i].Fields, f)
			}
		}
	}
	return groups, nil
}

func validCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func loadFields(ctx context.Context, q queryer, category string) ([]Field, error) {
	query := `SELECT "id", "name", "category", "type", "description" FROM "fields"`
	var args []any
	if category != "" {
		query += ` WHERE "category" = ?`
		args = append(args, category)
	}
	query += ` ORDER BY "id"`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.Type, &f.Description); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}
	return fields, nil
}

// fieldIndex maps field names of one category to their descriptors.
func fieldIndex(fields []Field, category string) map[string]Field {
	m := make(map[string]Field)
	for _, f := range fields {
		if f.Category == category {
			m[f.Name] = f
		}
	}
	return m
}
