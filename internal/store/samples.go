package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Sample is a sample of the project with its pedigree attributes.
type Sample struct {
	ID        int64
	Name      string
	Family    string
	Father    string // name, "" when unknown
	Mother    string // name, "" when unknown
	Sex       int
	Phenotype int
}

// Samples returns every sample in import order.
func (s *Store) Samples(ctx context.Context) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadSamples(ctx, s.db)
}

// Sample returns the named sample.
func (s *Store) Sample(ctx context.Context, name string) (Sample, error) {
	samples, err := s.Samples(ctx)
	if err != nil {
		return Sample{}, err
	}
	for _, smp := range samples {
		if smp.Name == name {
			return smp, nil
		}
	}
	return Sample{}, &LookupError{Sample: name, Name: name, Role: RoleSample}
}

func loadSamples(ctx context.Context, q queryer) ([]Sample, error) {
	rows, err := q.QueryContext(ctx, `SELECT s."id", s."name", s."fam", f."name", m."name", s."sex", s."phenotype"
		FROM "samples" s
		LEFT JOIN "samples" f ON f."id" = s."father_id"
		LEFT JOIN "samples" m ON m."id" = s."mother_id"
		ORDER BY s."id"`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var smp Sample
		var fam, father, mother sql.NullString
		var sex, pheno sql.NullInt64
		if err := rows.Scan(&smp.ID, &smp.Name, &fam, &father, &mother, &sex, &pheno); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.Family = fam.String
		smp.Father = father.String
		smp.Mother = mother.String
		smp.Sex = int(sex.Int64)
		smp.Phenotype = int(pheno.Int64)
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// sampleIDs maps sample names to ids.
func sampleIDs(ctx context.Context, q queryer) (map[string]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT "id", "name" FROM "samples"`)
	if err != nil {
		return nil, fmt.Errorf("query sample ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan sample id: %w", err)
		}
		ids[name] = id
	}
	return ids, rows.Err()
}
