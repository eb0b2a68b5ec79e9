package store

import (
	"context"
	"fmt"

	"github.com/inodb/varsift/internal/pedigree"
)

// PedigreeUpdate is the outcome of UpdatePedigree.
type PedigreeUpdate struct {
	Updated int
	Errors  []*LookupError
}

// UpdatePedigree attaches family, parents, sex and phenotype to the samples
// named by rows, in one transaction. Rows naming an unknown sample are
// reported and leave the store untouched; an unknown parent is reported and
// stored as NULL.
func (s *Store) UpdatePedigree(ctx context.Context, rows []pedigree.Row) (PedigreeUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res PedigreeUpdate
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin pedigree update: %w", err)
	}
	defer tx.Rollback()

	ids, err := sampleIDs(ctx, tx)
	if err != nil {
		return res, err
	}

	parentID := func(row pedigree.Row, name, role string) any {
		if name == "" {
			return nil
		}
		id, ok := ids[name]
		if !ok {
			res.Errors = append(res.Errors, &LookupError{Line: row.Line, Sample: row.Sample, Name: name, Role: role})
			return nil
		}
		return id
	}

	for _, row := range rows {
		id, ok := ids[row.Sample]
		if !ok {
			res.Errors = append(res.Errors, &LookupError{Line: row.Line, Sample: row.Sample, Name: row.Sample, Role: RoleSample})
			continue
		}
		father := parentID(row, row.Father, RoleFather)
		mother := parentID(row, row.Mother, RoleMother)
		if _, err := tx.ExecContext(ctx,
			`UPDATE "samples" SET "fam" = ?, "father_id" = ?, "mother_id" = ?, "sex" = ?, "phenotype" = ? WHERE "id" = ?`,
			row.Family, father, mother, int64(row.Sex), int64(row.Phenotype), id); err != nil {
			return PedigreeUpdate{}, fmt.Errorf("update sample %s: %w", row.Sample, err)
		}
		res.Updated++
	}

	if err := tx.Commit(); err != nil {
		return PedigreeUpdate{}, fmt.Errorf("commit pedigree update: %w", err)
	}
	return res, nil
}
