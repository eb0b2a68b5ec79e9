package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Selection is a named set of variants rows.
type Selection struct {
	ID    int64
	Name  string
	Count int64
	Query string // filter text the selection was saved from
}

// Selections returns the built-in selection first, then saved selections in
// creation order.
func (s *Store) Selections(ctx context.Context) ([]Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT "id", "name", "count", "query" FROM "selections" ORDER BY "id"`)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	var out []Selection
	for rows.Next() {
		sel, err := scanSelection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name == BuiltinSelection && out[j].Name != BuiltinSelection
	})
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSelection(r scanner) (Selection, error) {
	var sel Selection
	var query sql.NullString
	if err := r.Scan(&sel.ID, &sel.Name, &sel.Count, &query); err != nil {
		return Selection{}, fmt.Errorf("scan selection: %w", err)
	}
	sel.Query = query.String
	return sel, nil
}

func findSelection(ctx context.Context, q queryer, name string) (Selection, error) {
	row := q.QueryRowContext(ctx, `SELECT "id", "name", "count", "query" FROM "selections" WHERE "name" = ?`, name)
	sel, err := scanSelection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Selection{}, fmt.Errorf("%w: %s", ErrSelectionNotFound, name)
		}
		return Selection{}, err
	}
	return sel, nil
}

// checkNewName validates the name of a selection being created or renamed.
func checkNewName(ctx context.Context, q queryer, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("selection name is empty")
	}
	if name == BuiltinSelection {
		return fmt.Errorf("%w: %s", ErrReservedSelection, name)
	}
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM "selections" WHERE "name" = ?`, name).Scan(&n); err != nil {
		return fmt.Errorf("lookup selection: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrSelectionExists, name)
	}
	return nil
}

// CreateSelection saves the given variants rows under name. Every id must
// exist.
func (s *Store) CreateSelection(ctx context.Context, name string, ids []int64) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Selection{}, fmt.Errorf("begin create selection: %w", err)
	}
	defer tx.Rollback()

	if err := checkNewName(ctx, tx, name); err != nil {
		return Selection{}, err
	}

	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	for _, id := range unique {
		var n int64
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM "variants" WHERE "id" = ?`, id).Scan(&n); err != nil {
			return Selection{}, fmt.Errorf("lookup variant %d: %w", id, err)
		}
		if n == 0 {
			return Selection{}, fmt.Errorf("%w: %d", ErrUnknownVariant, id)
		}
	}

	sel, err := insertSelection(ctx, tx, name, int64(len(unique)), "")
	if err != nil {
		return Selection{}, err
	}
	for _, id := range unique {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO "selection_has_variant" ("selection_id", "variant_id") VALUES (?, ?)`, sel.ID, id); err != nil {
			return Selection{}, fmt.Errorf("link variant %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Selection{}, fmt.Errorf("commit selection: %w", err)
	}
	return sel, nil
}

// CreateSelectionFromFilter saves the variants rows currently matching f.
func (s *Store) CreateSelectionFromFilter(ctx context.Context, name string, f Filter) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Selection{}, fmt.Errorf("begin create selection: %w", err)
	}
	defer tx.Rollback()

	if err := checkNewName(ctx, tx, name); err != nil {
		return Selection{}, err
	}
	where, args, err := s.whereClauseWith(ctx, tx, f)
	if err != nil {
		return Selection{}, err
	}

	sel, err := insertSelection(ctx, tx, name, 0, f.String())
	if err != nil {
		return Selection{}, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO "selection_has_variant" ("selection_id", "variant_id") SELECT CAST(? AS BIGINT), v."id" FROM "variants" v`+where,
		append([]any{sel.ID}, args...)...)
	if err != nil {
		return Selection{}, fmt.Errorf("fill selection: %w", err)
	}
	sel.Count, err = res.RowsAffected()
	if err != nil {
		return Selection{}, fmt.Errorf("fill selection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE "selections" SET "count" = ? WHERE "id" = ?`, sel.Count, sel.ID); err != nil {
		return Selection{}, fmt.Errorf("update selection count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Selection{}, fmt.Errorf("commit selection: %w", err)
	}
	return sel, nil
}

func insertSelection(ctx context.Context, tx *sql.Tx, name string, count int64, query string) (Selection, error) {
	id, err := nextID(ctx, tx, "selections")
	if err != nil {
		return Selection{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO "selections" ("id", "name", "count", "query") VALUES (?, ?, ?, ?)`,
		id, name, count, query); err != nil {
		return Selection{}, fmt.Errorf("insert selection %s: %w", name, err)
	}
	return Selection{ID: id, Name: name, Count: count, Query: query}, nil
}

// RenameSelection renames a saved selection.
func (s *Store) RenameSelection(ctx context.Context, oldName, newName string) error {
	if oldName == BuiltinSelection {
		return fmt.Errorf("%w: %s", ErrReservedSelection, oldName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename selection: %w", err)
	}
	defer tx.Rollback()

	sel, err := findSelection(ctx, tx, oldName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if err := checkNewName(ctx, tx, newName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE "selections" SET "name" = ? WHERE "id" = ?`, newName, sel.ID); err != nil {
		return fmt.Errorf("rename selection: %w", err)
	}
	return tx.Commit()
}

// DeleteSelection removes a saved selection and its links.
func (s *Store) DeleteSelection(ctx context.Context, name string) error {
	if name == BuiltinSelection {
		return fmt.Errorf("%w: %s", ErrReservedSelection, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete selection: %w", err)
	}
	defer tx.Rollback()

	sel, err := findSelection(ctx, tx, name)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM "selection_has_variant" WHERE "selection_id" = ?`, sel.ID); err != nil {
		return fmt.Errorf("delete selection links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM "selections" WHERE "id" = ?`, sel.ID); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	return tx.Commit()
}
