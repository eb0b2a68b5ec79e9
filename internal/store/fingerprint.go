package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileFingerprint holds stat-based identity for an imported file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file. The path is made
// absolute so the same file matches from any working directory.
func StatFile(path string) (FileFingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Source is an imported file as recorded in the project.
type Source struct {
	ID      int64
	Path    string
	Size    int64
	ModTime time.Time
	Dialect string
	Records int64
}

// Sources lists imported files in import order.
func (s *Store) Sources(ctx context.Context) ([]Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT "id", "path", "size", "modtime", "dialect", "records" FROM "sources" ORDER BY "id"`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		var mod int64
		if err := rows.Scan(&src.ID, &src.Path, &src.Size, &mod, &src.Dialect, &src.Records); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.ModTime = time.Unix(0, mod)
		out = append(out, src)
	}
	return out, rows.Err()
}

func sourceImported(ctx context.Context, q queryer, fp FileFingerprint) (bool, error) {
	var n int64
	err := q.QueryRowContext(ctx,
		`SELECT count(*) FROM "sources" WHERE "path" = ? AND "size" = ? AND "modtime" = ?`,
		fp.Path, fp.Size, fp.ModTime.UnixNano()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup source: %w", err)
	}
	return n > 0, nil
}

func recordSource(ctx context.Context, q queryer, fp FileFingerprint, dialect string, records int) error {
	id, err := nextID(ctx, q, "sources")
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO "sources" ("id", "path", "size", "modtime", "dialect", "records") VALUES (?, ?, ?, ?, ?, ?)`,
		id, fp.Path, fp.Size, fp.ModTime.UnixNano(), dialect, int64(records))
	if err != nil {
		return fmt.Errorf("record source: %w", err)
	}
	return nil
}
