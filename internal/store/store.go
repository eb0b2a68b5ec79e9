// Package store persists imported variants in a single-file relational
// project (DuckDB by default, SQLite optionally) and serves read-only queries
// over it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/inodb/varsift/internal/vcf"
)

// Supported engines.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite3"
)

// SchemaVersion is written to the metadata table of every project.
const SchemaVersion = "1"

// BuiltinSelection is the reserved selection holding every variant.
const BuiltinSelection = "variants"

// Options configures Open.
type Options struct {
	Driver string // duckdb (default) or sqlite3
	Path   string // project file; "" (duckdb) or ":memory:" (sqlite3) for in-memory
}

// Store is a variant project. Imports and selection edits take the exclusive
// lock; queries share it.
type Store struct {
	db     *sql.DB
	driver string
	path   string
	mu     sync.RWMutex
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Core tables. Per-field columns of variants, annotations and genotypes are
// added by imports. There are no foreign keys: the write path resolves
// variant and sample ids itself.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS "metadata" ("key" VARCHAR, "value" VARCHAR)`,
	`CREATE TABLE IF NOT EXISTS "fields" ("id" BIGINT, "name" VARCHAR, "category" VARCHAR, "type" VARCHAR, "description" VARCHAR)`,
	`CREATE TABLE IF NOT EXISTS "variants" ("id" BIGINT, "chr" VARCHAR, "pos" BIGINT, "ref" VARCHAR, "alt" VARCHAR, "rsid" VARCHAR, "qual" DOUBLE, "filter" VARCHAR)`,
	`CREATE TABLE IF NOT EXISTS "annotations" ("variant_id" BIGINT)`,
	`CREATE TABLE IF NOT EXISTS "samples" ("id" BIGINT, "name" VARCHAR, "fam" VARCHAR, "father_id" BIGINT, "mother_id" BIGINT, "sex" BIGINT, "phenotype" BIGINT)`,
	`CREATE TABLE IF NOT EXISTS "genotypes" ("variant_id" BIGINT, "sample_id" BIGINT, "gt" BIGINT, "phased" BOOLEAN)`,
	`CREATE TABLE IF NOT EXISTS "selections" ("id" BIGINT, "name" VARCHAR, "count" BIGINT, "query" VARCHAR)`,
	`CREATE TABLE IF NOT EXISTS "selection_has_variant" ("selection_id" BIGINT, "variant_id" BIGINT)`,
	`CREATE TABLE IF NOT EXISTS "sources" ("id" BIGINT, "path" VARCHAR, "size" BIGINT, "modtime" BIGINT, "dialect" VARCHAR, "records" BIGINT)`,
}

// Open opens or creates a project.
func Open(ctx context.Context, opts Options) (*Store, error) {
	driver := opts.Driver
	switch driver {
	case "", DriverDuckDB:
		driver = DriverDuckDB
	case DriverSQLite, "sqlite":
		driver = DriverSQLite
	default:
		return nil, fmt.Errorf("unknown store driver %q (expected duckdb or sqlite3)", opts.Driver)
	}

	path := opts.Path
	if driver == DriverSQLite && path == "" {
		path = ":memory:"
	}
	if path != "" && path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create project directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// An in-memory SQLite database lives in a single connection.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver, path: path}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the engine name.
func (s *Store) Driver() string {
	return s.driver
}

// Path returns the project file path, "" or ":memory:" when in memory.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates the core tables of a new project, or checks that an
// existing database is a project of the supported version.
func (s *Store) ensureSchema(ctx context.Context) error {
	hasMeta, err := s.tableExists(ctx, s.db, "metadata")
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if hasMeta {
		version, err := getMeta(ctx, s.db, "schema_version")
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version != SchemaVersion {
			return &SchemaError{Reason: fmt.Sprintf("schema version %q, expected %q", version, SchemaVersion)}
		}
		return nil
	}

	hasVariants, err := s.tableExists(ctx, s.db, "variants")
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if hasVariants {
		return &SchemaError{Reason: "database has a variants table but no project metadata"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if err := setMeta(ctx, tx, "schema_version", SchemaVersion); err != nil {
		return err
	}

	var core []vcf.Field
	core = append(core, vcf.VariantCoreFields...)
	core = append(core, vcf.SampleCoreFields...)
	for i, f := range core {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO "fields" ("id", "name", "category", "type", "description") VALUES (?, ?, ?, ?, ?)`,
			int64(i+1), f.Name, f.Category, f.Type, f.Description); err != nil {
			return fmt.Errorf("insert core field %s: %w", f.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO "selections" ("id", "name", "count", "query") VALUES (?, ?, ?, ?)`,
		int64(1), BuiltinSelection, int64(0), ""); err != nil {
		return fmt.Errorf("insert built-in selection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Meta returns a metadata value, "" when unset.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMeta(ctx, s.db, key)
}

func getMeta(ctx context.Context, q queryer, key string) (string, error) {
	var value sql.NullString
	err := q.QueryRowContext(ctx, `SELECT "value" FROM "metadata" WHERE "key" = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

func setMeta(ctx context.Context, q queryer, key, value string) error {
	res, err := q.ExecContext(ctx, `UPDATE "metadata" SET "value" = ? WHERE "key" = ?`, value, key)
	if err != nil {
		return fmt.Errorf("update metadata %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO "metadata" ("key", "value") VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("insert metadata %s: %w", key, err)
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context, q queryer, name string) (bool, error) {
	query := `SELECT count(*) FROM information_schema.tables WHERE table_name = ?`
	if s.driver == DriverSQLite {
		query = `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	var n int64
	if err := q.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// nextID returns the id following the largest id of table.
func nextID(ctx context.Context, q queryer, table string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX("id"), 0) + 1 FROM `+quoteIdent(table)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", table, err)
	}
	return id, nil
}

func countRows(ctx context.Context, q queryer, table string) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT count(*) FROM `+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// quoteIdent quotes a table or column name.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlType maps a field type to a column type understood by both engines.
func sqlType(fieldType string) string {
	switch fieldType {
	case vcf.TypeInt:
		return "BIGINT"
	case vcf.TypeFloat:
		return "DOUBLE"
	case vcf.TypeBool:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
