package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// appendWriter bulk-loads one DuckDB table. Appenders fill whole rows, so the
// values of an import are spread over the full table layout and columns added
// by other imports stay NULL.
type appendWriter struct {
	appender *goduckdb.Appender
	pos      []int
	row      []driver.Value
}

func newAppendWriter(conn *sql.Conn, table string, layout, cols []string) (rowWriter, error) {
	index := make(map[string]int, len(layout))
	for i, c := range layout {
		index[c] = i
	}
	w := &appendWriter{pos: make([]int, len(cols)), row: make([]driver.Value, len(layout))}
	for i, c := range cols {
		p, ok := index[c]
		if !ok {
			return nil, fmt.Errorf("table %s has no column %s", table, c)
		}
		w.pos[i] = p
	}

	if err := conn.Raw(func(driverConn any) error {
		var err error
		w.appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create %s appender: %w", table, err)
	}
	return w, nil
}

func (w *appendWriter) writeRow(_ context.Context, args ...any) error {
	clear(w.row)
	for i, v := range args {
		w.row[w.pos[i]] = v
	}
	return w.appender.AppendRow(w.row...)
}

// Close flushes the appended rows into the batch transaction.
func (w *appendWriter) Close() error {
	return w.appender.Close()
}

// tableColumns returns the column names of a DuckDB table in table order.
func tableColumns(ctx context.Context, q queryer, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT "column_name" FROM information_schema.columns WHERE "table_name" = ? ORDER BY "ordinal_position"`, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("columns of %s: %w", table, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}
