package store

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Summary holds table sizes of a project.
type Summary struct {
	Variants    int64
	Annotations int64
	Samples     int64
	Genotypes   int64
	Fields      int64
	Selections  int64 // saved selections, the built-in one excluded
	Sources     int64
}

// Summary counts the rows of every table concurrently.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	var builtinAndSaved int64
	targets := []struct {
		table string
		dst   *int64
	}{
		{"variants", &sum.Variants},
		{"annotations", &sum.Annotations},
		{"samples", &sum.Samples},
		{"genotypes", &sum.Genotypes},
		{"fields", &sum.Fields},
		{"selections", &builtinAndSaved},
		{"sources", &sum.Sources},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			n, err := countRows(ctx, s.db, t.table)
			if err != nil {
				return err
			}
			*t.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if builtinAndSaved > 0 {
		sum.Selections = builtinAndSaved - 1
	}
	return sum, nil
}
