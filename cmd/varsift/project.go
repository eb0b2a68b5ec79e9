package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/inodb/varsift/internal/store"
)

var errNoProject = errors.New("no project database: pass --db or set store.path")

// openStore opens the configured project database. The caller closes it.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.cfg.Store.Path == "" {
		return nil, usageError{errNoProject}
	}
	s, err := store.Open(ctx, store.Options{Driver: a.cfg.Store.Driver, Path: a.cfg.Store.Path})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opened project",
		zap.String("driver", s.Driver()),
		zap.String("path", s.Path()))
	return s, nil
}

// withStore opens the project, runs fn and closes the project.
func (a *app) withStore(ctx context.Context, fn func(s *store.Store) error) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
