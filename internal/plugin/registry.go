// Package plugin provides the registry of project plugins. Plugins are
// registered explicitly by the host at startup.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/varsift/internal/store"
)

var (
	// ErrDuplicate is returned when a plugin name is registered twice.
	ErrDuplicate = errors.New("plugin already registered")
	// ErrNotFound is returned for an unregistered plugin name.
	ErrNotFound = errors.New("plugin not found")
	// ErrNotOpened is returned when a plugin is rendered before a project was
	// opened.
	ErrNotOpened = errors.New("no project opened")
)

// Plugin is the minimum a plugin implements.
type Plugin interface {
	Name() string
	Description() string
}

// ProjectOpener is implemented by plugins that load state when a project is
// opened.
type ProjectOpener interface {
	OnOpenProject(ctx context.Context, s *store.Store) error
}

// Renderer is implemented by plugins that can print their state.
type Renderer interface {
	Render(w io.Writer) error
}

// Registry holds plugins in registration order.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	byName  map[string]Plugin
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Plugin),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for plugin lifecycle messages.
func (r *Registry) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Register adds p. Names must be unique and non-empty.
func (r *Registry) Register(p Plugin) error {
	name := p.Name()
	if name == "" {
		return errors.New("plugin has no name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.byName[name] = p
	r.plugins = append(r.plugins, p)
	return nil
}

// Get returns the named plugin.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Names returns plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name()
	}
	return names
}

// Enabled returns the plugins whose names are not in disabled, in
// registration order.
func (r *Registry) Enabled(disabled []string) []Plugin {
	off := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		off[name] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Plugin
	for _, p := range r.plugins {
		if !off[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}

// OpenProject calls OnOpenProject on every enabled plugin that implements
// it, in registration order, and stops at the first error.
func (r *Registry) OpenProject(ctx context.Context, s *store.Store, disabled []string) error {
	for _, p := range r.Enabled(disabled) {
		opener, ok := p.(ProjectOpener)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := opener.OnOpenProject(ctx, s); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		r.logger.Debug("plugin opened project", zap.String("plugin", p.Name()))
	}
	return nil
}
