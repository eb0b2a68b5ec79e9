package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/inodb/varsift/internal/store"
)

// SelectionStore is the part of the store the selections model uses.
type SelectionStore interface {
	Selections(ctx context.Context) ([]store.Selection, error)
	CreateSelectionFromFilter(ctx context.Context, name string, f store.Filter) (store.Selection, error)
	RenameSelection(ctx context.Context, oldName, newName string) error
	DeleteSelection(ctx context.Context, name string) error
}

// SelectionsModel lists the project's selections.
type SelectionsModel struct {
	st SelectionStore

	mu    sync.RWMutex
	items []store.Selection

	obs observers
}

// NewSelectionsModel creates an empty model over st.
func NewSelectionsModel(st SelectionStore) *SelectionsModel {
	return &SelectionsModel{st: st}
}

// Subscribe registers fn for change notifications and returns a function
// that unsubscribes it.
func (m *SelectionsModel) Subscribe(fn func(Event)) func() {
	return m.obs.subscribe(fn)
}

// Refresh reloads the selections and notifies subscribers.
func (m *SelectionsModel) Refresh(ctx context.Context) error {
	items, err := m.st.Selections(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items = items
	m.mu.Unlock()
	m.obs.notify(Event{Kind: EventReset})
	return nil
}

// Items returns the selections as of the last refresh.
func (m *SelectionsModel) Items() []store.Selection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.Selection(nil), m.items...)
}

// Label renders a selection as shown in lists: "name (count)".
func Label(sel store.Selection) string {
	return fmt.Sprintf("%s (%d)", sel.Name, sel.Count)
}

// SaveCurrentQuery saves the variants matching f as a new selection.
func (m *SelectionsModel) SaveCurrentQuery(ctx context.Context, name string, f store.Filter) (store.Selection, error) {
	sel, err := m.st.CreateSelectionFromFilter(ctx, name, f)
	if err != nil {
		return store.Selection{}, err
	}
	return sel, m.Refresh(ctx)
}

// Rename renames a saved selection.
func (m *SelectionsModel) Rename(ctx context.Context, oldName, newName string) error {
	if err := m.st.RenameSelection(ctx, oldName, newName); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Remove deletes a saved selection.
func (m *SelectionsModel) Remove(ctx context.Context, name string) error {
	if err := m.st.DeleteSelection(ctx, name); err != nil {
		return err
	}
	return m.Refresh(ctx)
}
