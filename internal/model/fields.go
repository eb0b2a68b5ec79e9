package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/inodb/varsift/internal/store"
	"github.com/inodb/varsift/internal/vcf"
)

// FieldSource is the part of the store the fields model reads.
type FieldSource interface {
	FieldsByCategory(ctx context.Context, category string) ([]store.Field, error)
	Samples(ctx context.Context) ([]store.Sample, error)
}

// Node is an entry of the field tree. Leaves are checkable fields; inner
// nodes are categories or samples.
type Node struct {
	Label       string
	Description string
	Key         string // field key of a leaf, "" for inner nodes
	Type        string
	Children    []*Node
}

// Checkable reports whether n is a field.
func (n *Node) Checkable() bool {
	return n.Key != ""
}

// FieldKey returns the key of a variants or annotations field. Keys carry the
// category since both categories may hold a field of the same name.
func FieldKey(category, name string) string {
	return category + "." + name
}

// SampleFieldKey returns the key of a per-sample field.
func SampleFieldKey(sample, field string) string {
	return "sample." + sample + "." + field
}

// FieldsModel is the checkable tree of the project's fields: variants and
// annotations fields, then one branch per sample with the sample fields.
type FieldsModel struct {
	src FieldSource

	mu      sync.RWMutex
	roots   []*Node
	order   []string // leaf keys in tree order
	checked map[string]bool

	obs observers
}

// NewFieldsModel creates an empty model reading from src.
func NewFieldsModel(src FieldSource) *FieldsModel {
	return &FieldsModel{src: src, checked: make(map[string]bool)}
}

// Subscribe registers fn for change notifications and returns a function
// that unsubscribes it.
func (m *FieldsModel) Subscribe(fn func(Event)) func() {
	return m.obs.subscribe(fn)
}

// Load rebuilds the tree from the store. Checked fields that still exist stay
// checked.
func (m *FieldsModel) Load(ctx context.Context) error {
	var roots []*Node
	var order []string

	for _, cat := range []string{vcf.CategoryVariants, vcf.CategoryAnnotations} {
		fields, err := m.src.FieldsByCategory(ctx, cat)
		if err != nil {
			return fmt.Errorf("load %s fields: %w", cat, err)
		}
		root := &Node{Label: cat}
		for _, f := range fields {
			key := FieldKey(cat, f.Name)
			root.Children = append(root.Children, &Node{Label: f.Name, Description: f.Description, Key: key, Type: f.Type})
			order = append(order, key)
		}
		roots = append(roots, root)
	}

	sampleFields, err := m.src.FieldsByCategory(ctx, vcf.CategorySamples)
	if err != nil {
		return fmt.Errorf("load sample fields: %w", err)
	}
	samples, err := m.src.Samples(ctx)
	if err != nil {
		return fmt.Errorf("load samples: %w", err)
	}
	samplesRoot := &Node{Label: vcf.CategorySamples}
	for _, smp := range samples {
		node := &Node{Label: smp.Name}
		for _, f := range sampleFields {
			key := SampleFieldKey(smp.Name, f.Name)
			node.Children = append(node.Children, &Node{Label: f.Name, Description: f.Description, Key: key, Type: f.Type})
			order = append(order, key)
		}
		samplesRoot.Children = append(samplesRoot.Children, node)
	}
	roots = append(roots, samplesRoot)

	m.mu.Lock()
	kept := make(map[string]bool)
	for _, k := range order {
		if m.checked[k] {
			kept[k] = true
		}
	}
	m.roots, m.order, m.checked = roots, order, kept
	m.mu.Unlock()

	m.obs.notify(Event{Kind: EventReset})
	return nil
}

// Roots returns the category nodes.
func (m *FieldsModel) Roots() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roots
}

// SetChecked checks exactly the given keys. Unknown keys are ignored.
// Subscribers are not notified.
func (m *FieldsModel) SetChecked(keys []string) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = make(map[string]bool)
	for _, k := range m.order {
		if want[k] {
			m.checked[k] = true
		}
	}
}

// Toggle checks or unchecks one field and notifies subscribers when its
// state changes.
func (m *FieldsModel) Toggle(key string, on bool) error {
	m.mu.Lock()
	if !m.known(key) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", store.ErrUnknownField, key)
	}
	changed := m.checked[key] != on
	if on {
		m.checked[key] = true
	} else {
		delete(m.checked, key)
	}
	m.mu.Unlock()

	if changed {
		m.obs.notify(Event{Kind: EventChecked, Key: key, Checked: on})
	}
	return nil
}

func (m *FieldsModel) known(key string) bool {
	for _, k := range m.order {
		if k == key {
			return true
		}
	}
	return false
}

// IsChecked reports whether key is checked.
func (m *FieldsModel) IsChecked(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checked[key]
}

// Checked returns the checked keys in tree order.
func (m *FieldsModel) Checked() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, k := range m.order {
		if m.checked[k] {
			out = append(out, k)
		}
	}
	return out
}

// Search returns the fields whose name or description contains text,
// ignoring case.
func (m *FieldsModel) Search(text string) []*Node {
	text = strings.ToLower(text)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Node
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Checkable() && (strings.Contains(strings.ToLower(n.Label), text) ||
				strings.Contains(strings.ToLower(n.Description), text)) {
				out = append(out, n)
			}
			walk(n.Children)
		}
	}
	walk(m.roots)
	return out
}
