package plugin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/varsift/internal/model"
	"github.com/inodb/varsift/internal/output"
	"github.com/inodb/varsift/internal/store"
)

// Names of the built-in plugins.
const (
	FieldsEditorName = "fields_editor"
	SelectionsName   = "selections"
	SamplesName      = "samples"
)

// RegisterBuiltins registers the built-in plugins on r.
func RegisterBuiltins(r *Registry) error {
	for _, p := range []Plugin{NewFieldsEditor(), NewSelections(), NewSamples()} {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// FieldsEditor shows the field tree of the project and which fields are
// checked for display.
type FieldsEditor struct {
	model *model.FieldsModel
	// Checked holds the initially checked keys applied on open.
	Checked []string
}

// NewFieldsEditor creates the fields editor plugin.
func NewFieldsEditor() *FieldsEditor {
	return &FieldsEditor{Checked: []string{"variants.chr", "variants.pos", "variants.ref", "variants.alt"}}
}

func (p *FieldsEditor) Name() string        { return FieldsEditorName }
func (p *FieldsEditor) Description() string { return "Field tree with checkable columns" }

// Model returns the fields model, nil before a project was opened.
func (p *FieldsEditor) Model() *model.FieldsModel {
	return p.model
}

func (p *FieldsEditor) OnOpenProject(ctx context.Context, s *store.Store) error {
	m := model.NewFieldsModel(s)
	if err := m.Load(ctx); err != nil {
		return err
	}
	m.SetChecked(p.Checked)
	p.model = m
	return nil
}

func (p *FieldsEditor) Render(w io.Writer) error {
	if p.model == nil {
		return ErrNotOpened
	}
	var walk func(nodes []*model.Node, depth int) error
	walk = func(nodes []*model.Node, depth int) error {
		for _, n := range nodes {
			indent := strings.Repeat("  ", depth)
			var err error
			if n.Checkable() {
				mark := " "
				if p.model.IsChecked(n.Key) {
					mark = "x"
				}
				_, err = fmt.Fprintf(w, "%s[%s] %s\t%s\t%s\n", indent, mark, n.Label, n.Type, n.Description)
			} else {
				_, err = fmt.Fprintf(w, "%s%s\n", indent, n.Label)
			}
			if err != nil {
				return err
			}
			if err := walk(n.Children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(p.model.Roots(), 0)
}

// Selections lists the selections of the project.
type Selections struct {
	model *model.SelectionsModel
}

// NewSelections creates the selections plugin.
func NewSelections() *Selections {
	return &Selections{}
}

func (p *Selections) Name() string        { return SelectionsName }
func (p *Selections) Description() string { return "Saved selections and their sizes" }

// Model returns the selections model, nil before a project was opened.
func (p *Selections) Model() *model.SelectionsModel {
	return p.model
}

func (p *Selections) OnOpenProject(ctx context.Context, s *store.Store) error {
	m := model.NewSelectionsModel(s)
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	p.model = m
	return nil
}

func (p *Selections) Render(w io.Writer) error {
	if p.model == nil {
		return ErrNotOpened
	}
	return output.WriteSelections(w, p.model.Items())
}

// Samples shows the samples of the project with their pedigree.
type Samples struct {
	samples []store.Sample
	opened  bool
}

// NewSamples creates the samples plugin.
func NewSamples() *Samples {
	return &Samples{}
}

func (p *Samples) Name() string        { return SamplesName }
func (p *Samples) Description() string { return "Samples and pedigree" }

func (p *Samples) OnOpenProject(ctx context.Context, s *store.Store) error {
	samples, err := s.Samples(ctx)
	if err != nil {
		return err
	}
	p.samples, p.opened = samples, true
	return nil
}

func (p *Samples) Render(w io.Writer) error {
	if !p.opened {
		return ErrNotOpened
	}
	return output.WriteSamples(w, p.samples)
}
