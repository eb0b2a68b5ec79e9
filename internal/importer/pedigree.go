package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inodb/varsift/internal/pedigree"
	"github.com/inodb/varsift/internal/store"
)

// RowReader is a source of pedigree rows.
type RowReader interface {
	Next() (*pedigree.Row, error)
}

// PedigreeReport describes a pedigree import.
type PedigreeReport struct {
	RunID        string
	Rows         int // well-formed rows read
	Updated      int // samples updated
	Skipped      int // malformed rows skipped
	Errors       []*pedigree.ParseError
	LookupErrors []*store.LookupError
}

// ImportPedigree reads every row of r and attaches it to the matching
// samples. Rows naming samples absent from the store are reported in
// LookupErrors and change nothing.
func (im *Importer) ImportPedigree(ctx context.Context, r RowReader) (*PedigreeReport, error) {
	rep := &PedigreeReport{RunID: uuid.NewString()}
	log := im.logger.With(zap.String("run_id", rep.RunID))

	var rows []pedigree.Row
	for {
		row, err := r.Next()
		if err != nil {
			var pe *pedigree.ParseError
			if !errors.As(err, &pe) {
				return rep, fmt.Errorf("read pedigree: %w", err)
			}
			if len(rep.Errors) < MaxReportedErrors {
				rep.Errors = append(rep.Errors, pe)
			}
			if im.opts.Strict {
				return rep, err
			}
			rep.Skipped++
			log.Warn("skipping malformed pedigree row", zap.Int("line", pe.Line), zap.String("reason", pe.Message))
			continue
		}
		if row == nil {
			break
		}
		rows = append(rows, *row)
	}
	rep.Rows = len(rows)

	res, err := im.store.UpdatePedigree(ctx, rows)
	if err != nil {
		return rep, err
	}
	rep.Updated = res.Updated
	rep.LookupErrors = res.Errors
	for _, le := range res.Errors {
		log.Warn("pedigree lookup", zap.Int("line", le.Line), zap.String("role", le.Role), zap.String("name", le.Name))
	}

	log.Info("pedigree imported",
		zap.Int("rows", rep.Rows),
		zap.Int("updated", rep.Updated),
		zap.Int("lookup_errors", len(rep.LookupErrors)),
		zap.Int("skipped", rep.Skipped))
	return rep, nil
}

// ImportPedigreeFile opens a pedigree file and imports it.
func (im *Importer) ImportPedigreeFile(ctx context.Context, path string) (*PedigreeReport, error) {
	p, err := pedigree.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return im.ImportPedigree(ctx, p)
}
