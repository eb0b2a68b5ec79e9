package store

import (
	"errors"
	"fmt"
)

var (
	ErrSelectionExists   = errors.New("selection already exists")
	ErrSelectionNotFound = errors.New("selection not found")
	ErrReservedSelection = errors.New("selection name is reserved")
	ErrUnknownVariant    = errors.New("unknown variant id")
	ErrUnknownField      = errors.New("unknown field")
	ErrAlreadyImported   = errors.New("source already imported")
)

// SchemaError reports a database whose schema cannot hold the import.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "incompatible project schema: " + e.Reason
}

// StoreWriteError reports a failed write during an import. Batches committed
// before Batch are kept in the store.
type StoreWriteError struct {
	Batch     int // 1-based number of the failed batch
	Committed int // records in batches committed before the failure
	Err       error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed in batch %d (%d records committed): %v", e.Batch, e.Committed, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// Lookup roles.
const (
	RoleSample = "sample"
	RoleFather = "father"
	RoleMother = "mother"
)

// LookupError reports a name that does not match any sample of the store.
type LookupError struct {
	Line   int    // Source line, 0 when not from a file
	Sample string // Sample the row describes
	Name   string // Unresolved name
	Role   string // sample, father or mother
}

func (e *LookupError) Error() string {
	var msg string
	if e.Role == RoleSample || e.Role == "" {
		msg = fmt.Sprintf("sample %q not found", e.Name)
	} else {
		msg = fmt.Sprintf("%s %q of sample %q not found", e.Role, e.Name, e.Sample)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}
