// Package vcf reads variant-call files into normalized variant records.
package vcf

// VariantReader is the interface for pull-based variant sources.
// The importer consumes any VariantReader in strict file order.
type VariantReader interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants. A *ParseError means the
	// current line was malformed; the reader stays usable and the next call
	// continues with the following line.
	Next() (*Variant, error)

	// SampleNames returns the sample names declared in the header, in order.
	SampleNames() []string

	// Fields returns the column descriptors of every field the reader produces.
	Fields() []Field

	// Dialect returns the annotation dialect in effect.
	Dialect() Dialect

	// LineNumber returns the current line number being processed.
	LineNumber() int

	// Close closes the reader and releases resources.
	Close() error
}
