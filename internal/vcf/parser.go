package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser reads variants from a VCF file.
type Parser struct {
	reader      *bufio.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	lineNumber  int
	header      []string
	sampleNames []string // sample names from #CHROM header line

	dialect  Dialect
	infoMeta []metaLine
	fmtMeta  []metaLine
	layout   *annotationLayout
	fields   []Field
	warnings []string
}

// NewParser creates a new VCF parser for the given file.
// Supports both plain VCF and gzipped VCF (.vcf.gz) files.
// The dialect hint selects how the composite annotation field is split;
// "" or "auto" detects it from the header.
func NewParser(path string, dialect string) (*Parser, error) {
	d, err := ParseDialect(dialect)
	if err != nil {
		return nil, err
	}

	if path == "-" {
		return newParser(os.Stdin, d)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := &Parser{file: file, dialect: d}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	// Seek back to beginning
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b)
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader, dialect string) (*Parser, error) {
	d, err := ParseDialect(dialect)
	if err != nil {
		return nil, err
	}
	return newParser(r, d)
}

func newParser(r io.Reader, d Dialect) (*Parser, error) {
	p := &Parser{
		reader:  bufio.NewReader(r),
		dialect: d,
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader reads and stores VCF header lines.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			if err := p.parseMeta(line); err != nil {
				p.warnings = append(p.warnings, fmt.Sprintf("line %d: %v", p.lineNumber, err))
			}
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			return p.parseColumns(line)
		}

		// Non-header line encountered without #CHROM
		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

// parseMeta records ##INFO and ##FORMAT declarations.
func (p *Parser) parseMeta(line string) error {
	switch {
	case strings.HasPrefix(line, "##INFO=<"):
		m, err := parseMetaLine(line)
		if err != nil {
			return err
		}
		p.infoMeta = append(p.infoMeta, m)
	case strings.HasPrefix(line, "##FORMAT=<"):
		m, err := parseMetaLine(line)
		if err != nil {
			return err
		}
		p.fmtMeta = append(p.fmtMeta, m)
	}
	return nil
}

// parseColumns handles the #CHROM line: it declares the sample order and
// closes the header, so the field layout is resolved here.
func (p *Parser) parseColumns(line string) error {
	cols := strings.Split(line, "\t")
	if len(cols) < 8 {
		return &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("#CHROM line has %d columns, expected at least 8", len(cols)),
		}
	}
	// Extract sample names from columns after FORMAT (index 9+)
	if len(cols) > 9 {
		seen := make(map[string]bool, len(cols)-9)
		for _, name := range cols[9:] {
			if name == "" || seen[name] {
				return &ParseError{
					Line:    p.lineNumber,
					Message: fmt.Sprintf("duplicate or empty sample name %q", name),
				}
			}
			seen[name] = true
		}
		p.sampleNames = cols[9:]
	}

	if p.dialect == dialectAuto {
		p.dialect = p.detectDialect()
	}

	var annDescription string
	variants := newFieldSet(VariantCoreFields)
	for _, m := range p.infoMeta {
		if p.dialect != DialectPlain && m["ID"] == p.dialect.infoID() {
			annDescription = m["Description"]
			continue
		}
		f := fieldFromMeta(m, CategoryVariants)
		variants.add(f)
	}

	p.layout = newAnnotationLayout(p.dialect, annDescription)

	samples := newFieldSet(SampleCoreFields)
	for _, m := range p.fmtMeta {
		if m["ID"] == "GT" {
			continue
		}
		samples.add(fieldFromMeta(m, CategorySamples))
	}

	p.fields = append(p.fields, VariantCoreFields...)
	p.fields = append(p.fields, variants.fields...)
	p.fields = append(p.fields, p.layout.fields...)
	p.fields = append(p.fields, SampleCoreFields...)
	p.fields = append(p.fields, samples.fields...)

	p.warnings = append(p.warnings, variants.warnings...)
	p.warnings = append(p.warnings, p.layout.warnings...)
	p.warnings = append(p.warnings, samples.warnings...)
	return nil
}

// detectDialect picks the dialect from the declared INFO fields.
func (p *Parser) detectDialect() Dialect {
	for _, m := range p.infoMeta {
		switch m["ID"] {
		case "ANN":
			return DialectSnpEff
		case "CSQ":
			return DialectVEP
		}
	}
	return DialectPlain
}

// Next reads the next variant from the VCF file.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("read variant line: %w", err)
			}
			if line == "" {
				return nil, nil
			}
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue // Skip empty lines
		}

		return p.parseLine(line)
	}
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, p.errorf("expected at least 8 columns, found %d", len(fields))
	}
	if n := len(p.sampleNames); n > 0 && len(fields) != 9+n {
		return nil, p.errorf("expected %d columns for %d samples, found %d", 9+n, n, len(fields))
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, p.errorf("invalid position: %s", fields[1])
	}

	ref := fields[3]
	if ref == "" || ref == "." {
		return nil, p.errorf("missing reference allele")
	}
	if fields[4] == "" || fields[4] == "." {
		return nil, p.errorf("no alternate allele")
	}
	alts := strings.Split(fields[4], ",")
	for _, a := range alts {
		if a == "" {
			return nil, p.errorf("empty alternate allele in %q", fields[4])
		}
	}

	v := &Variant{
		Chrom:   fields[0],
		Pos:     pos,
		Ref:     ref,
		Alts:    alts,
		Filters: parseFilter(fields[6]),
		Info:    parseInfo(fields[7]),
		Line:    p.lineNumber,
	}
	if fields[2] != "." {
		v.ID = fields[2]
	}
	if fields[5] != "." {
		q, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, p.errorf("invalid quality: %s", fields[5])
		}
		v.Qual = &q
	}

	if id := p.dialect.infoID(); id != "" {
		raw, ok := v.Info[id]
		if ok {
			delete(v.Info, id)
			v.Annotations, v.Orphans = p.layout.parse(raw, v, p.dialect)
		}
	}

	if len(p.sampleNames) > 0 {
		v.Genotypes = parseSamples(fields[8], fields[9:])
	}

	return v, nil
}

// parseSamples splits the per-sample columns according to FORMAT.
func parseSamples(format string, columns []string) []Genotype {
	keys := strings.Split(format, ":")
	genotypes := make([]Genotype, len(columns))
	for i, col := range columns {
		values := strings.Split(col, ":")
		g := Genotype{}
		for k, key := range keys {
			if k >= len(values) {
				break // trailing FORMAT fields may be dropped
			}
			if key == "GT" {
				g.Alleles, g.Phased = ParseGT(values[k])
				continue
			}
			if values[k] == "" || values[k] == "." {
				continue
			}
			if g.Fields == nil {
				g.Fields = make(map[string]string, len(keys))
			}
			g.Fields[key] = values[k]
		}
		genotypes[i] = g
	}
	return genotypes
}

// parseFilter splits the FILTER column into a de-duplicated list.
func parseFilter(filter string) []string {
	if filter == "." || filter == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(filter, ";") {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) map[string]string {
	result := make(map[string]string)
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		result[k] = v
	}

	return result
}

func (p *Parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Line: p.lineNumber, Message: fmt.Sprintf(format, args...)}
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// Fields returns the column descriptors resolved from the header.
func (p *Parser) Fields() []Field {
	return p.fields
}

// Dialect returns the annotation dialect in effect.
func (p *Parser) Dialect() Dialect {
	return p.dialect
}

// HeaderWarnings returns problems found in the header that did not prevent
// parsing (malformed declarations, colliding field names).
func (p *Parser) HeaderWarnings() []string {
	return p.warnings
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during variant file parsing with line
// context.
type ParseError struct {
	Line    int
	Message string
	Format  string // input format, "vcf" when empty
}

func (e *ParseError) Error() string {
	format := e.Format
	if format == "" {
		format = "vcf"
	}
	return fmt.Sprintf("%s parse error at line %d: %s", format, e.Line, e.Message)
}
