// Package maf reads MAF (Mutation Annotation Format) files as variant
// records. Each data row becomes one single-alt record carrying one
// annotation; the tumor sample and read counts become variant fields.
package maf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/varsift/internal/vcf"
)

// Dialect labels records read from MAF files.
const Dialect vcf.Dialect = "maf"

// Standard MAF column names
const (
	ColChromosome         = "Chromosome"
	ColStartPosition      = "Start_Position"
	ColReferenceAllele    = "Reference_Allele"
	ColTumorSeqAllele1    = "Tumor_Seq_Allele1"
	ColTumorSeqAllele2    = "Tumor_Seq_Allele2"
	ColDbSNP              = "dbSNP_RS"
	ColTumorSampleBarcode = "Tumor_Sample_Barcode"
	ColHugoSymbol         = "Hugo_Symbol"
	ColVariantClass       = "Variant_Classification"
	ColConsequence        = "Consequence"
	ColImpact             = "IMPACT"
	ColHGVSc              = "HGVSc"
	ColHGVSpShort         = "HGVSp_Short"
	ColTranscriptID       = "Transcript_ID"
	ColVariantType        = "Variant_Type"
	ColTDepth             = "t_depth"
	ColTAltCount          = "t_alt_count"
	ColNDepth             = "n_depth"
)

// optional maps optional MAF columns onto store fields. Variants fields read
// their value from Variant.Info under the column name; annotation fields from
// the record's single annotation.
var optional = []vcf.Field{
	{Name: "tumor_sample", Category: vcf.CategoryVariants, Type: vcf.TypeStr, Number: "1", Source: ColTumorSampleBarcode, Description: "Tumor sample barcode"},
	{Name: "variant_type", Category: vcf.CategoryVariants, Type: vcf.TypeStr, Number: "1", Source: ColVariantType, Description: "Variant type (SNP, DNP, INS, DEL)"},
	{Name: "t_depth", Category: vcf.CategoryVariants, Type: vcf.TypeInt, Number: "1", Source: ColTDepth, Description: "Tumor read depth"},
	{Name: "t_alt_count", Category: vcf.CategoryVariants, Type: vcf.TypeInt, Number: "1", Source: ColTAltCount, Description: "Tumor alt allele read count"},
	{Name: "n_depth", Category: vcf.CategoryVariants, Type: vcf.TypeInt, Number: "1", Source: ColNDepth, Description: "Normal read depth"},
	{Name: "gene", Category: vcf.CategoryAnnotations, Type: vcf.TypeStr, Source: ColHugoSymbol, Description: "Gene symbol"},
	{Name: "consequence", Category: vcf.CategoryAnnotations, Type: vcf.TypeStr, Source: ColConsequence, Description: "Sequence Ontology consequence"},
	{Name: "variant_class", Category: vcf.CategoryAnnotations, Type: vcf.TypeStr, Source: ColVariantClass, Description: "MAF variant classification"},
	{Name: "impact", Category: vcf.CategoryAnnotations, Type: vcf.TypeStr, Source: ColImpact, Description: "Putative impact (HIGH, MODERATE, LOW, MODIFIER)"},
	{Name: "transcript", Category: vcf.CategoryAnnotations, Type: vcf.TypeStr, Source: ColTranscriptID, Description: "Transcript identifier"},
	{Name: "hgvs_c", Category: vcf.CategoryAnnotations, Type: vcf.TypeStr, Source: ColHGVSc, Description: "HGVS coding DNA notation"},
	{Name: "hgvs_p", Category: vcf.CategoryAnnotations, Type: vcf.TypeStr, Source: ColHGVSpShort, Description: "HGVS protein notation (short)"},
}

// column is an optional field found in the header.
type column struct {
	field vcf.Field
	index int
}

// Parser reads variants from a MAF file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	headerLine string

	chrom, pos, ref, allele1, allele2, rsid int
	columns                                 []column
	fields                                  []vcf.Field
}

// NewParser creates a new MAF parser for the given file.
// Supports both plain MAF and gzipped MAF (.maf.gz) files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}

	p := &Parser{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read maf header: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek maf file: %w", err)
	}

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
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(r),
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// readLine returns the next line without its terminator. The last line may
// lack a newline.
func (p *Parser) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

// parseHeader skips comment lines and indexes the column header line.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.readLine()
		if err == io.EOF {
			return &vcf.ParseError{Line: p.lineNumber, Message: "no header line found", Format: "maf"}
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p.headerLine = line
		return p.parseColumnIndices(line)
	}
}

// parseColumnIndices locates required and optional columns in the header.
func (p *Parser) parseColumnIndices(headerLine string) error {
	index := make(map[string]int)
	for i, col := range strings.Split(headerLine, "\t") {
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}

	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}
	p.chrom = lookup(ColChromosome)
	p.pos = lookup(ColStartPosition)
	p.ref = lookup(ColReferenceAllele)
	p.allele1 = lookup(ColTumorSeqAllele1)
	p.allele2 = lookup(ColTumorSeqAllele2)
	p.rsid = lookup(ColDbSNP)

	for _, req := range []struct {
		name  string
		index int
	}{
		{ColChromosome, p.chrom},
		{ColStartPosition, p.pos},
		{ColReferenceAllele, p.ref},
		{ColTumorSeqAllele2, p.allele2},
	} {
		if req.index < 0 {
			return p.errorf("required column '%s' not found in header", req.name)
		}
	}

	p.fields = append(p.fields, vcf.VariantCoreFields...)
	for _, f := range optional {
		if i := lookup(f.Source); i >= 0 {
			p.columns = append(p.columns, column{field: f, index: i})
			p.fields = append(p.fields, f)
		}
	}
	p.fields = append(p.fields, vcf.SampleCoreFields...)
	return nil
}

// Next reads the next variant from the MAF file.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*vcf.Variant, error) {
	for {
		line, err := p.readLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return p.parseLine(line)
	}
}

// parseLine parses a single MAF data line into a Variant.
func (p *Parser) parseLine(line string) (*vcf.Variant, error) {
	cols := strings.Split(line, "\t")

	minCols := max(p.chrom, p.pos, p.ref, p.allele2)
	if len(cols) <= minCols {
		return nil, p.errorf("expected at least %d columns, found %d", minCols+1, len(cols))
	}

	pos, err := strconv.ParseInt(cols[p.pos], 10, 64)
	if err != nil || pos < 1 {
		return nil, p.errorf("invalid position: %s", cols[p.pos])
	}

	ref := cols[p.ref]
	alt := cols[p.allele2]
	// Tumor_Seq_Allele2 repeats the reference when Allele1 holds the change.
	if alt == ref && p.allele1 >= 0 && p.allele1 < len(cols) && cols[p.allele1] != ref {
		alt = cols[p.allele1]
	}
	if ref == "" || alt == "" {
		return nil, p.errorf("missing allele")
	}
	if alt == ref {
		return nil, p.errorf("alternate allele equals reference %s", ref)
	}

	v := &vcf.Variant{
		Chrom: cols[p.chrom],
		Pos:   pos,
		Ref:   ref,
		Alts:  []string{alt},
		Info:  make(map[string]string),
		Line:  p.lineNumber,
	}
	if p.rsid >= 0 && p.rsid < len(cols) && cols[p.rsid] != "novel" {
		v.ID = cols[p.rsid]
	}

	ann := vcf.Annotation{AltIndex: 0, Values: make(map[string]string)}
	for _, c := range p.columns {
		if c.index >= len(cols) {
			continue
		}
		val := cols[c.index]
		if c.field.Category == vcf.CategoryAnnotations {
			ann.Values[c.field.Name] = val
		} else {
			v.Info[c.field.Source] = val
		}
	}
	if len(ann.Values) > 0 {
		v.Annotations = []vcf.Annotation{ann}
	}
	return v, nil
}

func (p *Parser) errorf(format string, args ...any) *vcf.ParseError {
	return &vcf.ParseError{Line: p.lineNumber, Message: fmt.Sprintf(format, args...), Format: "maf"}
}

// Header returns the MAF header line.
func (p *Parser) Header() string {
	return p.headerLine
}

// SampleNames returns nil: MAF rows name their tumor sample in a column
// instead of carrying per-sample calls.
func (p *Parser) SampleNames() []string {
	return nil
}

// Fields returns the column descriptors for the columns present in the file.
func (p *Parser) Fields() []vcf.Field {
	return p.fields
}

// Dialect returns the MAF dialect.
func (p *Parser) Dialect() vcf.Dialect {
	return Dialect
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
