// Package pedigree reads family/sample relationship files (PLINK .tfam/.fam).
package pedigree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sex codes.
const (
	SexUnknown = 0
	SexMale    = 1
	SexFemale  = 2
)

// Phenotype (affected status) codes.
const (
	PhenotypeMissing    = 0
	PhenotypeUnaffected = 1
	PhenotypeAffected   = 2
)

// Row is one sample line of a pedigree file.
type Row struct {
	Family    string
	Sample    string
	Father    string // "" when unknown
	Mother    string // "" when unknown
	Sex       int
	Phenotype int
	Line      int
}

// Parser reads rows from a pedigree file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	lineNumber int
}

// NewParser opens a pedigree file. "-" reads from stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pedigree file: %w", err)
	}
	return &Parser{reader: bufio.NewReader(file), file: file}, nil
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r)}
}

// Next returns the next row, or nil, nil at end of input.
// A *ParseError leaves the parser usable.
func (p *Parser) Next() (*Row, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("read pedigree line: %w", err)
			}
			if line == "" {
				return nil, nil
			}
		}
		p.lineNumber++

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return p.parseLine(line)
	}
}

func (p *Parser) parseLine(line string) (*Row, error) {
	cols := strings.Fields(line)
	if len(cols) != 6 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected 6 columns, found %d", len(cols)),
		}
	}
	return &Row{
		Family:    cols[0],
		Sample:    cols[1],
		Father:    parent(cols[2]),
		Mother:    parent(cols[3]),
		Sex:       ParseSex(cols[4]),
		Phenotype: ParsePhenotype(cols[5]),
		Line:      p.lineNumber,
	}, nil
}

func parent(s string) string {
	if s == "0" {
		return ""
	}
	return s
}

// ParseSex maps a sex code to SexMale, SexFemale or SexUnknown.
func ParseSex(s string) int {
	switch s {
	case "1":
		return SexMale
	case "2":
		return SexFemale
	}
	return SexUnknown
}

// ParsePhenotype maps an affected-status code; 0, -9 and anything else is
// missing.
func ParsePhenotype(s string) int {
	switch s {
	case "1":
		return PhenotypeUnaffected
	case "2":
		return PhenotypeAffected
	}
	return PhenotypeMissing
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the underlying file.
func (p *Parser) Close() error {
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents a malformed pedigree row.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pedigree parse error at line %d: %s", e.Line, e.Message)
}
