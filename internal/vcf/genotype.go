package vcf

import (
	"strconv"
	"strings"
)

// Genotype codes returned by Genotype.Code.
const (
	GenotypeMissing      = -1
	GenotypeHomRef       = 0
	GenotypeHeterozygous = 1
	GenotypeHomAlt       = 2
)

// Genotype is one sample's call on a record.
type Genotype struct {
	Alleles []int             // Allele indices from GT; -1 for "."
	Phased  bool              // GT used "|"
	Fields  map[string]string // Other FORMAT values keyed by FORMAT ID
}

// ParseGT parses a GT value such as "0/1", "1|1", "0" or "./.".
// Haploid calls have one allele; an empty or "." value has no alleles.
func ParseGT(gt string) (alleles []int, phased bool) {
	if gt == "" || gt == "." {
		return nil, false
	}
	phased = strings.Contains(gt, "|")
	parts := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
	alleles = make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			alleles[i] = -1
			continue
		}
		alleles[i] = n
	}
	return alleles, phased
}

// Code summarizes the call relative to one alt (0-based index into Alts):
// GenotypeMissing when no call is available, GenotypeHomRef when the alt is
// absent, GenotypeHomAlt when every allele is the alt (haploid calls included)
// and GenotypeHeterozygous otherwise.
func (g Genotype) Code(altIndex int) int {
	if len(g.Alleles) == 0 {
		return GenotypeMissing
	}
	allele := altIndex + 1
	count := 0
	for _, a := range g.Alleles {
		if a < 0 {
			return GenotypeMissing
		}
		if a == allele {
			count++
		}
	}
	switch count {
	case 0:
		return GenotypeHomRef
	case len(g.Alleles):
		return GenotypeHomAlt
	default:
		return GenotypeHeterozygous
	}
}

// IsHomRef reports whether every allele of the call is the reference.
func (g Genotype) IsHomRef() bool {
	if len(g.Alleles) == 0 {
		return false
	}
	for _, a := range g.Alleles {
		if a != 0 {
			return false
		}
	}
	return true
}
