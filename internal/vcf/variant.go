package vcf

import "strconv"

// Variant represents a single record (data line) of a variant-call file.
// Records with several alternate alleles are kept whole; the store writes one
// row per alt.
type Variant struct {
	Chrom       string            // Chromosome name (e.g., "12", "chr12")
	Pos         int64             // 1-based genomic position
	ID          string            // Variant identifier (e.g., rs ID), "" when missing
	Ref         string            // Reference allele
	Alts        []string          // Alternate alleles, in file order
	Qual        *float64          // Quality score, nil when missing
	Filters     []string          // Filter status, nil when missing
	Info        map[string]string // INFO key-value pairs; flags map to ""
	Genotypes   []Genotype        // Per-sample calls, aligned to SampleNames
	Annotations []Annotation      // Transcript annotations from the dialect field
	Orphans     int               // Annotation entries matching no alt
	Line        int               // Source line number
}

// Annotation is one transcript-level annotation entry of a variant.
type Annotation struct {
	AltIndex int               // Index into Variant.Alts
	Values   map[string]string // Normalized annotation field name -> value
}

// Key returns the identity of the given alt of v: chrom, pos, ref and alt.
func (v *Variant) Key(altIndex int) string {
	return v.Chrom + "_" + strconv.FormatInt(v.Pos, 10) + "_" + v.Ref + "/" + v.Alts[altIndex]
}

// AnnotationsFor returns the annotations attached to the given alt.
func (v *Variant) AnnotationsFor(altIndex int) []Annotation {
	var out []Annotation
	for _, a := range v.Annotations {
		if a.AltIndex == altIndex {
			out = append(out, a)
		}
	}
	return out
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}
