package vcf

import (
	"fmt"
	"strings"
)

// Dialect names the tool that produced the composite annotation field.
type Dialect string

// Supported annotation dialects.
const (
	DialectPlain  Dialect = ""
	DialectSnpEff Dialect = "snpeff"
	DialectVEP    Dialect = "vep"
)

// dialectAuto asks the parser to detect the dialect from the header.
const dialectAuto Dialect = "auto"

// ParseDialect parses a dialect hint. "" and "auto" request detection.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return dialectAuto, nil
	case "plain", "none":
		return DialectPlain, nil
	case "snpeff", "ann":
		return DialectSnpEff, nil
	case "vep", "csq":
		return DialectVEP, nil
	default:
		return "", fmt.Errorf("unknown annotation dialect %q (expected plain, snpeff or vep)", s)
	}
}

// String returns the dialect name, "plain" for no dialect.
func (d Dialect) String() string {
	if d == DialectPlain {
		return "plain"
	}
	return string(d)
}

// infoID returns the INFO ID carrying the dialect's annotations.
func (d Dialect) infoID() string {
	switch d {
	case DialectSnpEff:
		return "ANN"
	case DialectVEP:
		return "CSQ"
	}
	return ""
}

// snpEffColumns is the SnpEff ANN layout used when the header does not
// describe it.
var snpEffColumns = []string{
	"Allele", "Annotation", "Annotation_Impact", "Gene_Name", "Gene_ID",
	"Feature_Type", "Feature_ID", "Transcript_BioType", "Rank", "HGVS.c",
	"HGVS.p", "cDNA.pos / cDNA.length", "CDS.pos / CDS.length",
	"AA.pos / AA.length", "Distance", "ERRORS / WARNINGS / INFO",
}

// vepColumns is the VEP CSQ layout used when the header does not describe it.
var vepColumns = []string{
	"Allele", "Consequence", "IMPACT", "SYMBOL", "Gene", "Feature_type",
	"Feature", "BIOTYPE", "EXON", "INTRON", "HGVSc", "HGVSp",
	"cDNA_position", "CDS_position", "Protein_position", "Amino_acids",
	"Codons", "CANONICAL",
}

var snpEffNames = map[string]string{
	"Allele":                   "allele",
	"Annotation":               "consequence",
	"Annotation_Impact":        "impact",
	"Gene_Name":                "gene",
	"Gene_ID":                  "gene_id",
	"Feature_Type":             "feature_type",
	"Feature_ID":               "transcript",
	"Transcript_BioType":       "biotype",
	"Rank":                     "rank",
	"HGVS.c":                   "hgvs_c",
	"HGVS.p":                   "hgvs_p",
	"cDNA.pos / cDNA.length":   "cdna_pos",
	"CDS.pos / CDS.length":     "cds_pos",
	"AA.pos / AA.length":       "aa_pos",
	"Distance":                 "distance",
	"ERRORS / WARNINGS / INFO": "log",
}

var vepNames = map[string]string{
	"Allele":           "allele",
	"Consequence":      "consequence",
	"IMPACT":           "impact",
	"SYMBOL":           "gene",
	"Gene":             "gene_id",
	"Feature_type":     "feature_type",
	"Feature":          "transcript",
	"BIOTYPE":          "biotype",
	"EXON":             "exon",
	"INTRON":           "intron",
	"HGVSc":            "hgvs_c",
	"HGVSp":            "hgvs_p",
	"cDNA_position":    "cdna_pos",
	"CDS_position":     "cds_pos",
	"Protein_position": "aa_pos",
	"Amino_acids":      "amino_acids",
	"Codons":           "codons",
	"CANONICAL":        "canonical",
}

var annotationDescriptions = map[string]string{
	"allele":       "Allele the annotation applies to",
	"consequence":  "Sequence Ontology consequence",
	"impact":       "Putative impact (HIGH, MODERATE, LOW, MODIFIER)",
	"gene":         "Gene symbol",
	"gene_id":      "Gene identifier",
	"feature_type": "Feature type",
	"transcript":   "Transcript identifier",
	"biotype":      "Transcript biotype",
	"hgvs_c":       "HGVS coding DNA notation",
	"hgvs_p":       "HGVS protein notation",
	"cdna_pos":     "Position in cDNA",
	"cds_pos":      "Position in CDS",
	"aa_pos":       "Amino acid position",
}

// annotationLayout maps the positional sub-fields of one annotation entry to
// column names. An empty column name drops that sub-field.
type annotationLayout struct {
	columns   []string
	fields    []Field
	alleleCol int
	warnings  []string
}

// newAnnotationLayout builds the layout from the header description of the
// dialect's INFO field, falling back to the tool's default layout.
func newAnnotationLayout(d Dialect, description string) *annotationLayout {
	var raw []string
	var names map[string]string
	switch d {
	case DialectSnpEff:
		raw, names = splitSnpEffDescription(description), snpEffNames
		if len(raw) == 0 {
			raw = snpEffColumns
		}
	case DialectVEP:
		raw, names = splitVEPDescription(description), vepNames
		if len(raw) == 0 {
			raw = vepColumns
		}
	default:
		return &annotationLayout{alleleCol: -1}
	}

	l := &annotationLayout{columns: make([]string, len(raw)), alleleCol: -1}
	fs := newFieldSet(nil)
	for i, r := range raw {
		name, ok := names[r]
		if !ok {
			name = NormalizeName(r)
		}
		f := Field{
			Name:        name,
			Category:    CategoryAnnotations,
			Type:        TypeStr,
			Description: annotationDescriptions[name],
			Number:      "1",
			Source:      d.infoID() + ":" + r,
		}
		if f.Description == "" {
			f.Description = r
		}
		if !fs.add(f) {
			continue
		}
		l.columns[i] = name
		if name == "allele" {
			l.alleleCol = i
		}
	}
	l.fields = fs.fields
	l.warnings = fs.warnings
	return l
}

// splitSnpEffDescription extracts the sub-field names from a description like
// "Functional annotations: 'Allele | Annotation | ...' ".
func splitSnpEffDescription(desc string) []string {
	start := strings.IndexByte(desc, '\'')
	end := strings.LastIndexByte(desc, '\'')
	if start < 0 || end <= start {
		return nil
	}
	return splitLayout(desc[start+1 : end])
}

// splitVEPDescription extracts the sub-field names from a description like
// "Consequence annotations from Ensembl VEP. Format: Allele|Consequence|...".
func splitVEPDescription(desc string) []string {
	i := strings.Index(desc, "Format:")
	if i < 0 {
		return nil
	}
	return splitLayout(desc[i+len("Format:"):])
}

func splitLayout(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parse splits a raw annotation value into entries and attaches each one to
// the alt it names. Entries that match no alt of a multi-allelic record are
// returned as orphans.
func (l *annotationLayout) parse(raw string, v *Variant, d Dialect) (anns []Annotation, orphans int) {
	if raw == "" || len(l.columns) == 0 {
		return nil, 0
	}

	altByAllele := make(map[string]int, 2*len(v.Alts))
	for i, alt := range v.Alts {
		altByAllele[alt] = i
		if d == DialectVEP {
			if _, dup := altByAllele[vepAllele(v.Ref, v.Alts, i)]; !dup {
				altByAllele[vepAllele(v.Ref, v.Alts, i)] = i
			}
		}
	}

	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(entry, "|")
		values := make(map[string]string, len(l.columns))
		for i, col := range l.columns {
			if col == "" || i >= len(parts) {
				continue
			}
			if val := strings.TrimSpace(parts[i]); val != "" {
				values[col] = val
			}
		}
		if len(values) == 0 {
			continue
		}
		if _, ok := l.columnIndex("impact"); ok && values["impact"] == "" && values["consequence"] != "" {
			values["impact"] = GetImpact(values["consequence"])
		}

		altIndex := 0
		if len(v.Alts) > 1 {
			idx, ok := -1, false
			if l.alleleCol >= 0 && l.alleleCol < len(parts) {
				idx, ok = altByAllele[strings.TrimSpace(parts[l.alleleCol])]
			}
			if !ok {
				orphans++
				continue
			}
			altIndex = idx
		}
		anns = append(anns, Annotation{AltIndex: altIndex, Values: values})
	}
	return anns, orphans
}

func (l *annotationLayout) columnIndex(name string) (int, bool) {
	for i, c := range l.columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// vepAllele returns the allele string VEP writes in CSQ for the given alt:
// when every alt shares the first base of the reference, that base is
// stripped and an empty remainder becomes "-".
func vepAllele(ref string, alts []string, altIndex int) string {
	alt := alts[altIndex]
	if ref == "" {
		return alt
	}
	for _, a := range alts {
		if a == "" || strings.HasPrefix(a, "<") || a[0] != ref[0] {
			return alt
		}
	}
	if len(alt) == 1 {
		return "-"
	}
	return alt[1:]
}
