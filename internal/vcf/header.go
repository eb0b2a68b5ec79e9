package vcf

import (
	"fmt"
	"strings"
)

// Field categories.
const (
	CategoryVariants    = "variants"
	CategoryAnnotations = "annotations"
	CategorySamples     = "samples"
)

// Field value types.
const (
	TypeInt   = "int"
	TypeFloat = "float"
	TypeStr   = "str"
	TypeBool  = "bool"
)

// Field describes one column produced by a reader.
type Field struct {
	Name        string // Normalized column name
	Category    string // variants, annotations or samples
	Type        string // int, float, str or bool
	Description string
	Number      string // VCF Number (1, A, R, G, ., 0...), "" for core fields
	Source      string // Header ID the field was declared with
}

// VariantCoreFields are the fixed columns of every variants row.
var VariantCoreFields = []Field{
	{Name: "chr", Category: CategoryVariants, Type: TypeStr, Description: "Chromosome"},
	{Name: "pos", Category: CategoryVariants, Type: TypeInt, Description: "1-based position"},
	{Name: "ref", Category: CategoryVariants, Type: TypeStr, Description: "Reference allele"},
	{Name: "alt", Category: CategoryVariants, Type: TypeStr, Description: "Alternate allele"},
	{Name: "rsid", Category: CategoryVariants, Type: TypeStr, Description: "Variant identifier"},
	{Name: "qual", Category: CategoryVariants, Type: TypeFloat, Description: "Quality score"},
	{Name: "filter", Category: CategoryVariants, Type: TypeStr, Description: "Filter status"},
}

// SampleCoreFields are the fixed columns of every genotypes row.
var SampleCoreFields = []Field{
	{Name: "gt", Category: CategorySamples, Type: TypeInt, Description: "Genotype code: -1 missing, 0 hom ref, 1 het, 2 hom alt"},
	{Name: "phased", Category: CategorySamples, Type: TypeBool, Description: "Genotype is phased"},
}

// reservedNames are column names used by the store itself.
var reservedNames = map[string]bool{
	"id": true, "variant_id": true, "sample_id": true,
}

// metaLine holds the key/value pairs of a structured header line such as
// ##INFO=<ID=DP,Number=1,Type=Integer,Description="Total Depth">.
type metaLine map[string]string

// parseMetaLine parses the <...> part of a structured header line.
func parseMetaLine(line string) (metaLine, error) {
	start := strings.IndexByte(line, '<')
	end := strings.LastIndexByte(line, '>')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("malformed header line: %s", line)
	}
	body := line[start+1 : end]

	m := make(metaLine)
	var key strings.Builder
	var val strings.Builder
	inKey, inQuote := true, false
	flush := func() {
		if key.Len() > 0 {
			m[strings.TrimSpace(key.String())] = val.String()
		}
		key.Reset()
		val.Reset()
		inKey = true
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(body):
			i++
			val.WriteByte(body[i])
		case c == '"':
			inQuote = !inQuote
		case inQuote:
			val.WriteByte(c)
		case inKey && c == '=':
			inKey = false
		case c == ',':
			flush()
		case inKey:
			key.WriteByte(c)
		default:
			val.WriteByte(c)
		}
	}
	flush()

	if m["ID"] == "" {
		return nil, fmt.Errorf("header line without ID: %s", line)
	}
	return m, nil
}

// fieldFromMeta converts an INFO or FORMAT declaration into a Field.
func fieldFromMeta(m metaLine, category string) Field {
	return Field{
		Name:        NormalizeName(m["ID"]),
		Category:    category,
		Type:        fieldType(m["Type"], m["Number"]),
		Description: m["Description"],
		Number:      m["Number"],
		Source:      m["ID"],
	}
}

// fieldType maps a VCF Type/Number pair to a column type. Per-alt (Number=A)
// fields keep their type since each variants row holds one alt; other
// multi-valued fields are kept as raw text.
func fieldType(vcfType, number string) string {
	single := number == "1" || number == "A"
	switch vcfType {
	case "Flag":
		return TypeBool
	case "Integer":
		if single {
			return TypeInt
		}
	case "Float":
		if single {
			return TypeFloat
		}
	}
	return TypeStr
}

// NormalizeName lowercases a header ID and replaces characters that are not
// letters, digits or underscores, so it can be used as a column name.
func NormalizeName(id string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(id)) {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if ok {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "field"
	}
	return name
}

// fieldSet accumulates fields of one category, rejecting names that collide
// with core or reserved columns or with each other.
type fieldSet struct {
	fields   []Field
	names    map[string]bool
	warnings []string
}

func newFieldSet(core []Field) *fieldSet {
	fs := &fieldSet{names: make(map[string]bool)}
	for _, f := range core {
		fs.names[f.Name] = true
	}
	for n := range reservedNames {
		fs.names[n] = true
	}
	return fs
}

func (fs *fieldSet) add(f Field) bool {
	if fs.names[f.Name] {
		fs.warnings = append(fs.warnings,
			fmt.Sprintf("%s field %q (%s) collides with an existing column, ignored", f.Category, f.Name, f.Source))
		return false
	}
	fs.names[f.Name] = true
	fs.fields = append(fs.fields, f)
	return true
}
