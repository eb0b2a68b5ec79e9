package maf

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/varsift/internal/vcf"
)

func testFile(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func readAll(t *testing.T, p *Parser) ([]*vcf.Variant, []*vcf.ParseError) {
	t.Helper()
	var variants []*vcf.Variant
	var errs []*vcf.ParseError
	for {
		v, err := p.Next()
		if err != nil {
			var pe *vcf.ParseError
			require.True(t, errors.As(err, &pe), "unexpected error: %v", err)
			errs = append(errs, pe)
			continue
		}
		if v == nil {
			return variants, errs
		}
		variants = append(variants, v)
	}
}

func TestParser_ParseVariants(t *testing.T) {
	parser, err := NewParser(testFile("test.maf"))
	require.NoError(t, err)
	defer parser.Close()

	assert.Equal(t, Dialect, parser.Dialect())
	assert.Nil(t, parser.SampleNames())
	assert.True(t, strings.HasPrefix(parser.Header(), "Hugo_Symbol\t"))

	variants, errs := readAll(t, parser)
	require.Len(t, variants, 3)
	require.Len(t, errs, 1)
	assert.Equal(t, 5, errs[0].Line)
	assert.Equal(t, "maf parse error at line 5: invalid position: notanumber", errs[0].Error())

	// KRAS G12V
	v := variants[0]
	assert.Equal(t, "12", v.Chrom)
	assert.Equal(t, int64(25245350), v.Pos)
	assert.Equal(t, "C", v.Ref)
	assert.Equal(t, []string{"A"}, v.Alts)
	assert.Equal(t, "", v.ID, "novel is not an identifier")
	assert.Equal(t, 3, v.Line)
	assert.Equal(t, "S1", v.Info[ColTumorSampleBarcode])
	assert.Equal(t, "40", v.Info[ColTDepth])
	require.Len(t, v.Annotations, 1)
	assert.Equal(t, "KRAS", v.Annotations[0].Values["gene"])
	assert.Equal(t, "p.G12V", v.Annotations[0].Values["hgvs_p"])
	assert.Equal(t, "Missense_Mutation", v.Annotations[0].Values["variant_class"])

	// Allele2 repeats the reference, Allele1 holds the change.
	v = variants[1]
	assert.Equal(t, []string{"T"}, v.Alts)
	assert.Equal(t, "rs113488022", v.ID)

	// Deletions keep the MAF "-" allele.
	v = variants[2]
	assert.Equal(t, []string{"-"}, v.Alts)
	assert.Equal(t, "DEL", v.Info[ColVariantType])
	assert.Equal(t, 6, parser.LineNumber())
}

func TestParser_Fields(t *testing.T) {
	parser, err := NewParser(testFile("test.maf"))
	require.NoError(t, err)
	defer parser.Close()

	var names []string
	for _, f := range parser.Fields() {
		names = append(names, f.Category+"."+f.Name)
	}
	assert.Equal(t, []string{
		"variants.chr", "variants.pos", "variants.ref", "variants.alt", "variants.rsid", "variants.qual", "variants.filter",
		"variants.tumor_sample", "variants.variant_type", "variants.t_depth", "variants.t_alt_count",
		"annotations.gene", "annotations.variant_class", "annotations.transcript", "annotations.hgvs_c", "annotations.hgvs_p",
		"samples.gt", "samples.phased",
	}, names)
}

func TestParser_Gzip(t *testing.T) {
	data, err := os.ReadFile(testFile("test.maf"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "test.maf.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	parser, err := NewParser(path)
	require.NoError(t, err)
	defer parser.Close()

	variants, errs := readAll(t, parser)
	assert.Len(t, variants, 3)
	assert.Len(t, errs, 1)
}

func TestParser_HeaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "no header line found"},
		{"comments only", "#version 2.4\n", "no header line found"},
		{"missing ref", "Chromosome\tStart_Position\tTumor_Seq_Allele2\n", "'Reference_Allele'"},
		{"missing alt", "Chromosome\tStart_Position\tReference_Allele\n", "'Tumor_Seq_Allele2'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParserFromReader(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParser_LineErrors(t *testing.T) {
	header := "Chromosome\tStart_Position\tReference_Allele\tTumor_Seq_Allele2\n"
	tests := []struct {
		name    string
		line    string
		wantErr string
	}{
		{"short", "1\t100\tA", "expected at least 4 columns"},
		{"bad pos", "1\tabc\tA\tT", "invalid position"},
		{"zero pos", "1\t0\tA\tT", "invalid position"},
		{"no alt", "1\t100\tA\t", "missing allele"},
		{"same allele", "1\t100\tA\tA", "equals reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewParserFromReader(strings.NewReader(header + tt.line + "\n1\t200\tG\tC"))
			require.NoError(t, err)

			_, err = p.Next()
			var pe *vcf.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, 2, pe.Line)
			assert.Contains(t, pe.Message, tt.wantErr)

			// The parser stays usable; the last line has no newline.
			v, err := p.Next()
			require.NoError(t, err)
			require.NotNil(t, v)
			assert.Equal(t, int64(200), v.Pos)
			assert.Nil(t, v.Annotations)
		})
	}
}

func TestParser_MissingFile(t *testing.T) {
	_, err := NewParser(testFile("nope.maf"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
