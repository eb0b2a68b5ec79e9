package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/varsift/internal/store"
)

func TestTabWriter_WriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf, "id", "chr", "pos")

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Flush())

	assert.Equal(t, "#id\tchr\tpos\n", buf.String())
}

func TestTabWriter_WriteRow(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf, "id", "chr", "qual", "db", "gene")

	require.NoError(t, w.WriteRow(int64(1), "12", 60.5, true, nil))
	require.NoError(t, w.Flush())

	assert.Equal(t, "1\t12\t60.5\ttrue\t-\n", buf.String())
}

func TestTabWriter_WrongWidth(t *testing.T) {
	w := NewTabWriter(&bytes.Buffer{}, "a", "b")
	assert.Error(t, w.WriteRow("x"))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "-"},
		{"", "-"},
		{"a\tb", "a b"},
		{int64(-1), "-1"},
		{3, "3"},
		{0.1, "0.1"},
		{float64(40), "40"},
		{false, "false"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in), "%#v", tt.in)
	}
}

func TestWriteResult(t *testing.T) {
	res := &store.Result{
		Columns: []string{"id", "chr", "pos"},
		Rows: [][]any{
			{int64(1), "12", int64(25245350)},
			{int64(2), "7", int64(140753336)},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, res))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#id\tchr\tpos", lines[0])
	assert.Equal(t, "2\t7\t140753336", lines[2])
}

func TestWriteSamples(t *testing.T) {
	samples := []store.Sample{
		{Name: "TUMOR", Family: "fam1", Mother: "NORMAL", Sex: 2, Phenotype: 2},
		{Name: "NORMAL", Family: "fam1", Sex: 2, Phenotype: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSamples(&buf, samples))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#family\tsample\tfather\tmother\tsex\tphenotype", lines[0])
	assert.Equal(t, "fam1\tTUMOR\t-\tNORMAL\t2\t2", lines[1])
}

func TestWriteFieldsAndSelections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFields(&buf, []store.Field{
		{Name: "dp", Category: "variants", Type: "int", Description: "Total Depth"},
	}))
	assert.Contains(t, buf.String(), "dp\tvariants\tint\tTotal Depth\n")

	buf.Reset()
	require.NoError(t, WriteSelections(&buf, []store.Selection{
		{Name: "variants", Count: 4},
		{Name: "kras", Count: 1, Query: "gene=KRAS"},
	}))
	assert.Equal(t, "#name\tcount\tquery\nvariants\t4\t-\nkras\t1\tgene=KRAS\n", buf.String())
}
