package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t      *testing.T
	config string
	db     string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	return &cli{
		t:      t,
		config: filepath.Join(dir, "varsift.yaml"),
		db:     filepath.Join(dir, "project.duckdb"),
	}
}

// run executes varsift with the test config and database.
func (c *cli) run(args ...string) (code int, stdout, stderr string) {
	var out, errb bytes.Buffer
	full := append([]string{"--config", c.config, "--db", c.db, "--log-level", "error"}, args...)
	code = run(context.Background(), full, &out, &errb)
	return code, out.String(), errb.String()
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run(args...)
	require.Equal(c.t, ExitSuccess, code, "stderr: %s", errOut)
	return out
}

func testFile(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"version"}, &out, &bytes.Buffer{})
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out.String(), "varsift version dev")
}

func TestUsageErrors(t *testing.T) {
	c := newCLI(t)

	code, _, errOut := c.run("import")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut, "accepts 1 arg")

	code, _, _ = c.run("variants", "--no-such-flag")
	assert.Equal(t, ExitUsage, code)

	var errb bytes.Buffer
	code = run(context.Background(), []string{"--config", c.config, "samples"}, &bytes.Buffer{}, &errb)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errb.String(), "no project database")
}

func TestImportAndQuery(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("import", testFile("test.snpeff.vcf"))
	assert.Contains(t, out, "state:          committed")
	assert.Contains(t, out, "variants:       4")
	assert.Contains(t, out, "dialect:        snpeff")

	// Importing the same file again is refused.
	code, _, errOut := c.run("import", testFile("test.snpeff.vcf"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "already imported")

	out = c.mustRun("variants", "--fields", "chr,pos,alt", "--gene", "TP53")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#id\tchr\tpos\talt", lines[0])
	assert.Equal(t, "3\t17\t7675088\tT", lines[1])

	out = c.mustRun("variants", "--count", "--impact", "HIGH")
	assert.Equal(t, "1\n", out)

	out = c.mustRun("samples")
	assert.Contains(t, out, "\tTUMOR\t")
	assert.Contains(t, out, "\tNORMAL\t")

	out = c.mustRun("fields", "--category", "samples")
	assert.Contains(t, out, "gt\tsamples\tint\t")
	assert.Contains(t, out, "dp\tsamples\tint\tRead Depth")

	out = c.mustRun("info")
	assert.Contains(t, out, "variants:    4")
	assert.Contains(t, out, "sources:     1")
	assert.Contains(t, out, "test.snpeff.vcf\tsnpeff\t3 records")
}

func TestPedigree(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", testFile("test.snpeff.vcf"))

	out := c.mustRun("pedigree", testFile("test.snpeff.pedigree.tfam"))
	assert.Contains(t, out, "rows:    3")
	assert.Contains(t, out, "updated: 2")
	assert.Contains(t, out, `sample "GHOST" not found`)

	out = c.mustRun("samples")
	assert.Contains(t, out, "fam1\tTUMOR\t-\tNORMAL\t2\t2\n")
}

func TestSelections(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", testFile("test.snpeff.vcf"))

	out := c.mustRun("selections", "create", "kras", "--gene", "KRAS")
	assert.Equal(t, "Created kras (1)\n", out)
	out = c.mustRun("selections", "create", "picked", "--ids", "2,3")
	assert.Equal(t, "Created picked (2)\n", out)

	code, _, _ := c.run("selections", "create", "bad", "--ids", "1", "--gene", "KRAS")
	assert.Equal(t, ExitUsage, code)

	c.mustRun("selections", "rename", "kras", "g12")
	out = c.mustRun("selections", "list")
	assert.Equal(t, "#name\tcount\tquery\nvariants\t4\t-\ng12\t1\tgene=KRAS\npicked\t2\t-\n", out)

	out = c.mustRun("variants", "--selection", "picked", "--count")
	assert.Equal(t, "2\n", out)

	c.mustRun("selections", "delete", "g12")
	code, _, errOut := c.run("selections", "delete", "g12")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "selection not found")
}

func TestShow(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", testFile("test.snpeff.vcf"))

	out := c.mustRun("show", "fields_editor")
	assert.True(t, strings.HasPrefix(out, "variants\n  [x] chr\t"), out)

	out = c.mustRun("show", "selections")
	assert.Contains(t, out, "variants\t4\t-\n")

	code, _, _ := c.run("show", "nope")
	assert.Equal(t, ExitUsage, code)

	c.mustRun("config", "set", "plugins.disabled", "samples")
	code, _, errOut := c.run("show", "samples")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "disabled")
}

func TestConfig(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("config", "set", "import.batch_size", "250")
	assert.Contains(t, out, "Set import.batch_size = 250 in "+c.config)

	out = c.mustRun("config", "get", "import.batch_size")
	assert.Equal(t, "250\n", out)

	data, err := os.ReadFile(c.config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "batch_size")

	code, _, errOut := c.run("config", "set", "log.mode", "verbose")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut, "log.mode")

	code, _, _ = c.run("config", "set", "no.such.key", "1")
	assert.Equal(t, ExitUsage, code)

	out = c.mustRun("config")
	assert.Contains(t, out, "batch_size: 250")
	assert.Contains(t, out, "mode: development")
}

func TestImportMAF(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("import", testFile("test.maf"))
	assert.Contains(t, out, "dialect:        maf")
	assert.Contains(t, out, "variants:       3")
	assert.Contains(t, out, "skipped:        1")
	assert.Contains(t, out, "maf parse error at line 5: invalid position")

	out = c.mustRun("variants", "--fields", "tumor_sample", "--chrom", "7")
	assert.Equal(t, "#id\ttumor_sample\n2\tS1\n3\tS2\n", out)
}
