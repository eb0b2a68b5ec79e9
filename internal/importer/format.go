package importer

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/varsift/internal/maf"
	"github.com/inodb/varsift/internal/vcf"
)

// Input formats.
const (
	FormatVCF = "vcf"
	FormatMAF = "maf"
)

// DetectFormat detects the input file format based on extension or content.
func DetectFormat(path string) string {
	lowerPath := strings.ToLower(path)
	lowerPath = strings.TrimSuffix(lowerPath, ".gz")

	if strings.HasSuffix(lowerPath, ".vcf") {
		return FormatVCF
	}
	if strings.HasSuffix(lowerPath, ".maf") {
		return FormatMAF
	}

	// cBioPortal MAF filenames
	baseName := filepath.Base(lowerPath)
	if baseName == "data_mutations.txt" || baseName == "data_mutations_extended.txt" {
		return FormatMAF
	}

	if path == "-" {
		return FormatVCF
	}

	file, err := os.Open(path)
	if err != nil {
		return FormatVCF
	}
	defer file.Close()

	var r io.Reader = file
	if zr, err := gzip.NewReader(file); err == nil {
		defer zr.Close()
		r = zr
	} else if _, err := file.Seek(0, io.SeekStart); err != nil {
		return FormatVCF
	}

	buf := make([]byte, 4096)
	n, _ := io.ReadFull(r, buf)
	content := string(buf[:n])

	if strings.HasPrefix(content, "##fileformat=VCF") || strings.HasPrefix(content, "#CHROM") {
		return FormatVCF
	}
	if strings.Contains(content, maf.ColHugoSymbol) && strings.Contains(content, maf.ColChromosome) {
		return FormatMAF
	}
	return FormatVCF
}

// OpenReader opens path as the given format, detecting it when format is "".
// The dialect hint applies to VCF input only.
func OpenReader(path, format, dialect string) (vcf.VariantReader, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	switch strings.ToLower(format) {
	case FormatVCF:
		return vcf.NewParser(path, dialect)
	case FormatMAF:
		return maf.NewParser(path)
	default:
		return nil, fmt.Errorf("unknown input format %q (expected vcf or maf)", format)
	}
}
