package store

import (
	"strconv"
	"strings"

	"github.com/inodb/varsift/internal/vcf"
)

// fieldValue converts the raw text of one INFO or FORMAT value into the
// column value for the given alt. Flags are stored as present/absent. The
// second result is false when a non-empty value could not be converted.
func fieldValue(f vcf.Field, raw string, present bool, altIndex int) (any, bool) {
	if f.Type == vcf.TypeBool {
		return present, true
	}
	if !present || raw == "" || raw == "." {
		return nil, true
	}
	if f.Number == "A" {
		parts := strings.Split(raw, ",")
		if altIndex >= len(parts) {
			return nil, false
		}
		raw = parts[altIndex]
		if raw == "" || raw == "." {
			return nil, true
		}
	}

	switch f.Type {
	case vcf.TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case vcf.TypeFloat:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return x, true
	default:
		return raw, true
	}
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalize maps driver-specific scan results onto int64, float64, string,
// bool and nil.
func normalize(v any, fieldType string) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		v = int64(x)
	case int16:
		v = int64(x)
	case int8:
		v = int64(x)
	case int:
		v = int64(x)
	case float32:
		return float64(x)
	}
	if n, ok := v.(int64); ok && fieldType == vcf.TypeBool {
		return n != 0
	}
	return v
}
