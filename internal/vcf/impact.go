package vcf

import (
	"fmt"
	"strings"
)

// Impact levels for variant consequences.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// GetImpact returns the impact level for a Sequence Ontology consequence.
// Compound consequences ("&" for VEP, "&" or "," elsewhere) return the highest
// impact among their terms.
func GetImpact(consequence string) string {
	best := ImpactModifier
	terms := strings.FieldsFunc(consequence, func(r rune) bool { return r == '&' || r == ',' })
	for _, term := range terms {
		var impact string
		switch strings.TrimSpace(term) {
		case "transcript_ablation", "stop_gained", "frameshift_variant",
			"stop_lost", "start_lost", "splice_acceptor_variant",
			"splice_donor_variant", "transcript_amplification",
			"exon_loss_variant":
			impact = ImpactHigh
		case "missense_variant", "inframe_insertion", "inframe_deletion",
			"protein_altering_variant", "disruptive_inframe_insertion",
			"disruptive_inframe_deletion", "inframe_variant":
			impact = ImpactModerate
		case "synonymous_variant", "splice_region_variant",
			"stop_retained_variant", "start_retained_variant",
			"incomplete_terminal_codon_variant", "coding_sequence_variant",
			"splice_donor_5th_base_variant", "splice_polypyrimidine_tract_variant":
			impact = ImpactLow
		default:
			impact = ImpactModifier
		}
		if ImpactRank(impact) > ImpactRank(best) {
			best = impact
		}
	}
	return best
}

// ImpactRank returns numeric rank for impact comparison (higher = more severe).
// Unknown values rank as MODIFIER.
func ImpactRank(impact string) int {
	switch strings.ToUpper(impact) {
	case ImpactHigh:
		return 3
	case ImpactModerate:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// ImpactsAtLeast returns the impact levels ranked at or above min, most
// severe first. min must name one of the four levels.
func ImpactsAtLeast(min string) ([]string, error) {
	levels := []string{ImpactHigh, ImpactModerate, ImpactLow, ImpactModifier}
	upper := strings.ToUpper(min)
	for i, imp := range levels {
		if imp == upper {
			return levels[:i+1], nil
		}
	}
	return nil, fmt.Errorf("unknown impact %q (expected HIGH, MODERATE, LOW or MODIFIER)", min)
}
