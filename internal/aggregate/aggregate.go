// Package aggregate derives compliance-status counts from a completed
// evaluation payload. Everything here is a pure function over the payload.
package aggregate

import (
	"math"

	"github.com/compliance-checker/backend/internal/models"
)

// Summary holds counts and percentages per compliance symbol for one set of
// assessments. Unrecognized symbols are kept under their literal value, so
// the counts always sum to Total.
type Summary struct {
	Total       int                             `json:"total"`
	Counts      map[models.ComplianceStatus]int `json:"counts"`
	Percentages map[models.ComplianceStatus]int `json:"percentages"`
}

// CountByStatus counts every assessment exactly once, keyed by its literal
// status value.
func CountByStatus(items []models.ComplianceAssessment) map[models.ComplianceStatus]int {
	counts := make(map[models.ComplianceStatus]int)
	for _, item := range items {
		counts[item.Status]++
	}
	return counts
}

// Percentage returns the rounded share of count within total. An empty input
// is a valid degenerate payload, so total == 0 yields 0 rather than an error.
func Percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}

// Summarize builds the full display summary for a judgement list. The three
// known symbols are always present in the maps, even at zero, so the
// presentation can render stable rows; unknown symbols appear additionally.
func Summarize(items []models.ComplianceAssessment) Summary {
	counts := CountByStatus(items)
	for _, s := range []models.ComplianceStatus{models.ComplianceFull, models.CompliancePartial, models.ComplianceNone} {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}

	percentages := make(map[models.ComplianceStatus]int, len(counts))
	for status, count := range counts {
		percentages[status] = Percentage(count, len(items))
	}

	return Summary{
		Total:       len(items),
		Counts:      counts,
		Percentages: percentages,
	}
}
