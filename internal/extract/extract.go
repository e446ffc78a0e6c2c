// Package extract pulls the organization's commitment figure out of document text.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"credit-coupling-api/internal/models"
)

// DefaultCommitment is used when no labeled figure is found.
var DefaultCommitment = decimal.NewFromInt(50000)

var twelve = decimal.NewFromInt(12)

type pattern struct {
	label string
	re    *regexp.Regexp
}

// Checked in order; the first match wins.
var patterns = []pattern{
	{"Annual Commitment", regexp.MustCompile(`(?i)Annual Commitment[:\s]*\$?([\d,]+)`)},
	{"Total AWS Services", regexp.MustCompile(`(?i)Total AWS Services[:\s]*\$?([\d,]+)`)},
	{"Commitment", regexp.MustCompile(`(?i)Commitment[:\s]*\$?([\d,]+)`)},
}

// Commitment scans text for a labeled whole-dollar commitment. The monthly
// target is the commitment divided by 12, rounded down.
func Commitment(text string) models.CommitmentExtraction {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		digits := strings.ReplaceAll(m[1], ",", "")
		amount, err := decimal.NewFromString(digits)
		if err != nil {
			continue
		}
		return result(amount, true, p.label)
	}
	return result(DefaultCommitment, false, "")
}

func result(commitment decimal.Decimal, matched bool, label string) models.CommitmentExtraction {
	return models.CommitmentExtraction{
		Commitment:    commitment,
		MonthlyTarget: commitment.Div(twelve).Floor(),
		Matched:       matched,
		Label:         label,
	}
}
