package scorer

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"credit-coupling-api/internal/catalog"
	"credit-coupling-api/internal/models"
	"credit-coupling-api/internal/validation"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func serverlessOffer() models.CreditOffer {
	return models.CreditOffer{
		ID:                 "serverless_credit",
		Name:               "Serverless Optimization Credit",
		DiscountPercent:    d("18"),
		PrimaryServices:    []string{"AWS Lambda"},
		SupportingServices: []string{"Amazon DynamoDB"},
		MinimumSpend:       d("300"),
	}
}

func scoreOne(t *testing.T, offer models.CreditOffer, spend models.ServiceSpend) models.EligibilityResult {
	t.Helper()
	results, err := Score(spend, []models.CreditOffer{offer})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	return results[0]
}

func TestScore_PartiallyQualified(t *testing.T) {
	result := scoreOne(t, serverlessOffer(), models.ServiceSpend{
		"AWS Lambda":      d("25.10"),
		"Amazon DynamoDB": d("10.00"),
	})

	if result.Status != models.StatusPartiallyQualified {
		t.Errorf("Expected partially_qualified, got %s", result.Status)
	}
	if len(result.MatchedPrimary) != 1 || result.MatchedPrimary[0].Service != "AWS Lambda" ||
		!result.MatchedPrimary[0].Spend.Equal(d("25.10")) {
		t.Errorf("Unexpected matched primary: %+v", result.MatchedPrimary)
	}
	if len(result.MatchedSupporting) != 1 || result.MatchedSupporting[0].Service != "Amazon DynamoDB" {
		t.Errorf("Unexpected matched supporting: %+v", result.MatchedSupporting)
	}
	if !result.TotalMatchedSpend.Equal(d("35.10")) {
		t.Errorf("Expected total 35.10, got %s", result.TotalMatchedSpend)
	}
	if !result.PotentialSavings.Equal(d("6.318")) {
		t.Errorf("Expected savings 6.318, got %s", result.PotentialSavings)
	}
	want := "Add $264.90 more spend to qualify for Serverless Optimization Credit. Consider expanding existing services."
	if result.RecommendationText != want {
		t.Errorf("Unexpected recommendation: %q", result.RecommendationText)
	}
}

func TestScore_Qualified(t *testing.T) {
	result := scoreOne(t, serverlessOffer(), models.ServiceSpend{"AWS Lambda": d("310.0")})

	if result.Status != models.StatusQualified {
		t.Errorf("Expected qualified, got %s", result.Status)
	}
	if !result.TotalMatchedSpend.Equal(d("310")) {
		t.Errorf("Expected total 310, got %s", result.TotalMatchedSpend)
	}
	if !result.PotentialSavings.Equal(d("55.8")) {
		t.Errorf("Expected savings 55.8, got %s", result.PotentialSavings)
	}
	if len(result.MissingSupporting) != 1 || result.MissingSupporting[0] != "Amazon DynamoDB" {
		t.Errorf("Expected DynamoDB missing, got %v", result.MissingSupporting)
	}
}

func TestScore_ExactlyAtMinimumQualifies(t *testing.T) {
	result := scoreOne(t, serverlessOffer(), models.ServiceSpend{
		"AWS Lambda":      d("290"),
		"Amazon DynamoDB": d("10"),
	})
	if result.Status != models.StatusQualified {
		t.Errorf("Expected qualified at threshold, got %s", result.Status)
	}
}

func TestScore_SupportingOnlyIsOpportunity(t *testing.T) {
	result := scoreOne(t, serverlessOffer(), models.ServiceSpend{"Amazon DynamoDB": d("5000")})

	if result.Status != models.StatusOpportunity {
		t.Errorf("Expected opportunity, got %s", result.Status)
	}
	if len(result.MatchedPrimary) != 0 {
		t.Errorf("Expected no primary matches, got %+v", result.MatchedPrimary)
	}
	if !result.TotalMatchedSpend.Equal(d("5000")) {
		t.Errorf("Supporting spend should still count toward total, got %s", result.TotalMatchedSpend)
	}
	if result.RecommendationText != "Add AWS Lambda to unlock Serverless Optimization Credit." {
		t.Errorf("Unexpected recommendation: %q", result.RecommendationText)
	}
}

func TestScore_EmptySpend(t *testing.T) {
	results, err := Score(models.ServiceSpend{}, catalog.DefaultOffers())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected every offer in the result, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != models.StatusOpportunity {
			t.Errorf("%s: expected opportunity, got %s", r.OfferID, r.Status)
		}
		if !r.TotalMatchedSpend.IsZero() || !r.PotentialSavings.IsZero() {
			t.Errorf("%s: expected zero spend and savings", r.OfferID)
		}
	}
}

func TestScore_CaseInsensitiveSubstring(t *testing.T) {
	offer := models.CreditOffer{
		ID:              "graviton",
		Name:            "Graviton",
		DiscountPercent: d("31"),
		PrimaryServices: []string{"Amazon EC2"},
		MinimumSpend:    d("100"),
	}
	result := scoreOne(t, offer, models.ServiceSpend{"AMAZON EC2 - Other": d("150.30")})

	if result.Status != models.StatusQualified {
		t.Errorf("Expected qualified, got %s", result.Status)
	}
	if result.MatchedPrimary[0].Service != "AMAZON EC2 - Other" {
		t.Errorf("Expected observed name in match, got %s", result.MatchedPrimary[0].Service)
	}
}

func TestScore_SharedMatchAllowedByDefault(t *testing.T) {
	offer := models.CreditOffer{
		ID:                 "shared",
		Name:               "Shared",
		DiscountPercent:    d("10"),
		PrimaryServices:    []string{"Amazon S3"},
		SupportingServices: []string{"S3"},
		MinimumSpend:       d("0"),
	}
	spend := models.ServiceSpend{"Amazon S3": d("40")}

	result := scoreOne(t, offer, spend)
	if len(result.MatchedSupporting) != 1 {
		t.Fatalf("Expected the same service to satisfy both requirements, got %+v", result.MatchedSupporting)
	}
	if !result.TotalMatchedSpend.Equal(d("80")) {
		t.Errorf("Expected double counted total 80, got %s", result.TotalMatchedSpend)
	}

	cat, err := catalog.New([]models.CreditOffer{offer})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	exclusive := New(cat, Options{ExclusiveMatching: true}).Score(spend)[0]
	if len(exclusive.MatchedSupporting) != 0 {
		t.Errorf("Exclusive matching should not reuse a service, got %+v", exclusive.MatchedSupporting)
	}
	if !exclusive.TotalMatchedSpend.Equal(d("40")) {
		t.Errorf("Expected exclusive total 40, got %s", exclusive.TotalMatchedSpend)
	}
}

func TestScore_FirstMatchIsDeterministic(t *testing.T) {
	offer := models.CreditOffer{
		ID:              "ec2",
		Name:            "EC2",
		DiscountPercent: d("10"),
		PrimaryServices: []string{"EC2"},
		MinimumSpend:    d("0"),
	}
	spend := models.ServiceSpend{
		"Amazon EC2 - Other":   d("1"),
		"Amazon EC2 - Compute": d("2"),
		"EC2 Container":        d("3"),
	}

	for i := 0; i < 20; i++ {
		result := scoreOne(t, offer, spend)
		if result.MatchedPrimary[0].Service != "Amazon EC2 - Compute" {
			t.Fatalf("Expected lexicographically first match, got %s", result.MatchedPrimary[0].Service)
		}
	}
}

func TestScore_Idempotent(t *testing.T) {
	spend := models.ServiceSpend{
		"Amazon Elastic Compute Cloud - Compute": d("150.30"),
		"Amazon Simple Storage Service":          d("45.20"),
		"AWS Lambda":                             d("25.10"),
		"Amazon SageMaker":                       d("52.20"),
	}
	s := New(catalog.Default(), Options{})

	first := s.Score(spend)
	second := s.Score(spend)
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical output for identical input")
	}
}

func TestScore_SavingsMatchesFormula(t *testing.T) {
	spend := models.ServiceSpend{
		"Amazon SageMaker": d("52.20"),
		"AWS Lambda":       d("25.10"),
		"Amazon EC2":       d("150.30"),
		"Amazon S3":        d("45.20"),
		"Amazon Redshift":  d("900.01"),
	}
	results, err := Score(spend, catalog.DefaultOffers())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	for _, r := range results {
		want := r.TotalMatchedSpend.Mul(r.DiscountPercent).Div(d("100"))
		if !r.PotentialSavings.Equal(want) {
			t.Errorf("%s: savings %s != %s", r.OfferID, r.PotentialSavings, want)
		}
	}
}

func TestScore_StatusTruthTable(t *testing.T) {
	tests := []struct {
		name  string
		spend models.ServiceSpend
		want  models.Status
	}{
		{"primary and above minimum", models.ServiceSpend{"AWS Lambda": d("300")}, models.StatusQualified},
		{"primary below minimum", models.ServiceSpend{"AWS Lambda": d("299.99")}, models.StatusPartiallyQualified},
		{"no primary below minimum", models.ServiceSpend{"Amazon DynamoDB": d("1")}, models.StatusOpportunity},
		{"no primary above minimum", models.ServiceSpend{"Amazon DynamoDB": d("1000")}, models.StatusOpportunity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreOne(t, serverlessOffer(), tt.spend).Status; got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestScore_MalformedCatalog(t *testing.T) {
	offers := []models.CreditOffer{serverlessOffer()}
	offers[0].MinimumSpend = d("-1")

	results, err := Score(models.ServiceSpend{"AWS Lambda": d("1")}, offers)

	var cfgErr *validation.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if results != nil {
		t.Errorf("Expected no results on configuration error, got %d", len(results))
	}
}
