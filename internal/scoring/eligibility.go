// internal/scoring/eligibility.go
package scoring

import (
	"fmt"

	"agrocredit-workers/internal/models"

	"github.com/shopspring/decimal"
)

type eligibilityRule struct {
	partnerType models.PartnerType
	label       string
	minScore    int
	tiers       []models.ApplicantTier // nil accepts every tier
	tierReason  func(models.ApplicantTier) string
}

var eligibilityRules = [models.PartnerTypeCount]eligibilityRule{
	{
		partnerType: models.PartnerTypeBank,
		label:       "bank",
		minScore:    60,
	},
	{
		partnerType: models.PartnerTypeCooperative,
		label:       "cooperative",
		minScore:    40,
	},
	{
		partnerType: models.PartnerTypeFIDC,
		label:       "FIDC",
		minScore:    50,
		tiers:       []models.ApplicantTier{models.ApplicantTierB, models.ApplicantTierC, models.ApplicantTierD},
		tierReason: func(t models.ApplicantTier) string {
			if t == models.ApplicantTierA {
				return "FIDC does not fund tier A applicants"
			}
			return fmt.Sprintf("FIDC requires applicant tier B, C or D (got %q)", t)
		},
	},
	{
		partnerType: models.PartnerTypeSecuritizer,
		label:       "securitizer",
		minScore:    65,
		tiers:       []models.ApplicantTier{models.ApplicantTierC, models.ApplicantTierD},
		tierReason: func(t models.ApplicantTier) string {
			return fmt.Sprintf("Securitization requires applicant tier C or D (got %q)", t)
		},
	},
	{
		partnerType: models.PartnerTypeFiagro,
		label:       "Fiagro fund",
		minScore:    55,
	},
	{
		partnerType: models.PartnerTypeCapitalMarkets,
		label:       "capital markets",
		minScore:    70,
		tiers:       []models.ApplicantTier{models.ApplicantTierD},
		tierReason: func(t models.ApplicantTier) string {
			return fmt.Sprintf("Capital markets require applicant tier D (got %q)", t)
		},
	},
}

// Eligibility evaluates every partner type independently.
func Eligibility(total int, tier models.ApplicantTier, requested decimal.Decimal) [models.PartnerTypeCount]models.EligibilityRow {
	var rows [models.PartnerTypeCount]models.EligibilityRow
	for i, rule := range eligibilityRules {
		rows[i] = rule.evaluate(total, tier, requested)
	}
	return rows
}

func (r eligibilityRule) evaluate(total int, tier models.ApplicantTier, requested decimal.Decimal) models.EligibilityRow {
	row := models.EligibilityRow{
		PartnerType:       r.partnerType,
		MaxEligibleAmount: decimal.Zero,
	}

	switch {
	case !r.acceptsTier(tier):
		row.Reason = r.tierReason(tier)
	case total < r.minScore:
		row.Reason = fmt.Sprintf("Score %d is below the %s minimum of %d", total, r.label, r.minScore)
	default:
		row.Eligible = true
		row.Reason = fmt.Sprintf("Score %d meets the %s minimum of %d", total, r.label, r.minScore)
		row.MaxEligibleAmount = requested
	}
	return row
}

func (r eligibilityRule) acceptsTier(tier models.ApplicantTier) bool {
	if r.tiers == nil {
		return true
	}
	for _, t := range r.tiers {
		if t == tier {
			return true
		}
	}
	return false
}
