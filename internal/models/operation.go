// internal/models/operation.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationStatus string

const (
	OperationStatusDraft     OperationStatus = "DRAFT"
	OperationStatusSubmitted OperationStatus = "SUBMITTED"
	OperationStatusScoring   OperationStatus = "SCORING"
	OperationStatusMatching  OperationStatus = "MATCHING"
)

// ApplicantTier is the externally derived revenue band of an applicant.
type ApplicantTier string

const (
	ApplicantTierA ApplicantTier = "A"
	ApplicantTierB ApplicantTier = "B"
	ApplicantTierC ApplicantTier = "C"
	ApplicantTierD ApplicantTier = "D"
)

// CreditOperation is one financing request. Applicant is populated by
// store reads that join the applicant profile.
type CreditOperation struct {
	ID              string            `json:"id"`
	ApplicantID     string            `json:"applicantId"`
	RequestedAmount decimal.Decimal   `json:"requestedAmount"`
	TermMonths      int               `json:"termMonths"`
	Purpose         string            `json:"purpose"`
	Guarantees      []string          `json:"guarantees"`
	GuaranteeValue  decimal.Decimal   `json:"guaranteeValue"`
	OperationType   string            `json:"operationType"`
	Status          OperationStatus   `json:"status"`
	Applicant       *ApplicantProfile `json:"applicant,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type ApplicantProfile struct {
	ID               string            `json:"id"`
	Region           string            `json:"region"`
	Crops            []string          `json:"crops"`
	YearsInOperation int               `json:"yearsInOperation"`
	HasInsurance     bool              `json:"hasInsurance"`
	Tier             ApplicantTier     `json:"tier"`
	Financial        *FinancialProfile `json:"financial,omitempty"`
}

type FinancialProfile struct {
	AnnualRevenue      decimal.Decimal   `json:"annualRevenue"`
	TotalDebt          decimal.Decimal   `json:"totalDebt"`
	CashFlowMonthly    []decimal.Decimal `json:"cashFlowMonthly"`
	GuaranteeValue     decimal.Decimal   `json:"guaranteeValue"`
	HasNegativeRecords bool              `json:"hasNegativeRecords"`
	CreditHistoryYears int               `json:"creditHistoryYears"`
}

// DebtToRevenueRatio is zero when no revenue was declared.
func (f *FinancialProfile) DebtToRevenueRatio() float64 {
	if f.AnnualRevenue.Sign() <= 0 {
		return 0
	}
	return f.TotalDebt.Div(f.AnnualRevenue).InexactFloat64()
}

// Clone returns a deep copy so in-memory stores never hand out shared slices.
func (o *CreditOperation) Clone() *CreditOperation {
	cp := *o
	cp.Guarantees = append([]string(nil), o.Guarantees...)
	if o.Applicant != nil {
		a := *o.Applicant
		a.Crops = append([]string(nil), o.Applicant.Crops...)
		if o.Applicant.Financial != nil {
			f := *o.Applicant.Financial
			f.CashFlowMonthly = append([]decimal.Decimal(nil), o.Applicant.Financial.CashFlowMonthly...)
			a.Financial = &f
		}
		cp.Applicant = &a
	}
	return &cp
}
