// internal/models/partner.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PartnerType string

const (
	PartnerTypeBank           PartnerType = "BANK"
	PartnerTypeCooperative    PartnerType = "COOPERATIVE"
	PartnerTypeFIDC           PartnerType = "FIDC"
	PartnerTypeSecuritizer    PartnerType = "SECURITIZER"
	PartnerTypeFiagro         PartnerType = "FIAGRO"
	PartnerTypeCapitalMarkets PartnerType = "CAPITAL_MARKETS"
)

const PartnerTypeCount = 6

// PartnerTypes lists every partner type in eligibility-table order.
var PartnerTypes = [PartnerTypeCount]PartnerType{
	PartnerTypeBank,
	PartnerTypeCooperative,
	PartnerTypeFIDC,
	PartnerTypeSecuritizer,
	PartnerTypeFiagro,
	PartnerTypeCapitalMarkets,
}

// PartnerInstitution holds a partner's acceptance criteria. Empty accepted
// sets mean "accepts all"; a zero TicketMax means no upper bound.
type PartnerInstitution struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	Type                   PartnerType     `json:"type"`
	Active                 bool            `json:"active"`
	TicketMin              decimal.Decimal `json:"ticketMin"`
	TicketMax              decimal.Decimal `json:"ticketMax"`
	AcceptedGuarantees     []string        `json:"acceptedGuarantees"`
	AcceptedRegions        []string        `json:"acceptedRegions"`
	AcceptedCrops          []string        `json:"acceptedCrops"`
	AcceptedOperationTypes []string        `json:"acceptedOperationTypes"`
	MinScore               int             `json:"minScore"`
	CreatedAt              time.Time       `json:"createdAt"`
}
