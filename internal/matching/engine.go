// internal/matching/engine.go
package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"agrocredit-workers/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultMinScoreExclusive drops partners whose match score is at or below it.
const DefaultMinScoreExclusive = 30

// Engine scores and ranks partners for one operation. Partners are scanned
// linearly; callers are expected to hold tens of partners, not millions.
type Engine struct {
	weights           Weights
	minScoreExclusive int
}

type Option func(*Engine)

func WithMinScoreExclusive(threshold int) Option {
	return func(e *Engine) {
		e.minScoreExclusive = threshold
	}
}

func NewEngine(weights Weights, opts ...Option) *Engine {
	e := &Engine{weights: weights, minScoreExclusive: DefaultMinScoreExclusive}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factors computes the six match factors for one partner.
func (e *Engine) Factors(op *models.CreditOperation, riskScore int, p models.PartnerInstitution) [models.MatchFactorCount]models.MatchFactor {
	var region string
	var crops []string
	if op.Applicant != nil {
		region = op.Applicant.Region
		crops = op.Applicant.Crops
	}

	return [models.MatchFactorCount]models.MatchFactor{
		{
			Name:        FactorTicket,
			Weight:      e.weights.Ticket,
			Score:       TicketFit(op.RequestedAmount, p.TicketMin, p.TicketMax),
			Description: fmt.Sprintf("Requested %s against ticket range %s", op.RequestedAmount.StringFixed(2), ticketRange(p.TicketMin, p.TicketMax)),
		},
		{
			Name:        FactorGuarantee,
			Weight:      e.weights.Guarantee,
			Score:       GuaranteeFit(op.Guarantees, p.AcceptedGuarantees),
			Description: fmt.Sprintf("Guarantees [%s] against accepted [%s]", strings.Join(op.Guarantees, ", "), acceptedList(p.AcceptedGuarantees)),
		},
		{
			Name:        FactorRegion,
			Weight:      e.weights.Region,
			Score:       RegionFit(region, p.AcceptedRegions),
			Description: fmt.Sprintf("Region %s against accepted [%s]", region, acceptedList(p.AcceptedRegions)),
		},
		{
			Name:        FactorCrop,
			Weight:      e.weights.Crop,
			Score:       CropFit(crops, p.AcceptedCrops),
			Description: fmt.Sprintf("Crops [%s] against accepted [%s]", strings.Join(crops, ", "), acceptedList(p.AcceptedCrops)),
		},
		{
			Name:        FactorScore,
			Weight:      e.weights.Score,
			Score:       ScoreFit(riskScore, p.MinScore),
			Description: fmt.Sprintf("Risk score %d against partner minimum %d", riskScore, p.MinScore),
		},
		{
			Name:        FactorOperationType,
			Weight:      e.weights.OperationType,
			Score:       OperationTypeFit(op.OperationType, p.AcceptedOperationTypes),
			Description: fmt.Sprintf("Operation type %s against accepted [%s]", op.OperationType, acceptedList(p.AcceptedOperationTypes)),
		},
	}
}

// Total is the rounded weighted sum of the factor scores.
func Total(factors [models.MatchFactorCount]models.MatchFactor) int {
	var sum float64
	for _, f := range factors {
		sum += f.Score * f.Weight
	}
	return int(math.Round(sum))
}

// Rank scores every active partner, drops those at or below the threshold
// and returns the survivors ordered by score with dense ranks 1..N. Equal
// scores keep the order in which partners were supplied.
func (e *Engine) Rank(op *models.CreditOperation, riskScore int, partners []models.PartnerInstitution, now time.Time) []models.MatchResult {
	results := make([]models.MatchResult, 0, len(partners))
	for _, p := range partners {
		if !p.Active {
			continue
		}
		factors := e.Factors(op, riskScore, p)
		total := Total(factors)
		if total <= e.minScoreExclusive {
			continue
		}
		results = append(results, models.MatchResult{
			OperationID: op.ID,
			PartnerID:   p.ID,
			PartnerName: p.Name,
			PartnerType: p.Type,
			Score:       total,
			Factors:     factors,
			CreatedAt:   now,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

func ticketRange(lo, hi decimal.Decimal) string {
	if hi.Sign() <= 0 {
		return lo.StringFixed(2) + "-unbounded"
	}
	return lo.StringFixed(2) + "-" + hi.StringFixed(2)
}

func acceptedList(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ", ")
}
