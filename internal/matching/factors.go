// internal/matching/factors.go
package matching

import (
	"math"

	"github.com/shopspring/decimal"
)

// unboundedTicketFallback is returned when a request sits outside a ticket
// range in a way none of the other branches cover.
const unboundedTicketFallback = 50

// TicketFit scores the requested amount against a partner's ticket range.
// A zero max means the range has no upper bound.
func TicketFit(requested, ticketMin, ticketMax decimal.Decimal) float64 {
	unbounded := ticketMax.Sign() <= 0

	if requested.GreaterThanOrEqual(ticketMin) && (unbounded || requested.LessThanOrEqual(ticketMax)) {
		return 100
	}
	if requested.LessThan(ticketMin) {
		if ticketMin.Sign() <= 0 {
			return 0
		}
		return math.Max(0, requested.Div(ticketMin).InexactFloat64()*100)
	}
	if !unbounded && requested.GreaterThan(ticketMax) {
		excess := requested.Sub(ticketMax).Div(ticketMax).InexactFloat64()
		return math.Max(0, 100-excess*100)
	}
	return unboundedTicketFallback
}

// GuaranteeFit is the share of declared guarantees the partner accepts.
func GuaranteeFit(declared, accepted []string) float64 {
	if len(accepted) == 0 {
		return 100
	}
	tags := distinct(declared)
	if len(tags) == 0 {
		return 0
	}
	acceptedSet := toSet(accepted)
	var hits int
	for _, tag := range tags {
		if _, ok := acceptedSet[tag]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tags)) * 100
}

func RegionFit(region string, accepted []string) float64 {
	if len(accepted) == 0 || contains(accepted, region) {
		return 100
	}
	return 0
}

// CropFit is binary: any accepted crop is a full match.
func CropFit(crops, accepted []string) float64 {
	if len(accepted) == 0 {
		return 100
	}
	acceptedSet := toSet(accepted)
	for _, c := range crops {
		if _, ok := acceptedSet[c]; ok {
			return 100
		}
	}
	return 0
}

func ScoreFit(score, minScore int) float64 {
	if score >= minScore {
		return 100
	}
	return math.Max(0, float64(score)/float64(minScore)*100)
}

func OperationTypeFit(operationType string, accepted []string) float64 {
	if len(accepted) == 0 || contains(accepted, operationType) {
		return 100
	}
	return 0
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
