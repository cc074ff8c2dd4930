// internal/matching/weights.go
package matching

const (
	FactorTicket        = "ticket"
	FactorGuarantee     = "guarantee"
	FactorRegion        = "region"
	FactorCrop          = "crop"
	FactorScore         = "score"
	FactorOperationType = "operation_type"
)

// Weights combines the six match factors into a match score.
type Weights struct {
	Ticket        float64
	Guarantee     float64
	Region        float64
	Crop          float64
	Score         float64
	OperationType float64
}

func DefaultWeights() Weights {
	return Weights{
		Ticket:        0.25,
		Guarantee:     0.20,
		Region:        0.15,
		Crop:          0.15,
		Score:         0.15,
		OperationType: 0.10,
	}
}

func (w Weights) Sum() float64 {
	return w.Ticket + w.Guarantee + w.Region + w.Crop + w.Score + w.OperationType
}
