package warming

import (
	"github.com/galihcitta/number-warming-service/internal/models"
)

// WeightedAction is one outcome of a Distribution.
type WeightedAction struct {
	Weight float64
	Action models.Action
}

// Distribution is an ordered discrete distribution over actions. Sampling
// walks the entries in order, so earlier entries win ties at the boundary.
type Distribution []WeightedAction

// Sample maps a uniform draw u in [0,1) onto an action by cumulative
// weight. Draws past the cumulative total fall to the last entry.
func (d Distribution) Sample(u float64) models.Action {
	if len(d) == 0 {
		return ""
	}

	var cumulative float64
	for _, wa := range d {
		cumulative += wa.Weight
		if u < cumulative {
			return wa.Action
		}
	}
	return d[len(d)-1].Action
}

// ReceivePct is the probability that the primary receives, r/(r+1).
func ReceivePct(r float64) float64 {
	return r / (r + 1)
}

// ActionWeights builds the cycle distribution for receive ratio r: the
// primary receives from a secondary, sends to a secondary, or sends to a
// client. Sends are split evenly between the last two.
func ActionWeights(r float64) Distribution {
	receive := ReceivePct(r)
	toSecondary := (1 - receive) / 2
	return Distribution{
		{Weight: receive, Action: models.ActionSecondaryToPrimary},
		{Weight: toSecondary, Action: models.ActionPrimaryToSecondary},
		{Weight: 1 - receive - toSecondary, Action: models.ActionPrimaryToClient},
	}
}
