package systems

import (
	"math"

	"github.com/pthm-cable/ecotile/components"
)

// RateDecay holds the density coefficients of the reproduction probability.
type RateDecay struct {
	Pred float64
	Prey float64
}

// ReproductionRates returns exp(-k·N) for each species. Callers pass the
// population counts observed after feeding.
func ReproductionRates(predCount, preyCount int, k RateDecay) components.Rates {
	return components.Rates{
		Pred: math.Exp(-k.Pred * float64(predCount)),
		Prey: math.Exp(-k.Prey * float64(preyCount)),
	}
}
