package store

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/gigboard/gigboard/src/gigs/failure"
)

// ValidateBreakdown checks that prizes form a dense 1..n range of unique
// places with non-negative amounts summing exactly to total.
func ValidateBreakdown(total decimal.Decimal, prizes []Prize) error {
	if len(prizes) == 0 {
		return failure.Wrap(failure.ErrValidation, "bounty breakdown needs at least one prize")
	}
	if !total.IsPositive() {
		return failure.Wrap(failure.ErrValidation, "total bounty must be positive")
	}

	sorted := SortedPrizes(prizes)
	sum := decimal.Zero
	for i, p := range sorted {
		if p.Place < 1 {
			return failure.Wrap(failure.ErrValidation, "place %d is not a positive integer", p.Place)
		}
		if p.Place != i+1 {
			if i > 0 && sorted[i-1].Place == p.Place {
				return failure.Wrap(failure.ErrValidation, "place %d appears more than once", p.Place)
			}
			return failure.Wrap(failure.ErrValidation, "places must run 1..%d without gaps, missing %d", len(sorted), i+1)
		}
		if p.Amount.IsNegative() {
			return failure.Wrap(failure.ErrValidation, "place %d has a negative amount", p.Place)
		}
		sum = sum.Add(p.Amount)
	}

	if !sum.Equal(total) {
		return failure.Wrap(failure.ErrValidation, "breakdown sums to %s but total bounty is %s", sum.String(), total.String())
	}
	return nil
}

// SortedPrizes returns a copy of prizes ordered by place.
func SortedPrizes(prizes []Prize) []Prize {
	out := make([]Prize, len(prizes))
	copy(out, prizes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Place < out[j].Place })
	return out
}

// PrizeFor returns the advertised prize at place.
func PrizeFor(prizes []Prize, place int) (Prize, bool) {
	for _, p := range prizes {
		if p.Place == place {
			return p, true
		}
	}
	return Prize{}, false
}
