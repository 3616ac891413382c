package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dharmasatrya/farebroker/internal/models"
)

const DefaultPriorityDeltaPercent = 5

var hundred = decimal.NewFromInt(100)

// Threshold is the upper bound of the competitive zone: the cheapest
// positive price plus deltaPercent. Zero when no offer has a positive price.
func Threshold(offers []models.Offer, deltaPercent decimal.Decimal) decimal.Decimal {
	min, ok := findMinPrice(offers)
	if !ok {
		return decimal.Zero
	}
	return min.Mul(decimal.NewFromInt(1).Add(deltaPercent.Div(hundred)))
}

func InZone(o models.Offer, threshold decimal.Decimal) bool {
	return o.TotalPrice.IsPositive() && o.TotalPrice.LessThanOrEqual(threshold)
}

// Less orders offers inside the zone first, primary before fallback, then
// by price. Outside the zone only price counts. Offer ID breaks ties.
func Less(a, b models.Offer, threshold decimal.Decimal) bool {
	za, zb := InZone(a, threshold), InZone(b, threshold)
	if za != zb {
		return za
	}
	if za {
		pa, pb := providerRank(a.Provider), providerRank(b.Provider)
		if pa != pb {
			return pa < pb
		}
	}
	if c := a.TotalPrice.Cmp(b.TotalPrice); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

// Rank returns a sorted copy of offers.
func Rank(offers []models.Offer, deltaPercent decimal.Decimal) []models.Offer {
	result := make([]models.Offer, len(offers))
	copy(result, offers)

	threshold := Threshold(result, deltaPercent)
	sort.SliceStable(result, func(i, j int) bool {
		return Less(result[i], result[j], threshold)
	})
	return result
}

func providerRank(p models.ProviderTag) int {
	if p == models.ProviderPrimary {
		return 0
	}
	return 1
}

func findMinPrice(offers []models.Offer) (decimal.Decimal, bool) {
	var min decimal.Decimal
	found := false
	for _, o := range offers {
		if !o.TotalPrice.IsPositive() {
			continue
		}
		if !found || o.TotalPrice.LessThan(min) {
			min = o.TotalPrice
			found = true
		}
	}
	return min, found
}
