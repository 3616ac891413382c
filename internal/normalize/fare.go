package normalize

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/providers"
)

var premiumPenaltyLimit = decimal.NewFromInt(50)

// ClassifyFare assigns the fare tier. Premium needs refundable, changeable
// and a checked bag with both penalties within the limit; Comfort needs any
// one of the three.
func ClassifyFare(c models.Conditions, checkedBag bool) models.FareTier {
	if c.Refundable && c.Changeable && checkedBag &&
		withinLimit(c.RefundPenalty) && withinLimit(c.ChangePenalty) {
		return models.FarePremium
	}
	if checkedBag || c.Refundable || c.Changeable {
		return models.FareComfort
	}
	return models.FareBasic
}

func withinLimit(penalty *decimal.Decimal) bool {
	return penalty == nil || penalty.LessThanOrEqual(premiumPenaltyLimit)
}

var bagTokens = []string{"baggage", "bag", "luggage"}

func primaryHasCheckedBag(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var services []providers.PrimaryService
	if err := json.Unmarshal(raw, &services); err != nil {
		return false
	}
	for _, s := range services {
		t := strings.ToLower(s.Type)
		for _, token := range bagTokens {
			if strings.Contains(t, token) {
				return true
			}
		}
	}
	return false
}

func fallbackHasCheckedBag(pricings []providers.FallbackTravelerPricing) bool {
	for _, p := range pricings {
		for _, d := range p.FareDetailsBySegment {
			bags := d.IncludedCheckedBags
			if bags.Quantity != nil && *bags.Quantity > 0 {
				return true
			}
			if bags.Weight != nil && *bags.Weight > 0 {
				return true
			}
		}
	}
	return false
}

func primaryConditions(raw providers.PrimaryConditions) models.Conditions {
	var c models.Conditions
	if ch := raw.ChangeBeforeDeparture; ch != nil {
		c.Changeable = ch.Allowed
		c.ChangePenalty = parsePenalty(ch.PenaltyAmount)
	}
	if rf := raw.RefundBeforeDeparture; rf != nil {
		c.Refundable = rf.Allowed
		c.RefundPenalty = parsePenalty(rf.PenaltyAmount)
	}
	return c
}

func parsePenalty(s *string) *decimal.Decimal {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &d
}
