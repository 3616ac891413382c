package filter

import (
	"strings"
	"time"

	"github.com/dharmasatrya/farebroker/internal/models"
)

// Apply keeps the offers matching every filter. The input order is
// preserved so the ranking survives.
func Apply(offers []models.Offer, filters *models.SearchFilters) []models.Offer {
	if filters == nil {
		return offers
	}

	result := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		if matchesFilters(o, filters) {
			result = append(result, o)
		}
	}
	return result
}

func matchesFilters(o models.Offer, filters *models.SearchFilters) bool {
	if filters.PriceMin != nil && o.TotalPrice.LessThan(*filters.PriceMin) {
		return false
	}
	if filters.PriceMax != nil && o.TotalPrice.GreaterThan(*filters.PriceMax) {
		return false
	}

	if filters.MaxStops != nil && o.Stops() > *filters.MaxStops {
		return false
	}

	if len(filters.Airlines) > 0 && !matchesAirline(o, filters.Airlines) {
		return false
	}

	if len(filters.FareTiers) > 0 {
		found := false
		for _, tier := range filters.FareTiers {
			if strings.EqualFold(string(tier), string(o.FareTier)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filters.DepartureTimeMin != nil || filters.DepartureTimeMax != nil {
		dep, err := parseTimeOfDay(o.DepartureTime())
		if err != nil {
			return false
		}
		if filters.DepartureTimeMin != nil {
			if minTime, err := parseTimeOfDay(*filters.DepartureTimeMin); err == nil && dep < minTime {
				return false
			}
		}
		if filters.DepartureTimeMax != nil {
			if maxTime, err := parseTimeOfDay(*filters.DepartureTimeMax); err == nil && dep > maxTime {
				return false
			}
		}
	}

	return true
}

// matchesAirline accepts the validating airline or any segment carrier.
func matchesAirline(o models.Offer, airlines []string) bool {
	for _, airline := range airlines {
		if strings.EqualFold(o.AirlineCode, airline) {
			return true
		}
		for _, it := range o.Itineraries {
			for _, s := range it.Segments {
				if strings.EqualFold(s.CarrierCode, airline) {
					return true
				}
			}
		}
	}
	return false
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
