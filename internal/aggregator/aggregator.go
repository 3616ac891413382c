package aggregator

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/ranking"
)

const DefaultLimit = 10

type Options struct {
	// Limit caps the result after ranking; zero or negative disables it.
	Limit                int
	PriorityDeltaPercent decimal.Decimal
}

func DefaultOptions() Options {
	return Options{
		Limit:                DefaultLimit,
		PriorityDeltaPercent: decimal.NewFromInt(ranking.DefaultPriorityDeltaPercent),
	}
}

// DedupKey identifies the same physical itinerary across providers.
func DedupKey(o models.Offer) string {
	return strings.Join([]string{
		strings.ToUpper(o.Origin()),
		strings.ToUpper(o.Destination()),
		o.DepartureTime(),
		o.ArrivalTime(),
		strings.Join(o.FlightNumbers(), "-"),
	}, "|")
}

// Merge deduplicates both batches, ranks them and truncates the result.
// A primary offer replaces a fallback offer with the same key; otherwise
// the first offer seen for a key wins.
func Merge(primary, fallback []models.Offer, opts Options) []models.Offer {
	index := make(map[string]int, len(primary)+len(fallback))
	merged := make([]models.Offer, 0, len(primary)+len(fallback))

	add := func(o models.Offer) {
		key := DedupKey(o)
		i, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, o)
			return
		}
		if merged[i].Provider == models.ProviderFallback && o.Provider == models.ProviderPrimary {
			merged[i] = o
		}
	}

	for _, o := range fallback {
		add(o)
	}
	for _, o := range primary {
		add(o)
	}

	ranked := ranking.Rank(merged, opts.PriorityDeltaPercent)
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked
}
