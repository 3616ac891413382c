package filter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dharmasatrya/farebroker/internal/models"
)

func offer(id, airline, price string, tier models.FareTier, dep string, stops int) models.Offer {
	depAt, _ := time.Parse("15:04", dep)
	segs := make([]models.Segment, stops+1)
	for i := range segs {
		segs[i] = models.Segment{CarrierCode: airline}
	}
	segs[0].DepartingAt = depAt
	return models.Offer{
		ID:          id,
		AirlineCode: airline,
		TotalPrice:  decimal.RequireFromString(price),
		FareTier:    tier,
		Itineraries: []models.Itinerary{{Segments: segs}},
	}
}

func sample() []models.Offer {
	return []models.Offer{
		offer("a", "IB", "95", models.FareBasic, "07:00", 0),
		offer("b", "VY", "120", models.FareComfort, "12:30", 1),
		offer("c", "UX", "200", models.FarePremium, "19:45", 2),
	}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		filters *models.SearchFilters
		want    []string
	}{
		{"nil filters", nil, []string{"a", "b", "c"}},
		{"max stops", &models.SearchFilters{MaxStops: intPtr(1)}, []string{"a", "b"}},
		{"direct only", &models.SearchFilters{MaxStops: intPtr(0)}, []string{"a"}},
		{"airlines", &models.SearchFilters{Airlines: []string{"vy", "ux"}}, []string{"b", "c"}},
		{"price range", &models.SearchFilters{PriceMin: decPtr("100"), PriceMax: decPtr("150")}, []string{"b"}},
		{"fare tiers", &models.SearchFilters{FareTiers: []models.FareTier{"premium", models.FareBasic}}, []string{"a", "c"}},
		{"departure window", &models.SearchFilters{DepartureTimeMin: strPtr("08:00"), DepartureTimeMax: strPtr("20:00")}, []string{"b", "c"}},
		{"bad window ignored", &models.SearchFilters{DepartureTimeMin: strPtr("morning")}, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sample(), tt.filters)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d offers, want %v", len(got), tt.want)
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}
