package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProviderTag string

const (
	ProviderPrimary  ProviderTag = "primary"
	ProviderFallback ProviderTag = "fallback"
)

type FareTier string

const (
	FareBasic   FareTier = "Basic"
	FareComfort FareTier = "Comfort"
	FarePremium FareTier = "Premium"
)

type Segment struct {
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartingAt    time.Time `json:"departing_at"`
	ArrivingAt     time.Time `json:"arriving_at"`
	CarrierCode    string    `json:"carrier_code"`
	Carrier        string    `json:"carrier"`
	FlightNumber   string    `json:"flight_number"`
	Aircraft       string    `json:"aircraft,omitempty"`
	Duration       string    `json:"duration"`
	ConnectionTime *string   `json:"connection_time,omitempty"`
}

type Itinerary struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Duration    string    `json:"duration"`
	Segments    []Segment `json:"segments"`
}

type Conditions struct {
	Refundable    bool             `json:"refundable"`
	Changeable    bool             `json:"changeable"`
	RefundPenalty *decimal.Decimal `json:"refund_penalty,omitempty"`
	ChangePenalty *decimal.Decimal `json:"change_penalty,omitempty"`
}

// Offer is one priceable itinerary set returned by a single provider.
// Prices are fixed-point; AvailableServices is the provider payload as received.
type Offer struct {
	ID                string          `json:"id"`
	Provider          ProviderTag     `json:"provider"`
	Airline           string          `json:"airline"`
	AirlineCode       string          `json:"airline_code"`
	BasePrice         decimal.Decimal `json:"base_price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Currency          string          `json:"currency"`
	FormattedPrice    string          `json:"formatted_price"`
	Itineraries       []Itinerary     `json:"itineraries"`
	FareTier          FareTier        `json:"fare_tier"`
	CheckedBag        bool            `json:"checked_bag"`
	Conditions        Conditions      `json:"conditions"`
	AvailableServices json.RawMessage `json:"available_services,omitempty"`
}

func (o Offer) segments() []Segment {
	if len(o.Itineraries) == 0 {
		return nil
	}
	return o.Itineraries[0].Segments
}

// Origin returns the origin of the first itinerary.
func (o Offer) Origin() string {
	if len(o.Itineraries) == 0 {
		return ""
	}
	return o.Itineraries[0].Origin
}

// Destination returns the destination of the last itinerary.
func (o Offer) Destination() string {
	if len(o.Itineraries) == 0 {
		return ""
	}
	return o.Itineraries[len(o.Itineraries)-1].Destination
}

// DepartureTime is the local "15:04" departure of the first segment.
func (o Offer) DepartureTime() string {
	segs := o.segments()
	if len(segs) == 0 || segs[0].DepartingAt.IsZero() {
		return ""
	}
	return segs[0].DepartingAt.Format("15:04")
}

// ArrivalTime is the local "15:04" arrival of the last segment of the first itinerary.
func (o Offer) ArrivalTime() string {
	segs := o.segments()
	if len(segs) == 0 || segs[len(segs)-1].ArrivingAt.IsZero() {
		return ""
	}
	return segs[len(segs)-1].ArrivingAt.Format("15:04")
}

func (o Offer) Stops() int {
	segs := o.segments()
	if len(segs) == 0 {
		return 0
	}
	return len(segs) - 1
}

func (o Offer) FlightNumbers() []string {
	segs := o.segments()
	nums := make([]string, len(segs))
	for i, s := range segs {
		nums[i] = strings.ToUpper(strings.TrimSpace(s.FlightNumber))
	}
	return nums
}
