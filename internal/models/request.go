package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinPremium  CabinClass = "premium"
	CabinBusiness CabinClass = "business"
	CabinFirst    CabinClass = "first"
)

func (c CabinClass) IsValid() bool {
	switch c {
	case CabinEconomy, CabinPremium, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

type Passengers struct {
	Adults   int `json:"adults" yaml:"adults"`
	Children int `json:"children" yaml:"children"`
	Infants  int `json:"infants" yaml:"infants"`
}

func (p *Passengers) normalize() {
	if p.Adults <= 0 {
		p.Adults = 1
	}
	if p.Children < 0 {
		p.Children = 0
	}
	if p.Infants < 0 {
		p.Infants = 0
	}
}

type SearchFilters struct {
	MaxStops  *int             `json:"max_stops,omitempty"`
	Airlines  []string         `json:"airlines,omitempty"`
	PriceMin  *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax  *decimal.Decimal `json:"price_max,omitempty"`
	FareTiers []FareTier       `json:"fare_tiers,omitempty"`

	DepartureTimeMin *string `json:"departure_time_min,omitempty"`
	DepartureTimeMax *string `json:"departure_time_max,omitempty"`
}

type SearchRequest struct {
	Origin        string         `json:"origin"`
	Destination   string         `json:"destination"`
	DepartureDate string         `json:"departure_date"`
	Passengers    Passengers     `json:"passengers"`
	CabinClass    CabinClass     `json:"cabin_class"`
	Filters       *SearchFilters `json:"filters,omitempty"`
}

// Validate normalizes the request in place and applies defaults.
// Dates in dd/mm/yyyy form are rewritten to yyyy-mm-dd.
func (r *SearchRequest) Validate() error {
	r.Origin = strings.ToUpper(strings.TrimSpace(r.Origin))
	r.Destination = strings.ToUpper(strings.TrimSpace(r.Destination))
	r.DepartureDate = strings.TrimSpace(r.DepartureDate)
	if r.Origin == "" {
		return ErrMissingOrigin
	}
	if r.Destination == "" {
		return ErrMissingDestination
	}
	if r.DepartureDate == "" {
		return ErrMissingDepartureDate
	}
	if strings.Contains(r.DepartureDate, "/") {
		t, err := time.Parse("02/01/2006", r.DepartureDate)
		if err != nil {
			return ErrInvalidDepartureDate
		}
		r.DepartureDate = t.Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, r.DepartureDate); err != nil {
		return ErrInvalidDepartureDate
	}
	r.Passengers.normalize()
	if r.CabinClass == "" {
		r.CabinClass = CabinEconomy
	}
	r.CabinClass = CabinClass(strings.ToLower(string(r.CabinClass)))
	if !r.CabinClass.IsValid() {
		return ErrInvalidCabinClass
	}
	return nil
}

type CalendarRequest struct {
	Origin      string     `json:"origin" query:"origin"`
	Destination string     `json:"destination" query:"destination"`
	Year        int        `json:"year" query:"year"`
	Month       int        `json:"month" query:"month"`
	Passengers  Passengers `json:"passengers"`
	CabinClass  CabinClass `json:"cabin_class" query:"cabin_class"`
}

func (r *CalendarRequest) Validate() error {
	r.Origin = strings.ToUpper(strings.TrimSpace(r.Origin))
	r.Destination = strings.ToUpper(strings.TrimSpace(r.Destination))
	if len(r.Origin) != 3 {
		return ErrMissingOrigin
	}
	if len(r.Destination) != 3 {
		return ErrMissingDestination
	}
	if r.Month < 1 || r.Month > 12 || r.Year < 2000 {
		return ErrInvalidCalendarMonth
	}
	r.Passengers.normalize()
	if r.CabinClass == "" {
		r.CabinClass = CabinEconomy
	}
	r.CabinClass = CabinClass(strings.ToLower(string(r.CabinClass)))
	if !r.CabinClass.IsValid() {
		return ErrInvalidCabinClass
	}
	return nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin        ValidationError = "origin is required"
	ErrMissingDestination   ValidationError = "destination is required"
	ErrMissingDepartureDate ValidationError = "departure_date is required"
	ErrInvalidDepartureDate ValidationError = "departure_date must be YYYY-MM-DD or DD/MM/YYYY"
	ErrInvalidCabinClass    ValidationError = "cabin_class must be one of economy, premium, business, first"
	ErrInvalidCalendarMonth ValidationError = "year and month must describe a valid calendar month"
)
