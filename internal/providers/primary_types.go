package providers

import "encoding/json"

type PrimaryOffer struct {
	ID                string            `json:"id"`
	TotalAmount       string            `json:"total_amount"`
	TotalCurrency     string            `json:"total_currency"`
	Owner             PrimaryCarrier    `json:"owner"`
	Slices            []PrimarySlice    `json:"slices"`
	Conditions        PrimaryConditions `json:"conditions"`
	AvailableServices json.RawMessage   `json:"available_services,omitempty"`
	Passengers        json.RawMessage   `json:"passengers,omitempty"`
}

type PrimaryCarrier struct {
	Name     string `json:"name"`
	IATACode string `json:"iata_code"`
}

type PrimaryPlace struct {
	IATACode string `json:"iata_code"`
	Name     string `json:"name"`
	CityName string `json:"city_name"`
}

type PrimarySlice struct {
	Origin      PrimaryPlace     `json:"origin"`
	Destination PrimaryPlace     `json:"destination"`
	Duration    string           `json:"duration"`
	Segments    []PrimarySegment `json:"segments"`
}

type PrimarySegment struct {
	Origin                       PrimaryPlace     `json:"origin"`
	Destination                  PrimaryPlace     `json:"destination"`
	DepartingAt                  string           `json:"departing_at"`
	ArrivingAt                   string           `json:"arriving_at"`
	Duration                     string           `json:"duration"`
	OperatingCarrier             *PrimaryCarrier  `json:"operating_carrier"`
	MarketingCarrier             *PrimaryCarrier  `json:"marketing_carrier"`
	OperatingCarrierFlightNumber string           `json:"operating_carrier_flight_number"`
	Aircraft                     *PrimaryAircraft `json:"aircraft"`
}

type PrimaryAircraft struct {
	Name string `json:"name"`
}

type PrimaryConditions struct {
	ChangeBeforeDeparture *PrimaryCondition `json:"change_before_departure"`
	RefundBeforeDeparture *PrimaryCondition `json:"refund_before_departure"`
}

type PrimaryCondition struct {
	Allowed         bool    `json:"allowed"`
	PenaltyAmount   *string `json:"penalty_amount"`
	PenaltyCurrency string  `json:"penalty_currency"`
}

type PrimaryService struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type OrderRequest struct {
	OfferID    string            `json:"-"`
	Type       string            `json:"type"`
	Passengers []json.RawMessage `json:"passengers"`
	Services   []OrderService    `json:"services,omitempty"`
	Payments   []OrderPayment    `json:"payments,omitempty"`
}

type OrderService struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type OrderPayment struct {
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type Order struct {
	ID               string `json:"id"`
	BookingReference string `json:"booking_reference"`
	TotalAmount      string `json:"total_amount"`
	TotalCurrency    string `json:"total_currency"`
	CancelledAt      string `json:"cancelled_at,omitempty"`
}
