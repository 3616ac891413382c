package normalize

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/providers"
	"github.com/dharmasatrya/farebroker/internal/timeutil"
	"github.com/dharmasatrya/farebroker/pkg/currency"
)

var (
	ErrMissingID       = errors.New("offer has no id")
	ErrInvalidPrice    = errors.New("offer has no valid price")
	ErrMissingCurrency = errors.New("offer has no currency")
	ErrNoSegments      = errors.New("offer has no segments")
)

var hundred = decimal.NewFromInt(100)

type Config struct {
	MarkupPercent   decimal.Decimal
	DefaultCurrency string
}

// Normalizer converts raw provider offers into models.Offer. It performs no I/O.
type Normalizer struct {
	markup          decimal.Decimal
	defaultCurrency string
}

func New(cfg Config) *Normalizer {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "EUR"
	}
	return &Normalizer{markup: cfg.MarkupPercent, defaultCurrency: strings.ToUpper(cfg.DefaultCurrency)}
}

// ApplyMarkup returns amount × (1 + markup/100) rounded half-up to cents.
func (n *Normalizer) ApplyMarkup(amount decimal.Decimal) decimal.Decimal {
	if !n.markup.IsPositive() {
		return amount
	}
	factor := decimal.NewFromInt(1).Add(n.markup.Div(hundred))
	return amount.Mul(factor).Round(2)
}

func (n *Normalizer) Primary(raw providers.PrimaryOffer) (models.Offer, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return models.Offer{}, ErrMissingID
	}
	base, err := decimal.NewFromString(strings.TrimSpace(raw.TotalAmount))
	if err != nil || base.IsNegative() {
		return models.Offer{}, fmt.Errorf("%w: %q", ErrInvalidPrice, raw.TotalAmount)
	}
	code := strings.ToUpper(strings.TrimSpace(raw.TotalCurrency))
	if code == "" {
		return models.Offer{}, ErrMissingCurrency
	}

	itineraries := make([]models.Itinerary, 0, len(raw.Slices))
	for _, slice := range raw.Slices {
		segs := make([]models.Segment, len(slice.Segments))
		for i, s := range slice.Segments {
			segs[i] = n.primarySegment(s, raw.Owner)
		}
		linkConnections(segs)
		itineraries = append(itineraries, models.Itinerary{
			Origin:      strings.ToUpper(slice.Origin.IATACode),
			Destination: strings.ToUpper(slice.Destination.IATACode),
			Duration:    FormatDuration(slice.Duration),
			Segments:    segs,
		})
	}
	if len(itineraries) == 0 || len(itineraries[0].Segments) == 0 {
		return models.Offer{}, ErrNoSegments
	}

	conditions := primaryConditions(raw.Conditions)
	bag := primaryHasCheckedBag(raw.AvailableServices)
	total := n.ApplyMarkup(base)

	airline := raw.Owner.Name
	if airline == "" {
		airline = "Unknown"
	}
	airlineCode := strings.ToUpper(raw.Owner.IATACode)
	if airlineCode == "" {
		airlineCode = "XX"
	}

	return models.Offer{
		ID:                raw.ID,
		Provider:          models.ProviderPrimary,
		Airline:           airline,
		AirlineCode:       airlineCode,
		BasePrice:         base,
		TotalPrice:        total,
		Currency:          code,
		FormattedPrice:    currency.Format(total, code),
		Itineraries:       itineraries,
		FareTier:          ClassifyFare(conditions, bag),
		CheckedBag:        bag,
		Conditions:        conditions,
		AvailableServices: raw.AvailableServices,
	}, nil
}

func (n *Normalizer) primarySegment(s providers.PrimarySegment, owner providers.PrimaryCarrier) models.Segment {
	carrier := owner
	if s.OperatingCarrier != nil {
		carrier = *s.OperatingCarrier
	} else if s.MarketingCarrier != nil {
		carrier = *s.MarketingCarrier
	}
	code := strings.ToUpper(carrier.IATACode)

	seg := models.Segment{
		Origin:       strings.ToUpper(s.Origin.IATACode),
		Destination:  strings.ToUpper(s.Destination.IATACode),
		DepartingAt:  parseOrZero(s.DepartingAt),
		ArrivingAt:   parseOrZero(s.ArrivingAt),
		CarrierCode:  code,
		Carrier:      carrier.Name,
		FlightNumber: flightNumber(code, s.OperatingCarrierFlightNumber),
		Duration:     FormatDuration(s.Duration),
	}
	if s.Aircraft != nil {
		seg.Aircraft = s.Aircraft.Name
	}
	return seg
}

func (n *Normalizer) Fallback(raw providers.FallbackOffer) (models.Offer, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return models.Offer{}, ErrMissingID
	}
	if len(raw.Itineraries) == 0 || len(raw.Itineraries[0].Segments) == 0 {
		return models.Offer{}, ErrNoSegments
	}
	base, err := decimal.NewFromString(strings.TrimSpace(raw.Price.GrandTotal))
	if err != nil || base.IsNegative() {
		return models.Offer{}, fmt.Errorf("%w: %q", ErrInvalidPrice, raw.Price.GrandTotal)
	}
	code := strings.ToUpper(strings.TrimSpace(raw.Price.Currency))
	if code == "" {
		code = n.defaultCurrency
	}

	itin := raw.Itineraries[0]
	segs := make([]models.Segment, len(itin.Segments))
	for i, s := range itin.Segments {
		carrier := strings.ToUpper(s.CarrierCode)
		if carrier == "" {
			carrier = "XX"
		}
		segs[i] = models.Segment{
			Origin:       strings.ToUpper(s.Departure.IATACode),
			Destination:  strings.ToUpper(s.Arrival.IATACode),
			DepartingAt:  parseOrZero(s.Departure.At),
			ArrivingAt:   parseOrZero(s.Arrival.At),
			CarrierCode:  carrier,
			Carrier:      carrier,
			FlightNumber: flightNumber(carrier, s.Number),
			Aircraft:     s.Aircraft.Code,
			Duration:     FormatDuration(s.Duration),
		}
	}
	linkConnections(segs)

	validating := "XX"
	if len(raw.ValidatingAirlineCodes) > 0 && raw.ValidatingAirlineCodes[0] != "" {
		validating = strings.ToUpper(raw.ValidatingAirlineCodes[0])
	}

	duration := FormatDuration(itin.Duration)
	if duration == "" {
		duration = segs[0].Duration
	}
	bag := fallbackHasCheckedBag(raw.TravelerPricings)

	return models.Offer{
		ID:             "fb_" + raw.ID,
		Provider:       models.ProviderFallback,
		Airline:        validating,
		AirlineCode:    validating,
		BasePrice:      base,
		TotalPrice:     base,
		Currency:       code,
		FormattedPrice: currency.Format(base, code),
		Itineraries: []models.Itinerary{{
			Origin:      segs[0].Origin,
			Destination: segs[len(segs)-1].Destination,
			Duration:    duration,
			Segments:    segs,
		}},
		FareTier:   ClassifyFare(models.Conditions{}, bag),
		CheckedBag: bag,
	}, nil
}

// PrimaryBatch normalizes every offer, skipping and counting malformed ones.
func (n *Normalizer) PrimaryBatch(raws []providers.PrimaryOffer) ([]models.Offer, int) {
	offers := make([]models.Offer, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		o, err := n.Primary(raw)
		if err != nil {
			log.Printf("[normalize] skipping primary offer %q: %v", raw.ID, err)
			skipped++
			continue
		}
		offers = append(offers, o)
	}
	return offers, skipped
}

func (n *Normalizer) FallbackBatch(raws []providers.FallbackOffer) ([]models.Offer, int) {
	offers := make([]models.Offer, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		o, err := n.Fallback(raw)
		if err != nil {
			log.Printf("[normalize] skipping fallback offer %q: %v", raw.ID, err)
			skipped++
			continue
		}
		offers = append(offers, o)
	}
	return offers, skipped
}

func linkConnections(segs []models.Segment) {
	for i := 0; i < len(segs)-1; i++ {
		segs[i].ConnectionTime = connectionTime(segs[i].ArrivingAt, segs[i+1].DepartingAt)
	}
}

// flightNumber prefixes bare numeric flight numbers with the carrier code
// so both providers produce comparable values.
func flightNumber(carrier, number string) string {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return carrier
	}
	if number[0] >= '0' && number[0] <= '9' {
		return carrier + number
	}
	return number
}

func parseOrZero(s string) time.Time {
	t, err := timeutil.ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
