package providers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dharmasatrya/farebroker/internal/models"
)

const (
	DefaultPrimaryBaseURL = "https://api.duffel.com"
	DefaultPrimaryVersion = "v2"
)

type PrimaryConfig struct {
	BaseURL    string
	Token      string
	Version    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// PrimaryClient talks to the primary provider's JSON REST API.
type PrimaryClient struct {
	baseURL string
	token   string
	version string
	client  *http.Client
}

func NewPrimaryClient(cfg PrimaryConfig) *PrimaryClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPrimaryBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultPrimaryVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &PrimaryClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		version: cfg.Version,
		client:  client,
	}
}

func (p *PrimaryClient) Name() string {
	return string(models.ProviderPrimary)
}

func (p *PrimaryClient) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.token)
	h.Set("Duffel-Version", p.version)
	return h
}

var primaryCabins = map[models.CabinClass]string{
	models.CabinEconomy:  "economy",
	models.CabinPremium:  "premium_economy",
	models.CabinBusiness: "business",
	models.CabinFirst:    "first",
}

type primarySearchPayload struct {
	Data struct {
		Slices     []primarySliceRequest `json:"slices"`
		Passengers []primaryPassenger    `json:"passengers"`
		CabinClass string                `json:"cabin_class"`
	} `json:"data"`
}

type primarySliceRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type primaryPassenger struct {
	Type string `json:"type"`
}

func buildPrimaryPayload(req models.SearchRequest) primarySearchPayload {
	var payload primarySearchPayload
	payload.Data.Slices = []primarySliceRequest{{
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
	}}
	pax := req.Passengers
	for i := 0; i < pax.Adults; i++ {
		payload.Data.Passengers = append(payload.Data.Passengers, primaryPassenger{Type: "adult"})
	}
	for i := 0; i < pax.Children; i++ {
		payload.Data.Passengers = append(payload.Data.Passengers, primaryPassenger{Type: "child"})
	}
	for i := 0; i < pax.Infants; i++ {
		payload.Data.Passengers = append(payload.Data.Passengers, primaryPassenger{Type: "infant_without_seat"})
	}
	cabin, ok := primaryCabins[req.CabinClass]
	if !ok {
		cabin = "economy"
	}
	payload.Data.CabinClass = cabin
	return payload
}

// SearchOffers returns the raw offers for a one-way search. Offers that
// do not decode are skipped individually.
func (p *PrimaryClient) SearchOffers(ctx context.Context, req models.SearchRequest) ([]PrimaryOffer, error) {
	if p.token == "" {
		return nil, NewProviderError(p.Name(), ErrNotConfigured)
	}

	var resp struct {
		Data struct {
			Offers []json.RawMessage `json:"offers"`
		} `json:"data"`
	}
	endpoint := p.baseURL + "/air/offer_requests?return_offers=true&supplier_timeout=15000"
	if err := doJSON(ctx, p.client, p.Name(), http.MethodPost, endpoint, p.headers(), buildPrimaryPayload(req), &resp); err != nil {
		return nil, err
	}

	offers := make([]PrimaryOffer, 0, len(resp.Data.Offers))
	for i, raw := range resp.Data.Offers {
		var offer PrimaryOffer
		if err := json.Unmarshal(raw, &offer); err != nil {
			log.Printf("[primary] skipping malformed offer #%d: %v", i, err)
			continue
		}
		offers = append(offers, offer)
	}
	log.Printf("[primary] %s->%s %s returned %d raw offers", req.Origin, req.Destination, req.DepartureDate, len(offers))
	return offers, nil
}

// GetOfferDetails fetches a single offer including its available services.
func (p *PrimaryClient) GetOfferDetails(ctx context.Context, id string) (*PrimaryOffer, error) {
	if p.token == "" {
		return nil, NewProviderError(p.Name(), ErrNotConfigured)
	}
	var resp struct {
		Data PrimaryOffer `json:"data"`
	}
	endpoint := p.baseURL + "/air/offers/" + url.PathEscape(id) + "?return_available_services=true"
	if err := doJSON(ctx, p.client, p.Name(), http.MethodGet, endpoint, p.headers(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (p *PrimaryClient) CreateOrder(ctx context.Context, order OrderRequest) (*Order, error) {
	if p.token == "" {
		return nil, NewProviderError(p.Name(), ErrNotConfigured)
	}
	if order.Type == "" {
		order.Type = "instant"
	}
	data := map[string]any{
		"selected_offers": []string{order.OfferID},
		"passengers":      order.Passengers,
		"type":            order.Type,
	}
	if len(order.Services) > 0 {
		data["services"] = order.Services
	}
	if len(order.Payments) > 0 && order.Type == "instant" {
		data["payments"] = order.Payments
	}

	var resp struct {
		Data Order `json:"data"`
	}
	endpoint := p.baseURL + "/air/orders"
	if err := doJSON(ctx, p.client, p.Name(), http.MethodPost, endpoint, p.headers(), map[string]any{"data": data}, &resp); err != nil {
		return nil, err
	}
	if resp.Data.BookingReference == "" {
		resp.Data.BookingReference = "PENDING"
	}
	log.Printf("[primary] created order %s (%s)", resp.Data.ID, order.Type)
	return &resp.Data, nil
}

func (p *PrimaryClient) CancelOrder(ctx context.Context, id string) (*Order, error) {
	if p.token == "" {
		return nil, NewProviderError(p.Name(), ErrNotConfigured)
	}
	var resp struct {
		Data Order `json:"data"`
	}
	endpoint := p.baseURL + "/air/orders/" + url.PathEscape(id) + "/actions/cancel"
	if err := doJSON(ctx, p.client, p.Name(), http.MethodPost, endpoint, p.headers(), map[string]any{"data": map[string]any{}}, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
