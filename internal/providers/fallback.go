package providers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dharmasatrya/farebroker/internal/models"
)

const DefaultFallbackBaseURL = "https://test.api.amadeus.com"

type FallbackConfig struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Currency   string
	MaxResults int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// FallbackClient queries the secondary provider using OAuth client credentials.
type FallbackClient struct {
	cfg    FallbackConfig
	client *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewFallbackClient(cfg FallbackConfig) *FallbackClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFallbackBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 40
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &FallbackClient{cfg: cfg, client: client, now: time.Now}
}

func (f *FallbackClient) Name() string {
	return string(models.ProviderFallback)
}

func (f *FallbackClient) Enabled() bool {
	return f.cfg.APIKey != "" && f.cfg.APISecret != ""
}

func (f *FallbackClient) accessToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.token != "" && f.now().Before(f.expiresAt) {
		return f.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", f.cfg.APIKey)
	form.Set("client_secret", f.cfg.APISecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.BaseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", NewProviderError(f.Name(), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", NewProviderError(f.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &ProviderError{Provider: f.Name(), Status: resp.StatusCode, Err: ErrNotConfigured}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", NewProviderError(f.Name(), err)
	}
	if body.ExpiresIn <= 0 {
		body.ExpiresIn = 1200
	}
	ttl := time.Duration(body.ExpiresIn-30) * time.Second
	if ttl < time.Minute {
		ttl = time.Minute
	}
	f.token = body.AccessToken
	f.expiresAt = f.now().Add(ttl)
	return f.token, nil
}

var fallbackCabins = map[models.CabinClass]string{
	models.CabinEconomy:  "ECONOMY",
	models.CabinPremium:  "PREMIUM_ECONOMY",
	models.CabinBusiness: "BUSINESS",
	models.CabinFirst:    "FIRST",
}

func (f *FallbackClient) SearchOffers(ctx context.Context, req models.SearchRequest) ([]FallbackOffer, error) {
	if !f.Enabled() {
		return nil, NewProviderError(f.Name(), ErrNotConfigured)
	}
	token, err := f.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("originLocationCode", req.Origin)
	params.Set("destinationLocationCode", req.Destination)
	params.Set("departureDate", req.DepartureDate)
	params.Set("adults", strconv.Itoa(max(1, req.Passengers.Adults)))
	if req.Passengers.Children > 0 {
		params.Set("children", strconv.Itoa(req.Passengers.Children))
	}
	if req.Passengers.Infants > 0 {
		params.Set("infants", strconv.Itoa(req.Passengers.Infants))
	}
	cabin, ok := fallbackCabins[req.CabinClass]
	if !ok {
		cabin = "ECONOMY"
	}
	params.Set("travelClass", cabin)
	params.Set("currencyCode", f.cfg.Currency)
	params.Set("max", strconv.Itoa(f.cfg.MaxResults))

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)

	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	endpoint := f.cfg.BaseURL + "/v2/shopping/flight-offers?" + params.Encode()
	if err := doJSON(ctx, f.client, f.Name(), http.MethodGet, endpoint, h, nil, &resp); err != nil {
		return nil, err
	}

	offers := make([]FallbackOffer, 0, len(resp.Data))
	for i, raw := range resp.Data {
		var offer FallbackOffer
		if err := json.Unmarshal(raw, &offer); err != nil {
			log.Printf("[fallback] skipping malformed offer #%d: %v", i, err)
			continue
		}
		offers = append(offers, offer)
	}
	log.Printf("[fallback] %s->%s %s returned %d raw offers", req.Origin, req.Destination, req.DepartureDate, len(offers))
	return offers, nil
}
