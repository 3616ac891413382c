package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFallbackSearchCachesToken(t *testing.T) {
	var tokenCalls, searchCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			tokenCalls.Add(1)
			if err := r.ParseForm(); err != nil || r.PostForm.Get("client_id") != "key" {
				t.Errorf("unexpected token form %v", r.PostForm)
			}
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":1799}`))
		case "/v2/shopping/flight-offers":
			searchCalls.Add(1)
			q := r.URL.Query()
			if q.Get("travelClass") != "PREMIUM_ECONOMY" || q.Get("adults") != "2" || q.Get("children") != "1" || q.Get("infants") != "1" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer token")
			}
			_, _ = w.Write([]byte(`{"data":[
				{"id":"1","price":{"grandTotal":"99.10","currency":"EUR"},"itineraries":[]},
				{"id":2,"price":"bad"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewFallbackClient(FallbackConfig{BaseURL: srv.URL, APIKey: "key", APISecret: "secret"})
	for i := 0; i < 3; i++ {
		offers, err := client.SearchOffers(context.Background(), testRequest())
		if err != nil {
			t.Fatalf("SearchOffers: %v", err)
		}
		if len(offers) != 1 || offers[0].Price.GrandTotal != "99.10" {
			t.Fatalf("unexpected offers %+v", offers)
		}
	}
	if tokenCalls.Load() != 1 {
		t.Fatalf("token fetched %d times, want 1", tokenCalls.Load())
	}
	if searchCalls.Load() != 3 {
		t.Fatalf("search called %d times, want 3", searchCalls.Load())
	}
}

func TestFallbackDisabledWithoutCredentials(t *testing.T) {
	client := NewFallbackClient(FallbackConfig{})
	if client.Enabled() {
		t.Fatal("client without credentials must be disabled")
	}
	if _, err := client.SearchOffers(context.Background(), testRequest()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
