package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dharmasatrya/farebroker/internal/models"
)

// Primary is the authoritative, instantly bookable inventory source.
type Primary interface {
	Name() string
	SearchOffers(ctx context.Context, req models.SearchRequest) ([]PrimaryOffer, error)
}

// Fallback is the secondary inventory source; it may be unconfigured.
type Fallback interface {
	Name() string
	Enabled() bool
	SearchOffers(ctx context.Context, req models.SearchRequest) ([]FallbackOffer, error)
}

type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Err:      err,
	}
}

// ThrottledError reports an HTTP 429 and carries the response headers so
// the caller can derive a cooldown.
type ThrottledError struct {
	Provider string
	Header   http.Header
}

func (e *ThrottledError) Error() string {
	return e.Provider + ": too many requests"
}

func IsThrottled(err error) (*ThrottledError, bool) {
	var te *ThrottledError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

var ErrNotConfigured = errors.New("provider credentials not configured")
