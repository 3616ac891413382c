package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/normalize"
	"github.com/dharmasatrya/farebroker/internal/providers"
	"github.com/dharmasatrya/farebroker/internal/ratelimit"
)

// Booker is the booking side of the primary provider.
type Booker interface {
	GetOfferDetails(ctx context.Context, id string) (*providers.PrimaryOffer, error)
	CreateOrder(ctx context.Context, order providers.OrderRequest) (*providers.Order, error)
	CancelOrder(ctx context.Context, id string) (*providers.Order, error)
}

type OrderHandler struct {
	booker     Booker
	normalizer *normalize.Normalizer
	cooldown   *ratelimit.Cooldown
}

func NewOrderHandler(b Booker, n *normalize.Normalizer, cooldown *ratelimit.Cooldown) *OrderHandler {
	return &OrderHandler{booker: b, normalizer: n, cooldown: cooldown}
}

func (h *OrderHandler) OfferDetails(c echo.Context) error {
	raw, err := h.booker.GetOfferDetails(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.providerError(c, err)
	}
	offer, err := h.normalizer.Primary(*raw)
	if err != nil {
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "malformed_offer",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
	}
	return c.JSON(http.StatusOK, offer)
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req providers.OrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}
	req.OfferID = c.Param("id")
	if req.OfferID == "" || len(req.Passengers) == 0 {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "offer id and at least one passenger are required",
			Code:    http.StatusBadRequest,
		})
	}

	order, err := h.booker.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return h.providerError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	order, err := h.booker.CancelOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.providerError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) providerError(c echo.Context, err error) error {
	if te, ok := providers.IsThrottled(err); ok {
		if h.cooldown != nil {
			h.cooldown.RecordThrottled(te.Header)
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(h.cooldown.Remaining().Seconds())))
		}
		return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:   "provider_throttled",
			Message: err.Error(),
			Code:    http.StatusTooManyRequests,
		})
	}

	status := http.StatusBadGateway
	var pe *providers.ProviderError
	if errors.As(err, &pe) {
		switch {
		case errors.Is(err, providers.ErrNotConfigured):
			status = http.StatusServiceUnavailable
		case pe.Status == http.StatusNotFound:
			status = http.StatusNotFound
		case pe.Status == http.StatusUnprocessableEntity:
			status = http.StatusUnprocessableEntity
		}
	}
	return c.JSON(status, models.ErrorResponse{
		Error:   "provider_error",
		Message: err.Error(),
		Code:    status,
	})
}
