package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/farebroker/internal/cache"
	"github.com/dharmasatrya/farebroker/internal/calendar"
	"github.com/dharmasatrya/farebroker/internal/models"
)

type CalendarService interface {
	Prices(ctx context.Context, req models.CalendarRequest) (calendar.DayPrices, bool, error)
}

type CalendarHandler struct {
	service CalendarService
}

func NewCalendarHandler(s CalendarService) *CalendarHandler {
	return &CalendarHandler{service: s}
}

// Prices serves GET /flights/calendar?origin=MAD&destination=BCN&year=2026&month=7.
func (h *CalendarHandler) Prices(c echo.Context) error {
	var req models.CalendarRequest
	err := echo.QueryParamsBinder(c).
		String("origin", &req.Origin).
		String("destination", &req.Destination).
		Int("year", &req.Year).
		Int("month", &req.Month).
		Int("adults", &req.Passengers.Adults).
		Int("children", &req.Passengers.Children).
		Int("infants", &req.Passengers.Infants).
		String("cabin_class", (*string)(&req.CabinClass)).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if err := req.Validate(); err != nil {
		return validationError(c, err)
	}

	prices, cached, err := h.service.Prices(c.Request().Context(), req)
	if err != nil {
		var ve models.ValidationError
		if errors.As(err, &ve) {
			return validationError(c, err)
		}
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "calendar_unavailable",
			Message: err.Error(),
			Code:    http.StatusServiceUnavailable,
		})
	}

	return c.JSON(http.StatusOK, models.CalendarResponse{
		Origin:      req.Origin,
		Destination: req.Destination,
		Year:        req.Year,
		Month:       req.Month,
		Prices:      prices,
		Cached:      cached,
	})
}

type StatsSource interface {
	CacheStats() cache.Stats
}

type StatsResponse struct {
	Cache                    cache.Stats `json:"cache"`
	CooldownActive           bool        `json:"cooldown_active"`
	CooldownRemainingSeconds int         `json:"cooldown_remaining_seconds"`
}

func StatsHandler(src StatsSource, cooldownRemaining func() (bool, int)) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := StatsResponse{Cache: src.CacheStats()}
		if cooldownRemaining != nil {
			resp.CooldownActive, resp.CooldownRemainingSeconds = cooldownRemaining()
		}
		return c.JSON(http.StatusOK, resp)
	}
}
