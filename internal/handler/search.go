package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/farebroker/internal/filter"
	"github.com/dharmasatrya/farebroker/internal/models"
	"github.com/dharmasatrya/farebroker/internal/ratelimit"
	"github.com/dharmasatrya/farebroker/internal/search"
)

type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*search.Result, error)
}

type SearchHandler struct {
	searcher Searcher
	cooldown *ratelimit.Cooldown
}

func NewSearchHandler(s Searcher, cooldown *ratelimit.Cooldown) *SearchHandler {
	return &SearchHandler{
		searcher: s,
		cooldown: cooldown,
	}
}

func (h *SearchHandler) Search(c echo.Context) error {
	startTime := time.Now()

	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	if err := req.Validate(); err != nil {
		return validationError(c, err)
	}

	result, err := h.searcher.Search(c.Request().Context(), req)
	if err != nil {
		var ve models.ValidationError
		if errors.As(err, &ve) {
			return validationError(c, err)
		}
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "search_cancelled",
			Message: "Search did not complete: " + err.Error(),
			Code:    http.StatusServiceUnavailable,
		})
	}

	filtered := filter.Apply(result.Offers, req.Filters)
	meta := models.SearchMetadata{
		TotalResults:   len(filtered),
		PrimaryStatus:  string(result.Primary.Status),
		FallbackStatus: string(result.Fallback.Status),
		SearchTimeMs:   time.Since(startTime).Milliseconds(),
		CacheHit:       result.CacheHit,
	}
	if h.cooldown != nil && h.cooldown.IsCoolingDown() {
		meta.CooldownSeconds = int(h.cooldown.Remaining() / time.Second)
	}

	return c.JSON(http.StatusOK, models.SearchResponse{
		SearchCriteria: req,
		Metadata:       meta,
		Offers:         filtered,
	})
}

func validationError(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	})
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
