package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/middleware"
	"rentcal/internal/domain/availability"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/infra/validation"
)

var errBusUnavailable = errors.New("bus unavailable")

// statusFor maps application errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, periods.ErrInvalidRate),
		errors.Is(err, periods.ErrEmptySelection),
		errors.Is(err, periods.ErrListingIDRequired),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrInvalidDay),
		errors.Is(err, domainlistings.ErrInvalidSettings),
		errors.Is(err, domainlistings.ErrListingIDRequired),
		errors.Is(err, availability.ErrWindowInverted),
		errors.Is(err, validation.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, middleware.ErrListingNotManaged):
		return http.StatusForbidden
	case errors.Is(err, domainlistings.ErrBookingNotFound),
		errors.Is(err, domainlistings.ErrSettingsNotFound):
		return http.StatusNotFound
	case errors.Is(err, periods.ErrInvariantViolated),
		errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return http.StatusConflict
	case errors.Is(err, errBusUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(c *gin.Context, logger *slog.Logger, status int, err error) {
	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "calendar request failed",
			"status", status,
			"error", err,
			"path", c.FullPath(),
			"listing_id", c.Param("id"),
			"request_id", c.GetString("request_id"),
		)
	}
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": msg})
}

func handleError(c *gin.Context, logger *slog.Logger, err error) {
	respondWithError(c, logger, statusFor(err), err)
}
