package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/queries"
	domainlistings "rentcal/internal/domain/listings"
)

type SettingsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type settingsRequest struct {
	Name            string  `json:"name"`
	BaseRate        int     `json:"baseRate"`
	MaxGuests       int     `json:"maxGuests"`
	ExtraGuestFee   int     `json:"extraGuestFee"`
	CleaningFee     int     `json:"cleaningFee"`
	MinimumStay     int     `json:"minimumStay"`
	MaximumStay     int     `json:"maximumStay"`
	GapDays         int     `json:"gapDays"`
	WeeklyDiscount  float64 `json:"weeklyDiscount"`
	MonthlyDiscount float64 `json:"monthlyDiscount"`
}

func (r settingsRequest) params() domainlistings.SettingsParams {
	return domainlistings.SettingsParams{
		Name:            r.Name,
		BaseRate:        r.BaseRate,
		MaxGuests:       r.MaxGuests,
		ExtraGuestFee:   r.ExtraGuestFee,
		CleaningFee:     r.CleaningFee,
		MinimumStay:     r.MinimumStay,
		MaximumStay:     r.MaximumStay,
		GapDays:         r.GapDays,
		WeeklyDiscount:  r.WeeklyDiscount,
		MonthlyDiscount: r.MonthlyDiscount,
	}
}

func (h SettingsHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errBusUnavailable)
		return
	}
	query := calendarapp.GetSettingsQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[calendarapp.GetSettingsQuery, dto.Settings](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SettingsHandler) Save(c *gin.Context) {
	if h.Commands == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errBusUnavailable)
		return
	}
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	cmd := calendarapp.SaveSettingsCommand{
		ListingID: c.Param("id"),
		Payload:   req.params(),
		IdemKey:   strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	}
	result, err := commands.Dispatch[calendarapp.SaveSettingsCommand, *dto.Settings](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ SettingsHTTP = SettingsHandler{}
