package ginserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/queries"
	"rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
)

const idempotencyHeader = "Idempotency-Key"

type CalendarHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// selectionRequest accepts loose dates, one inclusive span, or both.
type selectionRequest struct {
	Dates []string        `json:"dates"`
	Start string          `json:"start"`
	End   string          `json:"end"`
	Rate  json.RawMessage `json:"rate"`
}

func (h CalendarHandler) Calendar(c *gin.Context) {
	if h.Queries == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errBusUnavailable)
		return
	}
	query := calendarapp.GetCalendarQuery{ListingID: c.Param("id")}
	var err error
	if query.From, err = optionalDay(c.Query("from")); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	if query.To, err = optionalDay(c.Query("to")); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	result, err := queries.Ask[calendarapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) Feed(c *gin.Context) {
	if h.Queries == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errBusUnavailable)
		return
	}
	query := calendarapp.ExportFeedQuery{ListingID: c.Param("id")}
	feed, err := queries.Ask[calendarapp.ExportFeedQuery, calendarapp.Feed](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", query.ListingID+".ics"))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", feed.Body)
}

func (h CalendarHandler) OpenPeriods(c *gin.Context) { h.listPeriods(c, periods.TableOpenDates) }
func (h CalendarHandler) Rates(c *gin.Context)       { h.listPeriods(c, periods.TableRates) }

func (h CalendarHandler) listPeriods(c *gin.Context, table periods.Table) {
	if h.Queries == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errBusUnavailable)
		return
	}
	query := calendarapp.ListPeriodsQuery{ListingID: c.Param("id"), Table: table}
	result, err := queries.Ask[calendarapp.ListPeriodsQuery, dto.PeriodList](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) Open(c *gin.Context)      { h.reconcile(c, periods.OpOpen) }
func (h CalendarHandler) Close(c *gin.Context)     { h.reconcile(c, periods.OpClose) }
func (h CalendarHandler) ApplyRate(c *gin.Context) { h.reconcile(c, periods.OpApplyRate) }
func (h CalendarHandler) ResetRate(c *gin.Context) { h.reconcile(c, periods.OpResetRate) }

func (h CalendarHandler) reconcile(c *gin.Context, op periods.Operation) {
	if h.Commands == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errBusUnavailable)
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	cmd, err := req.command(c.Param("id"), op)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	cmd.IdemKey = strings.TrimSpace(c.GetHeader(idempotencyHeader))

	result, err := commands.Dispatch[calendarapp.ReconcileCommand, *dto.PeriodList](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	if result == nil {
		handleError(c, h.Logger, errors.New("empty reconcile result"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) BookingAt(c *gin.Context) {
	if h.Queries == nil {
		respondWithError(c, h.Logger, http.StatusServiceUnavailable, errBusUnavailable)
		return
	}
	day, err := daterange.ParseDay(c.Param("date"))
	if err != nil {
		respondWithError(c, h.Logger, http.StatusBadRequest, err)
		return
	}
	query := calendarapp.BookingAtQuery{ListingID: c.Param("id"), Date: day}
	result, err := queries.Ask[calendarapp.BookingAtQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r selectionRequest) command(listingID string, op periods.Operation) (calendarapp.ReconcileCommand, error) {
	cmd := calendarapp.ReconcileCommand{ListingID: listingID, Operation: op}
	for _, raw := range r.Dates {
		day, err := daterange.ParseDay(raw)
		if err != nil {
			return cmd, err
		}
		cmd.Dates = append(cmd.Dates, day)
	}
	if r.Start != "" || r.End != "" {
		span, err := daterange.Parse(r.Start, r.End)
		if err != nil {
			return cmd, err
		}
		cmd.Ranges = append(cmd.Ranges, span)
	}
	if op == periods.OpApplyRate {
		rate, err := rawRate(r.Rate)
		if err != nil {
			return cmd, err
		}
		cmd.RawRate = rate
	}
	return cmd, nil
}

// rawRate turns a JSON number or string into the text the rate parser reads.
func rawRate(raw json.RawMessage) (string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "", periods.ErrInvalidRate
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", periods.ErrInvalidRate, err)
		}
		return s, nil
	}
	return text, nil
}

func optionalDay(raw string) (daterange.Day, error) {
	if strings.TrimSpace(raw) == "" {
		return daterange.Day{}, nil
	}
	return daterange.ParseDay(raw)
}

var _ CalendarHTTP = CalendarHandler{}
