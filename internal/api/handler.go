package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/spimexpulse/internal/domain/dto"
	"github.com/guttosm/spimexpulse/internal/domain/models"
	"github.com/guttosm/spimexpulse/internal/middleware"
	"github.com/guttosm/spimexpulse/internal/service"
)

// Handler provides HTTP handlers for the trading results read endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Delegate to the service layer
//   - Translate results into response DTOs
//   - Return structured JSON responses with appropriate HTTP status codes
type Handler struct {
	svc service.TradingResultsService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.TradingResultsService) *Handler {
	return &Handler{svc: svc}
}

// GetTradingResultsInPeriod handles GET /api/v1/trading_results_in_period.
//
// GetTradingResultsInPeriod godoc
// @Summary      Trading results in a period
// @Description  Returns every trading record with start_date <= date <= end_date, optionally filtered
// @Tags         trading_results
// @Produce      json
// @Param        start_date         query     string  true   "Period start (YYYY-MM-DD)" example(2024-01-01)
// @Param        end_date           query     string  true   "Period end (YYYY-MM-DD)" example(2024-01-31)
// @Param        oil_id             query     string  false  "Oil id (first 4 characters of the product code)" example(A592)
// @Param        delivery_type_id   query     string  false  "Delivery type id (last character of the product code)" example(F)
// @Param        delivery_basis_id  query     string  false  "Delivery basis id (characters 5-7 of the product code)" example(UFM)
// @Success      200  {object}  dto.TradingResultsList  "Success"
// @Failure      400  {object}  dto.ErrorResponse       "Bad Request"
// @Failure      500  {object}  dto.ErrorResponse       "Internal Error"
// @Router       /api/v1/trading_results_in_period [get]
func (h *Handler) GetTradingResultsInPeriod(c *gin.Context) {
	// ─── Validate dates ───────────────────────────────────────
	start, ok := requiredDate(c, "start_date")
	if !ok {
		return
	}
	end, ok := requiredDate(c, "end_date")
	if !ok {
		return
	}

	// ─── Query service (with request context) ─────────────────
	results, err := h.svc.GetResultsInPeriod(c.Request.Context(), start, end, filterFromQuery(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidPeriod) {
			middleware.AbortWithError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch trading results", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTradingResultsList(results))
}

// GetLastTradingResults handles GET /api/v1/last_trading_results.
//
// GetLastTradingResults godoc
// @Summary      Results of the last trading day
// @Description  Returns the trading records of the most recent trade date in the store, optionally filtered
// @Tags         trading_results
// @Produce      json
// @Param        oil_id             query     string  false  "Oil id" example(A592)
// @Param        delivery_type_id   query     string  false  "Delivery type id" example(F)
// @Param        delivery_basis_id  query     string  false  "Delivery basis id" example(UFM)
// @Success      200  {object}  dto.TradingResultsList  "Success"
// @Failure      404  {object}  dto.ErrorResponse       "Database is empty"
// @Failure      500  {object}  dto.ErrorResponse       "Internal Error"
// @Router       /api/v1/last_trading_results [get]
func (h *Handler) GetLastTradingResults(c *gin.Context) {
	results, err := h.svc.GetLastResults(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		if errors.Is(err, service.ErrStoreEmpty) {
			middleware.AbortWithError(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch last trading results", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTradingResultsList(results))
}

// GetLastTradingDates handles GET /api/v1/last_trading_dates.
//
// GetLastTradingDates godoc
// @Summary      Recent trading dates
// @Description  Lists the dates among the last N calendar days (today included) that have trading records
// @Tags         trading_results
// @Produce      json
// @Param        days  query     int  true  "Look-back window in days (>= 1)" example(7)
// @Success      200   {object}  dto.LastTradingDates  "Success"
// @Failure      400   {object}  dto.ErrorResponse     "Bad Request"
// @Failure      500   {object}  dto.ErrorResponse     "Internal Error"
// @Router       /api/v1/last_trading_dates [get]
func (h *Handler) GetLastTradingDates(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("days"))
	if raw == "" {
		middleware.AbortWithError(c, http.StatusBadRequest, "days is required", nil)
		return
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid days, expected an integer", err)
		return
	}

	dates, err := h.svc.GetLastTradingDates(c.Request.Context(), days)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDays) {
			middleware.AbortWithError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		middleware.AbortWithError(c, http.StatusInternalServerError, "failed to fetch trading dates", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLastTradingDates(dates))
}

func requiredDate(c *gin.Context, name string) (time.Time, bool) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		middleware.AbortWithError(c, http.StatusBadRequest, name+" is required", nil)
		return time.Time{}, false
	}
	d, err := models.ParseDate(s)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid "+name+" format, expected YYYY-MM-DD", err)
		return time.Time{}, false
	}
	return d, true
}

func filterFromQuery(c *gin.Context) models.ResultsFilter {
	return models.ResultsFilter{
		OilID:           strings.TrimSpace(c.Query("oil_id")),
		DeliveryTypeID:  strings.TrimSpace(c.Query("delivery_type_id")),
		DeliveryBasisID: strings.TrimSpace(c.Query("delivery_basis_id")),
	}
}
