package dto

import (
	"time"

	"github.com/guttosm/spimexpulse/internal/domain/models"
)

// TradingResultResponse is the JSON shape of one trading record.
// Dates are rendered as YYYY-MM-DD, timestamps as RFC3339.
type TradingResultResponse struct {
	ID                  int64     `json:"id" example:"1"`
	ExchangeProductID   string    `json:"exchange_product_id" example:"A592UFM060F"`
	ExchangeProductName string    `json:"exchange_product_name" example:"Бензин (АИ-92-К5)"`
	OilID               string    `json:"oil_id" example:"A592"`
	DeliveryBasisID     string    `json:"delivery_basis_id" example:"UFM"`
	DeliveryBasisName   string    `json:"delivery_basis_name" example:"Уфа"`
	DeliveryTypeID      string    `json:"delivery_type_id" example:"F"`
	Volume              string    `json:"volume" example:"60"`
	Total               string    `json:"total" example:"3624000"`
	Count               string    `json:"count" example:"1"`
	Date                string    `json:"date" example:"2024-01-05"`
	CreatedOn           time.Time `json:"created_on"`
	UpdatedOn           time.Time `json:"updated_on"`
}

// TradingResultsList wraps a list of trading records.
type TradingResultsList struct {
	TradingResults []TradingResultResponse `json:"trading_results"`
}

// NewTradingResultsList maps domain records to their response DTOs.
// A nil input yields an empty (non-null) JSON array.
func NewTradingResultsList(results []models.TradingResult) TradingResultsList {
	out := make([]TradingResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, TradingResultResponse{
			ID:                  r.ID,
			ExchangeProductID:   r.ExchangeProductID,
			ExchangeProductName: r.ExchangeProductName,
			OilID:               r.OilID,
			DeliveryBasisID:     r.DeliveryBasisID,
			DeliveryBasisName:   r.DeliveryBasisName,
			DeliveryTypeID:      r.DeliveryTypeID,
			Volume:              r.Volume,
			Total:               r.Total,
			Count:               r.Count,
			Date:                r.Date.Format(models.DateLayout),
			CreatedOn:           r.CreatedOn,
			UpdatedOn:           r.UpdatedOn,
		})
	}
	return TradingResultsList{TradingResults: out}
}

// LastTradingDates lists trade dates (YYYY-MM-DD, most recent first).
type LastTradingDates struct {
	LastTradingDates []string `json:"last_trading_dates" example:"2024-01-05,2024-01-04"`
}

// NewLastTradingDates formats dates for the response.
func NewLastTradingDates(dates []time.Time) LastTradingDates {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(models.DateLayout))
	}
	return LastTradingDates{LastTradingDates: out}
}
