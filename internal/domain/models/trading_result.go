package models

import "time"

// TradingResult represents one traded instrument on one trading date, as published in
// the daily SPIMEX oil bulletin.
//
// OilID, DeliveryBasisID and DeliveryTypeID are always derived from ExchangeProductID
// and are never edited on their own.
//
// Volume, Total and Count keep the bulletin's numeric formatting as strings. Placeholder
// cells ("-") and blank cells are stored as "0".
//
// swagger:model TradingResult
type TradingResult struct {
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
	Date                time.Time `json:"date"`
	CreatedOn           time.Time `json:"created_on"`
	UpdatedOn           time.Time `json:"updated_on"`
}

// ResultsFilter holds the optional facets accepted by the read endpoints.
// Empty fields do not filter.
type ResultsFilter struct {
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
}

// IsZero reports whether no facet is set.
func (f ResultsFilter) IsZero() bool {
	return f.OilID == "" && f.DeliveryTypeID == "" && f.DeliveryBasisID == ""
}
