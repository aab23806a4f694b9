package bulletin

import (
	"time"

	"github.com/guttosm/spimexpulse/internal/domain/models"
)

// Product code layout: OOOO BBB ... T
const (
	oilIDEnd         = 4
	deliveryBasisEnd = 7
)

// Build maps a parsed bulletin row to a persistence-ready record for tradeDate.
//
// The product code is split by character position:
//   - OilID: characters 0-3
//   - DeliveryBasisID: characters 4-6
//   - DeliveryTypeID: the last character
//
// Each slice is clamped to the code length, so short codes produce short or empty ids
// instead of failing.
func Build(row RawRow, tradeDate time.Time) models.TradingResult {
	code := []rune(row.ProductCode)

	var deliveryType string
	if len(code) > 0 {
		deliveryType = string(code[len(code)-1])
	}

	return models.TradingResult{
		ExchangeProductID:   row.ProductCode,
		ExchangeProductName: row.ProductName,
		OilID:               sliceRunes(code, 0, oilIDEnd),
		DeliveryBasisID:     sliceRunes(code, oilIDEnd, deliveryBasisEnd),
		DeliveryBasisName:   row.DeliveryBasisName,
		DeliveryTypeID:      deliveryType,
		Volume:              row.Volume,
		Total:               row.Total,
		Count:               row.Count,
		Date:                models.DateOf(tradeDate),
	}
}

func sliceRunes(r []rune, from, to int) string {
	if from > len(r) {
		from = len(r)
	}
	if to > len(r) {
		to = len(r)
	}
	return string(r[from:to])
}
