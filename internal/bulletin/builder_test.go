package bulletin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuild_DerivesIdsFromProductCode(t *testing.T) {
	day := time.Date(2024, 1, 5, 15, 30, 0, 0, time.FixedZone("MSK", 3*60*60))
	row := RawRow{
		ProductCode:       "A592UFM060F",
		ProductName:       "Бензин (АИ-92-К5), ст. Уфа",
		DeliveryBasisName: "ст. Уфа",
		Volume:            "60",
		Total:             "3624000",
		Count:             "1",
	}

	got := Build(row, day)

	assert.Equal(t, "A592UFM060F", got.ExchangeProductID)
	assert.Equal(t, "A592", got.OilID)
	assert.Equal(t, "UFM", got.DeliveryBasisID)
	assert.Equal(t, "F", got.DeliveryTypeID)
	assert.Equal(t, row.ProductName, got.ExchangeProductName)
	assert.Equal(t, row.DeliveryBasisName, got.DeliveryBasisName)
	assert.Equal(t, "60", got.Volume)
	assert.Equal(t, "3624000", got.Total)
	assert.Equal(t, "1", got.Count)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), got.Date)
}

func TestBuild_ShortCodesDoNotFail(t *testing.T) {
	cases := []struct {
		code                    string
		oil, basis, deliveryTyp string
	}{
		{code: "", oil: "", basis: "", deliveryTyp: ""},
		{code: "A", oil: "A", basis: "", deliveryTyp: "A"},
		{code: "A59", oil: "A59", basis: "", deliveryTyp: "9"},
		{code: "A592", oil: "A592", basis: "", deliveryTyp: "2"},
		{code: "A592U", oil: "A592", basis: "U", deliveryTyp: "U"},
		{code: "A592UF", oil: "A592", basis: "UF", deliveryTyp: "F"},
	}
	for _, tc := range cases {
		got := Build(RawRow{ProductCode: tc.code}, time.Now())
		assert.Equal(t, tc.oil, got.OilID, tc.code)
		assert.Equal(t, tc.basis, got.DeliveryBasisID, tc.code)
		assert.Equal(t, tc.deliveryTyp, got.DeliveryTypeID, tc.code)
	}
}

func TestBuild_PositionalRoundTrip(t *testing.T) {
	codes := []string{"A592UFM060F", "DT5ANPA065F", "A100ANK060F", "B10KSTI065W", "ABCDE", "ÄÖÜ12ЖЗИ9"}
	for _, code := range codes {
		got := Build(RawRow{ProductCode: code}, time.Now())
		runes := []rune(code)
		n := len(runes)

		assert.Equal(t, string(runes[:4]), got.OilID, code)
		end := 7
		if end > n {
			end = n
		}
		assert.Equal(t, string(runes[4:end]), got.DeliveryBasisID, code)
		assert.Equal(t, string(runes[n-1:]), got.DeliveryTypeID, code)
		assert.True(t, len([]rune(got.OilID+got.DeliveryBasisID)) <= n, code)
		assert.Equal(t, string(runes[:len([]rune(got.OilID+got.DeliveryBasisID))]), got.OilID+got.DeliveryBasisID, code)
	}
}
