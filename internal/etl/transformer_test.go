package etl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/sales-etl/pkg/models"
)

func TestTransform_CleansAndDerivesRevenue(t *testing.T) {
	input := row(2, map[string]string{
		"product":    "  Laptop Pro 15 ",
		"category":   "  home & kitchen ",
		"region":     "north   america",
		"status":     " COMPLETED ",
		"quantity":   "2",
		"unit_price": "10.00",
		"discount":   "0.1",
	})

	orders, skipped := Transformer{}.Transform([]Row{input})
	require.Empty(t, skipped)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, "Laptop Pro 15", o.Product)
	assert.Equal(t, "Home & Kitchen", o.Category)
	assert.Equal(t, "North America", o.Region)
	assert.Equal(t, "completed", o.Status)
	assert.Equal(t, int64(2), o.Quantity)
	assert.Equal(t, "10.00", o.UnitPrice.StringFixed(2))
	assert.Equal(t, "0.1000", o.Discount.StringFixed(4))
	assert.Equal(t, "18.00", o.TotalRevenue.StringFixed(2))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), o.OrderDate)
}

func TestTransform_FixedPointPrecision(t *testing.T) {
	input := row(2, map[string]string{
		"unit_price": "19.999",
		"discount":   "0.12345",
	})
	orders, skipped := Transformer{}.Transform([]Row{input})
	require.Empty(t, skipped)
	require.Len(t, orders, 1)

	// currency at 2 decimal places, discount ratio at 4
	assert.Equal(t, "20.00", orders[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "0.1235", orders[0].Discount.StringFixed(4))
}

func TestTransform_CoercionFailureIsSkipped(t *testing.T) {
	bad := row(5, map[string]string{"unit_price": "not-a-number"})
	good := row(6, map[string]string{"order_id": "ord-002"})

	orders, skipped := Transformer{}.Transform([]Row{bad, good})
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-002", orders[0].OrderID)
	require.Len(t, skipped, 1)
	assert.Equal(t, 5, skipped[0].Line)
	assert.Equal(t, SkipBadNumeric, skipped[0].Reason)
}

// The transform derivation and the models helper must agree exactly, since
// the sink's generated column applies the same rule.
func TestTransform_RevenueMatchesModelRule(t *testing.T) {
	input := row(2, map[string]string{
		"quantity":   "3",
		"unit_price": "33.33",
		"discount":   "0.15",
	})
	orders, _ := Transformer{}.Transform([]Row{input})
	require.Len(t, orders, 1)

	want := models.Revenue(3, decimal.RequireFromString("33.33"), decimal.RequireFromString("0.15"))
	assert.True(t, orders[0].TotalRevenue.Equal(want))
	// 3 * 33.33 * 0.85 = 84.9915 -> 84.99
	assert.Equal(t, "84.99", want.StringFixed(2))
}
