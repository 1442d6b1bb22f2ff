package etl

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/BartekS5/sales-etl/pkg/models"
)

// Transformer produces load-ready orders from validated rows: string fields
// are trimmed and case-folded, numerics coerced to fixed-point decimals, and
// total_revenue derived.
type Transformer struct{}

// Transform cleans every row. No row is silently dropped: a row that fails
// coercion is reclassified as skipped, same shape as a validation skip.
func (t Transformer) Transform(rows []Row) ([]models.Order, []SkippedRow) {
	orders := make([]models.Order, 0, len(rows))
	var skipped []SkippedRow
	for _, row := range rows {
		order, err := t.transformRow(row)
		if err != nil {
			skipped = append(skipped, SkippedRow{
				Line:    row.Line,
				OrderID: row.Get("order_id"),
				Reason:  SkipBadNumeric,
			})
			continue
		}
		orders = append(orders, order)
	}
	return orders, skipped
}

func (Transformer) transformRow(row Row) (models.Order, error) {
	quantity, err := strconv.ParseInt(row.Get("quantity"), 10, 64)
	if err != nil {
		return models.Order{}, err
	}
	unitPrice, err := decimal.NewFromString(row.Get("unit_price"))
	if err != nil {
		return models.Order{}, err
	}
	discount, err := decimal.NewFromString(row.Get("discount"))
	if err != nil {
		return models.Order{}, err
	}
	orderDate, err := time.Parse(dateLayout, row.Get("order_date"))
	if err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		OrderID:    row.Get("order_id"),
		CustomerID: row.Get("customer_id"),
		Product:    row.Get("product"),
		Category:   titleCase(row.Get("category")),
		Region:     titleCase(row.Get("region")),
		Quantity:   quantity,
		UnitPrice:  unitPrice.Round(2),
		Discount:   discount.Round(4),
		OrderDate:  orderDate,
		Status:     strings.ToLower(row.Get("status")),
	}
	order.TotalRevenue = models.Revenue(order.Quantity, order.UnitPrice, order.Discount)
	return order, nil
}

// titleCase upper-cases the first letter of every word and lower-cases the
// rest, collapsing runs of whitespace.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
