// Package generator produces synthetic sales order files to feed the
// pipeline's raw bucket.
package generator

import (
	"bytes"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/BartekS5/sales-etl/internal/etl"
	"github.com/BartekS5/sales-etl/pkg/models"
)

// categories is kept as an ordered slice so generation stays deterministic
// for a given seed.
var categories = []string{"Electronics", "Apparel", "Home & Kitchen", "Books", "Sports"}

var products = map[string][]string{
	"Electronics":    {"Laptop Pro 15", "Wireless Earbuds", "Smart Watch", "USB-C Hub", "Webcam HD"},
	"Apparel":        {"Running Shoes", "Winter Jacket", "Yoga Pants", "Casual T-Shirt", "Denim Jeans"},
	"Home & Kitchen": {"Coffee Maker", "Air Fryer", "Blender", "Knife Set", "Cast Iron Pan"},
	"Books":          {"Data Engineering 101", "Python Mastery", "System Design", "Clean Code", "DevOps Handbook"},
	"Sports":         {"Yoga Mat", "Resistance Bands", "Dumbbells 10kg", "Jump Rope", "Water Bottle"},
}

var regions = []string{"North America", "Europe", "Asia Pacific", "Latin America", "Middle East & Africa"}

// statuses is weighted towards completed orders.
var statuses = []string{"completed", "completed", "completed", "pending", "returned", "cancelled"}

var discounts = []float64{0, 0, 0, 0.05, 0.10, 0.15, 0.20, 0.25}

// Generator creates reproducible synthetic order batches.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

func New(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now().UTC(),
	}
}

// Generate returns n synthetic orders. The same seed yields the same batch
// for a fixed generation time.
func (g *Generator) Generate(n int) []models.Order {
	orders := make([]models.Order, 0, n)
	for i := 0; i < n; i++ {
		category := categories[g.rng.Intn(len(categories))]
		names := products[category]

		orderID, _ := uuid.NewRandomFromReader(g.rng)
		customerID, _ := uuid.NewRandomFromReader(g.rng)

		order := models.Order{
			OrderID:    orderID.String(),
			CustomerID: customerID.String(),
			Product:    names[g.rng.Intn(len(names))],
			Category:   category,
			Region:     regions[g.rng.Intn(len(regions))],
			Quantity:   int64(g.rng.Intn(10) + 1),
			UnitPrice:  decimal.NewFromFloat(5.0 + g.rng.Float64()*1495.0).Round(2),
			Discount:   decimal.NewFromFloat(discounts[g.rng.Intn(len(discounts))]).Round(2),
			OrderDate:  g.now.AddDate(0, 0, -g.rng.Intn(365)).Truncate(24 * time.Hour),
			Status:     statuses[g.rng.Intn(len(statuses))],
		}
		order.TotalRevenue = models.Revenue(order.Quantity, order.UnitPrice, order.Discount)
		orders = append(orders, order)
	}
	return orders
}

// WriteCSV serializes orders with the pipeline's canonical header.
func WriteCSV(orders []models.Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := etl.WriteOrdersCSV(&buf, orders); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ObjectKey names an upload after its generation time, e.g.
// sales_20240101_120000.csv.
func ObjectKey(t time.Time) string {
	return fmt.Sprintf("sales_%s.csv", t.UTC().Format("20060102_150405"))
}
