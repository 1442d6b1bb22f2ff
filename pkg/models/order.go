// Package models defines the domain records shared by the pipeline stages
// and the relational sink.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Order is one row of the orders fact table.
type Order struct {
	OrderID      string
	CustomerID   string
	Product      string
	Category     string
	Region       string
	Quantity     int64
	UnitPrice    decimal.Decimal
	Discount     decimal.Decimal
	TotalRevenue decimal.Decimal
	OrderDate    time.Time
	Status       string
	IngestedAt   time.Time
}

// Revenue computes quantity * unit_price * (1 - discount) rounded to 2 decimal
// places. Must stay in lockstep with the generated total_revenue column on the
// orders table; it is never set independently.
func Revenue(quantity int64, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(quantity).Mul(unitPrice).Mul(one.Sub(discount)).Round(2)
}

// ReturnedOrder is one row of the returned_orders table. Rows are removed by
// the sink's cascade delete when the parent order is deleted. No ingestion
// path writes these yet; only the contract is carried.
type ReturnedOrder struct {
	ReturnID     int64
	OrderID      string
	Reason       string
	ReturnDate   time.Time
	RefundAmount decimal.Decimal
	ProcessedAt  time.Time
}

// PurchasedProduct is one row of the derived purchased_products table. It is
// fully recomputed from orders for every product touched by a load, never
// updated incrementally.
type PurchasedProduct struct {
	Product           string
	Category          string
	TotalUnitsSold    int64
	TotalRevenue      decimal.Decimal
	AvgDiscount       decimal.Decimal
	LastPurchasedDate time.Time
	UpdatedAt         time.Time
}
