package etl

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/sales-etl/pkg/models"
)

const sampleCSV = `order_id,customer_id,product,category,region,quantity,unit_price,discount,order_date,status
ord-001,c1,Laptop Pro 15,electronics,north america,2,999.99,0.10,2024-06-01,completed
ord-002,c2,Running Shoes,apparel,europe,1,49.95,0,2024-07-15,completed
`

func TestCSVParser_Parse(t *testing.T) {
	batch, err := CSVParser{}.Parse([]byte(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, RequiredColumns, batch.Columns)
	require.Len(t, batch.Rows, 2)

	assert.Equal(t, 2, batch.Rows[0].Line)
	assert.Equal(t, "ord-001", batch.Rows[0].Get("order_id"))
	assert.Equal(t, "999.99", batch.Rows[0].Get("unit_price"))
	assert.Equal(t, 3, batch.Rows[1].Line)
}

func TestCSVParser_EmptyFile(t *testing.T) {
	_, err := CSVParser{}.Parse(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestCSVParser_RaggedRow(t *testing.T) {
	data := "order_id,customer_id\nord-001\n"
	_, err := CSVParser{}.Parse([]byte(data))
	assert.Error(t, err)
}

func TestWriteOrdersCSV_RoundTrip(t *testing.T) {
	orders := []models.Order{{
		OrderID:    "ord-001",
		CustomerID: "c1",
		Product:    "Laptop Pro 15",
		Category:   "Electronics",
		Region:     "North America",
		Quantity:   2,
		UnitPrice:  decimal.RequireFromString("999.99"),
		Discount:   decimal.RequireFromString("0.1"),
		OrderDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:     "completed",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&buf, orders))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(RequiredColumns, ","), lines[0])
	assert.Equal(t, "ord-001,c1,Laptop Pro 15,Electronics,North America,2,999.99,0.1000,2024-06-01,completed", lines[1])

	batch, err := CSVParser{}.Parse(buf.Bytes())
	require.NoError(t, err)
	valid, skipped, err := Validator{}.Validate(batch)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, valid, 1)
}
