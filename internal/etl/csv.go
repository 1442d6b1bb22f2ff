package etl

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/BartekS5/sales-etl/pkg/models"
)

// RequiredColumns is the exact header contract for incoming sales files.
var RequiredColumns = []string{
	"order_id", "customer_id", "product", "category", "region",
	"quantity", "unit_price", "discount", "order_date", "status",
}

// BatchParser turns raw file bytes into a tabular batch. One implementation
// exists per file format so new formats slot in without touching the stages.
type BatchParser interface {
	Parse(data []byte) (*Batch, error)
}

// CSVParser parses comma-delimited files with a header row.
type CSVParser struct{}

// Parse reads the header and all records. Structural problems (empty file,
// ragged rows) are schema errors and fail the whole batch.
func (CSVParser) Parse(data []byte) (*Batch, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.TrimSpace(col)
	}

	batch := &Batch{Columns: columns}
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "reading line %d", line)
		}
		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			fields[col] = record[i]
		}
		batch.Rows = append(batch.Rows, Row{Line: line, Fields: fields})
	}
	return batch, nil
}

// WriteOrdersCSV serializes orders back to the canonical column layout. Used
// by the generator and by the transform stage for its cleaned intermediate.
func WriteOrdersCSV(w io.Writer, orders []models.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredColumns); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, o := range orders {
		record := []string{
			o.OrderID,
			o.CustomerID,
			o.Product,
			o.Category,
			o.Region,
			strconv.FormatInt(o.Quantity, 10),
			o.UnitPrice.StringFixed(2),
			o.Discount.StringFixed(4),
			o.OrderDate.Format("2006-01-02"),
			o.Status,
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "writing order %s", o.OrderID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
