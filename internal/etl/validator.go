package etl

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var decimalOne = decimal.NewFromInt(1)

// Validator applies the row-level data contract to a parsed batch. It is a
// pure function of its input; no side effects.
type Validator struct{}

// Validate splits a batch into valid rows and skipped rows with reasons.
// A missing required column is a schema error and fails the whole batch.
// Duplicate order_ids keep the first occurrence; a batch with zero valid
// rows is not an error.
func (Validator) Validate(batch *Batch) ([]Row, []SkippedRow, error) {
	if missing := missingColumns(batch.Columns); len(missing) > 0 {
		return nil, nil, errors.Errorf("file missing required columns: %s", strings.Join(missing, ", "))
	}

	valid := make([]Row, 0, len(batch.Rows))
	var skipped []SkippedRow
	seen := make(map[string]struct{}, len(batch.Rows))

	for _, row := range batch.Rows {
		id := row.Get("order_id")
		if reason, ok := checkRow(row); !ok {
			skipped = append(skipped, SkippedRow{Line: row.Line, OrderID: id, Reason: reason})
			continue
		}
		if _, dup := seen[id]; dup {
			skipped = append(skipped, SkippedRow{Line: row.Line, OrderID: id, Reason: SkipDuplicateOrderID})
			continue
		}
		seen[id] = struct{}{}
		valid = append(valid, row)
	}
	return valid, skipped, nil
}

func missingColumns(columns []string) []string {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// checkRow runs the per-row constraint checks. Constraint violations are
// reported before duplicate classification, so a bad duplicate row is skipped
// for its own defect.
func checkRow(row Row) (SkipReason, bool) {
	if row.Get("order_id") == "" {
		return SkipMissingOrderID, false
	}
	for _, col := range RequiredColumns {
		if row.Get(col) == "" {
			return SkipEmptyField, false
		}
	}

	quantity, err := strconv.ParseInt(row.Get("quantity"), 10, 64)
	if err != nil {
		return SkipBadNumeric, false
	}
	if quantity <= 0 {
		return SkipBadQuantity, false
	}

	unitPrice, err := decimal.NewFromString(row.Get("unit_price"))
	if err != nil {
		return SkipBadNumeric, false
	}
	if unitPrice.IsNegative() {
		return SkipBadUnitPrice, false
	}

	discount, err := decimal.NewFromString(row.Get("discount"))
	if err != nil {
		return SkipBadNumeric, false
	}
	if discount.IsNegative() || discount.GreaterThan(decimalOne) {
		return SkipBadDiscount, false
	}

	if _, err := time.Parse(dateLayout, row.Get("order_date")); err != nil {
		return SkipBadOrderDate, false
	}
	return "", true
}
