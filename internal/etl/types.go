package etl

import "strings"

// SkipReason classifies why a row was excluded from loading.
type SkipReason string

// SkipReason values cover every row-level rejection the pipeline can emit.
const (
	SkipMissingOrderID   SkipReason = "missing_order_id"
	SkipDuplicateOrderID SkipReason = "duplicate_order_id"
	SkipEmptyField       SkipReason = "empty_required_field"
	SkipBadQuantity      SkipReason = "quantity_not_positive"
	SkipBadUnitPrice     SkipReason = "negative_unit_price"
	SkipBadDiscount      SkipReason = "discount_out_of_range"
	SkipBadOrderDate     SkipReason = "unparseable_order_date"
	SkipBadNumeric       SkipReason = "unparseable_numeric"
)

// Row is one parsed record of a tabular file, keyed by column name.
type Row struct {
	Line   int
	Fields map[string]string
}

// Get returns the trimmed value of a column, or "" when absent.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r.Fields[col])
}

// Batch is a parsed tabular file.
type Batch struct {
	Columns []string
	Rows    []Row
}

// SkippedRow records an excluded row and the reason, attributable back to the
// source file line for operator triage.
type SkippedRow struct {
	Line    int        `json:"line"`
	OrderID string     `json:"order_id,omitempty"`
	Reason  SkipReason `json:"reason"`
}

// SkipReport is the serializable handoff of skipped rows between the
// transform and load stage entry points.
type SkipReport struct {
	SourceKey string       `json:"source_key"`
	Skipped   []SkippedRow `json:"skipped"`
}

// RunState is the position of a pipeline run in its stage sequence.
type RunState string

// RunState values; FAILED is absorbing and reachable from any state.
const (
	StatePending     RunState = "PENDING"
	StateDownloaded  RunState = "DOWNLOADED"
	StateValidated   RunState = "VALIDATED"
	StateTransformed RunState = "TRANSFORMED"
	StateLoaded      RunState = "LOADED"
	StateArchived    RunState = "ARCHIVED"
	StateFailed      RunState = "FAILED"
)
