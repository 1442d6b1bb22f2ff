package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/BartekS5/sales-etl/pkg/logger"
	"github.com/BartekS5/sales-etl/pkg/models"
)

const upsertPageSize = 500

// Loader writes cleaned batches to the relational sink. It is the only
// component that mutates orders, purchased_products and pipeline_runs.
type Loader struct {
	DB *sql.DB
}

func NewLoader(db *sql.DB) *Loader {
	return &Loader{DB: db}
}

// Load bulk-upserts orders, re-aggregates purchased_products for every
// product touched, and records the attempt in pipeline_runs.
//
// The audit row is created outside the data transaction so that a failed
// attempt still leaves exactly one finalized record; all data writes share a
// single transaction and either commit together or not at all. A batch where
// every row was skipped succeeds with rows_inserted = 0.
func (l *Loader) Load(ctx context.Context, orders []models.Order, externalRunID, sourceFile string, rowsSkipped int) (*models.PipelineRun, error) {
	run := &models.PipelineRun{
		ExternalRunID: externalRunID,
		FileProcessed: sourceFile,
		RowsSkipped:   rowsSkipped,
		Status:        models.RunRunning,
	}
	err := l.DB.QueryRowContext(ctx, `
		INSERT INTO pipeline_runs (external_run_id, file_processed, rows_inserted, rows_skipped, status)
		VALUES ($1, $2, 0, $3, $4)
		RETURNING run_id, started_at`,
		externalRunID, sourceFile, rowsSkipped, string(models.RunRunning),
	).Scan(&run.RunID, &run.StartedAt)
	if err != nil {
		return nil, errors.Wrap(err, "creating pipeline run record")
	}

	if err := l.loadTx(ctx, orders); err != nil {
		if finErr := l.finalize(ctx, run, 0, models.RunFailed); finErr != nil {
			logger.Errorf("run %d: recording failure: %v", run.RunID, finErr)
		}
		return run, errors.Wrapf(err, "run %d", run.RunID)
	}

	if err := l.finalize(ctx, run, len(orders), models.RunSucceeded); err != nil {
		return run, errors.Wrapf(err, "run %d: finalizing audit record", run.RunID)
	}
	logger.Infof("run %d: loaded %d rows (skipped=%d) from %s", run.RunID, run.RowsInserted, run.RowsSkipped, sourceFile)
	return run, nil
}

func (l *Loader) loadTx(ctx context.Context, orders []models.Order) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "opening transaction")
	}
	defer tx.Rollback()

	for start := 0; start < len(orders); start += upsertPageSize {
		end := min(start+upsertPageSize, len(orders))
		if err := upsertOrders(ctx, tx, orders[start:end]); err != nil {
			return err
		}
	}
	if err := refreshProductAggregates(ctx, tx, orders); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// upsertOrders writes one page with a multi-row INSERT ... ON CONFLICT.
// Every field is overwritten on conflict: last writer wins by pipeline run,
// so replaying a file is idempotent. total_revenue is never written; it is
// the sink's generated column.
func upsertOrders(ctx context.Context, tx *sql.Tx, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	const cols = 10
	placeholders := make([]string, 0, len(orders))
	args := make([]interface{}, 0, len(orders)*cols)
	for i, o := range orders {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10))
		args = append(args,
			o.OrderID, o.CustomerID, o.Product, o.Category, o.Region,
			o.Quantity, o.UnitPrice, o.Discount, o.OrderDate, o.Status)
	}

	query := fmt.Sprintf(`
		INSERT INTO orders
			(order_id, customer_id, product, category, region, quantity, unit_price, discount, order_date, status)
		VALUES %s
		ON CONFLICT (order_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			product     = EXCLUDED.product,
			category    = EXCLUDED.category,
			region      = EXCLUDED.region,
			quantity    = EXCLUDED.quantity,
			unit_price  = EXCLUDED.unit_price,
			discount    = EXCLUDED.discount,
			order_date  = EXCLUDED.order_date,
			status      = EXCLUDED.status,
			ingested_at = NOW()`,
		strings.Join(placeholders, ", "))

	_, err := tx.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "upserting orders")
}

// refreshProductAggregates recomputes purchased_products for every distinct
// product in the batch as a full aggregation over the orders table, so the
// derived table stays consistent with the fact table regardless of replay
// order.
func refreshProductAggregates(ctx context.Context, tx *sql.Tx, orders []models.Order) error {
	seen := make(map[string]struct{}, len(orders))
	products := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.Product]; ok {
			continue
		}
		seen[o.Product] = struct{}{}
		products = append(products, o.Product)
	}
	if len(products) == 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO purchased_products
			(product, category, total_units_sold, total_revenue, avg_discount, last_purchased_date, updated_at)
		SELECT
			product,
			MAX(category),
			SUM(quantity),
			ROUND(SUM(total_revenue), 2),
			ROUND(AVG(discount), 4),
			MAX(order_date),
			NOW()
		FROM orders
		WHERE product = ANY($1)
		GROUP BY product
		ON CONFLICT (product) DO UPDATE SET
			category            = EXCLUDED.category,
			total_units_sold    = EXCLUDED.total_units_sold,
			total_revenue       = EXCLUDED.total_revenue,
			avg_discount        = EXCLUDED.avg_discount,
			last_purchased_date = EXCLUDED.last_purchased_date,
			updated_at          = NOW()`,
		products)
	return errors.Wrap(err, "refreshing purchased_products")
}

func (l *Loader) finalize(ctx context.Context, run *models.PipelineRun, rowsInserted int, status models.RunStatus) error {
	var finished sql.NullTime
	err := l.DB.QueryRowContext(ctx, `
		UPDATE pipeline_runs
		SET rows_inserted = $1, status = $2, finished_at = NOW()
		WHERE run_id = $3
		RETURNING finished_at`,
		rowsInserted, string(status), run.RunID,
	).Scan(&finished)
	if err != nil {
		return errors.Wrap(err, "finalizing pipeline run")
	}
	run.RowsInserted = rowsInserted
	run.Status = status
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return nil
}

// MarkArchiveWarning flags a succeeded run whose source file could not be
// archived. The data load stands; the file stays in raw storage.
func (l *Loader) MarkArchiveWarning(ctx context.Context, runID int64) error {
	_, err := l.DB.ExecContext(ctx,
		`UPDATE pipeline_runs SET archive_warning = TRUE WHERE run_id = $1`, runID)
	return errors.Wrapf(err, "flagging archive warning for run %d", runID)
}
