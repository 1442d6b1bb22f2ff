package etl

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/BartekS5/sales-etl/pkg/logger"
	"github.com/BartekS5/sales-etl/pkg/models"
)

// ObjectStore is the storage capability the pipeline needs. Satisfied by
// *objectstore.Client.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Move(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	List(ctx context.Context, bucket string) ([]string, error)
}

// OrderLoader is the sink capability the pipeline needs. Satisfied by *Loader.
type OrderLoader interface {
	Load(ctx context.Context, orders []models.Order, externalRunID, sourceFile string, rowsSkipped int) (*models.PipelineRun, error)
	MarkArchiveWarning(ctx context.Context, runID int64) error
}

// Pipeline executes one run over one source file: download, validate,
// transform, load, archive, strictly in that order. Each stage method is
// independently invocable by an external scheduler; State tracks progress and
// enforces forward-only transitions. FAILED is absorbing: once a stage fails,
// no further stage executes for this run.
type Pipeline struct {
	Store           ObjectStore
	Loader          OrderLoader
	Parser          BatchParser
	RawBucket       string
	ProcessedBucket string

	// State is the current position in the stage sequence. A scheduler
	// invoking a single stage on a fresh Pipeline sets it to the stage's
	// expected predecessor first.
	State RunState
}

var transitions = map[RunState]RunState{
	StatePending:     StateDownloaded,
	StateDownloaded:  StateValidated,
	StateValidated:   StateTransformed,
	StateTransformed: StateLoaded,
	StateLoaded:      StateArchived,
}

func NewPipeline(store ObjectStore, loader OrderLoader, parser BatchParser, rawBucket, processedBucket string) *Pipeline {
	return &Pipeline{
		Store:           store,
		Loader:          loader,
		Parser:          parser,
		RawBucket:       rawBucket,
		ProcessedBucket: processedBucket,
		State:           StatePending,
	}
}

func (p *Pipeline) advance(next RunState) error {
	if p.State == StateFailed {
		return errors.New("run already failed; no further stages execute")
	}
	if transitions[p.State] != next {
		return errors.Errorf("illegal transition %s -> %s", p.State, next)
	}
	p.State = next
	return nil
}

func (p *Pipeline) fail(err error, stage string) error {
	p.State = StateFailed
	logger.Errorf("%s stage failed: %v", stage, err)
	return errors.Wrap(err, stage)
}

// Download fetches the raw object and moves the run to DOWNLOADED.
func (p *Pipeline) Download(ctx context.Context, key string) ([]byte, error) {
	if err := p.advance(StateDownloaded); err != nil {
		return nil, err
	}
	data, err := p.Store.Download(ctx, p.RawBucket, key)
	if err != nil {
		return nil, p.fail(err, "download")
	}
	logger.Infof("downloaded %s/%s (%d bytes)", p.RawBucket, key, len(data))
	return data, nil
}

// Validate parses the file and applies the row contract. Structural and
// missing-column problems are schema errors and fail the run; row-level
// defects come back as skipped rows.
func (p *Pipeline) Validate(data []byte) ([]Row, []SkippedRow, error) {
	if err := p.advance(StateValidated); err != nil {
		return nil, nil, err
	}
	batch, err := p.Parser.Parse(data)
	if err != nil {
		return nil, nil, p.fail(err, "validate")
	}
	valid, skipped, err := Validator{}.Validate(batch)
	if err != nil {
		return nil, nil, p.fail(err, "validate")
	}
	logger.Infof("validated %d rows: %d valid, %d skipped", len(batch.Rows), len(valid), len(skipped))
	return valid, skipped, nil
}

// Transform cleans the valid rows into typed orders. Coercion failures are
// appended to the skip list rather than failing the run.
func (p *Pipeline) Transform(valid []Row) ([]models.Order, []SkippedRow, error) {
	if err := p.advance(StateTransformed); err != nil {
		return nil, nil, err
	}
	orders, skipped := Transformer{}.Transform(valid)
	logger.Infof("transformed %d rows into %d orders (%d reclassified as skipped)", len(valid), len(orders), len(skipped))
	return orders, skipped, nil
}

// Load writes the cleaned orders to the sink under a single run-scoped
// transaction and records the audit row.
func (p *Pipeline) Load(ctx context.Context, orders []models.Order, externalRunID, key string, rowsSkipped int) (*models.PipelineRun, error) {
	if err := p.advance(StateLoaded); err != nil {
		return nil, err
	}
	run, err := p.Loader.Load(ctx, orders, externalRunID, key, rowsSkipped)
	if err != nil {
		return run, p.fail(err, "load")
	}
	return run, nil
}

// Archive moves the source file from the raw to the processed bucket. It only
// runs after a succeeded load. A move failure does not undo the load: the run
// stays succeeded, the audit row gets an archive warning, and the file stays
// in raw storage for manual cleanup. Re-archiving an already-moved file is a
// no-op inside Store.Move.
func (p *Pipeline) Archive(ctx context.Context, key string, runID int64) error {
	if err := p.advance(StateArchived); err != nil {
		return err
	}
	if err := p.Store.Move(ctx, p.RawBucket, key, p.ProcessedBucket, key); err != nil {
		logger.Warnf("run %d: archiving %s failed, data load stands: %v", runID, key, err)
		if flagErr := p.Loader.MarkArchiveWarning(ctx, runID); flagErr != nil {
			return flagErr
		}
		return nil
	}
	logger.Infof("archived %s to %s", key, p.ProcessedBucket)
	return nil
}

// Run executes the full stage sequence for one file. An empty key selects the
// first pending file in the raw bucket, which must not be empty.
func (p *Pipeline) Run(ctx context.Context, externalRunID, key string) error {
	start := time.Now()

	if key == "" {
		keys, err := p.Store.List(ctx, p.RawBucket)
		if err != nil {
			return p.fail(err, "listing raw bucket")
		}
		if len(keys) == 0 {
			return p.fail(errors.New("no files found in raw bucket"), "listing raw bucket")
		}
		key = keys[0]
	}
	logger.Infof("starting run %s for %s", externalRunID, key)

	data, err := p.Download(ctx, key)
	if err != nil {
		return err
	}
	valid, skipped, err := p.Validate(data)
	if err != nil {
		return err
	}
	orders, coerceSkipped, err := p.Transform(valid)
	if err != nil {
		return err
	}
	skipped = append(skipped, coerceSkipped...)

	run, err := p.Load(ctx, orders, externalRunID, key, len(skipped))
	if err != nil {
		return err
	}
	if err := p.Archive(ctx, key, run.RunID); err != nil {
		return err
	}

	logger.Infof("run %s finished in %s: %d inserted, %d skipped", externalRunID, time.Since(start).Round(time.Millisecond), run.RowsInserted, run.RowsSkipped)
	return nil
}
