package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BartekS5/sales-etl/internal/config"
	"github.com/BartekS5/sales-etl/internal/etl"
	"github.com/BartekS5/sales-etl/internal/generator"
	"github.com/BartekS5/sales-etl/pkg/database"
	"github.com/BartekS5/sales-etl/pkg/logger"
	"github.com/BartekS5/sales-etl/pkg/objectstore"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func newStore(ctx context.Context, cfg *config.Config) (*objectstore.Client, error) {
	return objectstore.New(ctx, cfg.MinioEndpoint, cfg.MinioRootUser, cfg.MinioRootPassword)
}

func runGenerate(opts *GenerateOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rows := opts.Rows
	if rows <= 0 {
		rows = cfg.GeneratorNumRows
	}
	seed := opts.Seed
	if seed == 0 {
		seed = cfg.GeneratorSeed
	}

	ctx := context.Background()
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	orders := generator.New(seed).Generate(rows)
	data, err := generator.WriteCSV(orders)
	if err != nil {
		return err
	}

	key := generator.ObjectKey(time.Now())
	if err := store.Upload(ctx, cfg.MinioRawBucket, key, data); err != nil {
		return err
	}
	logger.Infof("uploaded %s to bucket %s (%d rows, %d bytes)", key, cfg.MinioRawBucket, rows, len(data))
	return nil
}

func runMigrate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.ConnectPostgres(cfg.PostgresDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("database schema is up to date")
	return nil
}

func externalRunID(opts *PipelineOptions) string {
	if opts.RunID != "" {
		return opts.RunID
	}
	return uuid.NewString()
}

func runPipelineRun(opts *PipelineOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	db, err := database.ConnectPostgres(cfg.PostgresDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline := etl.NewPipeline(store, etl.NewLoader(db), etl.CSVParser{}, cfg.MinioRawBucket, cfg.MinioProcessedBucket)
	return pipeline.Run(ctx, externalRunID(opts), opts.Key)
}

func runDownload(opts *PipelineOptions) error {
	if opts.Key == "" {
		return errors.New("--key is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	pipeline := etl.NewPipeline(store, nil, etl.CSVParser{}, cfg.MinioRawBucket, cfg.MinioProcessedBucket)
	data, err := pipeline.Download(ctx, opts.Key)
	if err != nil {
		return err
	}

	out := opts.Out
	if out == "" {
		tmp, err := os.CreateTemp("", "sales_raw_*.csv")
		if err != nil {
			return errors.Wrap(err, "creating temp file")
		}
		out = tmp.Name()
		tmp.Close()
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return errors.Wrap(err, "writing downloaded file")
	}
	logger.Infof("saved %s to %s", opts.Key, out)
	return nil
}

func runValidate(opts *PipelineOptions) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	data, err := os.ReadFile(opts.File)
	if err != nil {
		return errors.Wrap(err, "reading downloaded file")
	}

	pipeline := etl.NewPipeline(nil, nil, etl.CSVParser{}, "", "")
	pipeline.State = etl.StateDownloaded

	valid, skipped, err := pipeline.Validate(data)
	if err != nil {
		return err
	}
	if opts.Report != "" {
		if err := writeSkipReport(opts.Report, opts.Key, skipped); err != nil {
			return err
		}
	}
	logger.Infof("validation passed: %d valid rows, %d skipped", len(valid), len(skipped))
	return nil
}

func runTransform(opts *PipelineOptions) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	data, err := os.ReadFile(opts.File)
	if err != nil {
		return errors.Wrap(err, "reading downloaded file")
	}

	pipeline := etl.NewPipeline(nil, nil, etl.CSVParser{}, "", "")
	pipeline.State = etl.StateDownloaded

	valid, skipped, err := pipeline.Validate(data)
	if err != nil {
		return err
	}
	orders, coerceSkipped, err := pipeline.Transform(valid)
	if err != nil {
		return err
	}
	skipped = append(skipped, coerceSkipped...)

	out := opts.Out
	if out == "" {
		out = opts.File + ".cleaned.csv"
	}
	cleaned, err := generator.WriteCSV(orders)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, cleaned, 0644); err != nil {
		return errors.Wrap(err, "writing cleaned file")
	}
	if opts.Report != "" {
		if err := writeSkipReport(opts.Report, opts.Key, skipped); err != nil {
			return err
		}
	}
	logger.Infof("transformed %s: %d orders written to %s, %d skipped", opts.File, len(orders), out, len(skipped))
	return nil
}

func runLoad(opts *PipelineOptions) error {
	if opts.Key == "" {
		return errors.New("--key is required (source file name for the audit record)")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.File)
	if err != nil {
		return errors.Wrap(err, "reading cleaned file")
	}

	rowsSkipped := opts.RowsSkipped
	if opts.Report != "" {
		report, err := readSkipReport(opts.Report)
		if err != nil {
			return err
		}
		rowsSkipped = len(report.Skipped)
	}

	db, err := database.ConnectPostgres(cfg.PostgresDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline := etl.NewPipeline(nil, etl.NewLoader(db), etl.CSVParser{}, cfg.MinioRawBucket, cfg.MinioProcessedBucket)
	pipeline.State = etl.StateDownloaded

	// The cleaned file is already normalized; validate and transform act
	// as an identity pass that rebuilds typed rows.
	valid, _, err := pipeline.Validate(data)
	if err != nil {
		return err
	}
	orders, _, err := pipeline.Transform(valid)
	if err != nil {
		return err
	}

	ctx := context.Background()
	run, err := pipeline.Load(ctx, orders, externalRunID(opts), opts.Key, rowsSkipped)
	if err != nil {
		return err
	}
	logger.Infof("load succeeded: run_id=%d rows_inserted=%d rows_skipped=%d", run.RunID, run.RowsInserted, run.RowsSkipped)
	return nil
}

func runArchive(opts *PipelineOptions) error {
	if opts.Key == "" {
		return errors.New("--key is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	db, err := database.ConnectPostgres(cfg.PostgresDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := requireSucceededRun(ctx, db, opts.LoadRunID); err != nil {
		return err
	}

	pipeline := etl.NewPipeline(store, etl.NewLoader(db), etl.CSVParser{}, cfg.MinioRawBucket, cfg.MinioProcessedBucket)
	pipeline.State = etl.StateLoaded
	return pipeline.Archive(ctx, opts.Key, opts.LoadRunID)
}

// requireSucceededRun stops a standalone archive invocation from moving a
// file whose load never succeeded.
func requireSucceededRun(ctx context.Context, db *sql.DB, runID int64) error {
	var status string
	err := db.QueryRowContext(ctx,
		`SELECT status FROM pipeline_runs WHERE run_id = $1`, runID).Scan(&status)
	if err == sql.ErrNoRows {
		return errors.Errorf("no pipeline run with id %d", runID)
	}
	if err != nil {
		return errors.Wrap(err, "checking pipeline run status")
	}
	if status != "succeeded" {
		return errors.Errorf("run %d has status %q; archive only runs after a succeeded load", runID, status)
	}
	return nil
}

func writeSkipReport(path, sourceKey string, skipped []etl.SkippedRow) error {
	report := etl.SkipReport{SourceKey: sourceKey, Skipped: skipped}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding skip report")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "writing skip report")
}

func readSkipReport(path string) (*etl.SkipReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading skip report")
	}
	var report etl.SkipReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "parsing skip report")
	}
	return &report, nil
}
