// Package export writes normalized withdrawal rows to an .xlsx workbook and
// computes the summary printed after each run.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jatushlashkari/finance-v1/pkg/withdrawal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Prometheus metrics for export.
var (
	rowsExportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdraw_rows_exported_total",
		Help: "Total rows written to the spreadsheet",
	})

	recordsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdraw_records_skipped_total",
		Help: "Total records dropped because they could not be normalized",
	})

	parseWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdraw_parse_warnings_total",
		Help: "Total records with an unparsable withdrawRequest",
	})
)

const (
	// DefaultSheetName is the name of the only sheet in the workbook.
	DefaultSheetName = "Withdrawal Records"

	// FilePrefix starts every output file name.
	FilePrefix = "withdrawal_data_formatted_"

	// TimestampLayout formats the export start time in the file name.
	TimestampLayout = "20060102_150405"
)

// Config holds exporter configuration.
type Config struct {
	// Dir is the output directory (default: current working directory).
	Dir string
	// SheetName overrides DefaultSheetName.
	SheetName string
	// Now returns the export start time (default: time.Now).
	Now func() time.Time
}

// Result describes one export.
type Result struct {
	// Path of the written file, empty when nothing was written.
	Path string
	// Rows written, header excluded.
	Rows int
	// SkippedRecords could not be normalized and were dropped.
	SkippedRecords []*withdrawal.RecordError
	// ParseWarnings counts rows written with empty bank fields because
	// withdrawRequest could not be parsed.
	ParseWarnings int
	// Summary of the written rows.
	Summary Summary
}

// Exporter writes workbooks.
type Exporter struct {
	config Config
	logger zerolog.Logger
}

// New creates an exporter.
func New(cfg Config) *Exporter {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Exporter{
		config: cfg,
		logger: log.With().Str("component", "exporter").Logger(),
	}
}

// FileName returns the output file name for an export started at t.
func FileName(t time.Time) string {
	return FilePrefix + t.Local().Format(TimestampLayout) + ".xlsx"
}

// Normalize flattens records into rows. Records that fail are logged, counted
// and dropped; records with an unparsable withdrawRequest are kept.
func (e *Exporter) Normalize(records []withdrawal.RawRecord) ([]withdrawal.NormalizedRow, []*withdrawal.RecordError, int) {
	rows := make([]withdrawal.NormalizedRow, 0, len(records))
	var skipped []*withdrawal.RecordError
	warnings := 0

	for i, rec := range records {
		n, err := withdrawal.Normalize(i, rec)
		if err != nil {
			var recErr *withdrawal.RecordError
			if !errors.As(err, &recErr) {
				recErr = &withdrawal.RecordError{Index: i, WithdrawID: rec.WithdrawID(), Err: err}
			}
			skipped = append(skipped, recErr)
			recordsSkippedTotal.Inc()
			e.logger.Warn().Err(err).Int("index", i).Msg("Error processing record, skipping")
			continue
		}

		if n.RequestErr != nil {
			warnings++
			parseWarningsTotal.Inc()
			e.logger.Warn().
				Err(n.RequestErr).
				Str("withdraw_id", rec.WithdrawID()).
				Msg("Could not parse withdrawRequest")
		}

		rows = append(rows, n.Row)
	}

	return rows, skipped, warnings
}

// Export normalizes records and writes them to a new workbook. An empty input
// writes nothing and returns a zero Result.
func (e *Exporter) Export(ctx context.Context, records []withdrawal.RawRecord) (Result, error) {
	if len(records) == 0 {
		e.logger.Info().Msg("No records to save")
		return Result{}, nil
	}

	startedAt := e.config.Now()

	rows, skipped, warnings := e.Normalize(records)
	result := Result{
		SkippedRecords: skipped,
		ParseWarnings:  warnings,
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	path := filepath.Join(e.config.Dir, FileName(startedAt))
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if err := e.write(path, rows); err != nil {
		return result, err
	}

	result.Path = path
	result.Rows = len(rows)
	result.Summary = Summarize(rows)
	rowsExportedTotal.Add(float64(len(rows)))

	e.logger.Info().
		Str("path", path).
		Int("rows", len(rows)).
		Int("skipped", len(skipped)).
		Int("parse_warnings", warnings).
		Msg("Data saved")
	result.Summary.Log(e.logger)

	return result, nil
}

// write creates the workbook at path.
func (e *Exporter) write(path string, rows []withdrawal.NormalizedRow) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	sheet := e.config.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(withdrawal.Columns))
	for i, c := range withdrawal.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		values := row.Values()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
