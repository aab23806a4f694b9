package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/guttosm/spimexpulse/internal/domain/models"
)

// ingestionLockKey serialises ingestion commits across processes sharing the database.
const ingestionLockKey int64 = 0x5350494d4558 // "SPIMEX"

const resultColumns = `id, exchange_product_id, exchange_product_name, oil_id, delivery_basis_id,
	delivery_basis_name, delivery_type_id, volume, total, count, date, created_on, updated_on`

// TradingResultsRepository defines contract for DB operations.
type TradingResultsRepository interface {
	HasResultsForDate(ctx context.Context, date time.Time) (bool, error)
	SaveIngestionBatch(ctx context.Context, batch models.IngestionBatch) error
	GetResultsInPeriod(ctx context.Context, start, end time.Time, filter models.ResultsFilter) ([]models.TradingResult, error)
	GetLastTradeDate(ctx context.Context) (*time.Time, error)
	GetResultsForDate(ctx context.Context, date time.Time, filter models.ResultsFilter) ([]models.TradingResult, error)
	GetTradingDatesSince(ctx context.Context, since, until time.Time) ([]time.Time, error)
}

type tradingResultsRepository struct {
	db *sql.DB
}

func NewTradingResultsRepository(db *sql.DB) TradingResultsRepository {
	return &tradingResultsRepository{db: db}
}

// HasResultsForDate reports whether at least one record exists for the trade date.
func (r *tradingResultsRepository) HasResultsForDate(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM spimex_trading_results WHERE date = $1)`, date).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// SaveIngestionBatch writes a whole ingestion run in a single transaction.
//
// Order inside the transaction:
//  1. pg_advisory_xact_lock, so concurrent ingestions from other processes queue up.
//  2. DELETE of the rows of every ReplaceDates entry (forced re-ingestion).
//  3. COPY of all results.
//  4. Upsert of one ingestion_log row per bulletin.
//
// Any error rolls everything back.
func (r *tradingResultsRepository) SaveIngestionBatch(ctx context.Context, batch models.IngestionBatch) error {
	if batch.IsEmpty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ingestionLockKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire ingestion lock: %w", err)
	}

	for _, d := range batch.ReplaceDates {
		if _, err := tx.ExecContext(ctx, `DELETE FROM spimex_trading_results WHERE date = $1`, d); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete results for %s: %w", d.Format(models.DateLayout), err)
		}
	}

	if len(batch.Results) > 0 {
		if err := copyResults(ctx, tx, batch.Results); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	for _, b := range batch.Bulletins {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO ingestion_log (file_date, source_url, row_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_date)
		DO UPDATE SET source_url = EXCLUDED.source_url,
					  row_count = EXCLUDED.row_count,
					  ingested_at = NOW()
	`, b.FileDate, b.SourceURL, b.RowCount); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert ingestion log for %s: %w", b.FileDate.Format(models.DateLayout), err)
		}
	}

	return tx.Commit()
}

func copyResults(ctx context.Context, tx *sql.Tx, results []models.TradingResult) error {
	// Small optimization for bulk load
	if _, err := tx.ExecContext(ctx, `SET LOCAL synchronous_commit = OFF`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"spimex_trading_results",
		"exchange_product_id",
		"exchange_product_name",
		"oil_id",
		"delivery_basis_id",
		"delivery_basis_name",
		"delivery_type_id",
		"volume",
		"total",
		"count",
		"date",
		"created_on",
		"updated_on",
	))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, rec := range results {
		if _, err := stmt.ExecContext(ctx,
			rec.ExchangeProductID,
			rec.ExchangeProductName,
			rec.OilID,
			rec.DeliveryBasisID,
			rec.DeliveryBasisName,
			rec.DeliveryTypeID,
			rec.Volume,
			rec.Total,
			rec.Count,
			rec.Date,
			now,
			now,
		); err != nil {
			_ = stmt.Close()
			return err
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	return stmt.Close()
}

// GetResultsInPeriod returns the records with start <= date <= end, newest first.
func (r *tradingResultsRepository) GetResultsInPeriod(ctx context.Context, start, end time.Time, filter models.ResultsFilter) ([]models.TradingResult, error) {
	// $1 and $2 are always the bounds. Facet placeholders follow.
	conditions, args := filterConditions("date >= $1 AND date <= $2", []interface{}{start, end}, filter)
	return r.queryResults(ctx, conditions, args)
}

// GetResultsForDate returns the records of one trade date.
func (r *tradingResultsRepository) GetResultsForDate(ctx context.Context, date time.Time, filter models.ResultsFilter) ([]models.TradingResult, error) {
	conditions, args := filterConditions("date = $1", []interface{}{date}, filter)
	return r.queryResults(ctx, conditions, args)
}

// GetLastTradeDate returns the most recent trade date in the store, or nil when it is empty.
func (r *tradingResultsRepository) GetLastTradeDate(ctx context.Context) (*time.Time, error) {
	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(date) FROM spimex_trading_results`).Scan(&last); err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	d := models.DateOf(last.Time)
	return &d, nil
}

// GetTradingDatesSince returns the distinct trade dates within [since, until], most recent first.
func (r *tradingResultsRepository) GetTradingDatesSince(ctx context.Context, since, until time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT date
		FROM spimex_trading_results
		WHERE date >= $1 AND date <= $2
		ORDER BY date DESC
	`, since, until)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, models.DateOf(d))
	}
	return out, rows.Err()
}

// filterConditions appends one placeholder per non-empty facet to the base conditions.
func filterConditions(base string, args []interface{}, filter models.ResultsFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(base)
	add := func(column, value string) {
		if value == "" {
			return
		}
		placeholder := len(args) + 1 // next positional param index
		fmt.Fprintf(&sb, " AND %s = $%d", column, placeholder)
		args = append(args, value)
	}
	add("oil_id", filter.OilID)
	add("delivery_type_id", filter.DeliveryTypeID)
	add("delivery_basis_id", filter.DeliveryBasisID)
	return sb.String(), args
}

func (r *tradingResultsRepository) queryResults(ctx context.Context, conditions string, args []interface{}) ([]models.TradingResult, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM spimex_trading_results
		WHERE %s
		ORDER BY date DESC, id
	`, resultColumns, conditions)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.TradingResult{}
	for rows.Next() {
		var rec models.TradingResult
		if err := rows.Scan(
			&rec.ID,
			&rec.ExchangeProductID,
			&rec.ExchangeProductName,
			&rec.OilID,
			&rec.DeliveryBasisID,
			&rec.DeliveryBasisName,
			&rec.DeliveryTypeID,
			&rec.Volume,
			&rec.Total,
			&rec.Count,
			&rec.Date,
			&rec.CreatedOn,
			&rec.UpdatedOn,
		); err != nil {
			return nil, err
		}
		rec.Date = models.DateOf(rec.Date)
		out = append(out, rec)
	}
	return out, rows.Err()
}
