package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/ibmrate/internal/rate"
)

// Record appends a computed comparison to the log and returns its id.
// Ids are UUIDv7, so lexicographic order tracks creation time.
func (s *Store) Record(ctx context.Context, cmp *rate.Comparison, opts rate.Options) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comparisons (id, created_at, measure, ci_method, alpha, scale,
			ratio, ratio_ci_low, ratio_ci_high, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, createdAt, cmp.Ratio.Measure, opts.Method.Label(), opts.Alpha, opts.Scale,
		nullable(cmp.Ratio.Estimate), nullable(cmp.Ratio.CILow), nullable(cmp.Ratio.CIHigh),
		len(cmp.Warnings),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert comparison: %w", err)
	}

	for pos, row := range cmp.Rates {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rate_rows (comparison_id, position, group_label, strata,
				dsr, variance, rate, ci_low, ci_high)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, pos, row.GroupLabel, row.Strata,
			row.DSR, row.Variance, row.Rate, nullable(row.CILow), nullable(row.CIHigh),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert rate row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return id, nil
}

// Summary is one comparison as listed by History.
type Summary struct {
	ID        string   `json:"id"`
	CreatedAt string   `json:"created_at"`
	Measure   string   `json:"measure"`
	CIMethod  string   `json:"ci_method"`
	Ratio     *float64 `json:"ratio,omitempty"`
	Warnings  int      `json:"warnings"`
}

// History lists the most recent comparisons, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, measure, ci_method, ratio, warnings
		FROM comparisons
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var ratio sql.NullFloat64
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &sum.Measure, &sum.CIMethod, &ratio, &sum.Warnings); err != nil {
			return nil, fmt.Errorf("failed to scan comparison: %w", err)
		}
		sum.Ratio = fromNullable(ratio)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get reloads one recorded comparison by id. Undefined bounds come back
// as nil, exactly as they were computed.
func (s *Store) Get(ctx context.Context, id string) (*rate.Comparison, error) {
	cmp := &rate.Comparison{}

	var ciMethod string
	var ratio, ratioLow, ratioHigh sql.NullFloat64
	var warnings int
	err := s.db.QueryRowContext(ctx, `
		SELECT measure, ci_method, ratio, ratio_ci_low, ratio_ci_high, warnings
		FROM comparisons WHERE id = ?`, id).
		Scan(&cmp.Ratio.Measure, &ciMethod, &ratio, &ratioLow, &ratioHigh, &warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to load comparison %s: %w", id, err)
	}
	cmp.Ratio.CIMethod = "Delta log-normal"
	cmp.Ratio.Estimate = fromNullable(ratio)
	cmp.Ratio.CILow = fromNullable(ratioLow)
	cmp.Ratio.CIHigh = fromNullable(ratioHigh)

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, group_label, strata, dsr, variance, rate, ci_low, ci_high
		FROM rate_rows WHERE comparison_id = ?
		ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos int
		var row rate.RateRow
		var low, high sql.NullFloat64
		if err := rows.Scan(&pos, &row.GroupLabel, &row.Strata, &row.DSR, &row.Variance, &row.Rate, &low, &high); err != nil {
			return nil, fmt.Errorf("failed to scan rate row: %w", err)
		}
		row.CILow = fromNullable(low)
		row.CIHigh = fromNullable(high)
		row.CIMethod = ciMethod
		if pos >= 0 && pos < len(cmp.Rates) {
			cmp.Rates[pos] = row
		}
	}
	return cmp, rows.Err()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
