package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pcrwatch/pcrwatch/internal/core"
)

const defaultHistoryLimit = 500

// SaveSnapshot persists one aggregated observation.
func (s *Store) SaveSnapshot(ctx context.Context, snap *core.Snapshot) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if snap == nil {
		return errors.New("snapshot is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	symbol := strings.ToUpper(strings.TrimSpace(snap.Symbol))
	if symbol == "" {
		return errors.New("snapshot symbol is required")
	}

	noCall := 0
	if snap.NoCallSide {
		noCall = 1
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO snapshots (
			id, symbol, pcr_oi, pcr_volume,
			total_call_oi, total_put_oi, total_call_volume, total_put_volume,
			underlying_value, strikes, no_call_side, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.ID, symbol, snap.PCROpenInterest, snap.PCRVolume,
		snap.TotalCallOI, snap.TotalPutOI, snap.TotalCallVolume, snap.TotalPutVolume,
		snap.UnderlyingValue, snap.Strikes, noCall, snap.FetchedAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for a symbol, or nil when
// none has been recorded yet.
func (s *Store) LatestSnapshot(ctx context.Context, symbol string) (*core.Snapshot, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, symbol, pcr_oi, pcr_volume,
			total_call_oi, total_put_oi, total_call_volume, total_put_volume,
			underlying_value, strikes, no_call_side, fetched_at
		FROM snapshots
		WHERE symbol = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`, symbol)

	snap, err := scanSnapshot(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch latest snapshot: %w", err)
	}
	return snap, nil
}

// History returns snapshots for a symbol taken at or after since, newest
// first. A limit of zero or less applies the default cap.
func (s *Store) History(ctx context.Context, symbol string, since time.Time, limit int) ([]*core.Snapshot, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, symbol, pcr_oi, pcr_volume,
			total_call_oi, total_put_oi, total_call_volume, total_put_volume,
			underlying_value, strikes, no_call_side, fetched_at
		FROM snapshots
		WHERE symbol = ? AND fetched_at >= ?
		ORDER BY fetched_at DESC
		LIMIT ?
	`, symbol, since.UTC().Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot history: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var history []*core.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("fetch snapshot history: %w", err)
		}
		history = append(history, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch snapshot history: %w", err)
	}

	return history, nil
}

// PruneBefore deletes snapshots taken before the cutoff and reports how many
// rows were removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM snapshots WHERE fetched_at < ?`, cutoff.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return removed, nil
}

func scanSnapshot(scan func(dest ...any) error) (*core.Snapshot, error) {
	var (
		snap      core.Snapshot
		noCall    int
		fetchedAt int64
	)
	if err := scan(
		&snap.ID, &snap.Symbol, &snap.PCROpenInterest, &snap.PCRVolume,
		&snap.TotalCallOI, &snap.TotalPutOI, &snap.TotalCallVolume, &snap.TotalPutVolume,
		&snap.UnderlyingValue, &snap.Strikes, &noCall, &fetchedAt,
	); err != nil {
		return nil, err
	}
	snap.NoCallSide = noCall != 0
	snap.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return &snap, nil
}
