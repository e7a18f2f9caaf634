package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"postcardgo/pkg/db"
)

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM cache WHERE key = ?`, key)

	var val []byte
	if err := row.Scan(&val); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = CURRENT_TIMESTAMP`,
		key, val)
	return err
}

// --- Tour queue ---

func (s *SQLiteStore) EnqueueTour(ctx context.Context, t *PendingTour) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_tour (tour_id, destination, topic, expected_stops) VALUES (?, ?, ?, ?)
		 ON CONFLICT(tour_id) DO NOTHING`,
		t.TourID, t.Destination, t.Topic, t.ExpectedStops)
	return err
}

func (s *SQLiteStore) ListPendingTours(ctx context.Context) ([]*PendingTour, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tour_id, destination, topic, expected_stops, enqueued_at
		 FROM pending_tour ORDER BY enqueued_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tours []*PendingTour
	for rows.Next() {
		var t PendingTour
		if err := rows.Scan(&t.TourID, &t.Destination, &t.Topic, &t.ExpectedStops, &t.EnqueuedAt); err != nil {
			return nil, err
		}
		tours = append(tours, &t)
	}
	return tours, rows.Err()
}

func (s *SQLiteStore) RemoveTour(ctx context.Context, tourID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_tour WHERE tour_id = ?`, tourID)
	return err
}

// --- Assembly runs ---

func (s *SQLiteStore) SaveRun(ctx context.Context, r *RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assembly_run (id, tour_id, stop_name, success, video_path, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TourID, r.StopName, r.Success, r.VideoPath, r.Error)
	return err
}

func (s *SQLiteStore) ListRunsByTour(ctx context.Context, tourID string) ([]*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tour_id, stop_name, success, video_path, error, created_at
		 FROM assembly_run WHERE tour_id = ? ORDER BY created_at`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		var r RunRecord
		var videoPath, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.TourID, &r.StopName, &r.Success, &videoPath, &errMsg, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.VideoPath = videoPath.String
		r.Error = errMsg.String
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
