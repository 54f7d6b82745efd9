// Package persistence stores timeline snapshots and the operation-failure
// journal in sqlite. A save always serializes the full snapshot; partial
// state never hits the database.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// timeFormat is fixed-width so lexicographic ORDER BY on the stored
// string matches chronological order (RFC3339Nano trims trailing zeros
// and does not).
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type SavedSnapshot struct {
	ID        string            `json:"id"`
	Project   string            `json:"project"`
	Snapshot  timeline.Snapshot `json:"snapshot"`
	CreatedAt time.Time         `json:"created_at"`
}

type FailureRecord struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	ClipID    string    `json:"clip_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	SaveSnapshot(ctx context.Context, project string, snap timeline.Snapshot) (*SavedSnapshot, error)
	GetSnapshot(ctx context.Context, id string) (*SavedSnapshot, error)
	LatestSnapshot(ctx context.Context, project string) (*SavedSnapshot, error)
	ListSnapshots(ctx context.Context, project string, limit int) ([]*SavedSnapshot, error)
	PruneSnapshots(ctx context.Context, project string, keep int) error

	RecordFailure(ctx context.Context, operation, clipID, message string) error
	ListFailures(ctx context.Context, limit int) ([]*FailureRecord, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, project string, snap timeline.Snapshot) (*SavedSnapshot, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	saved := &SavedSnapshot{
		ID:        timeline.NewID(),
		Project:   project,
		Snapshot:  snap.Clone(),
		CreatedAt: time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, project, data, created_at)
		VALUES (?, ?, ?, ?)
	`, saved.ID, project, string(data), saved.CreatedAt.Format(timeFormat))
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, id string) (*SavedSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project, data, created_at
		FROM snapshots WHERE id = ?
	`, id)
	return scanSnapshot(row)
}

func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, project string) (*SavedSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project, data, created_at
		FROM snapshots WHERE project = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, project)
	return scanSnapshot(row)
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, project string, limit int) ([]*SavedSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project, data, created_at
		FROM snapshots WHERE project = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, project, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var saves []*SavedSnapshot
	for rows.Next() {
		var (
			s         SavedSnapshot
			data      string
			createdAt string
		)
		if err := rows.Scan(&s.ID, &s.Project, &data, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &s.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.ID, err)
		}
		s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		saves = append(saves, &s)
	}
	return saves, rows.Err()
}

// PruneSnapshots deletes all but the newest keep saves for a project.
func (r *SQLiteRepository) PruneSnapshots(ctx context.Context, project string, keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE project = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE project = ?
			ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
	`, project, project, keep)
	return err
}

func (r *SQLiteRepository) RecordFailure(ctx context.Context, operation, clipID, message string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO failures (id, operation, clip_id, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, timeline.NewID(), operation, nullString(clipID), message, time.Now().UTC().Format(timeFormat))
	return err
}

func (r *SQLiteRepository) ListFailures(ctx context.Context, limit int) ([]*FailureRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, operation, clip_id, message, created_at
		FROM failures ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*FailureRecord
	for rows.Next() {
		var (
			f         FailureRecord
			clipID    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&f.ID, &f.Operation, &clipID, &f.Message, &createdAt); err != nil {
			return nil, err
		}
		f.ClipID = clipID.String
		f.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		records = append(records, &f)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func scanSnapshot(row *sql.Row) (*SavedSnapshot, error) {
	var (
		s         SavedSnapshot
		data      string
		createdAt string
	)
	err := row.Scan(&s.ID, &s.Project, &data, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &s.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.ID, err)
	}
	s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return &s, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
