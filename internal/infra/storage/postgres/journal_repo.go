package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/storage"
)

// commandRow is the table shape of a CommandRecord.
type commandRow struct {
	ID         string         `db:"id"`
	Action     string         `db:"action"`
	Pose       sql.NullString `db:"pose"`
	Outcome    string         `db:"outcome"`
	Attempts   int            `db:"attempts"`
	StatusCode int            `db:"status_code"`
	ErrorMsg   string         `db:"error_msg"`
	StartedAt  time.Time      `db:"started_at"`
	DurationNS int64          `db:"duration_ns"`
}

// JournalRepo implements storage.JournalRepository on PostgreSQL.
type JournalRepo struct {
	db         *DB
	driver     string
	maxEntries int
}

// NewJournalRepo creates a journal on db. When maxEntries > 0, older rows are
// pruned after each insert.
func NewJournalRepo(db *DB, driver string, maxEntries int) *JournalRepo {
	if driver == "" {
		driver = "postgres"
	}
	return &JournalRepo{db: db, driver: driver, maxEntries: maxEntries}
}

func (r *JournalRepo) Record(ctx context.Context, rec *domain.CommandRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO command_journal
			(id, action, pose, outcome, attempts, status_code, error_msg, started_at, duration_ns)
		VALUES
			(:id, :action, CAST(:pose AS JSONB), :outcome, :attempts, :status_code, :error_msg, :started_at, :duration_ns)
		ON CONFLICT (id) DO NOTHING`, row)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}

	if r.maxEntries > 0 {
		if _, err := r.db.ExecContext(ctx, r.db.Rebind(`
			DELETE FROM command_journal
			WHERE id NOT IN (
				SELECT id FROM command_journal ORDER BY started_at DESC LIMIT ?
			)`), r.maxEntries); err != nil {
			return fmt.Errorf("prune journal: %w", err)
		}
	}

	return nil
}

func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]*domain.CommandRecord, error) {
	if limit <= 0 {
		limit = storage.DefaultMaxEntries
	}

	var rows []commandRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, action, pose, outcome, attempts, status_code, error_msg, started_at, duration_ns
		FROM command_journal
		ORDER BY started_at DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("select commands: %w", err)
	}

	out := make([]*domain.CommandRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *JournalRepo) Driver() string {
	return r.driver
}

func (r *JournalRepo) Close() error {
	return r.db.Close()
}

func toRow(rec *domain.CommandRecord) (commandRow, error) {
	row := commandRow{
		ID:         rec.ID,
		Action:     string(rec.Action),
		Outcome:    rec.Outcome,
		Attempts:   rec.Attempts,
		StatusCode: rec.StatusCode,
		ErrorMsg:   rec.Error,
		StartedAt:  rec.StartedAt.UTC(),
		DurationNS: int64(rec.Duration),
	}
	if rec.Pose != nil {
		data, err := json.Marshal(rec.Pose)
		if err != nil {
			return commandRow{}, fmt.Errorf("marshal pose: %w", err)
		}
		row.Pose = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

func fromRow(row commandRow) (*domain.CommandRecord, error) {
	rec := &domain.CommandRecord{
		ID:         row.ID,
		Action:     domain.CommandAction(row.Action),
		Outcome:    row.Outcome,
		Attempts:   row.Attempts,
		StatusCode: row.StatusCode,
		Error:      row.ErrorMsg,
		StartedAt:  row.StartedAt,
		Duration:   time.Duration(row.DurationNS),
	}
	if row.Pose.Valid {
		var pose domain.Pose
		if err := json.Unmarshal([]byte(row.Pose.String), &pose); err != nil {
			return nil, fmt.Errorf("unmarshal pose of %s: %w", row.ID, err)
		}
		rec.Pose = &pose
	}
	return rec, nil
}
