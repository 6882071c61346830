package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/speedwagon-io/flexlab/internal/lib/logger/sl"
	"github.com/speedwagon-io/flexlab/internal/model"
)

// Fixed width so that text ordering in SQLite is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Journal interface {
	Record(ctx context.Context, ex *model.Exchange) error
	Recent(ctx context.Context, filter Filter) ([]*model.Exchange, error)
	Cleanup(ctx context.Context, maxAge time.Duration) error
	Close() error
}

type Filter struct {
	Channel    string
	FailedOnly bool
	Limit      int
}

type SQLiteJournal struct {
	log *slog.Logger
	db  *sql.DB
}

func NewSQLiteJournal(log *slog.Logger, dbPath string) (*SQLiteJournal, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	j := &SQLiteJournal{
		log: log,
		db:  db,
	}

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			direction TEXT NOT NULL,
			channel TEXT NOT NULL,
			command TEXT NOT NULL,
			requested REAL,
			sensname TEXT,
			value REAL,
			message TEXT,
			level TEXT,
			error TEXT,
			user TEXT,
			started_at TEXT NOT NULL,
			duration_ns INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_exchanges_channel ON exchanges(channel);
		CREATE INDEX IF NOT EXISTS idx_exchanges_started_at ON exchanges(started_at);
	`
	_, err := j.db.Exec(query)
	return err
}

func (j *SQLiteJournal) Record(ctx context.Context, ex *model.Exchange) error {
	query := `
		INSERT INTO exchanges (id, direction, channel, command, requested, sensname, value, message, level, error, user, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(ctx, query,
		ex.ID,
		string(ex.Direction),
		ex.Channel,
		ex.Command,
		nullFloat(ex.Requested),
		ex.SensName,
		nullFloat(ex.Value),
		ex.Message,
		ex.Level,
		ex.Error,
		ex.User,
		ex.StartedAt.UTC().Format(timeLayout),
		int64(ex.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to store exchange: %w", err)
	}

	j.log.Debug("exchange recorded", slog.String("id", ex.ID), slog.String("channel", ex.Channel))
	return nil
}

// Recent returns the newest exchanges first.
func (j *SQLiteJournal) Recent(ctx context.Context, filter Filter) ([]*model.Exchange, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, direction, channel, command, requested, sensname, value, message, level, error, user, started_at, duration_ns
		FROM exchanges
		WHERE (? = '' OR channel = ?) AND (? = 0 OR error <> '')
		ORDER BY started_at DESC
		LIMIT ?
	`

	failedOnly := 0
	if filter.FailedOnly {
		failedOnly = 1
	}

	rows, err := j.db.QueryContext(ctx, query, filter.Channel, filter.Channel, failedOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*model.Exchange
	for rows.Next() {
		var (
			ex                                    model.Exchange
			direction, startedAt                  string
			sensName, message, level, errMsg, usr sql.NullString
			requested, value                      sql.NullFloat64
			durationNS                            int64
		)

		if err := rows.Scan(&ex.ID, &direction, &ex.Channel, &ex.Command, &requested, &sensName, &value,
			&message, &level, &errMsg, &usr, &startedAt, &durationNS); err != nil {
			j.log.Error("failed to scan row", sl.Err(err))
			continue
		}

		ts, err := time.Parse(timeLayout, startedAt)
		if err != nil {
			j.log.Error("failed to parse timestamp", sl.Err(err))
			continue
		}

		ex.Direction = model.Direction(direction)
		ex.Requested = floatPtr(requested)
		ex.SensName = sensName.String
		ex.Value = floatPtr(value)
		ex.Message = message.String
		ex.Level = level.String
		ex.Error = errMsg.String
		ex.User = usr.String
		ex.StartedAt = ts
		ex.Duration = time.Duration(durationNS)

		exchanges = append(exchanges, &ex)
	}

	return exchanges, rows.Err()
}

func (j *SQLiteJournal) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)

	result, err := j.db.ExecContext(ctx, "DELETE FROM exchanges WHERE started_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old exchanges: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		j.log.Info("cleaned up old journal entries", slog.Int64("deleted", deleted))
	}

	return nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func (j *SQLiteJournal) Count(ctx context.Context) (int64, error) {
	var count int64
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM exchanges").Scan(&count)
	return count, err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
