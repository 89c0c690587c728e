package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mafia-lite/mafia"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "mafia_local.db"

type SQLiteService struct {
	db          *sql.DB
	recentLimit int
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	dbPath := strings.TrimSpace(os.Getenv("ARCHIVE_SQLITE_PATH"))
	if dbPath == "" {
		dbPath = defaultLocalDBName
	}
	return NewSQLiteService(dbPath)
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteArchiveSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{
		db:          db,
		recentLimit: envIntOrDefault("ARCHIVE_RECENT_LIMIT", defaultRecentLimit),
	}, nil
}

func ensureSQLiteArchiveSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS run_event_stream (
    run_id        TEXT NOT NULL,
    seq           INTEGER NOT NULL,
    event_type    TEXT NOT NULL,
    payload_json  TEXT NOT NULL,
    created_at_ms INTEGER NOT NULL,
    PRIMARY KEY (run_id, seq)
)`,
		`CREATE TABLE IF NOT EXISTS run_history (
    run_id        TEXT PRIMARY KEY,
    started_at_ms INTEGER NOT NULL,
    summary_json  TEXT NOT NULL DEFAULT '{}',
    updated_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_run_history_started
    ON run_history (started_at_ms DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) AppendEvent(runID string, ev mafia.Event) {
	if strings.TrimSpace(runID) == "" {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Archive] marshal event failed: run=%s seq=%d err=%v", runID, ev.Seq, err)
		return
	}
	nowMs := time.Now().UTC().UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO run_event_stream (run_id, seq, event_type, payload_json, created_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (run_id, seq) DO NOTHING
`, runID, ev.Seq, string(ev.Type), string(payload), nowMs)
	if err != nil {
		log.Printf("[Archive] append event failed: run=%s seq=%d err=%v", runID, ev.Seq, err)
	}
}

func (s *SQLiteService) UpsertRunSummary(runID string, startedAt time.Time, summary map[string]any) {
	if strings.TrimSpace(runID) == "" {
		return
	}
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	if summary == nil {
		summary = map[string]any{}
	}
	summaryRaw, err := json.Marshal(summary)
	if err != nil {
		log.Printf("[Archive] marshal run summary failed: run=%s err=%v", runID, err)
		return
	}
	nowMs := time.Now().UTC().UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("[Archive] begin run summary tx failed: run=%s err=%v", runID, err)
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO run_history (run_id, started_at_ms, summary_json, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE
SET
    summary_json = excluded.summary_json,
    updated_at_ms = excluded.updated_at_ms
`, runID, startedAt.UnixMilli(), string(summaryRaw), nowMs); err != nil {
		log.Printf("[Archive] upsert run summary failed: run=%s err=%v", runID, err)
		return
	}

	if s.recentLimit > 0 {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM run_history
WHERE run_id IN (
    SELECT run_id
    FROM run_history
    ORDER BY started_at_ms DESC, run_id DESC
    LIMIT -1 OFFSET ?
)
`, s.recentLimit); err != nil {
			log.Printf("[Archive] trim run history failed: err=%v", err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[Archive] commit run summary failed: run=%s err=%v", runID, err)
	}
}

func (s *SQLiteService) ListRecent(ctx context.Context, limit int) ([]RunItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, started_at_ms, summary_json, updated_at_ms
FROM run_history
ORDER BY started_at_ms DESC, run_id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]RunItem, 0, limit)
	for rows.Next() {
		var item RunItem
		var startedMs, updatedMs int64
		var summaryRaw []byte
		if err := rows.Scan(&item.RunID, &startedMs, &summaryRaw, &updatedMs); err != nil {
			return nil, err
		}
		item.StartedAt = time.UnixMilli(startedMs).UTC()
		item.UpdatedAt = time.UnixMilli(updatedMs).UTC()
		if len(summaryRaw) > 0 {
			_ = json.Unmarshal(summaryRaw, &item.Summary)
		}
		if item.Summary == nil {
			item.Summary = map[string]any{}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteService) GetRunEvents(ctx context.Context, runID string) ([]mafia.Event, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT payload_json
FROM run_event_stream
WHERE run_id = ?
ORDER BY seq ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
