package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/infra/database"
)

// ============================================================================
// JournalDAO - 数据访问对象
// ============================================================================

type JournalDAO struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Remote    string    `db:"remote"`
	Event     string    `db:"event"`
	Detail    string    `db:"detail"`
	Timestamp time.Time `db:"timestamp"`
}

// ============================================================================
// journalRepoSQLite - SQLite 实现
// ============================================================================

type journalRepoSQLite struct {
	db *sql.DB
}

// NewJournalRepoSQLite 创建基于 SQLite 的会话日志仓库
func NewJournalRepoSQLite(cfg database.Config) (journal.Repository, error) {
	dbPath := cfg.JournalDBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &journalRepoSQLite{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logrus.Infof("Session journal initialized with SQLite at %s", dbPath)
	return repo, nil
}

func (r *journalRepoSQLite) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS session_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		remote TEXT,
		event TEXT NOT NULL,
		detail TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_journal_session ON session_journal(session_id);
	CREATE INDEX IF NOT EXISTS idx_session_journal_remote ON session_journal(remote);
	CREATE INDEX IF NOT EXISTS idx_session_journal_timestamp ON session_journal(timestamp);
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (r *journalRepoSQLite) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *journalRepoSQLite) Record(ctx context.Context, entry *journal.Entry) error {
	dao := JournalDAO{
		SessionID: entry.SessionID,
		Role:      entry.Role,
		Remote:    entry.Remote,
		Event:     string(entry.Event),
		Detail:    entry.Detail,
		Timestamp: entry.Timestamp,
	}
	if dao.Timestamp.IsZero() {
		dao.Timestamp = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO session_journal (session_id, role, remote, event, detail, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, dao.SessionID, dao.Role, dao.Remote, dao.Event, dao.Detail, dao.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	entry.Timestamp = dao.Timestamp
	return nil
}

// Query 最新的在前
func (r *journalRepoSQLite) Query(ctx context.Context, options *journal.QueryOptions) ([]*journal.Entry, error) {
	query := `
		SELECT id, session_id, role, remote, event, detail, timestamp
		FROM session_journal
		WHERE 1=1
	`
	args := []interface{}{}

	if options == nil {
		options = &journal.QueryOptions{}
	}
	if options.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, options.SessionID)
	}
	if options.Remote != "" {
		query += " AND remote = ?"
		args = append(args, options.Remote)
	}
	if options.Event != "" {
		query += " AND event = ?"
		args = append(args, string(options.Event))
	}

	limit := options.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []*journal.Entry
	for rows.Next() {
		var dao JournalDAO
		var remote, detail sql.NullString
		if err := rows.Scan(&dao.ID, &dao.SessionID, &dao.Role, &remote, &dao.Event, &detail, &dao.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, &journal.Entry{
			ID:        dao.ID,
			SessionID: dao.SessionID,
			Role:      dao.Role,
			Remote:    remote.String,
			Event:     journal.EventType(dao.Event),
			Detail:    detail.String,
			Timestamp: dao.Timestamp,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal: %w", err)
	}
	return entries, nil
}
