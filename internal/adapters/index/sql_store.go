// Package index stores messages under their composite key and searches them.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

type dialect struct {
	name   string
	schema []string
	upsert string
}

var sqliteDialect = dialect{
	name: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS emails (
			id TEXT PRIMARY KEY,
			account TEXT NOT NULL,
			folder TEXT NOT NULL,
			subject TEXT NOT NULL,
			sender TEXT NOT NULL,
			received_at INTEGER NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			indexed_at INTEGER NOT NULL,
			notified_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_label ON emails(label)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails(received_at)`,
	},
	upsert: `INSERT INTO emails (id, account, folder, subject, sender, received_at, label, body, indexed_at)
		VALUES (:id, :account, :folder, :subject, :sender, :received_at, :label, :body, :indexed_at)
		ON CONFLICT(id) DO UPDATE SET
			account = excluded.account,
			folder = excluded.folder,
			subject = excluded.subject,
			sender = excluded.sender,
			received_at = excluded.received_at,
			label = CASE WHEN excluded.label = '' THEN emails.label ELSE excluded.label END,
			body = excluded.body,
			indexed_at = excluded.indexed_at`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS emails (
			id CHAR(64) PRIMARY KEY,
			account VARCHAR(255) NOT NULL,
			folder VARCHAR(255) NOT NULL,
			subject TEXT NOT NULL,
			sender VARCHAR(255) NOT NULL,
			received_at BIGINT NOT NULL,
			label VARCHAR(64) NOT NULL DEFAULT '',
			body MEDIUMTEXT NOT NULL,
			indexed_at BIGINT NOT NULL,
			notified_at BIGINT NULL,
			INDEX idx_emails_label (label),
			INDEX idx_emails_received_at (received_at)
		)`,
	},
	upsert: `INSERT INTO emails (id, account, folder, subject, sender, received_at, label, body, indexed_at)
		VALUES (:id, :account, :folder, :subject, :sender, :received_at, :label, :body, :indexed_at)
		ON DUPLICATE KEY UPDATE
			account = VALUES(account),
			folder = VALUES(folder),
			subject = VALUES(subject),
			sender = VALUES(sender),
			received_at = VALUES(received_at),
			label = IF(VALUES(label) = '', label, VALUES(label)),
			body = VALUES(body),
			indexed_at = VALUES(indexed_at)`,
}

type emailRow struct {
	ID         string `db:"id"`
	Account    string `db:"account"`
	Folder     string `db:"folder"`
	Subject    string `db:"subject"`
	Sender     string `db:"sender"`
	ReceivedAt int64  `db:"received_at"`
	Label      string `db:"label"`
	Body       string `db:"body"`
	IndexedAt  int64  `db:"indexed_at"`
}

func toRow(m core.Message) emailRow {
	return emailRow{
		ID:         m.Key(),
		Account:    m.Account,
		Folder:     m.Folder,
		Subject:    m.Subject,
		Sender:     m.From,
		ReceivedAt: m.Date.UnixNano(),
		Label:      string(m.Label),
		Body:       m.Body,
		IndexedAt:  time.Now().UnixNano(),
	}
}

func (r emailRow) message() core.Message {
	return core.Message{
		Subject: r.Subject,
		From:    r.Sender,
		Date:    time.Unix(0, r.ReceivedAt).UTC(),
		Folder:  r.Folder,
		Account: r.Account,
		Label:   core.Label(r.Label),
		Body:    r.Body,
	}
}

// SQLStore implements core.IndexStore on SQLite or MySQL
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
	logger  *zap.Logger
}

// NewSQLiteStore opens (or creates) a SQLite index at path
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		logger.Debug("WAL mode unavailable", zap.Error(err))
	}
	return newSQLStore(db, sqliteDialect, logger)
}

// NewMySQLStore connects to a MySQL index
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}
	return newSQLStore(db, mysqlDialect, logger)
}

func newSQLStore(db *sqlx.DB, d dialect, logger *zap.Logger) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// Upsert writes msg, replacing any document with the same key. An unlabeled
// write keeps the label already stored.
func (s *SQLStore) Upsert(ctx context.Context, msg core.Message) error {
	if _, err := s.db.NamedExecContext(ctx, s.dialect.upsert, toRow(msg)); err != nil {
		return fmt.Errorf("%w: %w", core.ErrIndexWrite, err)
	}
	return nil
}

// Search returns up to q.Limit() matching messages, newest first
func (s *SQLStore) Search(ctx context.Context, q core.SearchQuery) ([]core.Message, error) {
	var where []string
	var args []interface{}
	for _, c := range q.Clauses {
		column, ok := searchColumns[c.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported search field %q", core.ErrValidation, c.Field)
		}
		switch c.Match {
		case core.MatchPhrase:
			where = append(where, "LOWER("+column+") LIKE ? ESCAPE '!'")
			args = append(args, "%"+escapeLike(strings.ToLower(c.Value))+"%")
		default:
			where = append(where, column+" = ?")
			args = append(args, c.Value)
		}
	}

	query := "SELECT id, account, folder, subject, sender, received_at, label, body, indexed_at FROM emails"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY received_at DESC LIMIT ?"
	args = append(args, q.Limit())

	var rows []emailRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	out := make([]core.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.message())
	}
	return out, nil
}

// ClearAll deletes every document and returns how many were removed
func (s *SQLStore) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM emails")
	if err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}
	s.logger.Info("Cleared index", zap.Int64("deleted", n))
	return n, nil
}

// MarkNotified records that alerts went out for key. It returns true only
// for the first call on an indexed document.
func (s *SQLStore) MarkNotified(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE emails SET notified_at = ? WHERE id = ? AND notified_at IS NULL"),
		time.Now().UnixNano(), key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", core.ErrIndexWrite, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, fmt.Errorf("%w: %w", core.ErrIndexWrite, err)
	}
	return n == 1, nil
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected unavailable: %w", err)
	}
	return n, nil
}

// Count returns the number of indexed documents
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM emails"); err != nil {
		return 0, fmt.Errorf("failed to count index: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var searchColumns = map[string]string{
	core.FieldLabel:   "label",
	core.FieldFolder:  "folder",
	core.FieldAccount: "account",
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
