package vector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore persists collections in SQLite and ranks them in process.
// Collections hold the reply corpus, which is small enough to scan.
type SQLiteStore struct {
	db     *sqlx.DB
	dist   Distance
	logger *zap.Logger
}

type vectorRow struct {
	ID       string `db:"id"`
	Vector   string `db:"vector"`
	Document string `db:"document"`
}

// NewSQLiteStore opens (or creates) a vector store at path
func NewSQLiteStore(path string, dist Distance, logger *zap.Logger) (*SQLiteStore, error) {
	if dist == nil {
		dist = L2
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS vectors (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		vector TEXT NOT NULL,
		document TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dist: dist, logger: logger}, nil
}

// Add inserts records in one transaction, replacing any with the same ID
func (s *SQLiteStore) Add(ctx context.Context, collection string, records []core.VectorRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		vec, err := json.Marshal(r.Vector)
		if err != nil {
			return fmt.Errorf("failed to encode vector %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO vectors (collection, id, vector, document)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET
				vector = excluded.vector,
				document = excluded.document`,
			collection, r.ID, string(vec), r.Document)
		if err != nil {
			return fmt.Errorf("failed to store vector %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Query returns the topK records closest to vector
func (s *SQLiteStore) Query(ctx context.Context, collection string, vector []float32, topK int) ([]core.VectorMatch, error) {
	var rows []vectorRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, vector, document FROM vectors WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	records := make([]core.VectorRecord, 0, len(rows))
	for _, row := range rows {
		var vec []float32
		if err := json.Unmarshal([]byte(row.Vector), &vec); err != nil {
			s.logger.Warn("Skipping corrupt vector",
				zap.String("collection", collection),
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}
		records = append(records, core.VectorRecord{ID: row.ID, Vector: vec, Document: row.Document})
	}
	return rank(records, vector, topK, s.dist), nil
}

// Count returns the number of records in collection
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM vectors WHERE collection = ?`, collection); err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}
	return n, nil
}

// Reset drops every record of collection
func (s *SQLiteStore) Reset(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("failed to reset collection %s: %w", collection, err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
