package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"benefit-recommendation-api/internal/models"
)

// DB wraps the catalog database connection.
type DB struct {
	conn *sql.DB
}

// Document is a stored benefit record in its flat JSON form.
type Document struct {
	ID   string
	Kind models.Kind
	Body []byte
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS benefit_records (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL CHECK (kind IN ('offer', 'event')),
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			document TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_benefit_kind ON benefit_records(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_benefit_brand ON benefit_records(brand)`,
		`CREATE INDEX IF NOT EXISTS idx_benefit_category ON benefit_records(category)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertRecords creates or replaces records in a single transaction.
func (db *DB) UpsertRecords(ctx context.Context, records []models.BenefitRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO benefit_records (
		id, kind, brand, category, document, updated_at
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		kind = excluded.kind,
		brand = excluded.brand,
		category = excluded.category,
		document = excluded.document,
		updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	written := 0
	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, string(rec.Kind), rec.Brand, rec.Category, string(body), now); err != nil {
			return 0, fmt.Errorf("failed to upsert record %s: %w", rec.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return written, nil
}

// ListDocuments returns every stored record, offers first, each kind in
// insertion order.
func (db *DB) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, kind, document
		FROM benefit_records
		ORDER BY CASE kind WHEN 'offer' THEN 0 ELSE 1 END, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query benefit records: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var kind, body string
		if err := rows.Scan(&doc.ID, &kind, &body); err != nil {
			return nil, fmt.Errorf("failed to scan benefit record: %w", err)
		}
		doc.Kind = models.Kind(kind)
		doc.Body = []byte(body)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating benefit records: %w", err)
	}

	return docs, nil
}

// CountByKind returns how many records of each kind are stored.
func (db *DB) CountByKind(ctx context.Context) (map[models.Kind]int, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT kind, COUNT(*) FROM benefit_records GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count benefit records: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.Kind(kind)] = n
	}

	return counts, rows.Err()
}

// DeleteRecord removes a record by id. Deleting a missing id is not an error.
func (db *DB) DeleteRecord(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM benefit_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}
