package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"credit-coupling-api/internal/models"
)

// MemoryDSN keeps the SQLite database in process memory.
const MemoryDSN = ":memory:"

// ErrDuplicateID is returned by both stores when a feedback id is already recorded.
var ErrDuplicateID = errors.New("feedback id already recorded")

// DB is a SQLite-backed feedback log.
type DB struct {
	conn *sql.DB
}

// NewDB opens the database at dbPath and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = MemoryDSN
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	conn.SetMaxOpenConns(1)

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

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS feedback (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			offer_id TEXT NOT NULL,
			action TEXT NOT NULL CHECK (action IN ('accepted', 'rejected')),
			reason TEXT,
			recorded_at TEXT NOT NULL,
			user_context TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_offer_id ON feedback(offer_id, seq)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// Append inserts a feedback record. A repeated id yields ErrDuplicateID.
func (db *DB) Append(ctx context.Context, record models.FeedbackRecord) error {
	userContext, err := json.Marshal(record.Context)
	if err != nil {
		return fmt.Errorf("failed to serialize user context: %w", err)
	}

	var reason sql.NullString
	if record.Reason != "" {
		reason = sql.NullString{String: record.Reason, Valid: true}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO feedback (id, offer_id, action, reason, recorded_at, user_context)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.OfferID,
		string(record.Action),
		reason,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		string(userContext),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("feedback %s: %w", record.ID, ErrDuplicateID)
		}
		return fmt.Errorf("failed to insert feedback %s: %w", record.ID, err)
	}

	return nil
}

// ListByOffer returns the records for offerID in insertion order.
func (db *DB) ListByOffer(ctx context.Context, offerID string) ([]models.FeedbackRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, offer_id, action, reason, recorded_at, user_context
		FROM feedback
		WHERE offer_id = ?
		ORDER BY seq`,
		offerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var records []models.FeedbackRecord
	for rows.Next() {
		var (
			rec         models.FeedbackRecord
			action      string
			reason      sql.NullString
			recordedAt  string
			userContext string
		)

		if err := rows.Scan(&rec.ID, &rec.OfferID, &action, &reason, &recordedAt, &userContext); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}

		rec.Action = models.Action(action)
		rec.Reason = reason.String

		rec.Timestamp, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}

		if err := json.Unmarshal([]byte(userContext), &rec.Context); err != nil {
			return nil, fmt.Errorf("failed to parse user context: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}

	return records, nil
}
