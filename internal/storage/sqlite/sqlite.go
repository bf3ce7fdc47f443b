// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tallysplit/tally/internal/models"
	"github.com/tallysplit/tally/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path. It creates
// the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession persists a new session and its receipt state.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if session.CreatedAt == 0 {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state := session.State
	var discountKind sql.NullString
	var discountValue sql.NullFloat64
	if state.Discount != nil {
		discountKind = sql.NullString{String: string(state.Discount.Kind), Valid: true}
		discountValue = sql.NullFloat64{Float64: state.Discount.Value, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions
		 (id, subtotal, tax, tip, total, discount_kind, discount_value,
		  merchant_name, date, location, currency_symbol, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, state.Subtotal, state.Tax, state.Tip, state.Total,
		discountKind, discountValue,
		state.MerchantName, state.Date, state.Location, state.CurrencySymbol,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if err := insertState(ctx, tx, session.ID, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateSession replaces the stored receipt state wholesale: scalar fields
// are updated and items/assignments/contributions are deleted and
// reinserted in one transaction.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	state := session.State
	var discountKind sql.NullString
	var discountValue sql.NullFloat64
	if state.Discount != nil {
		discountKind = sql.NullString{String: string(state.Discount.Kind), Valid: true}
		discountValue = sql.NullFloat64{Float64: state.Discount.Value, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET
		 subtotal = ?, tax = ?, tip = ?, total = ?,
		 discount_kind = ?, discount_value = ?,
		 merchant_name = ?, date = ?, location = ?, currency_symbol = ?,
		 updated_at = ?
		 WHERE id = ?`,
		state.Subtotal, state.Tax, state.Tip, state.Total,
		discountKind, discountValue,
		state.MerchantName, state.Date, state.Location, state.CurrencySymbol,
		session.UpdatedAt, session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, session.ID)
	}

	// ON DELETE CASCADE clears the assignments with the items.
	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE session_id = ?", session.ID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM fixed_contributions WHERE session_id = ?", session.ID); err != nil {
		return fmt.Errorf("failed to clear fixed contributions: %w", err)
	}

	if err := insertState(ctx, tx, session.ID, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertState writes items, assignments and fixed contributions for a
// session inside an open transaction.
func insertState(ctx context.Context, tx *sql.Tx, sessionID string, state *models.ReceiptState) error {
	for pos := range state.Items {
		item := &state.Items[pos]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO items (id, session_id, position, name, price) VALUES (?, ?, ?, ?, ?)",
			item.ID, sessionID, pos, item.Name, item.Price,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for apos, participant := range item.AssignedTo {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO item_assignments (item_id, position, participant) VALUES (?, ?, ?)",
				item.ID, apos, participant,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item assignment: %w", err)
			}
		}
	}

	for pos, fc := range state.FixedContributions {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO fixed_contributions (session_id, position, name, amount) VALUES (?, ?, ?, ?)",
			sessionID, pos, fc.Name, fc.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fixed contribution: %w", err)
		}
	}

	return nil
}

// GetSession retrieves a session including its items, assignments and
// fixed contributions, in stored order.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session := &models.Session{State: &models.ReceiptState{}}
	state := session.State

	var discountKind sql.NullString
	var discountValue sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, subtotal, tax, tip, total, discount_kind, discount_value,
		        merchant_name, date, location, currency_symbol, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		sessionID,
	).Scan(&session.ID, &state.Subtotal, &state.Tax, &state.Tip, &state.Total,
		&discountKind, &discountValue,
		&state.MerchantName, &state.Date, &state.Location, &state.CurrencySymbol,
		&session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if discountKind.Valid {
		state.Discount = &models.Discount{
			Kind:  models.DiscountKind(discountKind.String),
			Value: discountValue.Float64,
		}
	}

	itemRows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price FROM items WHERE session_id = ? ORDER BY position",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item models.Item
		if err := itemRows.Scan(&item.ID, &item.Name, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		assignRows, err := s.db.QueryContext(ctx,
			"SELECT participant FROM item_assignments WHERE item_id = ? ORDER BY position",
			item.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to get item assignments: %w", err)
		}

		for assignRows.Next() {
			var participant string
			if err := assignRows.Scan(&participant); err != nil {
				assignRows.Close()
				return nil, fmt.Errorf("failed to scan assignment: %w", err)
			}
			item.AssignedTo = append(item.AssignedTo, participant)
		}
		assignRows.Close()
		if err := assignRows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate assignments: %w", err)
		}

		state.Items = append(state.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	fcRows, err := s.db.QueryContext(ctx,
		"SELECT name, amount FROM fixed_contributions WHERE session_id = ? ORDER BY position",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get fixed contributions: %w", err)
	}
	defer fcRows.Close()

	for fcRows.Next() {
		var fc models.FixedContribution
		if err := fcRows.Scan(&fc.Name, &fc.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan fixed contribution: %w", err)
		}
		state.FixedContributions = append(state.FixedContributions, fc)
	}
	if err := fcRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fixed contributions: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session; items, assignments and contributions
// cascade.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, sessionID)
	}
	return nil
}
