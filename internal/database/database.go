package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pricewatch/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no watch exists for the given id
var ErrNotFound = errors.New("watch not found")

// ValidationError rejects a criteria submission. It is surfaced synchronously
// to the caller and nothing is persisted.
type ValidationError struct {
	Reason string
}

const (
	// ReasonTargetAboveCurrent means the requested target price can never be
	// satisfied under price-drop semantics
	ReasonTargetAboveCurrent = "target price is above the current price of the item"
	// ReasonNoCriteria means neither a target price nor the any-sale flag was given
	ReasonNoCriteria = "a target price or the any-sale flag is required"
	// ReasonFulfilled means the watch already notified and is archived
	ReasonFulfilled = "watch is already fulfilled"
)

func (e *ValidationError) Error() string {
	return e.Reason
}

// Store is the persistence contract for watches. All operations are atomic at
// single-watch granularity, so concurrent passes over disjoint watches do not
// interfere.
type Store interface {
	Create(ctx context.Context, w *models.Watch) (int64, error)
	Get(ctx context.Context, id int64) (*models.Watch, error)
	SetCriteria(ctx context.Context, id int64, target *decimal.Decimal, anySale bool) error
	ListActive(ctx context.Context) ([]models.Watch, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error
	MarkFulfilled(ctx context.Context, id int64) error
	Close() error
}

// DB is the sqlite-backed Store
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the sqlite database at dbPath
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// init creates the watches table
func (db *DB) init() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS watches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_name TEXT NOT NULL,
		owner_contact TEXT NOT NULL,
		product_url TEXT NOT NULL,
		product_name TEXT NOT NULL,
		last_known_price TEXT NOT NULL,
		target_price TEXT,
		notify_on_any_sale INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'PENDING_CRITERIA',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_checked DATETIME
	);
	`

	_, err := db.conn.Exec(createTableSQL)
	return err
}

// Create inserts a new watch in PENDING_CRITERIA state and returns its id
func (db *DB) Create(ctx context.Context, w *models.Watch) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO watches (owner_name, owner_contact, product_url, product_name, last_known_price, state) VALUES (?, ?, ?, ?, ?, ?)",
		w.OwnerName, w.OwnerContact, w.ProductURL, w.ProductName, w.LastKnownPrice.String(), string(models.StatePendingCriteria),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const watchColumns = "id, owner_name, owner_contact, product_url, product_name, last_known_price, target_price, notify_on_any_sale, state, created_at, last_checked"

// Get returns the watch with the given id, or ErrNotFound
func (db *DB) Get(ctx context.Context, id int64) (*models.Watch, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+watchColumns+" FROM watches WHERE id = ?", id)
	w, err := scanWatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// SetCriteria stores the stopping criterion for a watch, moving it to ACTIVE.
// The target price is validated against this watch's own last known price.
func (db *DB) SetCriteria(ctx context.Context, id int64, target *decimal.Decimal, anySale bool) error {
	if target == nil && !anySale {
		return &ValidationError{Reason: ReasonNoCriteria}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+watchColumns+" FROM watches WHERE id = ?", id)
	w, err := scanWatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if w.State == models.StateFulfilled {
		return &ValidationError{Reason: ReasonFulfilled}
	}
	if target != nil && target.GreaterThan(w.LastKnownPrice) {
		return &ValidationError{Reason: ReasonTargetAboveCurrent}
	}

	var targetText sql.NullString
	if target != nil {
		targetText = sql.NullString{String: target.String(), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE watches SET target_price = ?, notify_on_any_sale = ?, state = ? WHERE id = ?",
		targetText, anySale, string(models.StateActive), id,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ListActive returns every watch eligible for a reconciliation pass
func (db *DB) ListActive(ctx context.Context) ([]models.Watch, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+watchColumns+" FROM watches WHERE state = ?", string(models.StateActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watches []models.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		watches = append(watches, *w)
	}
	return watches, rows.Err()
}

// UpdatePrice refreshes the last known price of a watch
func (db *DB) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE watches SET last_known_price = ?, last_checked = CURRENT_TIMESTAMP WHERE id = ?",
		price.String(), id,
	)
	return err
}

// MarkFulfilled archives a notified watch. Guarded on state so a repeated
// call is a no-op.
func (db *DB) MarkFulfilled(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE watches SET state = ?, last_checked = CURRENT_TIMESTAMP WHERE id = ? AND state = ?",
		string(models.StateFulfilled), id, string(models.StateActive),
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWatch(row scanner) (*models.Watch, error) {
	var (
		w         models.Watch
		lastPrice string
		target    sql.NullString
		state     string
		createdAt sql.NullTime
		lastCheck sql.NullTime
	)
	err := row.Scan(&w.ID, &w.OwnerName, &w.OwnerContact, &w.ProductURL, &w.ProductName,
		&lastPrice, &target, &w.NotifyOnAnySale, &state, &createdAt, &lastCheck)
	if err != nil {
		return nil, err
	}

	w.LastKnownPrice, err = decimal.NewFromString(lastPrice)
	if err != nil {
		return nil, fmt.Errorf("watch %d: bad stored price %q: %w", w.ID, lastPrice, err)
	}
	if target.Valid {
		w.TargetPrice, err = decimal.NewFromString(target.String)
		if err != nil {
			return nil, fmt.Errorf("watch %d: bad stored target %q: %w", w.ID, target.String, err)
		}
		w.HasTargetPrice = true
	}
	w.State = models.WatchState(state)
	if createdAt.Valid {
		w.CreatedAt = createdAt.Time
	}
	if lastCheck.Valid {
		w.LastChecked = lastCheck.Time
	}
	return &w, nil
}
