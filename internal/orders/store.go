// Package orders provides the order dataset behind the fact resolution and
// policy layers: lookups by id and email, fuzzy-match choice strings, and
// the dataset-max purchase date used as an optional eligibility anchor.
package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/orderdesk-ai/server/internal/agent/model"
	errx "github.com/orderdesk-ai/server/internal/core/error"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

const (
	delayedAfterDays = 10 // is_delayed when delivery took strictly more
	lowReviewAtMost  = 2  // low_review when score <= this
)

// Store manages order persistence in SQLite. The handle is opened once and
// treated as read-only for the process lifetime; SQLite serialises reads
// internally so no extra locking is needed.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the order database at the given path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewStoreWithDB wraps an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			customer_email TEXT NOT NULL,
			first_name TEXT,
			last_name TEXT,
			order_status TEXT NOT NULL,
			purchase_date TEXT,
			delivery_time_days INTEGER,
			total_payment REAL,
			payment_type TEXT,
			installments INTEGER,
			num_items INTEGER,
			review_score INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(customer_email);
		CREATE INDEX IF NOT EXISTS idx_orders_purchase ON orders(purchase_date DESC);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const orderColumns = `order_id, customer_email, first_name, last_name, order_status,
	purchase_date, delivery_time_days, total_payment, payment_type,
	installments, num_items, review_score`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOrder builds OrderFacts from a row and computes the derived flags.
// This is the single place the flags are derived; everything downstream
// only reads them.
func scanOrder(row rowScanner) (*model.OrderFacts, error) {
	var (
		f            model.OrderFacts
		purchase     sql.NullString
		deliveryDays sql.NullInt64
		totalPayment sql.NullFloat64
		paymentType  sql.NullString
		installments sql.NullInt64
		numItems     sql.NullInt64
		reviewScore  sql.NullInt64
		firstName    sql.NullString
		lastName     sql.NullString
	)

	err := row.Scan(&f.OrderID, &f.CustomerEmail, &firstName, &lastName, &f.OrderStatus,
		&purchase, &deliveryDays, &totalPayment, &paymentType,
		&installments, &numItems, &reviewScore)
	if err != nil {
		return nil, err
	}

	f.FirstName = firstName.String
	f.LastName = lastName.String
	f.PaymentType = paymentType.String
	f.TotalPayment = totalPayment.Float64
	f.Installments = int(installments.Int64)
	f.NumItems = int(numItems.Int64)

	if purchase.Valid && purchase.String != "" {
		if t, err := ParseDate(purchase.String); err == nil {
			f.PurchaseDate = t
		}
	}
	if deliveryDays.Valid {
		d := int(deliveryDays.Int64)
		f.DeliveryTimeDays = &d
	}
	if reviewScore.Valid {
		r := int(reviewScore.Int64)
		f.ReviewScore = &r
	}

	f.IsDelayed = f.DeliveryTimeDays != nil && *f.DeliveryTimeDays > delayedAfterDays
	f.LowReview = f.ReviewScore != nil && *f.ReviewScore <= lowReviewAtMost

	return &f, nil
}

// Get returns the facts for one order id, or (nil, nil) when unknown.
func (s *Store) Get(ctx context.Context, orderID string) (*model.OrderFacts, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID)

	f, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("order_id", orderID).Msg("failed to load order facts")
		return nil, errx.WrapStore(fmt.Errorf("get order %s: %w", orderID, err))
	}
	return f, nil
}

// GetByEmail returns up to limit orders for an email, newest purchase
// first. Email comparison is case-insensitive.
func (s *Store) GetByEmail(ctx context.Context, email string, limit int) ([]model.OrderFacts, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE lower(customer_email) = lower(?)
		 ORDER BY purchase_date DESC
		 LIMIT ?`, email, limit)
	if err != nil {
		logx.Error().Err(err).Str("email", email).Msg("failed to query orders by email")
		return nil, errx.WrapStore(fmt.Errorf("orders by email: %w", err))
	}
	defer rows.Close()

	var out []model.OrderFacts
	for rows.Next() {
		f, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Keys returns "order_id - customer_email" strings, the choice list the
// fuzzy matcher scores free text against.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT order_id, customer_email FROM orders`)
	if err != nil {
		return nil, errx.WrapStore(fmt.Errorf("order keys: %w", err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		keys = append(keys, id+" - "+email)
	}
	return keys, rows.Err()
}

// MaxPurchaseDate returns the newest purchase date in the dataset, or the
// zero time when the table is empty.
func (s *Store) MaxPurchaseDate(ctx context.Context) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT max(purchase_date) FROM orders`).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("max purchase date: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	return ParseDate(raw.String)
}

// Count returns the number of orders loaded, for warm-up logging.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM orders`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

var _ model.OrderStore = (*Store)(nil)
