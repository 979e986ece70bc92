package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("journal entry not found")

// Entry is the durable trace of one checkout attempt that produced an order.
type Entry struct {
	ID            string
	OrderID       string
	SessionID     string
	PaymentMethod domain.PaymentMethod
	Amount        decimal.Decimal
	Status        domain.CheckoutStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a second connection to ":memory:" would be a different database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// Record stores a new attempt. Recording an order id twice overwrites method, amount
// and status of the earlier row.
func (r *Repository) Record(ctx context.Context, e Entry) error {
	if e.OrderID == "" {
		return fmt.Errorf("record journal entry: empty order id")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := r.now().UTC()

	query := `
		INSERT INTO checkout_journal (id, order_id, session_id, payment_method, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(order_id) DO UPDATE SET
			payment_method = excluded.payment_method,
			amount = excluded.amount,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.OrderID, e.SessionID, string(e.PaymentMethod), e.Amount.String(), string(e.Status), now, now)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orderID string, status domain.CheckoutStatus) error {
	query := `
		UPDATE checkout_journal
		SET status = $1, updated_at = $2
		WHERE order_id = $3
	`
	res, err := r.db.ExecContext(ctx, query, string(status), r.now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("failed to update journal status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update journal status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Lookup(ctx context.Context, orderID string) (*Entry, error) {
	query := `
		SELECT id, order_id, session_id, payment_method, amount, status, created_at, updated_at
		FROM checkout_journal
		WHERE order_id = $1
	`

	var (
		e      Entry
		method string
		amount string
		status string
	)
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&e.ID,
		&e.OrderID,
		&e.SessionID,
		&method,
		&amount,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entry: %w", err)
	}

	e.PaymentMethod = domain.PaymentMethod(method)
	e.Status = domain.CheckoutStatus(status)
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q in journal: %w", amount, err)
	}
	return &e, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
