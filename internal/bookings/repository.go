// Package bookings keeps a local record of confirmed bookings for operators.
// The upstream backend owns the booking itself; this table is an audit trail.
package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock implements
// it for tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Record is one confirmed booking.
type Record struct {
	ID             uuid.UUID `json:"id"`
	CompanyID      string    `json:"company_id"`
	BookingRef     string    `json:"booking_ref"` // upstream booking id
	CustomerEmail  string    `json:"customer_email"`
	StartAt        time.Time `json:"start_at"`
	ServiceCount   int       `json:"service_count"`
	TotalAmount    int64     `json:"total_amount"`
	TotalCurrency  string    `json:"total_currency"`
	ProfessionalID string    `json:"professional_id,omitempty"` // empty for wildcard
	CreatedAt      time.Time `json:"created_at"`
}

// Repository persists booking records.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a confirmed booking record.
func (r *Repository) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_records
			(id, company_id, booking_ref, customer_email, start_at,
			 service_count, total_amount, total_currency, professional_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.CompanyID, rec.BookingRef, rec.CustomerEmail, rec.StartAt,
		rec.ServiceCount, rec.TotalAmount, rec.TotalCurrency, rec.ProfessionalID, rec.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("bookings: insert record: %w", err)
	}
	return rec.ID, nil
}

// ListRecent returns the newest records for a company, newest first.
func (r *Repository) ListRecent(ctx context.Context, companyID string, limit int) ([]Record, error) {
	if companyID == "" {
		return nil, fmt.Errorf("bookings: company id required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, company_id, booking_ref, customer_email, start_at,
		       service_count, total_amount, total_currency, professional_id, created_at
		FROM booking_records
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		companyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("bookings: list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.CompanyID, &rec.BookingRef, &rec.CustomerEmail, &rec.StartAt,
			&rec.ServiceCount, &rec.TotalAmount, &rec.TotalCurrency, &rec.ProfessionalID, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("bookings: scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate records: %w", err)
	}
	return records, nil
}
