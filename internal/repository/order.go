package repository

import (
	"context"
	"fmt"

	"rpa/runner/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

type OrderRepository interface {
	SaveRecord(ctx context.Context, record *domain.OrderRecord) error
}

// DB is the part of *pgxpool.Pool the repository needs
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) OrderRepository {
	return &orderRepository{
		db: db,
	}
}

// EnsureSchema creates the ledger table when it does not exist
func EnsureSchema(ctx context.Context, db DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS order_records (
		run_id       TEXT        NOT NULL,
		order_number TEXT        NOT NULL,
		state        TEXT        NOT NULL,
		retries      INTEGER     NOT NULL DEFAULT 0,
		pdf_path     TEXT,
		error        TEXT,
		processed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, order_number)
	)`
	if _, err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create order_records table: %w", err)
	}
	return nil
}

func (r *orderRepository) SaveRecord(ctx context.Context, record *domain.OrderRecord) error {
	query := `
	INSERT INTO order_records (run_id, order_number, state, retries, pdf_path, error, processed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (run_id, order_number)
	DO UPDATE SET state = $3, retries = $4, pdf_path = $5, error = $6, processed_at = $7`
	_, err := r.db.Exec(ctx, query,
		record.RunID,
		record.OrderNumber,
		record.State.String(),
		record.Retries,
		record.PDFPath,
		record.Error,
		record.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save record of order %s: %w", record.OrderNumber, err)
	}

	return nil
}

type logRepository struct{}

// NewLogRepository only logs records; used when no database is configured
func NewLogRepository() OrderRepository {
	return logRepository{}
}

func (logRepository) SaveRecord(_ context.Context, record *domain.OrderRecord) error {
	log.WithFields(log.Fields{
		"run_id":  record.RunID,
		"order":   record.OrderNumber,
		"state":   record.State,
		"retries": record.Retries,
		"pdf":     record.PDFPath,
	}).Debug("Order record")
	return nil
}
