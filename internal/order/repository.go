package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tokosnap-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	SetSnapToken(ctx context.Context, id, token string) error

	// ApplyPaymentStatus runs the state machine against the stored status in
	// a single transaction holding a row lock on the order, so concurrent
	// notifications for the same order serialize instead of losing updates.
	ApplyPaymentStatus(ctx context.Context, id, reported string) (*ReconcileResult, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.PaymentStatus = StatusPending

	query := `
		INSERT INTO orders (
			id, product_id, buyer_name, email, address,
			quantity, gross_amount, payment_status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		o.ID,
		o.ProductID,
		o.BuyerName,
		o.Email,
		o.Address,
		o.Quantity,
		o.GrossAmount,
		o.PaymentStatus,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	query := `
		SELECT id, product_id, buyer_name, email, address,
		       quantity, gross_amount, snap_token, payment_status,
		       created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.ProductID, &o.BuyerName, &o.Email, &o.Address,
		&o.Quantity, &o.GrossAmount, &o.SnapToken, &o.PaymentStatus,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return &o, nil
}

func (r *repository) SetSnapToken(ctx context.Context, id, token string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET snap_token = $1, updated_at = NOW() WHERE id = $2
	`, token, id)
	if err != nil {
		return fmt.Errorf("failed to set snap token: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *repository) ApplyPaymentStatus(ctx context.Context, id, reported string) (*ReconcileResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ApplyPaymentStatus"),
		zap.String("order_id", id),
		zap.String("reported", reported),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	var current PaymentStatus
	err = tx.QueryRowContext(ctx, `
		SELECT payment_status FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order row: %w", err)
	}

	decision := NextStatus(current, reported)

	result := &ReconcileResult{
		OrderID:  id,
		Previous: current,
		Current:  decision.Target,
		Applied:  decision.Apply,
		Conflict: decision.Conflict,
	}

	if !decision.Apply {
		// nothing to write; release the lock
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true
		return result, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2
	`, decision.Target, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	log.Info("payment status applied",
		zap.String("previous", string(result.Previous)),
		zap.String("current", string(result.Current)),
	)

	return result, nil
}
