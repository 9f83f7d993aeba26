package payment

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists every inbound gateway notification for audit and
// dedup. (order_id, transaction_status, status_code) identifies a delivery;
// redeliveries collapse into the first row.
type Repository interface {
	SaveNotification(ctx context.Context, n *Notification) (id int64, isDuplicate bool, err error)
	MarkProcessed(ctx context.Context, id int64, outcome string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveNotification(ctx context.Context, n *Notification) (int64, bool, error) {
	const q = `
	INSERT INTO payment_notifications (
		order_id,
		transaction_id,
		transaction_status,
		status_code,
		gross_amount,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (order_id, transaction_status, status_code)
	DO NOTHING
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		n.OrderID,
		n.TransactionID,
		n.TransactionStatus,
		n.StatusCode,
		n.GrossAmount,
		n.SignatureValid,
		[]byte(n.Raw),
	).Scan(&id)

	if err != nil {
		// Conflict row suppressed → redelivered notification
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkProcessed(ctx context.Context, id int64, outcome string) error {
	const q = `
	UPDATE payment_notifications
	SET processed_at = now(), outcome = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, id, outcome)
	return err
}

func (r *repository) MarkFailed(ctx context.Context, id int64, reason string) error {
	const q = `
	UPDATE payment_notifications
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, id, reason)
	return err
}
