package payment

import "context"

type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (*TransactionToken, error)
	VerifySignature(n *Notification) error
}
