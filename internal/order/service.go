package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tokosnap-be/internal/logger"
	"tokosnap-be/internal/metrics"
	"tokosnap-be/internal/payment"
	"tokosnap-be/internal/product"

	"go.uber.org/zap"
)

type Service interface {
	// Checkout creates a pending order and a gateway transaction for it,
	// returning the token the buyer needs to pay.
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)

	// CreateOrder records a pending order without touching the gateway.
	CreateOrder(ctx context.Context, input CheckoutInput) (*Order, error)

	GetOrder(ctx context.Context, id string) (*Order, error)

	// ReconcileNotification applies one gateway notification to the order it
	// references. Idempotent under redelivery and safe under concurrent
	// delivery; see ReconcileResult for what happened.
	ReconcileNotification(ctx context.Context, n *payment.Notification) (*ReconcileResult, error)
}

type service struct {
	repo     Repository
	products product.Repository
	gateway  payment.Gateway
	notifs   payment.Repository
	metrics  *metrics.PaymentMetrics
}

func NewService(
	repo Repository,
	products product.Repository,
	gateway payment.Gateway,
	notifs payment.Repository,
	m *metrics.PaymentMetrics,
) Service {
	return &service{
		repo:     repo,
		products: products,
		gateway:  gateway,
		notifs:   notifs,
		metrics:  m,
	}
}

func (s *service) validate(input *CheckoutInput) error {
	if strings.TrimSpace(input.ProductID) == "" ||
		strings.TrimSpace(input.BuyerName) == "" ||
		strings.TrimSpace(input.Email) == "" ||
		strings.TrimSpace(input.Address) == "" {
		return ErrMissingFields
	}

	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 0 {
		return ErrInvalidQuantity
	}

	return nil
}

func (s *service) createPendingOrder(ctx context.Context, input CheckoutInput) (*Order, *product.Product, error) {
	if err := s.validate(&input); err != nil {
		return nil, nil, err
	}

	p, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, nil, err
	}

	o := &Order{
		ProductID:     p.ID,
		BuyerName:     input.BuyerName,
		Email:         input.Email,
		Address:       input.Address,
		Quantity:      input.Quantity,
		GrossAmount:   p.Price * int64(input.Quantity),
		PaymentStatus: StatusPending,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, nil, err
	}

	return o, p, nil
}

func (s *service) CreateOrder(ctx context.Context, input CheckoutInput) (*Order, error) {
	o, _, err := s.createPendingOrder(ctx, input)
	return o, err
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.String("product_id", input.ProductID),
	)

	o, p, err := s.createPendingOrder(ctx, input)
	if err != nil {
		s.metrics.RecordCheckout("rejected", 0)
		return nil, err
	}

	log = log.With(
		zap.String("order_id", o.ID),
		zap.Int64("gross_amount", o.GrossAmount),
	)

	req := payment.TransactionRequest{
		OrderID:     o.ID,
		GrossAmount: o.GrossAmount,
		Items: []payment.LineItem{
			{ID: p.ID, Price: p.Price, Quantity: o.Quantity, Name: p.Name},
		},
		Buyer: payment.BuyerDetails{
			Name:    o.BuyerName,
			Email:   o.Email,
			Address: o.Address,
		},
	}

	start := time.Now()
	token, err := s.gateway.CreateTransaction(ctx, req)
	s.metrics.RecordGatewayDuration(time.Since(start).Seconds())
	if err != nil {
		// Fail open: the order stays pending and tokenless so the buyer can
		// retry checkout without a duplicate debit.
		log.Error("gateway transaction failed; order left pending", zap.Error(err))
		s.metrics.RecordCheckout("gateway_error", 0)
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	if err := s.repo.SetSnapToken(ctx, o.ID, token.Token); err != nil {
		log.Error("failed to persist snap token", zap.Error(err))
		s.metrics.RecordCheckout("store_error", 0)
		return nil, err
	}

	s.metrics.RecordCheckout("success", o.GrossAmount)
	log.Info("checkout completed", zap.String("token", token.Token))

	return &CheckoutResult{
		Token:       token.Token,
		RedirectURL: token.RedirectURL,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	if id == "" {
		return nil, ErrOrderNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) ReconcileNotification(ctx context.Context, n *payment.Notification) (*ReconcileResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ReconcileNotification"),
		zap.String("order_id", n.OrderID),
		zap.String("transaction_status", n.TransactionStatus),
	)

	if n.OrderID == "" {
		s.metrics.RecordWebhookOutcome(metrics.OutcomeInvalidPayload)
		return nil, ErrInvalidNotification
	}

	auditID, duplicate, err := s.notifs.SaveNotification(ctx, n)
	if err != nil {
		// Audit trouble must not block reconciliation; the status update is
		// the part that matters.
		log.Error("failed to persist notification audit record", zap.Error(err))
	}
	if duplicate {
		log.Info("redelivered notification")
	}

	result, err := s.repo.ApplyPaymentStatus(ctx, n.OrderID, n.TransactionStatus)
	if errors.Is(err, ErrOrderNotFound) {
		// Legitimate under retried delivery against purged data; observable
		// but benign for the gateway.
		log.Warn("notification for unknown order")
		s.metrics.RecordWebhookOutcome(metrics.OutcomeOrderNotFound)
		if auditID != 0 {
			_ = s.notifs.MarkProcessed(ctx, auditID, metrics.OutcomeOrderNotFound)
		}
		return nil, err
	}
	if err != nil {
		log.Error("failed to apply payment status", zap.Error(err))
		s.metrics.RecordWebhookOutcome(metrics.OutcomeStoreError)
		if auditID != 0 {
			_ = s.notifs.MarkFailed(ctx, auditID, err.Error())
		}
		return nil, err
	}

	outcome := metrics.OutcomeNoop
	switch {
	case result.Conflict:
		outcome = metrics.OutcomeConflict
		log.Warn("conflicting terminal notification refused",
			zap.String("current", string(result.Previous)),
			zap.String("reported", n.TransactionStatus),
		)
	case result.Applied:
		outcome = metrics.OutcomeApplied
		s.metrics.RecordStatusApplied(string(result.Current))
	}

	s.metrics.RecordWebhookOutcome(outcome)
	if auditID != 0 {
		_ = s.notifs.MarkProcessed(ctx, auditID, outcome)
	}

	return result, nil
}
