package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tokosnap-be/internal/metrics"
	"tokosnap-be/internal/payment"
	"tokosnap-be/internal/product"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	if args.Error(0) == nil && o.ID == "" {
		o.ID = "order-1"
	}
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) SetSnapToken(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockRepository) ApplyPaymentStatus(ctx context.Context, id, reported string) (*ReconcileResult, error) {
	args := m.Called(ctx, id, reported)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReconcileResult), args.Error(1)
}

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) GetByID(ctx context.Context, id string) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepo) List(ctx context.Context) ([]*product.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*product.Product), args.Error(1)
}

func (m *MockProductRepo) Create(ctx context.Context, input product.NewProduct) (*product.Product, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepo) Update(ctx context.Context, id string, input product.UpdateProduct) (*product.Product, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateTransaction(ctx context.Context, req payment.TransactionRequest) (*payment.TransactionToken, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.TransactionToken), args.Error(1)
}

func (m *MockGateway) VerifySignature(n *payment.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

type MockNotifRepo struct {
	mock.Mock
}

func (m *MockNotifRepo) SaveNotification(ctx context.Context, n *payment.Notification) (int64, bool, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockNotifRepo) MarkProcessed(ctx context.Context, id int64, outcome string) error {
	args := m.Called(ctx, id, outcome)
	return args.Error(0)
}

func (m *MockNotifRepo) MarkFailed(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func testMetrics() *metrics.PaymentMetrics {
	return metrics.NewPaymentMetricsWith(prometheus.NewRegistry())
}

func validInput() CheckoutInput {
	return CheckoutInput{
		ProductID: "p1",
		BuyerName: "Budi",
		Email:     "budi@example.com",
		Address:   "Jl. Sudirman 1",
		Quantity:  2,
	}
}

// --- Checkout ---

func TestService_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_GrossAmountAndLineItem", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepo)
		gateway := new(MockGateway)
		notifs := new(MockNotifRepo)
		svc := NewService(repo, products, gateway, notifs, testMetrics())

		products.On("GetByID", ctx, "p1").
			Return(&product.Product{ID: "p1", Name: "Kopi Arabika", Price: 100}, nil)
		repo.On("Create", ctx, mock.AnythingOfType("*order.Order")).Return(nil)

		gateway.On("CreateTransaction", ctx, mock.MatchedBy(func(req payment.TransactionRequest) bool {
			return req.GrossAmount == 200 &&
				len(req.Items) == 1 &&
				req.Items[0].Quantity == 2 &&
				req.Items[0].Price == 100 &&
				req.OrderID != ""
		})).Return(&payment.TransactionToken{
			Token:       "snap-token",
			RedirectURL: "https://pay.example/snap-token",
		}, nil)

		repo.On("SetSnapToken", ctx, mock.Anything, "snap-token").Return(nil)

		res, err := svc.Checkout(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, "snap-token", res.Token)
		assert.Equal(t, "https://pay.example/snap-token", res.RedirectURL)
		repo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("MissingAddress_NoOrderCreated", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), new(MockNotifRepo), testMetrics())

		input := validInput()
		input.Address = ""

		_, err := svc.Checkout(ctx, input)
		assert.ErrorIs(t, err, ErrMissingFields)
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("ProductNotFound", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepo)
		svc := NewService(repo, products, new(MockGateway), new(MockNotifRepo), testMetrics())

		products.On("GetByID", ctx, "p1").Return(nil, product.ErrProductNotFound)

		_, err := svc.Checkout(ctx, validInput())
		assert.ErrorIs(t, err, product.ErrProductNotFound)
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("GatewayFailure_OrderStaysPendingWithoutToken", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepo)
		gateway := new(MockGateway)
		svc := NewService(repo, products, gateway, new(MockNotifRepo), testMetrics())

		products.On("GetByID", ctx, "p1").
			Return(&product.Product{ID: "p1", Name: "Kopi Arabika", Price: 100}, nil)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		gateway.On("CreateTransaction", ctx, mock.Anything).
			Return(nil, errors.New("gateway timeout"))

		_, err := svc.Checkout(ctx, validInput())
		assert.ErrorIs(t, err, ErrGatewayFailure)
		repo.AssertNotCalled(t, "SetSnapToken")
	})

	t.Run("QuantityDefaultsToOne", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepo)
		gateway := new(MockGateway)
		svc := NewService(repo, products, gateway, new(MockNotifRepo), testMetrics())

		products.On("GetByID", ctx, "p1").
			Return(&product.Product{ID: "p1", Name: "Kopi Arabika", Price: 100}, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(o *Order) bool {
			return o.Quantity == 1 && o.GrossAmount == 100
		})).Return(nil)
		gateway.On("CreateTransaction", ctx, mock.Anything).
			Return(&payment.TransactionToken{Token: "t"}, nil)
		repo.On("SetSnapToken", ctx, mock.Anything, "t").Return(nil)

		input := validInput()
		input.Quantity = 0

		_, err := svc.Checkout(ctx, input)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("NegativeQuantity", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockProductRepo), new(MockGateway), new(MockNotifRepo), testMetrics())

		input := validInput()
		input.Quantity = -3

		_, err := svc.Checkout(ctx, input)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestService_CreateOrder_NoGatewayCall(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	products := new(MockProductRepo)
	gateway := new(MockGateway)
	svc := NewService(repo, products, gateway, new(MockNotifRepo), testMetrics())

	products.On("GetByID", ctx, "p1").
		Return(&product.Product{ID: "p1", Name: "Kopi Arabika", Price: 100}, nil)
	repo.On("Create", ctx, mock.Anything).Return(nil)

	o, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.PaymentStatus)
	assert.Equal(t, int64(200), o.GrossAmount)
	gateway.AssertNotCalled(t, "CreateTransaction")
}

// --- Reconciliation ---

func settlementNotification(orderID string) *payment.Notification {
	return &payment.Notification{
		OrderID:           orderID,
		TransactionID:     "tx-1",
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "200.00",
	}
}

func TestService_ReconcileNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("Applied", func(t *testing.T) {
		repo := new(MockRepository)
		notifs := new(MockNotifRepo)
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), notifs, testMetrics())

		notifs.On("SaveNotification", ctx, mock.Anything).Return(int64(7), false, nil)
		repo.On("ApplyPaymentStatus", ctx, "order-1", "settlement").Return(&ReconcileResult{
			OrderID: "order-1", Previous: StatusPending, Current: StatusPaid, Applied: true,
		}, nil)
		notifs.On("MarkProcessed", ctx, int64(7), "applied").Return(nil)

		res, err := svc.ReconcileNotification(ctx, settlementNotification("order-1"))
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, StatusPaid, res.Current)
		notifs.AssertExpectations(t)
	})

	t.Run("MissingOrderID", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), new(MockNotifRepo), testMetrics())

		_, err := svc.ReconcileNotification(ctx, settlementNotification(""))
		assert.ErrorIs(t, err, ErrInvalidNotification)
		repo.AssertNotCalled(t, "ApplyPaymentStatus")
	})

	t.Run("UnknownOrder_ObservableButNotFatal", func(t *testing.T) {
		repo := new(MockRepository)
		notifs := new(MockNotifRepo)
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), notifs, testMetrics())

		notifs.On("SaveNotification", ctx, mock.Anything).Return(int64(8), false, nil)
		repo.On("ApplyPaymentStatus", ctx, "ghost", "settlement").Return(nil, ErrOrderNotFound)
		notifs.On("MarkProcessed", ctx, int64(8), metrics.OutcomeOrderNotFound).Return(nil)

		_, err := svc.ReconcileNotification(ctx, settlementNotification("ghost"))
		assert.ErrorIs(t, err, ErrOrderNotFound)
		notifs.AssertExpectations(t)
	})

	t.Run("Conflict_AcknowledgedAndAudited", func(t *testing.T) {
		repo := new(MockRepository)
		notifs := new(MockNotifRepo)
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), notifs, testMetrics())

		n := settlementNotification("order-1")
		n.TransactionStatus = "cancel"

		notifs.On("SaveNotification", ctx, mock.Anything).Return(int64(9), false, nil)
		repo.On("ApplyPaymentStatus", ctx, "order-1", "cancel").Return(&ReconcileResult{
			OrderID: "order-1", Previous: StatusPaid, Current: StatusPaid, Conflict: true,
		}, nil)
		notifs.On("MarkProcessed", ctx, int64(9), "conflict").Return(nil)

		res, err := svc.ReconcileNotification(ctx, n)
		require.NoError(t, err, "conflicts are reported, not raised")
		assert.True(t, res.Conflict)
		assert.Equal(t, StatusPaid, res.Current)
	})

	t.Run("DuplicateDelivery_StillReconciles", func(t *testing.T) {
		repo := new(MockRepository)
		notifs := new(MockNotifRepo)
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), notifs, testMetrics())

		notifs.On("SaveNotification", ctx, mock.Anything).Return(int64(0), true, nil)
		repo.On("ApplyPaymentStatus", ctx, "order-1", "settlement").Return(&ReconcileResult{
			OrderID: "order-1", Previous: StatusPaid, Current: StatusPaid,
		}, nil)

		res, err := svc.ReconcileNotification(ctx, settlementNotification("order-1"))
		require.NoError(t, err)
		assert.False(t, res.Applied, "second application performs no write")
	})

	t.Run("AuditFailureDoesNotBlockReconciliation", func(t *testing.T) {
		repo := new(MockRepository)
		notifs := new(MockNotifRepo)
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), notifs, testMetrics())

		notifs.On("SaveNotification", ctx, mock.Anything).
			Return(int64(0), false, errors.New("audit table gone"))
		repo.On("ApplyPaymentStatus", ctx, "order-1", "settlement").Return(&ReconcileResult{
			OrderID: "order-1", Previous: StatusPending, Current: StatusPaid, Applied: true,
		}, nil)

		res, err := svc.ReconcileNotification(ctx, settlementNotification("order-1"))
		require.NoError(t, err)
		assert.True(t, res.Applied)
	})

	t.Run("StoreFailurePropagates", func(t *testing.T) {
		repo := new(MockRepository)
		notifs := new(MockNotifRepo)
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), notifs, testMetrics())

		notifs.On("SaveNotification", ctx, mock.Anything).Return(int64(10), false, nil)
		repo.On("ApplyPaymentStatus", ctx, "order-1", "settlement").
			Return(nil, errors.New("db down"))
		notifs.On("MarkFailed", ctx, int64(10), "db down").Return(nil)

		_, err := svc.ReconcileNotification(ctx, settlementNotification("order-1"))
		assert.Error(t, err)
	})
}

// --- Concurrency contract ---

// memoryRepo serializes ApplyPaymentStatus per order the way the SQL
// implementation does with its row lock.
type memoryRepo struct {
	mu        sync.Mutex
	status    PaymentStatus
	conflicts int
}

func (m *memoryRepo) Create(ctx context.Context, o *Order) error            { return nil }
func (m *memoryRepo) GetByID(ctx context.Context, id string) (*Order, error) { return nil, ErrOrderNotFound }
func (m *memoryRepo) SetSnapToken(ctx context.Context, id, token string) error { return nil }

func (m *memoryRepo) ApplyPaymentStatus(ctx context.Context, id, reported string) (*ReconcileResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := NextStatus(m.status, reported)
	res := &ReconcileResult{OrderID: id, Previous: m.status, Current: d.Target, Applied: d.Apply, Conflict: d.Conflict}
	if d.Apply {
		m.status = d.Target
	}
	if d.Conflict {
		m.conflicts++
	}
	return res, nil
}

type nopNotifRepo struct{}

func (nopNotifRepo) SaveNotification(ctx context.Context, n *payment.Notification) (int64, bool, error) {
	return 0, false, nil
}
func (nopNotifRepo) MarkProcessed(ctx context.Context, id int64, outcome string) error { return nil }
func (nopNotifRepo) MarkFailed(ctx context.Context, id int64, reason string) error     { return nil }

func TestService_ConcurrentSettlementAndCancel(t *testing.T) {
	// §Concrete: settlement and cancel racing on the same pending order must
	// end paid regardless of arrival order, with the loser recorded as a
	// conflict at most once.
	for i := 0; i < 50; i++ {
		repo := &memoryRepo{status: StatusPending}
		svc := NewService(repo, new(MockProductRepo), new(MockGateway), nopNotifRepo{}, testMetrics())

		var wg sync.WaitGroup
		for _, status := range []string{"settlement", "cancel"} {
			wg.Add(1)
			go func(status string) {
				defer wg.Done()
				n := settlementNotification("order-1")
				n.TransactionStatus = status
				_, _ = svc.ReconcileNotification(context.Background(), n)
			}(status)
		}
		wg.Wait()

		assert.Equal(t, StatusPaid, repo.status)
		assert.LessOrEqual(t, repo.conflicts, 1)
	}
}
