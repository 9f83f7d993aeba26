package main

import (
	"database/sql"
	"log"
	"net/http"

	"tokosnap-be/internal/config"
	"tokosnap-be/internal/db"
	httpdelivery "tokosnap-be/internal/delivery/http"
	"tokosnap-be/internal/logger"
	"tokosnap-be/internal/metrics"
	"tokosnap-be/internal/middleware"
	"tokosnap-be/internal/order"
	"tokosnap-be/internal/payment"
	"tokosnap-be/internal/payment/webhook"
	"tokosnap-be/internal/product"
	"tokosnap-be/internal/user"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newServer assembles the full handler chain from config and an open
// database handle.
func newServer(cfg *config.Config, database *sql.DB, m *metrics.PaymentMetrics) http.Handler {
	gateway := payment.NewSnapGateway(cfg.MidtransServerKey, cfg.MidtransIsProd)

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo)

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo)

	notifRepo := payment.NewRepository(database)
	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, productRepo, gateway, notifRepo, m)

	wh := webhook.NewHandler(orderSvc, gateway, m)

	mux := http.NewServeMux()
	httpdelivery.NewHandler(productSvc, orderSvc, userSvc, wh).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// auth runs before the limiter so authenticated traffic gets per-user
	// buckets instead of sharing the IP bucket
	return logger.RequestIDMiddleware(
		logger.LoggingMiddleware(
			middleware.CORS(
				middleware.AuthMiddleware(
					middleware.RateLimitMiddleware(mux),
				),
			),
		),
	)
}

var (
	initDBFunc      = db.InitDB
	startServerFunc = http.ListenAndServe
)

func run() error {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	handler := newServer(cfg, database, metrics.NewPaymentMetrics())

	logger.L().Sugar().Infof("server listening on :%s", cfg.AppPort)
	return startServerFunc(":"+cfg.AppPort, handler)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
