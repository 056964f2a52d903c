package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"salbar-be/internal/config"
	"salbar-be/internal/db"
	"salbar-be/internal/logger"
	"salbar-be/internal/middleware"
	"salbar-be/internal/payment"
	"salbar-be/internal/payment/qpay"
	"salbar-be/internal/payment/webhook"
	"salbar-be/internal/productext"
	"salbar-be/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsNamespace = "salbar"

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(addr string, handler http.Handler) error {
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
		}
		return srv.ListenAndServe()
	}
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	a := newApp(context.Background(), cfg, database)

	stop := make(chan struct{})
	defer close(stop)
	go a.limiter.RunCleanup(stop)

	logger.L().Info("server running", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
	if err := startServerFunc(":"+cfg.AppPort, setupRouter(a)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type app struct {
	qpay       *qpay.Provider
	payments   *payment.Handler
	webhooks   *webhook.Handler
	extensions *productext.Handler
	limiter    *middleware.RateLimiter
	registry   *prometheus.Registry
	jwtSecret  []byte
}

func newApp(ctx context.Context, cfg *config.Config, database *sql.DB, opts ...qpay.Option) *app {
	log := logger.L()

	provider := qpay.New(ctx, log, qpay.Options{
		Username:               cfg.QPay.Username,
		Password:               cfg.QPay.Password,
		InvoiceCode:            cfg.QPay.InvoiceCode,
		BaseURL:                cfg.QPay.BaseURL,
		CallbackURL:            cfg.QPay.CallbackURL,
		Mock:                   cfg.QPay.Mock,
		DeterministicInvoiceNo: cfg.QPay.DeterministicInvoiceNo,
	}, opts...)

	module := payment.NewModule(payment.NewRepository(database), log)
	module.Register(provider)

	extSvc := productext.NewService(productext.NewRepository(database))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := provider.Metrics().Register(registry, metricsNamespace, "qpay"); err != nil {
		log.Warn("failed to register qpay metrics", zap.Error(err))
	}

	return &app{
		qpay:       provider,
		payments:   payment.NewHandler(module, provider.Identifier(), log),
		webhooks:   webhook.NewHandler(module, provider.Identifier(), log),
		extensions: productext.NewHandler(extSvc),
		limiter:    middleware.NewRateLimiter(cfg.InternalKey),
		registry:   registry,
		jwtSecret:  []byte(cfg.JWTSecret),
	}
}

func setupRouter(a *app) http.Handler {
	mux := http.NewServeMux()
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /webhooks/qpay", a.webhooks.Receive)
	mux.HandleFunc("GET /webhooks/qpay", a.webhooks.Status)

	mux.HandleFunc("POST /store/payment-sessions", a.payments.CreateSession)
	mux.HandleFunc("GET /store/payment-sessions/{id}", a.payments.GetSession)
	mux.HandleFunc("POST /store/payment-sessions/{id}/authorize", a.payments.AuthorizeSession)

	mux.Handle("POST /admin/payment-sessions/{id}/capture", admin(a.payments.CaptureSession))
	mux.Handle("POST /admin/payment-sessions/{id}/refund", admin(a.payments.RefundSession))
	mux.Handle("POST /admin/payment-sessions/{id}/cancel", admin(a.payments.CancelSession))

	mux.Handle("POST /admin/products/{id}/extension", admin(a.extensions.Attach))
	mux.Handle("GET /admin/products/{id}/extension", admin(a.extensions.Get))
	mux.Handle("DELETE /admin/product-extensions/{id}", admin(a.extensions.Delete))
	mux.Handle("POST /admin/product-extensions/{id}/restore", admin(a.extensions.Restore))

	mux.Handle("GET /admin/metrics/qpay", admin(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, a.qpay.Metrics().Snapshot())
	}))

	var h http.Handler = mux
	h = a.limiter.Middleware(h)
	h = middleware.AuthMiddleware(a.jwtSecret)(h)
	h = logger.LoggingMiddleware(h)
	h = logger.RequestIDMiddleware(h)
	return h
}
