package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	appOrder "github.com/stylecommerce/marketplace/internal/application/order"
	appPayment "github.com/stylecommerce/marketplace/internal/application/payment"
	domcart "github.com/stylecommerce/marketplace/internal/domain/cart"
	domcatalog "github.com/stylecommerce/marketplace/internal/domain/catalog"
	domorder "github.com/stylecommerce/marketplace/internal/domain/order"
	"github.com/stylecommerce/marketplace/internal/infrastructure/audit"
	"github.com/stylecommerce/marketplace/internal/infrastructure/bus"
	"github.com/stylecommerce/marketplace/internal/infrastructure/id"
	"github.com/stylecommerce/marketplace/internal/infrastructure/memory"
	"github.com/stylecommerce/marketplace/internal/infrastructure/observability/oteltrace"
	"github.com/stylecommerce/marketplace/internal/infrastructure/observability/prometrics"
	"github.com/stylecommerce/marketplace/internal/infrastructure/observability/provider"
	"github.com/stylecommerce/marketplace/internal/infrastructure/observability/zaplogger"
	"github.com/stylecommerce/marketplace/internal/infrastructure/postgres"
	"github.com/stylecommerce/marketplace/internal/infrastructure/stripe"
	"github.com/stylecommerce/marketplace/internal/observability"
	"github.com/stylecommerce/marketplace/internal/pkg/config"
	httppresentation "github.com/stylecommerce/marketplace/internal/presentation/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseLogger, err := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	if err != nil {
		return err
	}
	defer func() {
		if s, ok := baseLogger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traceShutdown, err := oteltrace.InitProvider(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := traceShutdown(shutdownCtx); err != nil {
			baseLogger.Warn("trace_shutdown_error", observability.F("error", err.Error()))
		}
	}()

	tel := provider.New(
		provider.WithLogger(baseLogger),
		provider.WithTracer(oteltrace.New("marketplace")),
		provider.WithMetrics(provider.NewMetrics(prometrics.New("", ""))),
	)

	eventBus := bus.New(tel)
	eventBus.Start(context.Background())
	defer eventBus.Stop(context.Background())

	idGenerator := id.NewUUIDGenerator()

	cartStore := memory.NewCartStore()
	stockLedger := memory.NewStockLedger()

	var orderRepo domorder.Repository
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, derr := postgres.Open(cfg.PostgresURL)
		if derr != nil {
			return derr
		}
		defer func() { _ = db.Close() }()
		if merr := postgres.Migrate(cfg.PostgresURL, cfg.MigrationsPath); merr != nil {
			return merr
		}
		orderRepo = postgres.NewOrderRepository(db)
	default:
		orderRepo = memory.NewOrderRepository()
	}

	if cfg.Env == "dev" {
		seedDemoData(cartStore, stockLedger, tel.Logger())
	}

	gateway := stripe.New(cfg.StripeAPIKey, cfg.StripeReturnURL, tel)
	processor := appPayment.NewProcessor(gateway, tel,
		appPayment.WithBackoffUnit(cfg.PaymentBackoffUnit),
	)

	auditBackends := []audit.Backend{audit.NewLogBackend(tel)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaBackend := audit.NewKafkaBackend(cfg.KafkaBrokers, cfg.AuditTopic)
		defer func() { _ = kafkaBackend.Close() }()
		auditBackends = append(auditBackends, kafkaBackend)
	}
	recorder := audit.NewRecorder(eventBus, tel, auditBackends...)
	recorder.Start()
	auditSink := audit.NewSink(eventBus, idGenerator, tel)

	placeOrder := appOrder.NewPlaceOrderUseCase(cartStore, stockLedger, orderRepo, processor, auditSink, eventBus, idGenerator, tel)
	placeOrder.SetChargeAttempts(cfg.PaymentMaxAttempts)
	updateStatus := appOrder.NewUpdateOrderStatusUseCase(orderRepo, eventBus, tel)
	queries := appOrder.NewQueries(orderRepo)

	handler := httppresentation.NewHandler(placeOrder, updateStatus, queries, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		baseLogger.Info("http_server_start", observability.F("addr", server.Addr))
		if serr := server.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
		}
	}()

	select {
	case <-ctx.Done():
	case serr := <-errCh:
		return serr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		baseLogger.Error("http_server_shutdown_error", observability.F("error", serr.Error()))
		return serr
	}
	baseLogger.Info("http_server_stopped")
	return nil
}

// seedDemoData loads a small catalog and one cart so the placement flow
// is exercisable out of the box in dev. Production deployments feed
// these stores from the catalog and cart services.
func seedDemoData(carts *memory.CartStore, ledger *memory.StockLedger, log observability.Logger) {
	ctx := context.Background()
	now := time.Now().UTC()

	products := []*domcatalog.Product{
		{ID: "prod-tee", Name: "Logo Tee", Price: 2500, StockQuantity: 100},
		{ID: "prod-mug", Name: "Enamel Mug", Price: 1800, StockQuantity: 40},
		{ID: "prod-cap", Name: "Dad Cap", Price: 2200, StockQuantity: 25},
	}
	for _, p := range products {
		_ = ledger.Put(ctx, p)
	}

	_ = carts.Put(ctx, &domcart.Cart{
		ID:     "cart-demo",
		UserID: "user-demo",
		Lines: []domcart.Line{
			{ProductID: "prod-tee", Quantity: 2, PriceSnapshot: 2500, AddedAt: now},
			{ProductID: "prod-mug", Quantity: 1, PriceSnapshot: 1800, AddedAt: now},
		},
		CreatedAt: now,
	})

	log.Info("demo_data_seeded",
		observability.F("products", len(products)),
		observability.F("carts", 1),
	)
}
