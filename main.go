package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcheckout "github.com/Roymukiebe/meat-track-smart-sales/internal/application/checkout"
	appinventory "github.com/Roymukiebe/meat-track-smart-sales/internal/application/inventory"
	appsettlement "github.com/Roymukiebe/meat-track-smart-sales/internal/application/settlement"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/clock"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/domain/sale"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/cardsim"
	checkoutworker "github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/checkout/worker"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/id"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/memory"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/mpesa"
	obsinfra "github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/observability"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/observability/oteltrace"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/observability/prometrics"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/observability/zaplogger"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/outbox"
	receiptworker "github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/receipt/worker"
	settlementworker "github.com/Roymukiebe/meat-track-smart-sales/internal/infrastructure/settlement/worker"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/observability"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/pkg/logging"
	httppresentation "github.com/Roymukiebe/meat-track-smart-sales/internal/presentation/http"
	"github.com/Roymukiebe/meat-track-smart-sales/internal/presentation/receipt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "meat-track")
	env := getenvDefault("ENV", "dev")

	baseLogger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)
	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	registry := prometrics.New("", "meattrack")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MSettlementRequests: registry.Counter(
			string(observability.MSettlementRequests),
			"Total number of settlement attempts by method.",
			"method", "outcome",
		),
		observability.MHTTPRequests: registry.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MExternalRequests: registry.Counter(
			string(observability.MExternalRequests),
			"Total number of outbound gateway requests.",
			"target", "operation", "status",
		),
		observability.MGatewayCallbacks: registry.Counter(
			string(observability.MGatewayCallbacks),
			"Gateway callback deliveries by resolution result.",
			"result",
		),
		observability.MSalesRecorded: registry.Counter(
			string(observability.MSalesRecorded),
			"Sale records appended to history.",
			"method", "outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MSettlementDuration: registry.Histogram(
			string(observability.MSettlementDuration),
			"Duration of settlement initiation in seconds.",
			prometheus.DefBuckets,
			"method",
		),
		observability.MHTTPRequestDuration: registry.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.",
			prometheus.DefBuckets,
			"method", "route", "status",
		),
		observability.MExternalRequestDuration: registry.Histogram(
			string(observability.MExternalRequestDuration),
			"Duration of outbound gateway requests in seconds.",
			prometheus.DefBuckets,
			"target", "operation", "status",
		),
	}

	tel := obsinfra.New(
		oteltrace.New(serviceName),
		zaplogger.New(
			observability.F("service", serviceName),
			observability.F("env", env),
		),
		counters,
		histograms,
	)

	systemClock := clock.NewSystem()
	idGenerator := id.NewUUIDGenerator()

	ledger := memory.NewStockLedger(idGenerator, systemClock)
	if err := memory.SeedCatalog(context.Background(), ledger, memory.DefaultCatalog()); err != nil {
		systemLogger.Fatal("seed_catalog_failed", zap.Error(err))
	}
	history := memory.NewSaleHistory()
	receipts := memory.NewReceiptStore()

	renderer, err := receipt.NewRenderer()
	if err != nil {
		systemLogger.Fatal("receipt_renderer_init_failed", zap.Error(err))
	}

	bus := outbox.NewBus(tel.Logger())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	gateway := mpesa.NewClient(mpesa.ConfigFromEnv(), nil, systemClock, tel)
	cards := cardsim.NewProcessor(systemClock)

	settlementTimeout := getenvDuration("SETTLEMENT_TIMEOUT", appsettlement.DefaultTimeout)
	settlementSvc := appsettlement.NewService(
		gateway, cards, bus, idGenerator, mpesa.NormalizePhone,
		systemClock, settlementTimeout, tel,
	)

	numbers := sale.NewNumberGenerator(getenvDefault("RECEIPT_PREFIX", sale.DefaultReceiptPrefix), systemClock)
	inventorySvc := appinventory.NewService(ledger, tel)
	checkoutSvc := appcheckout.NewService(ledger, history, numbers, settlementSvc, bus, systemClock, tel)

	settlementworker.New(bus, settlementSvc).Start()
	checkoutworker.New(bus, checkoutSvc).Start()
	receiptworker.New(bus, history, renderer, receipts, tel).Start()

	handler := httppresentation.NewHandler(
		inventorySvc, checkoutSvc, settlementSvc, bus,
		receipts, renderer, tel.Logger(), tel,
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    getenvDefault("HTTP_ADDR", ":8080"),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
