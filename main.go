package main

import (
	"context"
	"embed"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed config/migrations/*/*.sql
var embedMigrations embed.FS

func main() {
	logger := NewLoggerIPFS("root")
	if len(os.Args) > 1 {
		// If a CLI command is provided, run it and exit
		runCli(logger, os.Args[1])
		return
	}

	config, err := LoadConfig(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	signer, err := NewSigner(config.hotKeyHex)
	if err != nil {
		logger.Fatal("failed to initialise hot signer", "error", err)
	}
	logger.Info("hot signer initialized", "address", signer.GetAddress().Hex())

	hdSigner, err := NewHDSignerFromConfig(config)
	if err != nil {
		logger.Fatal("failed to initialise hd signer", "error", err)
	}
	if hdSigner != nil {
		logger.Info("hd signing enabled")
	} else {
		logger.Info("hd signing disabled, no master key material configured")
	}

	var idempotency IdempotencyLedger
	var dbStore *DBIdempotencyStore
	if config.persistStore {
		db, err := ConnectToDB(config.dbConf, logger)
		if err != nil {
			logger.Fatal("failed to setup database", "error", err)
		}
		dbStore = NewDBIdempotencyStore(db)
		idempotency = dbStore
	} else {
		idempotency = NewMemoryIdempotencyStore()
	}

	ledgerClient, err := NewEthLedgerClient(config.settings.RPCURL, config.settings.ChainID, config.settings.FeeCeilingWei, logger)
	if err != nil {
		logger.Fatal("failed to initialize ledger client", "error", err)
	}

	// Initialize Prometheus metrics
	metrics := NewMetrics()

	authenticator := NewAuthenticator(config.hmacSecret, config.SkewWindow())
	policy := NewPolicyGate(config.settings.AllowedDestinations, config.settings.AllowedContracts)

	service := NewTransferService(
		signer,
		hdSigner,
		policy,
		idempotency,
		ledgerClient,
		metrics,
		logger,
		config.settings.TokenDecimals,
		config.BroadcastTimeout(),
	)

	handler := NewGatewayHandler(authenticator, service, metrics, logger)
	mux := http.NewServeMux()
	handler.Register(mux)

	server := &http.Server{
		Addr:    config.settings.ListenAddr,
		Handler: mux,
	}

	// Set up a separate mux for metrics
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    config.settings.MetricsListenAddr,
		Handler: metricsMux,
	}

	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	if dbStore != nil {
		go metrics.RecordMetricsPeriodically(metricsCtx, dbStore, logger)
	}

	go func() {
		logger.Info("Prometheus metrics available", "listenAddr", config.settings.MetricsListenAddr, "endpoint", "/metrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failure", "error", err)
		}
	}()

	// Start the main HTTP server.
	go func() {
		logger.Info("signing gateway available", "listenAddr", config.settings.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failure", "error", err)
		}
	}()

	// Wait for shutdown signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down metrics server", "error", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down server", "error", err)
	}

	logger.Info("shutdown complete")
}

func runCli(logger Logger, name string) {
	switch name {
	case "reconcile":
		runReconcileCli(logger)
	case "derive":
		runDeriveCli(logger)
	default:
		logger.Fatal("Unknown CLI command", "name", name)
	}
}
