package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibbank/loanservicing/internal/application/usecase"
	"github.com/bibbank/loanservicing/internal/domain/service"
	"github.com/bibbank/loanservicing/internal/infrastructure/adapter"
	"github.com/bibbank/loanservicing/internal/infrastructure/config"
	"github.com/bibbank/loanservicing/internal/infrastructure/kafka"
	pgRepo "github.com/bibbank/loanservicing/internal/infrastructure/persistence/postgres"
	grpcPresentation "github.com/bibbank/loanservicing/internal/presentation/grpc"
	"github.com/bibbank/loanservicing/internal/presentation/rest"
	pkgkafka "github.com/bibbank/loanservicing/pkg/kafka"
	"github.com/bibbank/loanservicing/pkg/observability"
	pkgpostgres "github.com/bibbank/loanservicing/pkg/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("loan-servicing exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logger via shared observability package.
	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.Telemetry.LogLevel,
		Format:      cfg.Telemetry.LogFormat,
		ServiceName: cfg.ServiceName,
	})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting loan-servicing",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"rounding_mode", cfg.RoundingMode.String(),
	)

	// Initialize tracing.
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.OTLPInsecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }() //nolint:errcheck // best-effort tracer shutdown
	}

	// Metrics are served on the HTTP port.
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush

	// Database connection.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	pool, err := pkgpostgres.NewPool(dbCtx, cfg.Postgres())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Run database migrations.
	if err := pgRepo.Migrate(cfg.Postgres().DSN()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Wire infrastructure adapters.
	loanRepo := pgRepo.NewLoanRepo(pool)
	kafkaProducer, err := pkgkafka.NewProducer(cfg.KafkaClient())
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	defer func() { _ = kafkaProducer.Close() }() //nolint:errcheck // flushes pending writes
	publisher := kafka.NewEventPublisher(kafkaProducer, cfg.Kafka.EventTopic, logger)

	processor := service.NewProcessor(
		adapter.NewDecliningBalanceEMICalculator(),
		adapter.NewInstallmentChargeReprocessor(),
		adapter.NewPrincipalCreditHandler(),
		cfg.RoundingMode,
		logger,
	)

	// Wire use cases.
	boardUC := usecase.NewBoardLoanUseCase(loanRepo, publisher, logger)
	applyUC := usecase.NewApplyTransactionUseCase(loanRepo, publisher, processor, logger)
	chargeUC := usecase.NewAddChargeUseCase(loanRepo, publisher, processor, logger)
	reprocessUC := usecase.NewReprocessLoanUseCase(loanRepo, publisher, processor, logger)
	scheduleUC := usecase.NewGetScheduleUseCase(loanRepo)

	// gRPC server.
	handler := grpcPresentation.NewLoanServicingHandler(boardUC, applyUC, chargeUC, reprocessUC, scheduleUC, logger)
	grpcServer, err := grpcPresentation.NewServer(handler, logger, grpcPresentation.ServerOptions{
		TLSCertFile: cfg.TLS.CertFile,
		TLSKeyFile:  cfg.TLS.KeyFile,
		Reflection:  cfg.GRPCReflection,
	})
	if err != nil {
		return err
	}

	// HTTP server (health checks and metrics).
	mux := http.NewServeMux()
	healthHandler := rest.NewHealthHandler(logger, pool)
	healthHandler.RegisterRoutes(mux, metricsHandler)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start servers.
	errCh := make(chan error, 3)

	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Commands arrive over Kafka only when a command topic is configured.
	if cfg.Kafka.CommandTopic != "" {
		commands := kafka.NewCommandHandler(applyUC, chargeUC, reprocessUC, logger)
		consumer, err := pkgkafka.NewConsumer(cfg.KafkaClient(), cfg.Kafka.CommandTopic, commands.Handle, logger)
		if err != nil {
			return fmt.Errorf("create command consumer: %w", err)
		}
		defer func() { _ = consumer.Close() }() //nolint:errcheck // leaves the group on exit

		go func() {
			if err := consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("command consumer error: %w", err)
			}
		}()
	}

	// Wait for shutdown signal.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server error", "error", runErr)
	}
	cancel()

	// Graceful shutdown.
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("loan-servicing stopped")
	return runErr
}
