package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tinoosan/bank/internal/config"
	"github.com/tinoosan/bank/internal/events"
	httpapi "github.com/tinoosan/bank/internal/httpapi/v1"
	"github.com/tinoosan/bank/internal/ledger"
	"github.com/tinoosan/bank/internal/meta"
	"github.com/tinoosan/bank/internal/scheduler"
	"github.com/tinoosan/bank/internal/service/account"
	"github.com/tinoosan/bank/internal/service/journal"
	"github.com/tinoosan/bank/internal/service/registry"
	"github.com/tinoosan/bank/internal/storage/memory"
	pgstore "github.com/tinoosan/bank/internal/storage/postgres"
	"github.com/tinoosan/bank/pkg/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := events.NewMetrics(promReg)

	store := memory.New(cfg.AccountNumberStart)
	ready := []httpapi.ReadyChecker{store}
	sink := events.NewFanout(logger, metrics)
	var closers []func()

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closers = append(closers, pg.Close)
		sink.Add(pg)
		ready = append(ready, pg)
		logger.Info("audit sink: postgres")
	}

	if url := strings.TrimSpace(cfg.RabbitMQURL); url != "" {
		var pub events.Publisher
		producer, err := rabbitmq.NewProducer(url, cfg.EventsExchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable; events will not be broadcast", "err", err)
			pub = &rabbitmq.Fallback{Logger: logger}
		} else {
			closers = append(closers, producer.Close)
			pub = producer
		}
		sink.Add(events.NewBroker(pub))
	}

	reg, err := registry.New(store, store, registry.Options{
		Name:     cfg.BankName,
		Currency: cfg.Currency,
		Defaults: meta.Metadata{
			meta.KeyOverdraftLimit: cfg.DefaultOverdraftLimit,
			meta.KeyInterestRate:   cfg.DefaultInterestRate,
		},
		Sink:    sink,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("invalid registry configuration", "err", err)
		os.Exit(1)
	}
	accounts := account.New(store, reg, account.Options{Bank: cfg.BankName, Sink: sink, Metrics: metrics, Logger: logger})
	jrn := journal.New(store)

	if cfg.DevSeed {
		if err := devSeed(ctx, reg, logger); err != nil {
			logger.Error("dev seed failed", "err", err)
		}
	}

	sched := scheduler.New(accounts, jrn, logger, scheduler.Config{
		InterestSchedule:  cfg.InterestSchedule,
		ReconcileSchedule: cfg.ReconcileSchedule,
	})
	if err := sched.Start(); err != nil {
		logger.Error("invalid schedule", "err", err)
		os.Exit(1)
	}

	api, err := httpapi.New(httpapi.Options{
		Registry: reg,
		Accounts: accounts,
		Journal:  jrn,
		Session: httpapi.SessionConfig{
			Secret: []byte(cfg.SessionSecret),
			TTL:    cfg.SessionTTL,
			Issuer: cfg.SessionIssuer,
		},
		Ready:          ready,
		Logger:         logger,
		Metrics:        promReg,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Error("failed to build http api", "err", err)
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bank service listening", "addr", srv.Addr, "bank", cfg.BankName, "currency", cfg.Currency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	<-sched.Stop().Done()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// devSeed onboards a demo customer with a checking account so the API can be
// tried without any setup.
func devSeed(ctx context.Context, reg registry.Service, l *slog.Logger) error {
	salary, err := ledger.FromMinor(reg.Currency(), 5000000)
	if err != nil {
		return err
	}
	opening, err := ledger.FromMinor(reg.Currency(), 10000)
	if err != nil {
		return err
	}
	c, acc, err := reg.Onboard(ctx,
		registry.NewCustomer{Name: "Asha", Age: 30, Salary: salary},
		registry.OpenAccount{Variant: string(ledger.VariantChecking), Credential: "1234", Opening: opening},
	)
	if err != nil {
		return err
	}
	l.Info("DEV seed", "customer_id", c.ID.String(), "account", acc.Number(), "variant", string(acc.Variant()))
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("customer_id: %s\n", c.ID.String())
	fmt.Printf("name: %s  pin: %s  account: %s (%s)\n", c.Name, acc.Credential(), acc.Number(), acc.Variant().Label())
	fmt.Println("==================================================")
	return nil
}

// parseLogLevel maps config values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
