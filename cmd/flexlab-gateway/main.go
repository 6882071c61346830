package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/speedwagon-io/flexlab/internal/config"
	"github.com/speedwagon-io/flexlab/internal/gateway"
	"github.com/speedwagon-io/flexlab/internal/health"
	"github.com/speedwagon-io/flexlab/internal/journal"
	"github.com/speedwagon-io/flexlab/internal/lib/logger/sl"
	"github.com/speedwagon-io/flexlab/internal/telemetry"
	"github.com/speedwagon-io/flexlab/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting flexlab gateway",
		slog.String("env", cfg.Env),
		slog.String("testbed", cfg.Testbed.Host),
		slog.String("host_key_policy", cfg.Testbed.HostKeyPolicy),
	)

	exec, err := transport.NewSSHExecutor(log, &cfg.Testbed)
	if err != nil {
		log.Error("failed to create ssh executor", sl.Err(err))
		os.Exit(1)
	}

	var (
		j        *journal.SQLiteJournal
		recorder telemetry.Recorder
		lister   gateway.ExchangeLister
	)
	if cfg.Journal.Enabled {
		j, err = journal.NewSQLiteJournal(log, cfg.Journal.Path)
		if err != nil {
			log.Error("failed to open journal", sl.Err(err))
			os.Exit(1)
		}
		recorder, lister = j, j
		log.Info("journal enabled", slog.String("path", cfg.Journal.Path))
	}

	svc := telemetry.NewService(log, exec, config.NewCredentialSource(cfg.Credentials), recorder)
	handler := gateway.NewHandler(log, svc, lister, cfg.Testbed.Timeout)

	server := health.NewServer(log, &cfg.HTTP)
	server.Mount("/api/v1", handler.Routes())

	testbedAddr := net.JoinHostPort(cfg.Testbed.Host, strconv.Itoa(cfg.Testbed.Port))
	server.AddChecker(health.NewFuncChecker("testbed", health.TestbedReachable(testbedAddr)))
	if j != nil {
		server.AddChecker(health.NewJournalHealthChecker(j.Count))
	}

	if err := server.Start(); err != nil {
		log.Error("failed to start http server", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if j != nil {
		go cleanupJournal(ctx, log, j, cfg.Journal.MaxAge)
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop http server", sl.Err(err))
	}

	if j != nil {
		if err := j.Close(); err != nil {
			log.Error("failed to close journal", sl.Err(err))
		}
	}

	log.Info("gateway stopped")
}

func cleanupJournal(ctx context.Context, log *slog.Logger, j journal.Journal, maxAge time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		if err := j.Cleanup(ctx, maxAge); err != nil {
			log.Error("failed to cleanup journal", sl.Err(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
