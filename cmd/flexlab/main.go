package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/speedwagon-io/flexlab/internal/config"
	"github.com/speedwagon-io/flexlab/internal/journal"
	"github.com/speedwagon-io/flexlab/internal/lib/logger/sl"
	"github.com/speedwagon-io/flexlab/internal/model"
	"github.com/speedwagon-io/flexlab/internal/telemetry"
	"github.com/speedwagon-io/flexlab/internal/transport"
)

type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var writes, reads listFlag

	configPath := flag.String("config", "", "path to config file")
	user := flag.String("user", config.UserPlaceholder, "username (default: credentials file, then OS user)")
	password := flag.String("password", "", "password (default: credentials file, then private key)")
	verbose := flag.Bool("v", false, "print every exchange as JSON")
	flag.Var(&writes, "write", "channel=value to write; repeatable, written in order")
	flag.Var(&reads, "read", "channel to read; repeatable, read in order")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	req, err := buildRequest(*user, *password, writes, reads)
	if err != nil {
		log.Error("invalid arguments", sl.Err(err))
		os.Exit(2)
	}

	exec, err := transport.NewSSHExecutor(log, &cfg.Testbed)
	if err != nil {
		log.Error("failed to create ssh executor", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, log, cfg, exec, req, os.Stdout, *verbose); err != nil {
		log.Error("exchange failed", slog.String("host", cfg.Testbed.Host), sl.Err(err))
		cancel()
		os.Exit(1)
	}
}

// run executes req and prints the read values to out.
func run(ctx context.Context, log *slog.Logger, cfg *config.Config, exec transport.Executor, req model.BatchRequest, out io.Writer, verbose bool) error {
	var recorder telemetry.Recorder
	if cfg.Journal.Enabled {
		j, err := journal.NewSQLiteJournal(log, cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer j.Close()
		recorder = j
	}

	svc := telemetry.NewService(log, exec, config.NewCredentialSource(cfg.Credentials), recorder)

	res, err := svc.Batch(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if verbose {
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	}
	return enc.Encode(res.Values())
}

// buildRequest turns "channel=value" pairs and read channels into a batch.
func buildRequest(user, password string, writes, reads []string) (model.BatchRequest, error) {
	req := model.BatchRequest{
		Write: []string{user, password},
		Read:  reads,
	}

	values := make([]float64, 0, len(writes))
	for _, w := range writes {
		i := strings.LastIndex(w, "=")
		if i <= 0 {
			return req, fmt.Errorf("write %q must be channel=value", w)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(w[i+1:]), 64)
		if err != nil {
			return req, fmt.Errorf("write %q: invalid value: %w", w, err)
		}
		req.Write = append(req.Write, w[:i])
		values = append(values, v)
	}
	req.Values = model.Vector(values...)

	return req, nil
}
