// CLAUDE:SUMMARY CLI entry point for sigcor — correlation store server plus one-shot query/maintenance modes.
// Command sigcor operates the telemetry correlation store.
//
// Usage:
//
//	sigcor -config sigcor.yaml -serve :8087    # HTTP ingestion and query API
//	sigcor -db sigcor.db -slow-spans 500ms     # rank slow spans with their DOM sheets
//	sigcor -db sigcor.db -cluster corr-123     # dump one correlation cluster
//	sigcor -db sigcor.db -export corr-123      # gzip JSONL cluster export to stdout
//	sigcor -db sigcor.db -recompute            # rescore every stored DOM sheet
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/sigcor/sigstore"
)

func main() {
	configPath := flag.String("config", "", "path to sigcor.yaml config file")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	serveAddr := flag.String("serve", "", "listen address for the HTTP API, e.g. :8087")
	slowSpans := flag.Duration("slow-spans", 0, "print spans at least this slow, with correlated DOM sheets")
	slowLimit := flag.Int64("limit", 50, "result limit for -slow-spans")
	clusterID := flag.String("cluster", "", "print the full cluster for a correlation id")
	exportID := flag.String("export", "", "write a gzip JSONL cluster export to stdout")
	recompute := flag.Bool("recompute", false, "recompute every DOM sheet stability score and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath, *dbPath)
	if err != nil {
		logger.Error("sigcor: config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, logger, cfg, options{
		serveAddr: *serveAddr,
		slowSpans: *slowSpans,
		slowLimit: *slowLimit,
		clusterID: *clusterID,
		exportID:  *exportID,
		recompute: *recompute,
	}); err != nil {
		logger.Error("sigcor: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	serveAddr string
	slowSpans time.Duration
	slowLimit int64
	clusterID string
	exportID  string
	recompute bool
}

func loadConfig(configPath, dbPath string) (*sigstore.Config, error) {
	cfg := &sigstore.Config{}
	if configPath != "" {
		loaded, err := sigstore.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *sigstore.Config, opts options) error {
	store, err := sigstore.New(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case opts.serveAddr != "":
		return serve(ctx, logger, store, opts.serveAddr)
	case opts.slowSpans > 0:
		return printSlowSpans(ctx, store, opts.slowSpans, opts.slowLimit)
	case opts.clusterID != "":
		return printCluster(ctx, store, opts.clusterID)
	case opts.exportID != "":
		return store.ExportCluster(ctx, opts.exportID, os.Stdout)
	case opts.recompute:
		n, err := store.RecomputeDOMStabilityScores(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "rescored %d sheets\n", n)
		return nil
	}

	fmt.Fprintln(os.Stderr,
		"usage: sigcor [-config <file>] [-db <file>] -serve <addr> | -slow-spans <dur> | -cluster <id> | -export <id> | -recompute")
	os.Exit(1)
	return nil
}

func serve(ctx context.Context, logger *slog.Logger, store *sigstore.Store, addr string) error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	store.RegisterHTTP(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("sigcor: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("sigcor: shutting down")
	return srv.Shutdown(shutdownCtx)
}

func printSlowSpans(ctx context.Context, store *sigstore.Store, threshold time.Duration, limit int64) error {
	slow, err := store.FindSlowSpansWithDOM(ctx, threshold.Nanoseconds(), limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(slow)
}

func printCluster(ctx context.Context, store *sigstore.Store, correlationID string) error {
	cluster, err := store.LoadCluster(ctx, correlationID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cluster)
}
