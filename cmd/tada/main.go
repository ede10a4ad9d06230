// Command tada is a terminal client for a remote to-do list API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/cli"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/fakeapi"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/todoapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	// Root flags (apply to every subcommand)
	fs := flag.NewFlagSet("tada", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { cli.PrintHelp(os.Stderr) }
	cfg, err := config.Load(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cli.ExitOK
		}
		fmt.Fprintln(os.Stderr, "tada:", err)
		return cli.ExitUsage
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	log.SetDefault(logger)

	if cfg.Demo {
		endpoint, err := fakeapi.New(demoTodos(time.Now())...).Listen(ctx, "127.0.0.1:0")
		if err != nil {
			logger.Error("start demo api", "err", err)
			return cli.ExitFailure
		}
		logger.Debug("demo api", "endpoint", endpoint)
		cfg.Endpoint = endpoint
	}

	var metrics *todoapi.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = todoapi.NewMetrics(reg)
		stopMetrics := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer stopMetrics()
	}

	store, err := auth.DefaultStore()
	if err != nil {
		logger.Warn("credential store unavailable", "err", err)
	}

	return cli.Run(ctx, fs.Args(), cli.Options{
		Config:  cfg,
		Logger:  logger,
		Auth:    store,
		Metrics: metrics,
	})
}

// serveMetrics exposes reg on addr until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *log.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "addr", addr, "err", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func demoTodos(now time.Time) []model.Todo {
	due := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	return []model.Todo{
		{Description: "Bake a cake", Category: "Cooking", Priority: model.PriorityHigh,
			Tags: []string{"baking", "dessert"}, DueDate: due(24 * time.Hour)},
		{Description: "Feed the cat", Category: "Pets", Priority: model.PriorityMedium,
			Tags: []string{"pet care", "daily"}, DueDate: due(12 * time.Hour)},
		{Description: "Take out the trash", Category: "Household", Priority: model.PriorityLow,
			Tags: []string{"chores", "daily"}, DueDate: due(6 * time.Hour)},
		{Description: "Weekly team meeting", Category: "Work", Tags: []string{"meeting", "team"}},
		{Description: "Plan vacation", Category: "Personal", Tags: []string{"travel", "planning"},
			Comments: []model.Comment{{Content: "Book flights first"}}},
		{Description: "Renew passport", Category: "Personal", Priority: model.PriorityMedium,
			Completed: true},
	}
}
