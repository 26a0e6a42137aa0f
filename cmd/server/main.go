// Command server runs the quality-management API: process lifecycle, issue and
// risk versioning, requirement fulfillment inference, objectives/KPIs, and
// leadership records, persisted through a pluggable record store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"qualis/internal/action"
	"qualis/internal/catalog"
	cataloghandler "qualis/internal/catalog/handler"
	"qualis/internal/fulfillment"
	fulfillmenthandler "qualis/internal/fulfillment/handler"
	httpapi "qualis/internal/http"
	issuehandler "qualis/internal/issue/handler"
	issueservice "qualis/internal/issue/service"
	"qualis/internal/leadership"
	"qualis/internal/objective"
	"qualis/internal/outbox"
	"qualis/internal/platform/config"
	"qualis/internal/platform/events"
	"qualis/internal/platform/httpserver"
	"qualis/internal/platform/logger"
	"qualis/internal/platform/metrics"
	platformredis "qualis/internal/platform/redis"
	processhandler "qualis/internal/process/handler"
	processservice "qualis/internal/process/service"
	"qualis/internal/records"
	"qualis/internal/sequence"
)

const standardID = "iso9001-2015"

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("record store init failed", "mode", cfg.StoreMode, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	counter, err := buildCounter(cfg)
	if err != nil {
		log.Error("sequence counter init failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	bus := events.NewBus()
	bus.Subscribe(func(e events.Event) {
		if e.Kind == events.KindWriteFailed {
			log.Error("record write failed permanently",
				"tenant", e.Tenant, "type", e.RecordType, "record_id", e.RecordID, "error", e.Err)
		}
	})

	ob := outbox.New(store, log, m, bus, cfg.OutboxInterval, cfg.OutboxAttempts)
	cat := catalog.MustLoad()

	processes := processservice.New(store, ob, counter, log, m, bus, cfg.SeedDemoData)
	issues := issueservice.New(store, ob, counter, processes, log, m, bus)
	actions := action.New(store, log)
	engine := fulfillment.New(cat, issues, actions, standardID)
	objectives := objective.New(store, ob, counter, log, bus)
	leaders := leadership.New(store, ob, log, bus)

	router := httpapi.NewRouter(httpapi.Deps{
		Process:     processhandler.New(processes, log),
		Issue:       issuehandler.New(issues, log),
		Fulfillment: fulfillmenthandler.New(engine, log),
		Catalog:     cataloghandler.New(cat),
		Objective:   objective.NewHandler(objectives, log),
		Leadership:  leadership.NewHandler(leaders, log),
		Outbox:      ob,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting qualis", "addr", cfg.Addr, "store_mode", cfg.StoreMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := ob.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Drain queued writes before the process exits.
		ob.Flush(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func buildStore(ctx context.Context, cfg config.Server) (records.Store, func(), error) {
	switch cfg.StoreMode {
	case config.StoreModePostgres:
		pg, err := records.NewPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case config.StoreModeRemote:
		return records.NewClient(cfg.RecordsBaseURL), func() {}, nil
	default:
		return records.NewInMemory(), func() {}, nil
	}
}

func buildCounter(cfg config.Server) (sequence.Counter, error) {
	client, err := platformredis.New(cfg.Redis())
	if err != nil {
		return nil, err
	}
	if client == nil {
		return sequence.NewMemory(), nil
	}
	return sequence.NewRedis(client), nil
}
