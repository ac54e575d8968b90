package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	appInventory "github.com/workboxhq/workbox/internal/application/inventory"
	appOrder "github.com/workboxhq/workbox/internal/application/order"
	apptx "github.com/workboxhq/workbox/internal/application/tx"
	appUser "github.com/workboxhq/workbox/internal/application/user"
	"github.com/workboxhq/workbox/internal/config"
	dominv "github.com/workboxhq/workbox/internal/domain/inventory"
	domorder "github.com/workboxhq/workbox/internal/domain/order"
	domuser "github.com/workboxhq/workbox/internal/domain/user"
	"github.com/workboxhq/workbox/internal/infrastructure/amqp"
	"github.com/workboxhq/workbox/internal/infrastructure/id"
	"github.com/workboxhq/workbox/internal/infrastructure/memory"
	"github.com/workboxhq/workbox/internal/infrastructure/observability/oteltrace"
	"github.com/workboxhq/workbox/internal/infrastructure/observability/prometrics"
	"github.com/workboxhq/workbox/internal/infrastructure/observability/telemetry"
	"github.com/workboxhq/workbox/internal/infrastructure/observability/zaplogger"
	"github.com/workboxhq/workbox/internal/infrastructure/outbox"
	"github.com/workboxhq/workbox/internal/infrastructure/postgres"
	"github.com/workboxhq/workbox/internal/infrastructure/rediscache"
	wstransport "github.com/workboxhq/workbox/internal/infrastructure/websocket"
	"github.com/workboxhq/workbox/internal/observability"
	httppresentation "github.com/workboxhq/workbox/internal/presentation/http"
	"github.com/workboxhq/workbox/internal/realtime"
)

func main() {
	cfg := config.Load()

	baseLogger := zaplogger.New(
		zaplogger.Options{Level: cfg.LogLevel, FilePath: cfg.LogFile},
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	defer func() {
		if s, ok := baseLogger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	tel := telemetry.New(oteltrace.New(cfg.ServiceName), baseLogger, buildInstruments(cfg.ServiceName))
	systemLogger := tel.Logger().With(observability.F("component", "main"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when a DSN is configured, in-memory otherwise.
	var (
		inventoryRepo dominv.Repository
		orderRepo     domorder.Repository
		userRepo      domuser.Repository
		uow           apptx.UnitOfWork
		storePinger   httppresentation.Pinger
	)
	if cfg.PostgresDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			systemLogger.Error("postgres_connect_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()

		inventoryRepo = postgres.NewInventoryRepository(store)
		orderRepo = postgres.NewOrderRepository(store)
		userRepo = postgres.NewUserRepository(store)
		uow = postgres.NewUnitOfWork(store)
		storePinger = store
		systemLogger.Info("store_selected", observability.F("store", "postgres"))
	} else {
		memInventory := memory.NewInventoryRepository()
		memOrders := memory.NewOrderRepository()
		inventoryRepo = memInventory
		orderRepo = memOrders
		userRepo = memory.NewUserRepository()
		uow = memory.NewUnitOfWork(memInventory, memOrders)
		systemLogger.Info("store_selected", observability.F("store", "memory"))
	}

	// In-memory event bus: single dispatch loop keeps post-commit ordering.
	bus := outbox.NewBus(tel)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	hub := realtime.NewHub(tel)
	bus.Subscribe("inventory_update", hub.HandleEvent)
	bus.Subscribe("order_placed", hub.HandleEvent)

	if cfg.RedisAddr != "" {
		cache, err := rediscache.New(ctx, cfg.RedisAddr, cfg.CacheTTL, tel)
		if err != nil {
			systemLogger.Error("redis_connect_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = cache.Close() }()

		inventoryRepo = rediscache.NewInventoryRepository(inventoryRepo, cache)
		bus.Subscribe("inventory_update", cache.HandleEvent)
		systemLogger.Info("inventory_cache_enabled", observability.F("ttl", cfg.CacheTTL.String()))
	}

	if cfg.RabbitURL != "" {
		mirror, err := amqp.NewPublisher(cfg.RabbitURL, cfg.EventQueue, tel)
		if err != nil {
			systemLogger.Error("rabbitmq_connect_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		defer mirror.Close()

		bus.Subscribe("inventory_update", mirror.HandleEvent)
		bus.Subscribe("order_placed", mirror.HandleEvent)
		systemLogger.Info("event_mirror_enabled", observability.F("queue", cfg.EventQueue))
	}

	idGenerator := id.NewUUIDGenerator()
	orderService := appOrder.NewService(userRepo, orderRepo, uow, idGenerator, bus, tel)
	inventoryService := appInventory.NewService(inventoryRepo, uow, idGenerator, bus, tel)
	userService := appUser.NewService(userRepo, idGenerator)

	wsHandler := wstransport.NewHandler(hub, idGenerator, tel)
	handler := httppresentation.NewHandler(orderService, inventoryService, userService, storePinger, wsHandler, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		systemLogger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", observability.F("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

func buildInstruments(namespace string) telemetry.Instruments {
	reg := prometrics.New(namespace, "")

	return telemetry.Instruments{
		Counters: map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests: reg.Counter(
				string(observability.MUsecaseRequests),
				"Total number of use case invocations.",
				"use_case", "outcome",
			),
			observability.MHTTPRequests: reg.Counter(
				string(observability.MHTTPRequests),
				"Total number of HTTP requests.",
				"method", "route", "status",
			),
			observability.MEventsPublished: reg.Counter(
				string(observability.MEventsPublished),
				"Count of domain events accepted by the bus.",
				"event",
			),
			observability.MBroadcastDeliveries: reg.Counter(
				string(observability.MBroadcastDeliveries),
				"Count of per-observer broadcast delivery attempts.",
				"outcome",
			),
		},
		Histograms: map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration: reg.Histogram(
				string(observability.MUsecaseDuration),
				"Duration of use case execution in seconds.",
				nil,
				"use_case",
			),
			observability.MHTTPRequestDuration: reg.Histogram(
				string(observability.MHTTPRequestDuration),
				"Duration of HTTP request handling in seconds.",
				nil,
				"method", "route", "status",
			),
		},
		Gauges: map[observability.MetricKey]observability.Gauge{
			observability.MObserversConnected: reg.Gauge(
				string(observability.MObserversConnected),
				"Number of connected broadcast observers.",
			),
		},
	}
}
