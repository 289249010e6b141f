package main

import (
	"context"
	"errors"
	"flag"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shimmeringbee/cda"
	"github.com/shimmeringbee/cda/api"
	"github.com/shimmeringbee/cda/config"
	"github.com/shimmeringbee/cda/httpapi"
	"github.com/shimmeringbee/cda/ingress"
	"github.com/shimmeringbee/cda/publisher"
	"github.com/shimmeringbee/cda/rules"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/golog"
	"github.com/shimmeringbee/persistence/impl/memory"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "cda.yaml", "path to the configuration file")
	flag.Parse()

	stdLogger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdLogger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, stdLogger); err != nil {
		stdLogger.Fatalf("Bridge failed: %v", err)
	}
}

func newLogger(cfg *config.Config, stdLogger *log.Logger) (logwrap.Logger, error) {
	impl, err := cfg.Logging.Wrap(golog.Wrap(stdLogger))
	if err != nil {
		return logwrap.Logger{}, err
	}

	return logwrap.New(impl), nil
}

func run(ctx context.Context, cfg *config.Config, stdLogger *log.Logger) error {
	logger, err := newLogger(cfg, stdLogger)
	if err != nil {
		return err
	}

	mode, err := cfg.ResolveMode()
	if err != nil {
		return err
	}

	body, err := api.ParseCommandBody(cfg.CommandBody)
	if err != nil {
		return err
	}

	client, err := api.New(cfg.BaseURL, cfg.AccessToken, body)
	if err != nil {
		return err
	}

	filter, err := rules.NewEngine(cfg.Rules())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bridge := cda.New(ctx, client, memory.New(), mode)
	bridge.WithLogWrapLogger(logger)
	bridge.WithMetrics(cda.NewMetrics(reg))
	bridge.WithFilter(filter)
	bridge.WithPollIntervals(cfg.PollInterval(), cfg.SensorPollInterval())

	restoreSnapshot(ctx, bridge, cfg.PersistencePath, logger)
	defer saveSnapshot(ctx, bridge, cfg.PersistencePath, logger)

	if cfg.MQTT.Broker != "" {
		m, err := publisher.Dial(ctx, cfg.MQTT.Broker, cfg.MQTT.ClientID, logger)
		if err != nil {
			return err
		}
		defer m.Close()

		publisher.New(m, publisher.Options{
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
			Retained:    cfg.MQTT.Retained,
		}, logger).Attach(bridge.Callbacks())
	}

	if err := bridge.Start(); err != nil {
		return err
	}
	defer bridge.Stop()

	if err := bridge.Discover(ctx, client, cfg.IgnoreDevices); err != nil {
		if api.IsAuthFailure(err) {
			return err
		}
		logger.LogWarn(ctx, "Discovery failed, continuing with saved devices.", logwrap.Err(err))
	}

	logger.LogInfo(ctx, "Bridge started.", logwrap.Datum("Mode", mode.String()), logwrap.Datum("Devices", len(bridge.Devices())))

	var servers []*http.Server

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/", httpapi.NewServer(bridge, reg, logger).Handler())

	switch mode {
	case cda.ModePushWebhook:
		webhook := ingress.NewWebhook(bridge.Router(), logger)

		if cfg.WebhookListen == cfg.APIListen {
			webhook.RegisterRoutes(r)
		} else {
			servers = append(servers, &http.Server{Addr: cfg.WebhookListen, Handler: webhook.Handler()})
		}
	case cda.ModePushSubscription:
		sub, err := ingress.NewSubscription(cfg.RelayURL, cfg.WebhookToken, deviceIDs(bridge), bridge.Router(), logger)
		if err != nil {
			return err
		}
		sub.WithRetryInterval(cfg.RetryInterval())

		go sub.Run(ctx)
	}

	if cfg.APIListen != "" {
		servers = append(servers, &http.Server{Addr: cfg.APIListen, Handler: r})
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.LogInfo(ctx, "HTTP server listening.", logwrap.Datum("Addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.LogError(ctx, "HTTP server failed.", logwrap.Datum("Addr", srv.Addr), logwrap.Err(err))
			}
		}(srv)
	}

	go drainEvents(ctx, bridge, logger)

	<-ctx.Done()

	logger.LogInfo(context.Background(), "Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogWarn(shutdownCtx, "HTTP server forced to shutdown.", logwrap.Datum("Addr", srv.Addr), logwrap.Err(err))
		}
	}

	return nil
}

func deviceIDs(b *cda.Bridge) func() []string {
	return func() []string {
		var ids []string
		for _, d := range b.Devices() {
			ids = append(ids, d.ID)
		}
		return ids
	}
}

// drainEvents logs bridge events, keeping the event channel from filling.
func drainEvents(ctx context.Context, b *cda.Bridge, logger logwrap.Logger) {
	for {
		e, err := b.ReadEvent(ctx)
		if err != nil {
			return
		}

		switch e := e.(type) {
		case cda.DeviceAdded:
			logger.LogInfo(ctx, "Device added.", logwrap.Datum("DeviceID", e.Device.ID), logwrap.Datum("Description", e.Device.Description()))
		case cda.DeviceOnlineChanged:
			logger.LogInfo(ctx, "Device availability changed.", logwrap.Datum("DeviceID", e.Device.ID), logwrap.Datum("Online", e.Online))
		case cda.CharacteristicUpdate:
			logger.LogDebug(ctx, "Characteristic updated.", logwrap.Datum("DeviceID", e.Device.ID), logwrap.Datum("Characteristic", e.Characteristic), logwrap.Datum("Value", e.Value))
		}
	}
}

func restoreSnapshot(ctx context.Context, b *cda.Bridge, path string, logger logwrap.Logger) {
	if path == "" {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.LogWarn(ctx, "Failed to open device snapshot.", logwrap.Datum("Path", path), logwrap.Err(err))
		}
		return
	}
	defer f.Close()

	if err := b.ReadSnapshot(f); err != nil {
		logger.LogWarn(ctx, "Failed to read device snapshot.", logwrap.Datum("Path", path), logwrap.Err(err))
	}
}

func saveSnapshot(ctx context.Context, b *cda.Bridge, path string, logger logwrap.Logger) {
	if path == "" {
		return
	}

	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		logger.LogWarn(ctx, "Failed to create device snapshot.", logwrap.Datum("Path", path), logwrap.Err(err))
		return
	}

	if err := b.WriteSnapshot(f); err != nil {
		f.Close()
		logger.LogWarn(ctx, "Failed to write device snapshot.", logwrap.Datum("Path", path), logwrap.Err(err))
		return
	}

	if err := f.Close(); err != nil {
		logger.LogWarn(ctx, "Failed to write device snapshot.", logwrap.Datum("Path", path), logwrap.Err(err))
		return
	}

	if err := os.Rename(tmp, path); err != nil {
		logger.LogWarn(ctx, "Failed to replace device snapshot.", logwrap.Datum("Path", path), logwrap.Err(err))
	}
}
