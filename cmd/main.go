// @title        Nurse Call Bridge API
// @version      1.0
// @description  Serial bridge between a nurse-call panel and the ward UI.
// @BasePath     /
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "nursecall_bridge/docs"
	"nursecall_bridge/internal/config"
	"nursecall_bridge/internal/device"
	"nursecall_bridge/internal/handlers"
	"nursecall_bridge/internal/logger"
	"nursecall_bridge/internal/mqtt"
	"nursecall_bridge/internal/repository"
	"nursecall_bridge/internal/repository/db"
	"nursecall_bridge/internal/server"
	"nursecall_bridge/internal/service"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables win.
	envErr := godotenv.Load()

	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)
	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warnw("failed to load .env", "err", envErr)
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqlDB, cfg.Store.Path, nil)

	var (
		sinks    []service.Publisher
		mqttConn service.ConnChecker
	)
	mqttSink := openMQTT(cfg.MQTT, log)
	if mqttSink != nil {
		sinks = append(sinks, mqttSink)
		mqttConn = mqttSink
	}

	mode := device.DefaultMode()
	mode.BaudRate = cfg.Serial.BaudRate
	mode.ReadTimeout = cfg.Serial.ReadTimeout

	services, bridge := service.NewService(repos, service.Deps{
		Opener: device.NewSerialOpener(mode),
		Sinks:  sinks,
		MQTT:   mqttConn,
		Bridge: service.BridgeConfig{
			OpenBackoff:      cfg.Serial.OpenBackoff,
			ReconnectBackoff: cfg.Serial.ReconnectBackoff,
			LineBuffering:    cfg.Serial.LineBuffering,
			CallWindow:       cfg.Debounce.CallWindow,
			ErrorWindow:      cfg.Debounce.ErrorWindow,
		},
		Log: log,
	})

	startBridge(bridge, cfg.Serial.Port, log)

	apiHandler := handlers.NewHandler(services, log)
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(srv, log)

	bridge.Close()
	if mqttSink != nil {
		if err := mqttSink.Close(); err != nil {
			log.Warnw("mqtt_close_failed", "err", err)
		}
	}
}

// openMQTT returns nil when MQTT is disabled or the broker is unreachable;
// the bridge runs without it in both cases.
func openMQTT(cfg config.MQTT, log *logger.Logger) *mqtt.Sink {
	if !cfg.Enabled {
		return nil
	}
	client, err := mqtt.NewRealClient(cfg.Broker, cfg.ClientID)
	if err != nil {
		log.Warnw("mqtt disabled", "err", err, "broker", cfg.Broker)
		return nil
	}
	log.Infow("mqtt connected", "broker", cfg.Broker, "prefix", cfg.TopicPrefix)
	return mqtt.NewSink(client, cfg.TopicPrefix, cfg.QoS, log.Named("mqtt"))
}

// startBridge connects to the configured port, or resumes the port the
// operator last connected to.
func startBridge(bridge *service.BridgeService, port string, log *logger.Logger) {
	ctx := context.Background()
	if port != "" {
		if err := bridge.Connect(ctx, port); err != nil {
			log.Errorw("bridge start failed", "err", err, "port", port)
		}
		return
	}
	resumed, err := bridge.Resume(ctx)
	switch {
	case err != nil:
		log.Warnw("bridge resume failed", "err", err)
	case resumed != "":
		log.Infow("bridge resumed", "port", resumed)
	default:
		log.Infow("no serial port configured; waiting for POST /api/v1/connect")
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	log.Infow("http server started", "addr", server.Addr(port))
}

// waitForShutdown blocks until SIGINT/SIGTERM, then drains the HTTP server.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
