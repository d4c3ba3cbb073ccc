package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart_irrigation/internal/clock"
	"smart_irrigation/internal/handlers"
	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/notifier"
	"smart_irrigation/internal/pump"
	"smart_irrigation/internal/repository"
	"smart_irrigation/internal/repository/db"
	"smart_irrigation/internal/sensors"
	"smart_irrigation/internal/server"
	"smart_irrigation/internal/service"

	"github.com/spf13/viper"
)

const defaultSensorTick = 5 * time.Second

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	// open DB
	conn, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(conn)
	notif := notifier.New()
	clk := clock.Real()
	driver := pump.NewSimulated(clk)

	services := service.NewService(service.Deps{
		Repos:      repos,
		Clock:      clk,
		Driver:     driver,
		Notifier:   notif,
		Logger:     log,
		Controller: controllerConfig(),
		Poller: sensors.NewSimulated(clk, func() bool {
			return driver.Running()
		}),
	})
	apiHandler := handlers.NewHandler(services, notif, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// optional MQTT bridge
	mqttSink := startMQTT(notif, log)

	// decision loop + sensor poller
	go services.Run(ctx, sensorInterval())

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, notif, mqttSink, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "irrigation.db")
		dbPath = "irrigation.db"
	}
	return db.InitDB(dbPath)
}

// controllerConfig reads the tuning knobs, falling back to the documented
// defaults for anything left unset.
func controllerConfig() service.ControllerConfig {
	cfg := service.DefaultControllerConfig()
	if v := viper.GetInt("controller.evaluation_interval_seconds"); v > 0 {
		cfg.EvalInterval = time.Duration(v) * time.Second
	}
	if v := viper.GetInt("controller.max_run_duration_seconds"); v > 0 {
		cfg.MaxRunDuration = time.Duration(v) * time.Second
	}
	if viper.IsSet("controller.cooldown_seconds") {
		cfg.Cooldown = time.Duration(viper.GetInt("controller.cooldown_seconds")) * time.Second
	}
	return cfg
}

func sensorInterval() time.Duration {
	if v := viper.GetInt("sensors.poll_interval_seconds"); v > 0 {
		return time.Duration(v) * time.Second
	}
	return defaultSensorTick
}

// startMQTT bridges notifier events onto an MQTT broker when one is
// configured. Returns nil when the bridge is disabled.
func startMQTT(notif *notifier.Notifier, log *logger.Logger) *notifier.MQTTSink {
	if !viper.GetBool("mqtt.enabled") {
		return nil
	}
	sink, err := notifier.NewMQTTSink(
		notif,
		viper.GetString("mqtt.broker"),
		viper.GetString("mqtt.client_id"),
		viper.GetString("mqtt.topic_prefix"),
		log,
	)
	if err != nil {
		// The controller works without the bridge; don't take the service down.
		log.Errorw("mqtt bridge unavailable", "err", err, "broker", viper.GetString("mqtt.broker"))
		return nil
	}
	log.Infow("mqtt bridge connected", "broker", viper.GetString("mqtt.broker"))
	return sink
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, notif *notifier.Notifier, mqttSink *notifier.MQTTSink, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the decision loop first so it can switch the pump off
	cancel()

	if mqttSink != nil {
		mqttSink.Close(notif)
	}
	notif.Close()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
