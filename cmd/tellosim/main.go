package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/tellofleet/sim/internal/cache"
	"github.com/tellofleet/sim/internal/channel"
	"github.com/tellofleet/sim/internal/config"
	"github.com/tellofleet/sim/internal/coordinator"
	"github.com/tellofleet/sim/internal/dispatcher"
	"github.com/tellofleet/sim/internal/fleet"
	"github.com/tellofleet/sim/internal/geo"
	"github.com/tellofleet/sim/internal/influx"
	"github.com/tellofleet/sim/internal/logging"
	"github.com/tellofleet/sim/internal/mission"
	"github.com/tellofleet/sim/internal/monitor"
	intOtel "github.com/tellofleet/sim/internal/otel"
	"github.com/tellofleet/sim/internal/transport"
	"github.com/tellofleet/sim/internal/worker"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

// session state
var (
	SessionStartTime time.Time = time.Now()

	SessionLogPath string
	SessionLogFile *os.File

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// Services
	fleetManager    *fleet.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
	publisher       *worker.Publisher
	broadcaster     *transport.Broadcaster
	influxManager   *influx.Manager
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("tellosim %s (built %s)\n", Version, BuildDate)
		return
	}

	// Bootstrap logging to stdout until the session log file exists.
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}
	applyFlagOverrides()

	if cerr := config.Validate(); cerr != nil {
		Logger.Error("Invalid configuration", "field", cerr.Field, "reason", cerr.Reason)
		os.Exit(1)
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.MkdirAll(logsDir, 0755)
	}

	SessionLogPath = logging.LogFilePath(logsDir, "tellosim", SessionStartTime)
	if _, err := os.Stat(SessionLogPath); err == nil {
		os.Rename(SessionLogPath, SessionLogPath+".old")
	}
	var err error
	SessionLogFile, err = os.OpenFile(SessionLogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", SessionLogPath)
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    SessionLogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			Logger.Info("OTel provider initialized", "file", SessionLogPath, "endpoint", otelCfg.Endpoint)
		} else {
			Logger.Info("OTel provider initialized", "file", SessionLogPath)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	level := viper.GetString("logLevel")

	var extras []slog.Handler
	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		gelfHandler, gerr := logging.NewGELFHandler(graylogCfg.Address, logging.ParseLevel(level))
		if gerr != nil {
			Logger.Error("Failed to attach GELF handler", "error", gerr, "address", graylogCfg.Address)
		} else {
			extras = append(extras, gelfHandler)
			Logger.Info("GELF handler attached", "address", graylogCfg.Address)
		}
	}

	// Re-setup logging with file output, optional OTel and optional GELF
	var logSink io.Writer
	if SessionLogFile != nil {
		logSink = SessionLogFile
	}
	SlogManager.Setup(logSink, level, otelLogProvider, extras...)

	// Every record carries the live device count once the fleet is up.
	SlogManager.AttachContext(func() []slog.Attr {
		if fleetManager == nil {
			return nil
		}
		return []slog.Attr{slog.Int("devices", fleetManager.Count())}
	})
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", SessionLogPath)

	numCPUs := runtime.NumCPU()
	Logger.Debug("Number of CPUs", "numCPUs", numCPUs)
	runtime.GOMAXPROCS(int(math.Max(float64(numCPUs-2), 1)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		Logger.Error("Fatal error", "error", err)
		shutdownLogging()
		os.Exit(1)
	}
	shutdownLogging()
}

// run assembles the simulator and blocks until the context is cancelled
// by a signal.
func run(ctx context.Context) error {
	fleetCfg := config.GetFleetConfig()
	simCfg := config.GetSimConfig()

	anchor, err := geo.NewAnchor(simCfg.OriginLat, simCfg.OriginLon)
	if err != nil {
		return fmt.Errorf("scene origin: %w", err)
	}

	pads, err := config.GetPads()
	if err != nil {
		return fmt.Errorf("pad layout: %w", err)
	}

	store := cache.NewSnapshotStore()
	book := cache.NewAddrBook()

	// Coordinator backend, dispatcher and the state publisher
	backend, err := coordinator.NewBackend(config.GetCoordinatorConfig())
	if err != nil {
		return fmt.Errorf("coordinator backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		Logger.Warn("Coordinator backend init failed, continuing", "error", err)
	}
	defer backend.Close()

	go checkCoordinatorStatus(backend)

	zl := zerolog.New(SessionLogFile).With().Timestamp().Logger()
	dispatchLogger := logging.NewDispatcherLogger(zl)
	eventDispatcher, err = dispatcher.New(dispatchLogger)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}

	publisher = worker.NewPublisher(store, backend, Logger)
	publisher.RegisterHandlers(eventDispatcher)
	go publisher.Run(ctx)

	// Influx metrics pipeline (optional)
	var metrics channel.Sender[influx.Envelope]
	influxDone := make(chan struct{})
	if config.GetInfluxConfig().Enabled {
		backupPath := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("influx_backup_%s.lp.gz", SessionStartTime.Format("20060102_150405")))
		influxManager = influx.NewManager(zl, backupPath)
		if err := influxManager.Connect(); err != nil {
			Logger.Error("Influx connect failed", "error", err)
			influxManager = nil
			close(influxDone)
		} else {
			go func() {
				influxManager.Run(ctx)
				close(influxDone)
			}()
			metrics = influxManager.Sender()
		}
	} else {
		close(influxDone)
	}

	// Fleet
	fleetManager = fleet.New(fleet.Config{
		BasePort:      fleetCfg.BasePort,
		MaxDevices:    fleetCfg.MaxDevices,
		PublishRateHz: fleetCfg.PublishRateHz,
	}, fleet.Dependencies{
		Sim:            simCfg,
		Pads:           mission.NewLayout(pads),
		Anchor:         anchor,
		Store:          store,
		Book:           book,
		Dispatcher:     eventDispatcher,
		Logger:         Logger,
		DispatchLogger: dispatchLogger,
	})

	if fleetCfg.Count > 0 {
		ids, err := fleetManager.CreateMany(ctx, fleetCfg.Prefix, fleetCfg.Count)
		if err != nil {
			return fmt.Errorf("fleet bring-up: %w", err)
		}
		Logger.Info("Fleet up", "devices", ids, "basePort", fleetCfg.BasePort)
	}

	fleetDone := make(chan struct{})
	go func() {
		fleetManager.Run(ctx)
		close(fleetDone)
	}()

	// State broadcaster on the shared state port
	broadcaster, err = transport.NewBroadcaster(store, book, fleetCfg.StatePort, fleetCfg.PublishRateHz, Logger)
	if err != nil {
		return fmt.Errorf("state broadcaster: %w", err)
	}
	go broadcaster.Run(ctx)

	// Status monitor
	monitorService = monitor.NewService(monitor.Dependencies{
		Fleet:       fleetManager,
		Store:       store,
		Publisher:   publisher,
		Broadcaster: broadcaster,
		Metrics:     metrics,
		Bounds:      simCfg.Bounds,
		SessionDir:  viper.GetString("logsDir"),
		Logger:      Logger,
	})
	monitorService.Start()

	Logger.Info("tellosim up",
		"version", Version,
		"devices", fleetCfg.Count,
		"commandPorts", fmt.Sprintf("%d-%d", fleetCfg.BasePort, fleetCfg.BasePort+fleetCfg.MaxDevices-1),
		"statePort", fleetCfg.StatePort,
		"coordinator", config.GetCoordinatorConfig().Type,
	)

	<-ctx.Done()
	Logger.Info("Shutting down...")

	monitorService.Stop()
	<-fleetDone
	<-influxDone
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Error("Influx close failed", "error", err)
		}
	}
	return nil
}

// checkCoordinatorStatus probes the coordinator once at startup so the
// session log records whether anyone is receiving fleet state.
func checkCoordinatorStatus(backend coordinator.Backend) {
	hc, ok := backend.(coordinator.HealthChecker)
	if !ok {
		return
	}
	if err := hc.Healthcheck(); err != nil {
		Logger.Info("Fleet coordinator is offline", "error", err)
	} else {
		Logger.Info("Fleet coordinator is online")
	}
}

// shutdownLogging flushes buffered log exports and closes the session
// log file.
func shutdownLogging() {
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(flushCtx); err != nil {
		Logger.Error("Log flush failed", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(flushCtx); err != nil {
			Logger.Error("OTel shutdown failed", "error", err)
		}
	}
	if SessionLogFile != nil {
		SessionLogFile.Close()
	}
}
