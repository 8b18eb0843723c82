package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cardea-gate/cardea/internal/cardea/service"
	"github.com/cardea-gate/cardea/internal/cardea/store"
	"github.com/cardea-gate/cardea/internal/cardea/store/fs"
	storesqlite "github.com/cardea-gate/cardea/internal/cardea/store/sqlite"
	"github.com/cardea-gate/cardea/internal/config"
	"github.com/cardea-gate/cardea/internal/db"
	"github.com/cardea-gate/cardea/internal/rpi"
	"github.com/cardea-gate/cardea/internal/scanner"
	"github.com/cardea-gate/cardea/internal/tcpapi"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Marker store (the validation record shared with the authority).
	markers := fs.NewMarkerStore(cfg.BaseDir, logger)
	if err := markers.EnsureRoot(); err != nil {
		logger.Fatal("store root unavailable", zap.Error(err))
	}

	// Audit log. The gate must keep operating without it.
	var events store.EventStore
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		logger.Warn("audit database unavailable, decisions will not be recorded", zap.Error(err))
	} else {
		writer := db.NewWriter(sqlDB)
		defer func() {
			writer.Close()
			_ = sqlDB.Close()
		}()
		events = storesqlite.NewEventStore(sqlDB, writer)
	}

	engine := service.NewEngine(markers, events, cfg.YearMin, cfg.YearMax, logger)

	// Authority role: expose the shared engine over TCP.
	if cfg.Authority {
		srv := tcpapi.NewServer(tcpapi.Dependencies{
			Logger:   logger,
			Addr:     cfg.ListenAddr,
			Engine:   engine,
			Markers:  markers,
			WipeKeep: cfg.WipeKeep,
		})
		go func() {
			logger.Info("authority listening", zap.String("addr", cfg.ListenAddr))
			if err := srv.Start(); err != nil {
				logger.Error("authority server error", zap.Error(err))
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Scanner reader goroutine.
	ids, err := scanner.ParseDeviceIDs(cfg.ScannerIDs)
	if err != nil {
		logger.Fatal("bad scanner ids", zap.Error(err))
	}
	queue := scanner.NewQueue()
	reader := scanner.NewReader(func() (scanner.InputDevice, error) {
		return scanner.OpenHidraw(ids)
	}, queue, logger)
	go reader.Run(ctx)

	// Physical collaborators; run headless when the hardware is missing.
	var gate service.Gate
	if g, err := rpi.NewGate(cfg.GatePin, logger); err != nil {
		logger.Warn("gate line unavailable", zap.Int("pin", cfg.GatePin), zap.Error(err))
		gate = rpi.NopGate{}
	} else {
		defer g.Close()
		gate = g
	}

	var button service.OverrideInput
	if b, err := rpi.NewButton(cfg.ButtonPin, logger); err != nil {
		logger.Warn("override button unavailable", zap.Int("pin", cfg.ButtonPin), zap.Error(err))
		button = rpi.NopButton{}
	} else {
		defer b.Close()
		button = b
	}

	orch := service.NewOrchestrator(service.OrchestratorConfig{
		Scans:       queue,
		Resolver:    tcpapi.NewClient(cfg.AuthorityAddr, engine, logger),
		Engine:      engine,
		Override:    button,
		Gate:        gate,
		Sounder:     rpi.NewPlayer(cfg.SoundPath, logger),
		Logger:      logger,
		WipeKeep:    cfg.WipeKeep,
		IsAuthority: cfg.Authority,
	})

	logger.Info("gate node started", zap.Bool("authority", cfg.Authority))
	orch.Run(ctx)
	logger.Info("shutting down")
}
