package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/thefirstspine/matches-sub001/internal/broadcast"
	"github.com/thefirstspine/matches-sub001/internal/catalog"
	"github.com/thefirstspine/matches-sub001/internal/config"
	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/game/actions"
	"github.com/thefirstspine/matches-sub001/internal/game/events"
	"github.com/thefirstspine/matches-sub001/internal/game/flow"
	"github.com/thefirstspine/matches-sub001/internal/match"
	"github.com/thefirstspine/matches-sub001/internal/scheduler"
	"github.com/thefirstspine/matches-sub001/internal/storage"
	"github.com/thefirstspine/matches-sub001/internal/storage/postgres"
	"github.com/thefirstspine/matches-sub001/internal/storage/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	createType = flag.String("create", "", "game type of a match to create at startup")
	players    = flag.String("players", "", "seats of the created match, as user:deck,user:deck")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting match server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("match server failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("match server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, pgStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	cat, err := openCatalog(cfg.Catalog, pgStore)
	if err != nil {
		return err
	}
	if id := cfg.Game.ProtectedCard; id != "" {
		if _, err := cat.Card(ctx, id); err != nil {
			return fmt.Errorf("protected card: %w", err)
		}
	}

	dispatcher := events.NewDispatcher("game", logger)
	hooks := events.NewDispatcher("hooks", logger)
	reg := actions.NewRegistry(dispatcher, logger, actions.WithSettings(actions.Settings{
		HandSize:          cfg.Game.HandSize,
		ProtectedCardID:   cfg.Game.ProtectedCard,
		TurnDuration:      cfg.Game.TurnDuration,
		ConfrontsLookback: cfg.Game.ConfrontsLookback,
	}))
	actions.RegisterDefaults(reg)
	flow.New(reg, logger).Register()
	flow.RegisterHooks(hooks)
	logger.Info("action registry initialized", zap.Strings("action_types", reg.Types()))

	g, ctx := errgroup.WithContext(ctx)

	var broadcaster broadcast.Broadcaster
	switch cfg.Broadcast.Driver {
	case "nats":
		nc, err := broadcast.ConnectNATS(cfg.Broadcast.NATSURL, "matches-server", logger)
		if err != nil {
			return err
		}
		broadcaster = nc
	case "websocket":
		hub := broadcast.NewHub(logger)
		g.Go(func() error {
			return hub.ListenAndServe(ctx, cfg.Broadcast.WebSocketAddress)
		})
		broadcaster = hub
	default:
		broadcaster = broadcast.NewLog(logger)
	}
	defer broadcaster.Close()

	sched := scheduler.New(reg, store, logger,
		scheduler.WithBroadcaster(broadcaster),
		scheduler.WithArchiver(game.NewArchiver(logger, cfg.Scheduler.ArchiveDir)),
	)
	manager := match.NewManager(cat, store, sched, reg, hooks, logger)
	if *createType != "" {
		participants, err := parsePlayers(*players)
		if err != nil {
			return err
		}
		inst, err := manager.Create(ctx, *createType, participants)
		if err != nil {
			return err
		}
		logger.Info("match created", zap.Int64("instance_id", inst.ID))
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.Server.HealthAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.HealthAddress, err)
	}
	g.Go(func() error {
		logger.Info("starting gRPC health server", zap.String("address", cfg.Server.HealthAddress))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return sched.Run(ctx, cfg.Scheduler.TickInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down gracefully...")
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}

// openStore returns the configured store. The postgres store is returned a
// second time so the catalog can share its pool.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Store, *postgres.Store, error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.Path))
		return store, nil, nil
	default:
		logger.Warn("using in-memory store, instances are lost on restart")
		return storage.NewMemory(), nil, nil
	}
}

func openCatalog(cfg config.CatalogConfig, pg *postgres.Store) (catalog.Catalog, error) {
	if cfg.Source == "postgres" {
		if pg == nil {
			return nil, fmt.Errorf("postgres catalog requires the postgres store")
		}
		return catalog.NewPostgres(pg.Pool()), nil
	}
	return catalog.LoadFile(cfg.Path)
}

// parsePlayers reads "user:deck,user:deck" in seat order.
func parsePlayers(value string) ([]match.Participant, error) {
	var out []match.Participant
	for _, part := range strings.Split(value, ",") {
		user, deck, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || user == "" || deck == "" {
			return nil, fmt.Errorf("invalid player %q, want user:deck", part)
		}
		out = append(out, match.Participant{User: user, DeckID: deck})
	}
	return out, nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
