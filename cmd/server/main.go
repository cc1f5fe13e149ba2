// Command nk-server starts the notekeeper gRPC server.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	pb "github.com/and161185/notekeeper/api/notekeeper/v1"
	"github.com/and161185/notekeeper/internal/activity"
	"github.com/and161185/notekeeper/internal/cache"
	"github.com/and161185/notekeeper/internal/config"
	"github.com/and161185/notekeeper/internal/enrich"
	"github.com/and161185/notekeeper/internal/limiter"
	"github.com/and161185/notekeeper/internal/migrate"
	"github.com/and161185/notekeeper/internal/repository/postgres"
	"github.com/and161185/notekeeper/internal/search"
	grpcserver "github.com/and161185/notekeeper/internal/server/grpc"
	"github.com/and161185/notekeeper/internal/service"
	"github.com/and161185/notekeeper/internal/workerpool"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func openIndex(path string) (*search.Bleve, error) {
	if path == "" {
		return search.NewMemory()
	}
	return search.Open(path)
}

// main loads configuration, runs migrations, wires the stores and starts the gRPC server.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.Migrate {
		if err := migrate.Up(ctx, cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
	}

	// Record store
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	// Cache; an unreachable Redis degrades reads to the record store.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, serving without cache", zap.Error(err))
	}

	idx, err := openIndex(cfg.Search.Path)
	if err != nil {
		logger.Fatal("search index", zap.Error(err))
	}
	defer func() { _ = idx.Close() }()

	// Background side effects
	pool := workerpool.New(cfg.Workers, logger.Named("workers"))
	var enricher enrich.Scheduler = enrich.Nop{}
	if cfg.Enrich.Endpoint != "" {
		enricher = enrich.NewHook(enrich.NewHTTPClient(cfg.Enrich), postgres.NewEnrichmentRepo(db), pool, logger.Named("enrich"))
	}
	tracker := activity.NewRecorder(postgres.NewActivityRepo(db), pool, logger.Named("activity"))

	svc := service.NewNoteService(service.Deps{
		Notes:       postgres.NewNoteRepo(db),
		Grants:      postgres.NewGrantRepo(db),
		Folders:     postgres.NewFolderRepo(db),
		Enrichments: postgres.NewEnrichmentRepo(db),
		Cache:       cache.NewRedis(rdb),
		Index:       idx,
		Limiter:     limiter.NewPG(db.Pool, cfg.Limiter.Window, cfg.Limiter.MaxFails, cfg.Limiter.BlockFor),
		Enricher:    enricher,
		Tracker:     tracker,
		Log:         logger.Named("notes"),
	}, cfg.Notes)

	// gRPC server with interceptors
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary([]byte(cfg.Auth.JWTKey), "/grpc.health.v1.Health/"),
		),
	}
	if cfg.Server.TLS() {
		creds, err := credentials.NewServerTLSFromFile(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)
	pb.RegisterNotesServer(s, grpcserver.New(svc, []byte(cfg.Auth.JWTKey)))

	// Health & reflection (dev)
	hs := health.NewServer()
	hs.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Server.Reflection {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.Bool("tls", cfg.Server.TLS()))
		if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		hs.Shutdown()

		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(cfg.Server.ShutdownTimeout):
			s.Stop()
		}

		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := pool.Shutdown(sctx); err != nil {
			logger.Warn("worker pool drain timed out", zap.Any("stats", pool.Stats()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
