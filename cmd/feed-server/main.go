// Command feed-server serves the votefeed gRPC API.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/votefeed/internal/api/feedv1"
	"github.com/and161185/votefeed/internal/auth"
	"github.com/and161185/votefeed/internal/config"
	"github.com/and161185/votefeed/internal/limiter"
	"github.com/and161185/votefeed/internal/metrics"
	"github.com/and161185/votefeed/internal/migrate"
	"github.com/and161185/votefeed/internal/repository/postgres"
	grpcserver "github.com/and161185/votefeed/internal/server/grpc"
	"github.com/and161185/votefeed/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the gRPC and metrics listeners.
func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		// logger config depends on cfg; fall back to a production logger
		l, _ := zap.NewProduction()
		l.Fatal("config", zap.Error(err))
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.Int("maxPage", cfg.MaxPage),
	)

	keys, err := auth.NewKeyring([]byte(cfg.JWTKey))
	if err != nil {
		logger.Fatal("jwt key", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN, cfg.MaxConns)
	if err != nil {
		logger.Fatal("postgres pool", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	itemRepo := postgres.NewItemRepo(db)
	userRepo := postgres.NewUserRepo(db)
	voteRepo := postgres.NewVoteRepo(db)

	var lim limiter.Limiter = limiter.Unlimited{}
	if cfg.VoteMax > 0 {
		lim = limiter.NewPG(db.Pool, cfg.VoteWindow, cfg.VoteMax)
	}

	// Services
	feedSvc := service.NewFeedService(itemRepo, userRepo, cfg.MaxPage)
	voteSvc := service.NewVoteService(voteRepo, userRepo, lim, logger)

	met := metrics.New()

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.MetricsUnary(met),
			grpcserver.AuthUnary(keys),
			grpcserver.RateLimitUnary(cfg.RPS, cfg.Burst, met),
		),
	}
	if cfg.TLS() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("serving without TLS")
	}
	s := grpc.NewServer(opts...)

	feedv1.RegisterFeedServer(s, grpcserver.New(feedSvc, voteSvc, met))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(feedv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLS()))
		errCh <- s.Serve(lis)
	}()

	var ms *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", met.Handler())
		ms = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		if ms != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = ms.Shutdown(sctx)
			cancel()
		}
		// graceful shutdown
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
