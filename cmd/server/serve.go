package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/villagebank/internal/auth"
	"github.com/mmynk/villagebank/internal/config"
	"github.com/mmynk/villagebank/internal/metrics"
	"github.com/mmynk/villagebank/internal/middleware"
	"github.com/mmynk/villagebank/internal/service"
	"github.com/mmynk/villagebank/internal/storage"
	"github.com/mmynk/villagebank/pkg/api/apiconnect"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Connect API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.ResolveRPS,
		Burst:             cfg.ResolveBurst,
		Procedures:        []string{apiconnect.VillageServiceResolveInviteProcedure},
	})
	go limiter.Run(ctx, 5*time.Minute)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(newRouter(cfg, store, metrics.New(), limiter), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", srv.Addr, "public_url", cfg.PublicURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newRouter mounts the Connect service, health check and metrics.
func newRouter(cfg *config.Config, store storage.Store, m *metrics.Metrics, limiter *middleware.RateLimiter) http.Handler {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	svc := service.NewVillageService(store, service.Options{
		PublicURL: cfg.PublicURL,
		LoginURL:  cfg.LoginURL,
		Metrics:   m,
	})

	path, handler := apiconnect.NewVillageServiceHandler(svc, connect.WithInterceptors(middleware.Chain(middleware.ChainConfig{
		JWT:          jwtManager,
		OptionalAuth: []string{apiconnect.VillageServiceResolveInviteProcedure},
		Metrics:      m,
		Limiter:      limiter,
	})...))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms"},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			slog.Warn("Health check failed", "error", err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	r.Handle(path+"*", handler)

	return r
}
