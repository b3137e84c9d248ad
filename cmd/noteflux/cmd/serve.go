package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noteflux/noteflux/internal/httpapi"
	"github.com/noteflux/noteflux/internal/middleware"
	"github.com/noteflux/noteflux/internal/observability"
	"github.com/noteflux/noteflux/internal/observability/audit"
	"github.com/noteflux/noteflux/internal/security/auth"
	"github.com/noteflux/noteflux/internal/security/ratelimit"
)

func newServeCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the optional HTTP server alongside the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			defer a.tracer.Shutdown(cmd.Context()) //nolint:errcheck // best-effort flush on exit

			if ok, err := a.reranker.CheckModel(cmd.Context()); err != nil {
				a.logger.Warn("reranker readiness check failed", "error", err)
			} else if !ok {
				a.logger.Warn("configured reranker model is not available on the Ollama host")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			opts := a.indexOptions()
			var vaults []string
			for name := range opts.VaultPaths {
				vaults = append(vaults, name)
			}

			go runScheduler(ctx, a.cfg.Schedule.IncrementalCron, a.indexer, opts, vaults, a.logger)

			if watch {
				go func() {
					if err := runWatcher(ctx, a.indexer, opts, a.logger); err != nil {
						a.logger.Error("watch mode stopped", "error", err)
					}
				}()
			}

			if a.cfg.Server.Port == 0 {
				a.logger.Warn("server.port is 0, HTTP server disabled; running scheduler/watch only")
				return waitForSignal(ctx, cancel, a.logger)
			}

			server, err := buildServer(a)
			if err != nil {
				return fmt.Errorf("build server: %w", err)
			}

			go func() {
				a.logger.Info("server starting", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					a.logger.Error("server failed", "error", err)
				}
			}()

			return waitForSignal(ctx, cancel, a.logger, server)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "watch vaults for changes and trigger incremental indexing")
	return cmd
}

func waitForSignal(ctx context.Context, cancel context.CancelFunc, logger *observability.Logger, servers ...*http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if s == nil {
			continue
		}
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}
	return nil
}

// buildServer assembles the HTTP handler chain: search/ask/index routes,
// health, and an optional token-exchange endpoint, wrapped in an always-on
// rate limiter and an auth gate that only activates when configured.
func buildServer(a *app) (*http.Server, error) {
	mux := http.NewServeMux()

	handler := httpapi.NewHandler(a.searcher, a.indexer, a.logger, a.errorHandler)
	handler.Routes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := a.errorHandler.CreateHealthCheck(r.Context(), Version)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(health)
	})

	rl, err := ratelimit.NewRateLimiter(ratelimit.Config{
		Enabled:   true,
		Algorithm: ratelimit.SlidingWindow,
		Default:   ratelimit.LimitConfig{Requests: 120, Window: time.Minute},
		Auth:      ratelimit.LimitConfig{Requests: 10, Window: time.Minute},
		Health:    ratelimit.LimitConfig{Requests: 300, Window: time.Minute},
	})
	if err != nil {
		return nil, fmt.Errorf("build rate limiter: %w", err)
	}
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
		RateLimiter:      rl,
		MetricsCollector: a.metrics,
		SkipPaths:        []string{"/health"},
	}, a.logger)

	securityMiddleware := middleware.NewSecurityMiddleware(middleware.SecurityConfig{}, a.logger)
	corsMiddleware := middleware.NewCORSMiddleware(middleware.CORSConfig{}, a.logger)

	var httpHandler http.Handler = mux
	httpHandler = tracingMiddleware(a.tracer, httpHandler)
	httpHandler = corsMiddleware.Middleware(httpHandler)
	httpHandler = securityMiddleware.Middleware(httpHandler)

	if a.cfg.Auth.Enabled {
		jwtManager, err := auth.NewJWTManager(a.cfg.Auth.PrivateKey, a.cfg.Auth.PublicKey, a.cfg.Auth.Issuer, a.cfg.Auth.Audience, a.cfg.Auth.TokenExpiry)
		if err != nil {
			return nil, fmt.Errorf("build jwt manager: %w", err)
		}

		auditLogger, err := audit.NewLogger(audit.Config{Enabled: true, ServiceName: "noteflux"}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("build audit logger: %w", err)
		}

		mux.HandleFunc("/auth/token", newTokenExchangeHandler(jwtManager, a.cfg.Auth.APITokenHash, auditLogger))

		authMiddleware := middleware.NewAuthMiddleware(jwtManager)
		httpHandler = authMiddleware.Middleware(httpHandler)
	}

	httpHandler = rateLimitMiddleware.Middleware(httpHandler)

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	return &http.Server{
		Addr:         addr,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}, nil
}

// tracingMiddleware opens a span per request named after the route, closing
// it once the handler returns. Tracing is disabled by default (TracerProvider
// is a no-op in that case), so this costs nothing on a typical local run.
func tracingMiddleware(tracer *observability.TracerProvider, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := observability.InstrumentServerRequest(r.Context(), tracer.Tracer(), r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type tokenExchangeRequest struct {
	APIToken string `json:"api_token"`
}

// newTokenExchangeHandler verifies a locally-issued API token against the
// configured bcrypt hash and, on success, issues a short-lived session JWT.
// Every attempt is recorded through auditLogger, successful or not.
func newTokenExchangeHandler(jwtManager *auth.JWTManager, apiTokenHash string, auditLogger *audit.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req tokenExchangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.APIToken == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if !auth.VerifyAPIToken(req.APIToken, apiTokenHash) {
			auditLogger.LogAuthFailure(r.Context(), "api_token", r.RemoteAddr, "invalid api token")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		token, err := jwtManager.GenerateToken(r.Context(), "local", "local", nil)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		auditLogger.LogAuthSuccess(r.Context(), "local", "local", "api_token", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	}
}
