package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/yanote/internal/auth"
	"github.com/kuitang/yanote/internal/notes"
	"github.com/kuitang/yanote/internal/obs"
	"github.com/kuitang/yanote/internal/ratelimit"
	"github.com/kuitang/yanote/internal/urlutil"
	"github.com/kuitang/yanote/internal/web"
)

const (
	shutdownTimeout        = 10 * time.Second
	sessionCleanupInterval = time.Hour
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, listenAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, addr string) error {
	log := obs.Pkg("main")

	cfg, database, err := openDatabase(addr)
	if err != nil {
		return err
	}
	defer database.Close()
	cfg.PrintStartupSummary()

	shutdownTracing, err := obs.SetupTracing(ctx, "yanote", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing_shutdown_failed", "error", err)
		}
	}()

	users := auth.NewUserService(database, nil)
	sessions := auth.NewSessionService(database, nil, cfg.SessionDuration)
	authMW := auth.NewMiddleware(sessions, users, web.MustReverse(web.RouteLogin), cfg.RequireSecureCookies())

	renderer, err := web.NewRenderer(web.Templates())
	if err != nil {
		return err
	}

	loginLimiter := ratelimit.NewRateLimiter(cfg.LoginRateLimit)
	defer loginLimiter.Stop()

	handler := web.NewHandler(renderer, notes.NewStore(database), users, sessions, authMW)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           web.NewServer(handler, loginLimiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go cleanupSessions(ctx, sessions)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_listening",
			"addr", cfg.ListenAddr,
			"login_url", urlutil.BuildAbsolute(cfg.BaseURL, web.MustReverse(web.RouteLogin)),
			"secure_cookies", cfg.RequireSecureCookies(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// cleanupSessions drops expired sessions until ctx is done.
func cleanupSessions(ctx context.Context, sessions *auth.SessionService) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Cleanup(ctx)
			if err != nil {
				obs.Pkg("main").Warn("session_cleanup_failed", "error", err)
				continue
			}
			if n > 0 {
				obs.Pkg("main").Info("sessions_expired", "count", n)
			}
		}
	}
}
