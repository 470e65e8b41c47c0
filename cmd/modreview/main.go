package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modreview/internal/config"
	"modreview/internal/identity/reddit"
	"modreview/internal/observability/logging"
	"modreview/internal/observability/metrics"
	"modreview/internal/service"
	impl "modreview/internal/service/impl"
	"modreview/internal/store"
	httpx "modreview/internal/transport/http"
	"modreview/pkg/db"
)

const serviceName = "modreview"

func main() {
	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	metrics.MustRegister(serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	gdb, err := db.OpenGorm(db.Config{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, gdb, cfg.DatabaseDriver); err != nil {
		return err
	}
	st := store.New(gdb)

	identity := identityProvider(cfg.Reddit)

	pw := impl.NewPasswordServiceBcrypt(cfg.BcryptCost)
	creds := impl.NewCredentialServiceImpl(st, impl.CredentialConfig{
		OTPTTL:    cfg.OTPTTL,
		OTPLength: cfg.OTPLength,
	}, pw, identity)
	coord := impl.NewReviewCoordinator(st.Users(), cfg.ClaimTTL)

	router := httpx.NewRouter(httpx.Deps{
		Credentials: creds,
		Reviews:     impl.NewReviewServiceImpl(st.Users(), coord, identity),
		Status:      impl.NewStatusWorkflowImpl(st.Users(), identity, coord),
		Moderation:  impl.NewModerationServiceImpl(st.Users()),
	}, httpx.Options{
		CORSOrigins:    cfg.CORSOrigins,
		LoginRateLimit: cfg.LoginRateLimit,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepOTPs(ctx, creds, cfg.OTPSweepInterval)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("modreview listening", "addr", srv.Addr, "db_driver", cfg.DatabaseDriver)
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

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func identityProvider(cfg config.RedditConfig) service.IdentityProvider {
	if !cfg.Configured() {
		slog.Warn("reddit credentials missing; profile lookup, approval and otp delivery will fail")
		return reddit.Unconfigured{}
	}
	c, err := reddit.New(reddit.Config{
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		Username:       cfg.Username,
		Password:       cfg.Password,
		UserAgent:      cfg.UserAgent,
		Subreddit:      cfg.Subreddit,
		MessageSubject: cfg.MessageSubject,
		APIURL:         cfg.APIURL,
		TokenURL:       cfg.TokenURL,
	})
	if err != nil {
		slog.Error("reddit client", "error", err)
		return reddit.Unconfigured{}
	}
	return c
}

type otpSweeper interface {
	SweepExpiredOTPs(ctx context.Context) (int64, error)
}

func sweepOTPs(ctx context.Context, s otpSweeper, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.SweepExpiredOTPs(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("otp sweep failed", "error", err)
			}
		}
	}
}
