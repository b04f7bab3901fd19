package command

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/medtrack/careportal/internal/api"
	"github.com/medtrack/careportal/internal/api/handler"
	"github.com/medtrack/careportal/internal/api/middleware"
	"github.com/medtrack/careportal/internal/core/domain"
	"github.com/medtrack/careportal/internal/core/service"
	"github.com/medtrack/careportal/internal/infrastructure/notify"
	"github.com/medtrack/careportal/internal/infrastructure/queue"
	"github.com/medtrack/careportal/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	recentKept      = 20
)

// ServeCommand runs the portal shell.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the portal shell over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides HOST, default 127.0.0.1)",
			},
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides PORT)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := configFrom(c)
	if err != nil {
		return err
	}
	if v := c.String("host"); v != "" {
		cfg.Host = v
	}
	if v := c.String("port"); v != "" {
		cfg.Port = v
	}
	log := logger.Component("serve")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	redirector := middleware.NewLoginRedirector()
	rt, err := newRuntime(ctx, cfg, redirector)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	// A store failure is logged inside Rehydrate; the shell starts anonymous.
	_ = rt.sessions.Rehydrate(ctx)

	notifier := notify.NewLogNotifier(logger.Component("notifier"), recentKept)
	notifications := service.NewNotificationService(notifier, logger.Component("notification"))
	dispatcher := queue.NewDispatcher(cfg.Notification.Workers, notifications, logger.Component("dispatcher"))
	dispatcher.Start(ctx)
	go dispatcher.RunTicker(ctx, cfg.Notification.Interval)

	e := api.NewRouter(api.Deps{
		Sessions:      rt.sessions,
		Redirector:    redirector,
		Backend:       rt.client,
		Wake:          dispatcher,
		Notifications: notifier,
		Health: map[string]handler.Pinger{
			"credential_store": rt.store,
			"backend":          rt.client,
		},
		Paths:    domain.DefaultGuardPaths,
		Registry: prometheus.NewRegistry(),
		Log:      logger.Component("http"),
	})

	addr := cfg.ListenAddr()
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("api", cfg.APIEndpoint()).
			Str("credential_backend", cfg.Credentials.Backend).
			Msg("portal shell listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("portal shell shutdown")
	}
	dispatcher.Wait()
	return nil
}
