package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/handler"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and background workers",
	Long: `Start the HTTP API.

When rabbitmq.url is set the expiry consumer and the outbox relay run in the
same process. Without a broker, run "theater sweep" periodically to release
seats held by unpaid bookings.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	router := handler.NewRouter(handler.Config{
		Events:   a.events,
		Bookings: a.bookings,
		Users:    a.users,
		Payments: a.payments,
		Verifier: a.issuer,
		Health:   a.tx,
		Origins:  a.cfg.HTTP.CORSOrigins,
		Log:      a.log,
	})
	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.broker != nil {
		consumer := worker.NewExpiryConsumer(a.broker, a.bookings, a.log)
		relay := worker.NewOutboxRelay(a.outbox, a.broker, a.cfg.Outbox.PollInterval, a.cfg.Outbox.BatchSize, a.log)
		g.Go(func() error { return ignoreCanceled(consumer.Run(gctx)) })
		g.Go(func() error { return ignoreCanceled(relay.Run(gctx)) })
	} else {
		a.log.Warn().Msg("rabbitmq.url not set, expiry consumer and outbox relay disabled")
	}

	err = g.Wait()
	a.log.Info().Msg("server stopped")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
