package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/auth"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/clock"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/config"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/database"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/logging"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/messaging"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/payment"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/repository"
	"github.com/Shivanand-hulikatti/theater-seat-server/internal/service"
)

// retryInitial is the first backoff step for store retries.
const retryInitial = 100 * time.Millisecond

// app is the wired object graph shared by the commands.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	pool   *pgxpool.Pool
	tx     *repository.TxManager
	outbox *repository.OutboxRepository
	broker *messaging.Client

	issuer   *auth.Issuer
	events   *service.EventService
	users    *service.UserService
	bookings *service.BookingService
	payments *service.PaymentService
}

// newApp loads the configuration and connects to Postgres. withBroker also
// dials RabbitMQ when it is configured.
func newApp(ctx context.Context, cmd *cobra.Command, withBroker bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to postgres")

	a := &app{
		cfg:    cfg,
		log:    log,
		pool:   pool,
		tx:     repository.NewTxManager(pool),
		outbox: repository.NewOutboxRepository(pool),
	}

	if withBroker && cfg.RabbitMQ.Enabled() {
		broker, err := messaging.Dial(cfg.RabbitMQ, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		a.broker = broker
		log.Info().Str("events_exchange", cfg.RabbitMQ.EventsExchange).Msg("connected to rabbitmq")
	}

	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	clk := clock.NewSystem()
	retry := service.NewRetrier(a.cfg.Store.Retries, retryInitial)

	issuer, err := auth.NewIssuer([]byte(a.cfg.Auth.Secret), a.cfg.Auth.TokenTTL, a.cfg.Auth.Issuer, clk)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	a.issuer = issuer

	eventRepo := repository.NewEventRepository(a.pool)
	bookingRepo := repository.NewBookingRepository(a.pool)

	a.events = service.NewEventService(a.tx, eventRepo, clk, retry)
	a.users = service.NewUserService(repository.NewUserRepository(a.pool), issuer, clk, retry)

	deps := service.BookingDeps{
		Tx:       a.tx,
		Events:   eventRepo,
		Bookings: bookingRepo,
		Outbox:   a.outbox,
		Clock:    clk,
		Retry:    retry,
		Log:      a.log,
	}
	if a.broker != nil {
		deps.Scheduler = a.broker
	}
	a.bookings = service.NewBookingService(deps, a.cfg.Bookings.HoldTTL)

	a.payments = service.NewPaymentService(service.PaymentDeps{
		Tx:        a.tx,
		Bookings:  bookingRepo,
		Payments:  repository.NewPaymentRepository(a.pool),
		Outbox:    a.outbox,
		Processor: a.processor(),
		Clock:     clk,
		Retry:     retry,
		Log:       a.log,
	}, service.PaymentConfig{
		Currency:       a.cfg.Payments.Currency,
		VerifyCharges:  a.cfg.Payments.VerifyCharges,
		ConfirmTimeout: a.cfg.Payments.ConfirmTimeout,
	})
	return nil
}

func (a *app) processor() payment.Processor {
	if a.cfg.Payments.StripeKey == "" {
		a.log.Warn().Msg("payments.stripe_key not set, payment processor disabled")
		return payment.Disabled{}
	}
	return payment.NewStripeProcessor(a.cfg.Payments.StripeKey, nil)
}

// Close releases the broker connection and the pool.
func (a *app) Close() {
	if a.broker != nil {
		a.broker.Close()
	}
	a.pool.Close()
}
