package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// StripeProcessor creates and reads Stripe PaymentIntents.
type StripeProcessor struct {
	api *client.API
}

// NewStripeProcessor returns a processor authenticated with the secret key.
// A non-nil backends value overrides the default HTTP backends.
func NewStripeProcessor(secretKey string, backends *stripe.Backends) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeProcessor{api: api}
}

// CreateIntent requests a card PaymentIntent for amount minor units.
func (p *StripeProcessor) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, translate("create payment intent", err)
	}
	return fromStripe(pi), nil
}

// GetIntent reads a PaymentIntent by id.
func (p *StripeProcessor) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, model.ErrChargeNotConfirmed
		}
		return nil, translate("get payment intent", err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}

// translate separates API rejections from transport failures.
func translate(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < 500 {
		return fmt.Errorf("%s: %w: %s", op, model.ErrProcessor, stripeErr.Msg)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrUpstreamUnavailable, err)
}
