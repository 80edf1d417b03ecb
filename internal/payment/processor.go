// Package payment wraps the external payment processor behind a small
// interface: create an intent for an amount, and read an intent back to
// confirm that its charge succeeded.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

// StatusSucceeded is the intent status of a completed charge.
const StatusSucceeded = "succeeded"

// ErrProcessorDisabled is returned when no processor is configured.
var ErrProcessorDisabled = fmt.Errorf("%w: payment processor not configured", model.ErrUpstreamUnavailable)

// Intent is the processor's view of a payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
}

// Processor is an external payment processor.
type Processor interface {
	// CreateIntent authorizes a charge of amount minor units.
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	// GetIntent reads an intent by its identifier.
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

// Disabled is the Processor used when no API key is configured.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, int64, string, map[string]string) (*Intent, error) {
	return nil, ErrProcessorDisabled
}

func (Disabled) GetIntent(context.Context, string) (*Intent, error) {
	return nil, ErrProcessorDisabled
}

// IsDisabled reports whether p is the Disabled processor.
func IsDisabled(p Processor) bool {
	if p == nil {
		return true
	}
	_, ok := p.(Disabled)
	return ok
}

// IsProcessorError reports whether err came from the processor rejecting a
// request, as opposed to the processor being unreachable.
func IsProcessorError(err error) bool {
	return errors.Is(err, model.ErrProcessor)
}
