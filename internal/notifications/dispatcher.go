package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

// Recipient is the customer a notification is addressed to.
type Recipient struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// Dispatcher fans a transition notification out to every configured channel.
type Dispatcher struct {
	channels []Channel
	logg     *logger.Logger
}

// NewDispatcher builds a dispatcher. Nil channels are skipped.
func NewDispatcher(logg *logger.Logger, channels ...Channel) (*Dispatcher, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	d := &Dispatcher{logg: logg}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	if len(d.channels) == 0 {
		d.channels = append(d.channels, NewLogChannel(logg))
	}
	return d, nil
}

// Notify tells the customer about a transition. Every channel is attempted;
// failures are combined into the returned error.
func (d *Dispatcher) Notify(ctx context.Context, to Recipient, rr *models.ReturnRequest, action enums.ReturnAction) error {
	if rr == nil {
		return fmt.Errorf("return request required")
	}
	msg := TransitionMessage(rr, action)

	var errs error
	for _, ch := range d.channels {
		if err := ch.Deliver(ctx, to, msg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errs
}
