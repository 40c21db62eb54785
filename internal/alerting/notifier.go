package alerting

import (
	"context"
	"errors"
	"fmt"
)

// Notification is one outbound push message.
type Notification struct {
	Title        string
	Body         string
	Group        string
	HighPriority bool // urgent alerts may ring through silent modes
}

// DeliveryError describes a failed notification attempt. Transient
// failures (network trouble, 5xx, rate limiting) are worth retrying;
// permanent ones (bad credentials, rejected payload) are not.
type DeliveryError struct {
	Transient  bool
	StatusCode int // zero when the failure never reached the provider
	Err        error
}

func (e *DeliveryError) Error() string {
	class := "permanent"
	if e.Transient {
		class = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failure (status %d): %v", class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failure: %v", class, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsTransientDelivery reports whether err is a delivery failure worth
// retrying. Errors that are not DeliveryError at all (e.g. a canceled
// context) are not.
func IsTransientDelivery(err error) bool {
	var deliveryErr *DeliveryError
	return errors.As(err, &deliveryErr) && deliveryErr.Transient
}

// Notifier is the outbound notification channel. Implementations classify
// failures by returning *DeliveryError.
type Notifier interface {
	// Push sends one notification. Exactly one provider call is made per
	// invocation; retrying is the caller's decision.
	Push(ctx context.Context, notification Notification) error
}
