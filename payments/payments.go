// Package payments creates and looks up Stripe checkout sessions for the
// standard Sinna subscription.
package payments // import "github.com/sinnahq/sinna/tools/payments"

import (
	"context"
	"errors"
	"time"

	"github.com/sinnahq/sinna/tools/utils"
)

// CheckoutHandler is an abstraction of the methods used for selling a
// subscription through a hosted checkout page.
type CheckoutHandler interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
}

// ErrMissingURL is returned when Stripe accepts a checkout session request
// but the response carries no checkout URL.
var ErrMissingURL = errors.New("no checkout URL returned from Stripe")

// ErrUnexpectedStatus is returned when Stripe creates a checkout session
// with a success status other than 200 OK.
var ErrUnexpectedStatus = errors.New("unexpected success status from Stripe")

// CheckoutParams are the inputs of a checkout session request.
type CheckoutParams struct {
	PriceID string
	// BaseURL is the site that hosts the success and cancel pages.
	BaseURL string
	// Quantity defaults to 1.
	Quantity int64
	// CustomerEmail pre-fills the email on the checkout page. Optional.
	CustomerEmail string
	// ExpiresAt is when the session stops accepting payments. The zero value
	// leaves Stripe's default in place.
	ExpiresAt time.Time
}

// SuccessURL is where the customer lands after paying. Stripe fills in the
// session ID placeholder.
func (p CheckoutParams) SuccessURL() string {
	return p.BaseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL is where the customer lands after abandoning the checkout.
func (p CheckoutParams) CancelURL() string {
	return p.BaseURL + "/billing/cancel"
}

func (p CheckoutParams) validate() error {
	if p.PriceID == "" {
		return utils.MakeError("a price ID is required to create a checkout session")
	}
	if p.BaseURL == "" {
		return utils.MakeError("a base URL is required to create a checkout session")
	}
	if p.Quantity < 0 {
		return utils.MakeError("invalid quantity %d", p.Quantity)
	}
	return nil
}

// Statuses of a checkout session, as reported by Stripe.
const (
	SessionOpen     = "open"
	SessionComplete = "complete"
	SessionExpired  = "expired"
)

// CheckoutSession is the part of a Stripe checkout session the tools report.
type CheckoutSession struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	// ExpiresAt is zero when Stripe didn't report an expiry.
	ExpiresAt     time.Time
	CustomerEmail string
}

// IsUsable returns true if a customer can still pay through the session.
func (s *CheckoutSession) IsUsable() bool {
	return s.Status == SessionOpen && s.URL != ""
}

// RemoteError is returned when Stripe answers a request with an error, or
// with a response the tools can't use. Body holds the raw response payload.
type RemoteError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return utils.Sprintf("stripe returned HTTP %d: %s", e.StatusCode, e.Err)
	}
	return utils.Sprintf("stripe returned HTTP %d", e.StatusCode)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
