package payments

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sinnahq/sinna/tools/logger"
	"github.com/sinnahq/sinna/tools/utils"
	"github.com/stripe/stripe-go/v72"
	checkout "github.com/stripe/stripe-go/v72/checkout/session"
)

// defaultHTTPTimeout matches the timeout stripe-go uses for its own client.
const defaultHTTPTimeout = 80 * time.Second

// StripeClient implements CheckoutHandler on top of the official Stripe
// client. Calls are serialized, since each one reads back the raw response
// recorded by its transport.
type StripeClient struct {
	mu        sync.Mutex
	sessions  checkout.Client
	transport *recordingTransport
}

// Option configures a StripeClient.
type Option func(*clientOptions)

type clientOptions struct {
	apiBase    string
	httpClient *http.Client
}

// WithAPIBase points the client at another Stripe API base URL, such as a
// mock server.
func WithAPIBase(url string) Option {
	return func(o *clientOptions) {
		o.apiBase = url
	}
}

// WithHTTPClient makes the client send requests through c. The client is
// copied, not modified.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// NewStripeClient returns a client authenticating with the secret key. It
// never retries a request, and it doesn't send telemetry to Stripe.
func NewStripeClient(key string, opts ...Option) *StripeClient {
	o := &clientOptions{
		apiBase:    stripe.APIURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}

	httpClient := *o.httpClient
	transport := &recordingTransport{base: httpClient.Transport}
	if transport.base == nil {
		transport.base = http.DefaultTransport
	}
	httpClient.Transport = transport

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(o.apiBase),
		HTTPClient:        &httpClient,
		LeveledLogger:     logger.Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
	})

	return &StripeClient{
		sessions:  checkout.Client{B: backend, Key: key},
		transport: transport,
	}
}

// CreateCheckoutSession creates a subscription checkout session for one
// unit of the given price.
func (sc *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	quantity := p.Quantity
	if quantity == 0 {
		quantity = 1
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(quantity),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL()),
		CancelURL:  stripe.String(p.CancelURL()),
		PaymentMethodTypes: []*string{
			stripe.String("card"),
		},
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String("required"),
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	if !p.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(p.ExpiresAt.Unix())
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.transport.reset()
	s, err := sc.sessions.New(params)
	if err != nil {
		return nil, sc.remoteError("failed to create checkout session", err)
	}
	if res := sc.transport.last(); res != nil && res.statusCode != http.StatusOK {
		return nil, sc.remoteError("failed to create checkout session", ErrUnexpectedStatus)
	}
	if s.URL == "" {
		return nil, sc.remoteError("failed to create checkout session", ErrMissingURL)
	}

	logger.Infow("Created checkout session", "session_id", s.ID, "price_id", p.PriceID)
	return newCheckoutSession(s), nil
}

// GetCheckoutSession retrieves an existing checkout session.
func (sc *StripeClient) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	if id == "" {
		return nil, utils.MakeError("a checkout session ID is required")
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.transport.reset()
	s, err := sc.sessions.Get(id, params)
	if err != nil {
		return nil, sc.remoteError(utils.Sprintf("failed to retrieve checkout session %s", id), err)
	}
	return newCheckoutSession(s), nil
}

// remoteError turns err into a *RemoteError carrying the raw response body
// if a response was received. Otherwise the request never completed, and
// err is only wrapped.
func (sc *StripeClient) remoteError(msg string, err error) error {
	res := sc.transport.last()
	if res == nil {
		return utils.MakeError("%s: %w", msg, err)
	}
	return &RemoteError{StatusCode: res.statusCode, Body: res.body, Err: err}
}

func newCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	session := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
	}
	if s.ExpiresAt != 0 {
		session.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		session.CustomerEmail = s.CustomerDetails.Email
	}
	return session
}

type recordedResponse struct {
	statusCode int
	body       []byte
}

// recordingTransport keeps a copy of the last response it received, so
// that error bodies can be shown verbatim.
type recordingTransport struct {
	base http.RoundTripper

	mu       sync.Mutex
	response *recordedResponse
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, utils.MakeError("could not read response body: %w", err)
	}
	res.Body = io.NopCloser(bytes.NewReader(body))

	t.mu.Lock()
	t.response = &recordedResponse{statusCode: res.StatusCode, body: body}
	t.mu.Unlock()

	return res, nil
}

func (t *recordingTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.response = nil
}

func (t *recordingTransport) last() *recordedResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.response
}
