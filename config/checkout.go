package config

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/sinnahq/sinna/tools/metadata"
	"github.com/sinnahq/sinna/tools/utils"
)

// Defaults for the checkout link tool. The secret key has no default.
const (
	DefaultPriceID = "price_1SLDYEFOUj5aKuFKieTbbTX1"
	DefaultBaseURL = "https://sinna.site"

	// minSecretKeyLength rejects obviously truncated keys before any request
	// is made.
	minSecretKeyLength = 10
)

var (
	// ErrMissingSecret is returned when STRIPE_SECRET_KEY is not set.
	ErrMissingSecret = errors.New("STRIPE_SECRET_KEY is not set")
	// ErrInvalidSecret is returned when STRIPE_SECRET_KEY can't be a key.
	ErrInvalidSecret = errors.New("STRIPE_SECRET_KEY is invalid")
)

// MissingSecretGuidance tells the operator how to fix a missing or invalid
// secret key.
const MissingSecretGuidance = `Set your Stripe secret key before running this tool:

  export STRIPE_SECRET_KEY=sk_test_...   # or sk_live_...

Get a key from https://dashboard.stripe.com/apikeys`

// CheckoutConfig holds the settings of the checkout link tool.
type CheckoutConfig struct {
	SecretKey string
	PriceID   string
	// BaseURL is the site the success and cancel pages live on, without a
	// trailing slash.
	BaseURL string
	// CustomerEmail pre-fills the email field of the checkout page.
	CustomerEmail string
	// APIBase overrides the Stripe API URL, e.g. to point at a mock server.
	APIBase string
	// ExpiresIn makes the session expire after the given duration. Zero leaves
	// Stripe's default expiry in place.
	ExpiresIn time.Duration
	// VerifySession, when set, makes the tool look up this session instead of
	// creating a new one.
	VerifySession string
	ProdLogging   bool
}

var checkoutEnv = map[string]string{
	"STRIPE_SECRET_KEY":        "stripe.secret",
	"STRIPE_STANDARD_PRICE_ID": "stripe.price",
	"STRIPE_API_BASE":          "stripe.apibase",
	"BASE_URL":                 "checkout.baseurl",
	"CUSTOMER_EMAIL":           "checkout.email",
}

// LoadCheckout builds the checkout link tool configuration from args
// (without the program name) and the environment. The returned configuration
// has not been validated; call Validate before using the key.
func LoadCheckout(args []string, output io.Writer) (*CheckoutConfig, error) {
	f := newFlagSet("checkout-link", output)
	f.Duration("expires", 0, "Expire the checkout session after this long (between 30m and 24h). Defaults to Stripe's expiry.")
	f.String("verify", "", "Look up an existing checkout session by ID instead of creating one.")
	f.Bool("prodlogging", false, `If the tool sends logs to Logz.io and reports errors to Sentry. If this option is passed
the SENTRY_DSN and LOGZIO_SHIPPING_TOKEN env vars must be defined.`)

	fk, err := loadFlags(f, args)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	err = loadDefaults(k, map[string]interface{}{
		"stripe.price":     DefaultPriceID,
		"checkout.baseurl": DefaultBaseURL,
	})
	if err != nil {
		return nil, err
	}
	if err := loadEnv(k, checkoutEnv); err != nil {
		return nil, err
	}

	return &CheckoutConfig{
		SecretKey:     strings.TrimSpace(k.String("stripe.secret")),
		PriceID:       k.String("stripe.price"),
		BaseURL:       strings.TrimRight(k.String("checkout.baseurl"), "/"),
		CustomerEmail: k.String("checkout.email"),
		APIBase:       k.String("stripe.apibase"),
		ExpiresIn:     fk.Duration("expires"),
		VerifySession: strings.TrimSpace(fk.String("verify")),
		ProdLogging:   fk.Bool("prodlogging"),
	}, nil
}

// Validate checks that the secret key is present and plausible.
func (c *CheckoutConfig) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecret
	}
	if len(c.SecretKey) < minSecretKeyLength {
		return utils.MakeError("%w: expected at least %d characters", ErrInvalidSecret, minSecretKeyLength)
	}
	if c.ExpiresIn < 0 {
		return utils.MakeError("session expiry must be positive, got %s", c.ExpiresIn)
	}
	return nil
}

// IsLiveKey returns true for live mode secret and restricted keys.
func (c *CheckoutConfig) IsLiveKey() bool {
	return strings.HasPrefix(c.SecretKey, "sk_live_") || strings.HasPrefix(c.SecretKey, "rk_live_")
}

// KeyWarnings returns non-fatal concerns about the configured key, for the
// caller to log.
func (c *CheckoutConfig) KeyWarnings() []string {
	var warnings []string
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		warnings = append(warnings, "STRIPE_SECRET_KEY does not look like a Stripe secret (sk_) or restricted (rk_) key")
	}
	if c.IsLiveKey() && metadata.IsLocalEnv() {
		warnings = append(warnings, utils.Sprintf("using a live Stripe key while APP_ENV is %s: real checkout sessions will be created", metadata.GetAppEnvironmentLowercase()))
	}
	return warnings
}
