// checkout-link creates a Stripe checkout session for the standard Sinna
// subscription and prints the link to share with the customer. With -verify,
// it looks up an existing session instead.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sinnahq/sinna/tools/config"
	"github.com/sinnahq/sinna/tools/logger"
	"github.com/sinnahq/sinna/tools/metadata"
	"github.com/sinnahq/sinna/tools/payments"
	"github.com/sinnahq/sinna/tools/utils"
)

var separator = strings.Repeat("=", 70)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the tool and returns its exit code. Results go to stdout;
// usage, guidance and remote errors go to stderr.
func run(args []string, stdout, stderr io.Writer) int {
	defer logger.Sync()

	cfg, err := config.LoadCheckout(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	logger.UseProdLogging(cfg.ProdLogging)
	logger.AddSentryTags(map[string]string{"tool": "checkout-link"})
	logger.AddLogzioFields(map[string]string{"tool": "checkout-link", "commit": metadata.GetGitCommit()})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, utils.ColorRed(utils.Sprintf("❌ %s", err)))
		if errors.Is(err, config.ErrMissingSecret) || errors.Is(err, config.ErrInvalidSecret) {
			fmt.Fprintf(stderr, "\n%s\n", config.MissingSecretGuidance)
		}
		return 1
	}
	for _, w := range cfg.KeyWarnings() {
		logger.Warningf("%s", w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var opts []payments.Option
	if cfg.APIBase != "" {
		opts = append(opts, payments.WithAPIBase(cfg.APIBase))
	}
	var handler payments.CheckoutHandler = payments.NewStripeClient(cfg.SecretKey, opts...)

	if cfg.VerifySession != "" {
		return verifySession(ctx, handler, cfg.VerifySession, stdout, stderr)
	}
	return createSession(ctx, handler, cfg, stdout, stderr)
}

func createSession(ctx context.Context, handler payments.CheckoutHandler, cfg *config.CheckoutConfig, stdout, stderr io.Writer) int {
	params := payments.CheckoutParams{
		PriceID:       cfg.PriceID,
		BaseURL:       cfg.BaseURL,
		CustomerEmail: cfg.CustomerEmail,
	}
	if cfg.ExpiresIn > 0 {
		params.ExpiresAt = time.Now().Add(cfg.ExpiresIn)
	}

	fmt.Fprintln(stdout, "🔗 Creating Stripe Checkout Session")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "💰 Price ID: %s\n", params.PriceID)
	fmt.Fprintf(stdout, "🌐 Base URL: %s\n", params.BaseURL)
	if params.CustomerEmail != "" {
		fmt.Fprintf(stdout, "📧 Customer Email: %s\n", params.CustomerEmail)
	}
	fmt.Fprintln(stdout)

	session, err := handler.CreateCheckoutSession(ctx, params)
	if err != nil {
		logger.Errorf("Error creating checkout session: %s", err)
		fmt.Fprintln(stderr, utils.ColorRed("❌ Error creating checkout session:"))
		if errors.Is(err, payments.ErrMissingURL) {
			fmt.Fprintln(stderr, payments.ErrMissingURL)
		}
		printRemoteError(stderr, err)
		return 1
	}

	fmt.Fprintln(stdout, utils.ColorGreen("✅ Checkout session created successfully!"))
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, separator)
	fmt.Fprintln(stdout, "🔗 YOUR STRIPE CHECKOUT LINK:")
	fmt.Fprintln(stdout, separator)
	fmt.Fprintln(stdout, session.URL)
	fmt.Fprintln(stdout, separator)
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Session ID: %s\n", session.ID)
	if !session.ExpiresAt.IsZero() {
		fmt.Fprintf(stdout, "Expires At: %s\n", session.ExpiresAt.Format(time.RFC3339))
	}
	return 0
}

func verifySession(ctx context.Context, handler payments.CheckoutHandler, id string, stdout, stderr io.Writer) int {
	session, err := handler.GetCheckoutSession(ctx, id)
	if err != nil {
		logger.Errorf("Error retrieving checkout session %s: %s", id, err)
		var remoteErr *payments.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusNotFound {
			fmt.Fprintln(stderr, utils.ColorRed("❌ Session not found"))
		} else {
			fmt.Fprintln(stderr, utils.ColorRed("❌ Error retrieving checkout session:"))
		}
		printRemoteError(stderr, err)
		return 1
	}

	expiresAt := "N/A"
	if !session.ExpiresAt.IsZero() {
		expiresAt = session.ExpiresAt.Format(time.RFC3339)
	}

	fmt.Fprintln(stdout, "Session Status:")
	fmt.Fprintf(stdout, "   ID: %s\n", session.ID)
	fmt.Fprintf(stdout, "   Status: %s\n", session.Status)
	fmt.Fprintf(stdout, "   Payment Status: %s\n", session.PaymentStatus)
	fmt.Fprintf(stdout, "   URL: %s\n", orNA(session.URL))
	fmt.Fprintf(stdout, "   Expires At: %s\n", expiresAt)
	fmt.Fprintf(stdout, "   Customer Email: %s\n", orNA(session.CustomerEmail))
	fmt.Fprintln(stdout)

	switch {
	case session.IsUsable():
		fmt.Fprintln(stdout, utils.ColorGreen("✅ Session is VALID and ready to use!"))
		fmt.Fprintln(stdout, session.URL)
	case session.Status == payments.SessionExpired:
		fmt.Fprintln(stdout, utils.ColorRed("❌ Session has EXPIRED"))
	case session.Status == payments.SessionComplete:
		fmt.Fprintln(stdout, utils.ColorGreen("✅ Session is COMPLETE (payment already processed)"))
	default:
		fmt.Fprintln(stdout, utils.ColorYellow(utils.Sprintf("⚠️  Session status: %s", session.Status)))
	}
	return 0
}

// printRemoteError writes the body Stripe answered with, indented if it is
// JSON, or the error itself if no response was received.
func printRemoteError(w io.Writer, err error) {
	var remoteErr *payments.RemoteError
	if !errors.As(err, &remoteErr) || len(remoteErr.Body) == 0 {
		fmt.Fprintln(w, err)
		return
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, remoteErr.Body, "", "  ") != nil {
		fmt.Fprintln(w, string(remoteErr.Body))
		return
	}
	fmt.Fprintln(w, pretty.String())
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
