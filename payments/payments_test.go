package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const testKey = "sk_test_0123456789abcdef"

const sessionJSON = `{
  "id": "cs_test_123",
  "object": "checkout.session",
  "url": "https://checkout.stripe.com/c/pay/cs_test_123",
  "status": "open",
  "payment_status": "unpaid",
  "expires_at": 1700000000,
  "customer_details": {"email": "buyer@example.com"}
}`

const errorJSON = `{
  "error": {
    "code": "resource_missing",
    "message": "No such price: 'price_missing'",
    "type": "invalid_request_error"
  }
}`

// fakeStripe stands in for the Stripe API. It records the last request it
// received and answers every request with the given status and body.
type fakeStripe struct {
	*httptest.Server
	status int
	body   string

	requests int
	method   string
	path     string
	auth     string
	idemKey  string
	form     map[string]string
}

func newFakeStripe(t *testing.T, status int, body string) *fakeStripe {
	f := &fakeStripe{status: status, body: body}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests++
		f.method = r.Method
		f.path = r.URL.Path
		f.auth = r.Header.Get("Authorization")
		f.idemKey = r.Header.Get("Idempotency-Key")

		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse request form: %s", err)
		}
		f.form = make(map[string]string)
		for k := range r.PostForm {
			f.form[k] = r.PostForm.Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		w.Write([]byte(f.body))
	}))
	t.Cleanup(f.Close)
	return f
}

func testParams() CheckoutParams {
	return CheckoutParams{
		PriceID: "price_standard",
		BaseURL: "https://sinna.site",
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := newFakeStripe(t, http.StatusOK, sessionJSON)
	client := NewStripeClient(testKey, WithAPIBase(srv.URL))

	session, err := client.CreateCheckoutSession(context.Background(), testParams())
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %s", err)
	}

	want := &CheckoutSession{
		ID:            "cs_test_123",
		URL:           "https://checkout.stripe.com/c/pay/cs_test_123",
		Status:        SessionOpen,
		PaymentStatus: "unpaid",
		ExpiresAt:     time.Unix(1700000000, 0).UTC(),
		CustomerEmail: "buyer@example.com",
	}
	if diff := cmp.Diff(want, session); diff != "" {
		t.Errorf("CreateCheckoutSession() mismatch (-want +got):\n%s", diff)
	}
	if !session.IsUsable() {
		t.Errorf("expected an open session with a URL to be usable")
	}

	if srv.requests != 1 {
		t.Errorf("expected exactly one request, got %d", srv.requests)
	}
	if srv.method != http.MethodPost || srv.path != "/v1/checkout/sessions" {
		t.Errorf("unexpected request %s %s", srv.method, srv.path)
	}
	if srv.auth != "Bearer "+testKey {
		t.Errorf("expected the secret key as the credential, got %q", srv.auth)
	}
	if srv.idemKey == "" {
		t.Errorf("expected an idempotency key")
	}

	wantForm := map[string]string{
		"mode":                       "subscription",
		"line_items[0][price]":       "price_standard",
		"line_items[0][quantity]":    "1",
		"success_url":                "https://sinna.site/billing/success?session_id={CHECKOUT_SESSION_ID}",
		"cancel_url":                 "https://sinna.site/billing/cancel",
		"payment_method_types[0]":    "card",
		"allow_promotion_codes":      "true",
		"billing_address_collection": "required",
	}
	if diff := cmp.Diff(wantForm, srv.form); diff != "" {
		t.Errorf("request form mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateCheckoutSessionOptionalFields(t *testing.T) {
	srv := newFakeStripe(t, http.StatusOK, sessionJSON)
	client := NewStripeClient(testKey, WithAPIBase(srv.URL))

	expiresAt := time.Now().Add(45 * time.Minute)
	params := testParams()
	params.CustomerEmail = "buyer@example.com"
	params.ExpiresAt = expiresAt
	params.Quantity = 3

	if _, err := client.CreateCheckoutSession(context.Background(), params); err != nil {
		t.Fatalf("CreateCheckoutSession: %s", err)
	}

	var tests = []struct {
		field string
		want  string
	}{
		{"customer_email", "buyer@example.com"},
		{"expires_at", strconv.FormatInt(expiresAt.Unix(), 10)},
		{"line_items[0][quantity]", "3"},
	}
	for _, tt := range tests {
		if got := srv.form[tt.field]; got != tt.want {
			t.Errorf("expected %s to be %q, got %q", tt.field, tt.want, got)
		}
	}
}

func TestCreateCheckoutSessionRemoteFailure(t *testing.T) {
	srv := newFakeStripe(t, http.StatusBadRequest, errorJSON)
	client := NewStripeClient(testKey, WithAPIBase(srv.URL))

	session, err := client.CreateCheckoutSession(context.Background(), testParams())
	if err == nil {
		t.Fatalf("expected an error, got session %+v", session)
	}

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected a *RemoteError, got %T: %s", err, err)
	}
	if remoteErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", remoteErr.StatusCode)
	}
	if string(remoteErr.Body) != errorJSON {
		t.Errorf("expected the raw body to be kept verbatim, got:\n%s", remoteErr.Body)
	}
	if srv.requests != 1 {
		t.Errorf("expected no retries, got %d requests", srv.requests)
	}
}

func TestCreateCheckoutSessionMissingURL(t *testing.T) {
	body := `{"id": "cs_test_123", "object": "checkout.session", "status": "open"}`
	srv := newFakeStripe(t, http.StatusOK, body)
	client := NewStripeClient(testKey, WithAPIBase(srv.URL))

	_, err := client.CreateCheckoutSession(context.Background(), testParams())
	if !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected a *RemoteError, got %T", err)
	}
	if remoteErr.StatusCode != http.StatusOK || string(remoteErr.Body) != body {
		t.Errorf("unexpected remote error %+v", remoteErr)
	}
}

func TestCreateCheckoutSessionRequiresStatusOK(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusAccepted} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := newFakeStripe(t, status, sessionJSON)
			client := NewStripeClient(testKey, WithAPIBase(srv.URL))

			session, err := client.CreateCheckoutSession(context.Background(), testParams())
			if !errors.Is(err, ErrUnexpectedStatus) {
				t.Fatalf("expected ErrUnexpectedStatus, got session %+v and error %v", session, err)
			}

			var remoteErr *RemoteError
			if !errors.As(err, &remoteErr) || remoteErr.StatusCode != status {
				t.Errorf("expected a *RemoteError with status %d, got %v", status, err)
			}
		})
	}
}

func TestCreateCheckoutSessionUnreachable(t *testing.T) {
	srv := newFakeStripe(t, http.StatusOK, sessionJSON)
	srv.Close()
	client := NewStripeClient(testKey, WithAPIBase(srv.URL))

	_, err := client.CreateCheckoutSession(context.Background(), testParams())
	if err == nil {
		t.Fatal("expected an error from an unreachable server")
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		t.Errorf("did not expect a remote error without a response, got %+v", remoteErr)
	}
}

func TestCreateCheckoutSessionInvalidParams(t *testing.T) {
	srv := newFakeStripe(t, http.StatusOK, sessionJSON)
	client := NewStripeClient(testKey, WithAPIBase(srv.URL))

	var tests = []struct {
		name   string
		params CheckoutParams
	}{
		{"no price", CheckoutParams{BaseURL: "https://sinna.site"}},
		{"no base url", CheckoutParams{PriceID: "price_standard"}},
		{"negative quantity", CheckoutParams{PriceID: "price_standard", BaseURL: "https://sinna.site", Quantity: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.CreateCheckoutSession(context.Background(), tt.params); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if srv.requests != 0 {
		t.Errorf("expected no request for invalid params, got %d", srv.requests)
	}
}

func TestGetCheckoutSession(t *testing.T) {
	srv := newFakeStripe(t, http.StatusOK, sessionJSON)
	client := NewStripeClient(testKey, WithAPIBase(srv.URL))

	session, err := client.GetCheckoutSession(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("GetCheckoutSession: %s", err)
	}
	if session.ID != "cs_test_123" || session.Status != SessionOpen {
		t.Errorf("unexpected session %+v", session)
	}
	if srv.method != http.MethodGet || srv.path != "/v1/checkout/sessions/cs_test_123" {
		t.Errorf("unexpected request %s %s", srv.method, srv.path)
	}
}

func TestGetCheckoutSessionNotFound(t *testing.T) {
	srv := newFakeStripe(t, http.StatusNotFound, errorJSON)
	client := NewStripeClient(testKey, WithAPIBase(srv.URL))

	_, err := client.GetCheckoutSession(context.Background(), "cs_test_missing")

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected a 404 *RemoteError, got %v", err)
	}

	if _, err := client.GetCheckoutSession(context.Background(), ""); err == nil {
		t.Error("expected an error for an empty session ID")
	}
}

func TestIsUsable(t *testing.T) {
	var tests = []struct {
		session CheckoutSession
		want    bool
	}{
		{CheckoutSession{Status: SessionOpen, URL: "https://checkout.stripe.com/x"}, true},
		{CheckoutSession{Status: SessionOpen}, false},
		{CheckoutSession{Status: SessionExpired, URL: "https://checkout.stripe.com/x"}, false},
		{CheckoutSession{Status: SessionComplete}, false},
	}

	for _, tt := range tests {
		if got := tt.session.IsUsable(); got != tt.want {
			t.Errorf("IsUsable(%+v) = %v, want %v", tt.session, got, tt.want)
		}
	}
}

func TestRemoteErrorMessage(t *testing.T) {
	err := &RemoteError{StatusCode: http.StatusOK, Err: ErrMissingURL}
	if got, want := err.Error(), "stripe returned HTTP 200: no checkout URL returned from Stripe"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
