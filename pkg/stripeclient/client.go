/**
 * @description
 * This package provides a client for the Stripe API surface the platform
 * consumes: checkout sessions for one-time charges, daily-recurring
 * subscriptions for domain rentals, and webhook signature verification.
 *
 * Key features:
 * - Form-encoded v1 API requests with bearer authentication.
 * - Typed session/subscription/invoice models limited to the fields the
 *   orchestrator and reconciler actually read.
 * - Constant-time webhook signature checks with a replay tolerance window.
 */
package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

// Client is a client for the Stripe v1 API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a new Stripe API client.
func NewClient(secretKey string) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(secretKey, baseURL string) *Client {
	c := NewClient(secretKey)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// CheckoutParams describes a one-time charge to collect.
type CheckoutParams struct {
	ProductName        string
	ProductDescription string
	AmountCents        int64
	SuccessURL         string
	CancelURL          string
	CustomerEmail      string
	Metadata           map[string]string
}

// CheckoutSession is the creation response: the id the success page hands
// back and the hosted payment URL to redirect to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Session is a retrieved checkout session.
type Session struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Customer      string            `json:"customer"`
	Metadata      map[string]string `json:"metadata"`
}

// Subscription is a created recurring subscription.
type Subscription struct {
	ID string `json:"id"`
}

// APIError is a non-2xx response from Stripe.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %s (%s, status %d)", e.Message, e.Type, e.StatusCode)
}

// IsInvalidRequest reports whether err is Stripe rejecting the request
// itself, e.g. a malformed or unknown session id.
func IsInvalidRequest(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Type == "invalid_request_error"
}

// CreateCheckoutSession creates a hosted checkout session for a one-time
// card payment.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][product_data][name]", p.ProductName)
	if p.ProductDescription != "" {
		form.Set("line_items[0][price_data][product_data][description]", p.ProductDescription)
	}
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.AmountCents, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	if p.CustomerEmail != "" {
		form.Set("customer_email", p.CustomerEmail)
	}
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RetrieveSession fetches a checkout session by id.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateDailySubscription starts a daily-recurring subscription against the
// customer captured by a completed checkout session.
func (c *Client) CreateDailySubscription(ctx context.Context, customerID string, amountCents int64, metadata map[string]string) (*Subscription, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price_data][currency]", "usd")
	form.Set("items[0][price_data][product]", "prod_domain_rental")
	form.Set("items[0][price_data][recurring][interval]", "day")
	form.Set("items[0][price_data][recurring][interval_count]", "1")
	form.Set("items[0][price_data][unit_amount]", strconv.FormatInt(amountCents, 10))
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions", form, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// do executes one API request and decodes the response into target.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, target any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var wrapper struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(respBody, &wrapper); err != nil || wrapper.Error.Message == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		wrapper.Error.StatusCode = resp.StatusCode
		return &wrapper.Error
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to decode stripe response: %w", err)
		}
	}
	return nil
}
