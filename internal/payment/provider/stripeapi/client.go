// Package stripeapi is a narrow REST client for the Stripe Checkout Sessions
// API: the two calls the marketplace needs, nothing else.
package stripeapi

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

	"tuitionhub/internal/payment/provider"
	"tuitionhub/pkg/platform/sentinel"
)

// Client talks to the Stripe REST API with form-encoded requests.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type sessionResponse struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSession opens a one-off card payment session.
func (c *Client) CreateSession(ctx context.Context, input provider.CreateSessionInput) (*provider.Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", input.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(input.AmountTotal, 10))
	form.Set("line_items[0][price_data][product_data][name]", input.ProductName)
	form.Set("success_url", input.SuccessURL)
	form.Set("cancel_url", input.CancelURL)
	if input.CustomerEmail != "" {
		form.Set("customer_email", input.CustomerEmail)
	}
	form.Set("metadata[applicationId]", input.Metadata.ApplicationID)
	form.Set("metadata[tutorEmail]", input.Metadata.TutorEmail)
	form.Set("metadata[studentEmail]", input.Metadata.StudentEmail)

	return c.do(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()))
}

// RetrieveSession fetches a session by id. Unknown ids yield
// sentinel.ErrNotFound.
func (c *Client) RetrieveSession(ctx context.Context, id string) (*provider.Session, error) {
	return c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*provider.Session, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, sentinel.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("provider error (%d %s): %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("provider error: status %d", resp.StatusCode)
	}

	var session sessionResponse
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	return &provider.Session{
		ID:              session.ID,
		URL:             session.URL,
		PaymentIntentID: session.PaymentIntent,
		AmountTotal:     session.AmountTotal,
		Currency:        session.Currency,
		PaymentStatus:   session.PaymentStatus,
		Metadata: provider.Metadata{
			ApplicationID: session.Metadata["applicationId"],
			TutorEmail:    session.Metadata["tutorEmail"],
			StudentEmail:  session.Metadata["studentEmail"],
		},
	}, nil
}
