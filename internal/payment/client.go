package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "forum-service/pkg/errors"
)

const clientTimeout = 10 * time.Second

// Client talks to the payment provider's REST API.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: clientTimeout},
	}
}

type checkoutSessionResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Mode              string `json:"mode"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	Subscription      string `json:"subscription"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	LineItems         struct {
		Data []struct {
			Price struct {
				ID      string `json:"id"`
				Product string `json:"product"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

// CheckoutSession retrieves a checkout session with its line items
// expanded.
func (c *Client) CheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s?expand[]=line_items", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NotFound("checkout session not found")
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.Upstream(
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode), nil)
	}

	var body checkoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.Upstream("failed to decode checkout session", err)
	}

	session := &CheckoutSession{
		ID:                body.ID,
		Status:            body.Status,
		Mode:              body.Mode,
		ClientReferenceID: body.ClientReferenceID,
		CustomerEmail:     body.CustomerEmail,
		SubscriptionID:    body.Subscription,
		AmountTotal:       body.AmountTotal,
		Currency:          body.Currency,
	}
	if len(body.LineItems.Data) > 0 {
		session.PriceID = body.LineItems.Data[0].Price.ID
		session.ProductID = body.LineItems.Data[0].Price.Product
	}
	return session, nil
}
