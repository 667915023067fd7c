package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"salesroom-auction/internal/auctionerrors"
	model "salesroom-auction/internal/models"
)

// Gateway is the narrow contract with the hosted payment processor: given a
// payable order it produces a redirect URL for checkout. Completion arrives
// asynchronously on the webhook endpoint, keyed by the order id reference.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, order model.Order, successURL, cancelURL string) (string, error)
}

// checkoutRequest is the wire format sent to the processor.
type checkoutRequest struct {
	Reference  string `json:"reference"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// HTTPGateway talks to the processor's checkout-session endpoint. Calls are
// time-bounded; a failure here never mutates order or auction state.
type HTTPGateway struct {
	baseURL  string
	apiKey   string
	currency string
	client   *http.Client
}

// NewHTTPGateway creates a gateway client for the given processor base URL
func NewHTTPGateway(baseURL, apiKey, currency string) *HTTPGateway {
	return &HTTPGateway{
		baseURL:  baseURL,
		apiKey:   apiKey,
		currency: currency,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateCheckoutSession asks the processor for a hosted checkout URL
func (g *HTTPGateway) CreateCheckoutSession(ctx context.Context, order model.Order, successURL, cancelURL string) (string, error) {
	body, err := json.Marshal(checkoutRequest{
		Reference:  order.OrderID,
		Amount:     order.WinnerBidAmount.String(),
		Currency:   g.currency,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", auctionerrors.ErrGatewayFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/checkout/sessions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", auctionerrors.ErrGatewayFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", auctionerrors.ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: processor returned %d", auctionerrors.ErrGatewayFailure, resp.StatusCode)
	}

	var session checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("%w: %v", auctionerrors.ErrGatewayFailure, err)
	}
	if session.URL == "" {
		return "", fmt.Errorf("%w: processor response missing redirect url", auctionerrors.ErrGatewayFailure)
	}
	return session.URL, nil
}
