package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"salesroom-auction/utils"
)

// Event types published on auction state transitions.
const (
	EventAuctionCreated = "auction_created"
	EventBidPlaced      = "bid_placed"
	EventAuctionClosed  = "auction_closed"
)

// Event is the outbound notification payload.
type Event struct {
	Type      string         `json:"type"`
	AuctionID string         `json:"auction_id"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Dispatcher delivers events to interested parties. Delivery is best-effort:
// implementations must never block the caller or surface failures to it.
type Dispatcher interface {
	Dispatch(event Event)
}

// WebhookDispatcher POSTs events as JSON to a configured webhook URL from a
// detached goroutine. Failures are only observable in the logs.
type WebhookDispatcher struct {
	url    string
	client *http.Client
}

// NewWebhookDispatcher creates a dispatcher targeting the given URL
func NewWebhookDispatcher(url string) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Dispatch sends the event without waiting for the result
func (d *WebhookDispatcher) Dispatch(event Event) {
	go func() {
		if err := d.send(event); err != nil {
			utils.Warn("notification delivery failed", map[string]any{
				"type":       event.Type,
				"auction_id": event.AuctionID,
				"error":      err.Error(),
			})
		}
	}()
}

func (d *WebhookDispatcher) send(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, d.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// NopDispatcher drops every event. Used when no webhook URL is configured.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(Event) {}
