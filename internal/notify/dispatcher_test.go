package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Dispatch delivers the event as JSON without blocking the caller.
func TestWebhookDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var received []Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
	}))
	defer server.Close()

	dispatcher := NewWebhookDispatcher(server.URL)
	dispatcher.Dispatch(Event{
		Type:      EventBidPlaced,
		AuctionID: "auction-1",
		Payload:   map[string]any{"amount": "150"},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, EventBidPlaced, received[0].Type)
	require.Equal(t, "auction-1", received[0].AuctionID)
	require.Equal(t, "150", received[0].Payload["amount"])
}

// Delivery failures never propagate to the caller.
func TestWebhookDispatcher_Dispatch_FailureIsSilent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dispatcher := NewWebhookDispatcher(server.URL)
	// must not panic or block
	dispatcher.Dispatch(Event{Type: EventAuctionClosed, AuctionID: "auction-1"})

	// give the detached goroutine time to finish against the failing endpoint
	time.Sleep(50 * time.Millisecond)
}

func TestNopDispatcher(t *testing.T) {
	t.Parallel()

	NopDispatcher{}.Dispatch(Event{Type: EventAuctionCreated, AuctionID: "auction-1"})
}
