package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	bidding "salesroom-auction/internal/biddingService"
	"salesroom-auction/internal/closer"
	model "salesroom-auction/internal/models"
	"salesroom-auction/internal/notify"
	"salesroom-auction/internal/orders"
	"salesroom-auction/internal/repository"
	"salesroom-auction/internal/server"
	handler "salesroom-auction/services/auction/handler"
)

// stubGateway stands in for the payment processor during integration tests.
type stubGateway struct{}

func (stubGateway) CreateCheckoutSession(_ context.Context, order model.Order, _, _ string) (string, error) {
	return "https://pay.test/session/" + order.OrderID, nil
}

// SetupTestRouter wires the full stack against the in-memory store for
// integration testing. The store is returned for direct seeding.
func SetupTestRouter() (*gin.Engine, *repository.MemoryRepo) {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	finalizer := orders.NewFinalizer(repo)
	auctionCloser := closer.NewCloser(repo, finalizer, notify.NopDispatcher{})
	service := bidding.NewBiddingService(repo, auctionCloser, notify.NopDispatcher{})
	auctionHandler := handler.NewAuctionHandler(service, auctionCloser, finalizer, stubGateway{}, "http://test.local")

	return server.SetupRouter(auctionHandler), repo
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		if w.Code >= 200 && w.Code < 300 {
			if data, ok := resp["data"].(map[string]any); ok {
				resp = data
			}
		}
	}

	return resp, w
}
