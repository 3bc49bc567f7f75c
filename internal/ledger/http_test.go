package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "satvault/pkg/domain-errors"
	"satvault/pkg/platform/circuit"
)

type HTTPClientSuite struct {
	suite.Suite
	server *httptest.Server
	status atomic.Int32
	calls  atomic.Int32
	keys   chan string
	client *HTTPClient
}

func TestHTTPClientSuite(t *testing.T) {
	suite.Run(t, new(HTTPClientSuite))
}

func (s *HTTPClientSuite) SetupTest() {
	s.status.Store(http.StatusOK)
	s.calls.Store(0)
	s.keys = make(chan string, 16)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transfers" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.keys <- r.Header.Get("Idempotency-Key")
		status := int(s.status.Load())
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(errorBody{Error: "rejected", ErrorDescription: "insufficient funds"})
			return
		}
		var req TransferRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(Receipt{ID: req.ID, TxID: "tx-1", Amount: req.Amount, CompletedAt: time.Now()})
	}))
	breaker := circuit.New("ledger-test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	s.client = NewHTTPClient(s.server.URL+"/", 2*time.Second, WithBreaker(breaker))
}

func (s *HTTPClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *HTTPClientSuite) request() TransferRequest {
	return TransferRequest{ID: "7a1f4c2e-0000-4000-8000-000000000001", From: "custody", To: "bc1heir", Amount: 50_000}
}

func (s *HTTPClientSuite) TestTransfer() {
	s.Run("returns receipt and sends idempotency key", func() {
		receipt, err := s.client.Transfer(context.Background(), s.request())
		s.Require().NoError(err)
		s.Equal(s.request().ID, receipt.ID)
		s.Equal(uint64(50_000), receipt.Amount)
		s.Equal(s.request().ID, <-s.keys)
	})

	s.Run("client rejection is a transfer failure and keeps the circuit closed", func() {
		s.status.Store(http.StatusUnprocessableEntity)
		for range 3 {
			_, err := s.client.Transfer(context.Background(), s.request())
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeTransferFailed))
			s.Contains(err.Error(), "insufficient funds")
		}
		s.False(s.client.breaker.IsOpen())
	})
}

func (s *HTTPClientSuite) TestCircuitOpensOnServerErrors() {
	s.status.Store(http.StatusBadGateway)

	for range 2 {
		_, err := s.client.Transfer(context.Background(), s.request())
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	}
	s.True(s.client.breaker.IsOpen())

	before := s.calls.Load()
	_, err := s.client.Transfer(context.Background(), s.request())
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(before, s.calls.Load(), "open circuit must not reach the ledger")
}

func TestHTTPClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewHTTPClient(url, time.Second)
	_, err := client.Transfer(context.Background(), TransferRequest{ID: "id", From: "a", To: "b", Amount: 1})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}
