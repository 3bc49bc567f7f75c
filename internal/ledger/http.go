package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	dErrors "satvault/pkg/domain-errors"
	"satvault/pkg/platform/circuit"
)

// HTTPClient calls the custody ledger over JSON/HTTP, guarded by a circuit
// breaker that fails fast while the ledger is unhealthy.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type HTTPOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.http = c
		}
	}
}

func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(h *HTTPClient) {
		if b != nil {
			h.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTPClient) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHTTPClient(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: circuit.New("ledger"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *HTTPClient) Transfer(ctx context.Context, req TransferRequest) (*Receipt, error) {
	if !c.breaker.Allow() {
		return nil, dErrors.New(dErrors.CodeUnavailable, "ledger circuit open")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode transfer request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.ID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.recordFailure(ctx)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unreachable")
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.recordFailure(ctx)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read ledger response")
	}

	switch {
	case resp.StatusCode >= 500:
		c.recordFailure(ctx)
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("ledger returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		// the ledger answered; a rejected transfer says nothing about its health
		c.recordSuccess(ctx)
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.ErrorDescription
		if msg == "" {
			msg = eb.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, dErrors.New(dErrors.CodeTransferFailed, "ledger rejected transfer: "+msg)
	}

	c.recordSuccess(ctx)
	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransferFailed, "decode ledger receipt")
	}
	if receipt.ID != req.ID {
		return nil, dErrors.New(dErrors.CodeTransferFailed, "ledger receipt does not match request")
	}
	return &receipt, nil
}

func (c *HTTPClient) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "ledger circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *HTTPClient) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "ledger circuit closed", "breaker", c.breaker.Name())
	}
}
