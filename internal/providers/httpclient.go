package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 8 << 20

// NewHTTPClient returns a client that attaches bearer tokens from ts to every
// request. A nil ts yields a plain client.
func NewHTTPClient(ts oauth2.TokenSource) *http.Client {
	base := &http.Client{Transport: http.DefaultTransport}
	if ts == nil {
		return base
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, ts)
}

type httpCaller struct {
	provider string
	client   *http.Client
	logger   *zap.Logger
}

func newHTTPCaller(provider string, client *http.Client, logger *zap.Logger) httpCaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return httpCaller{provider: provider, client: client, logger: logger}
}

// do executes req and decodes a successful JSON body into out. Failures are
// returned as *ProviderError.
func (c *httpCaller) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) || isTimeout(req.Context().Err()) {
			return NewProviderError(c.provider, KindTimeout, err)
		}
		return NewProviderError(c.provider, KindUpstreamRejected, errors.Wrap(err, "request failed"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return NewProviderError(c.provider, KindTimeout, err)
		}
		return NewProviderError(c.provider, KindMalformedResponse, errors.Wrap(err, "reading body"))
	}

	c.logger.Debug("upstream response",
		zap.String("provider", c.provider),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &ProviderError{
			Provider: c.provider,
			Kind:     KindRateLimited,
			Reason:   reasonFromBody(body, resp.Status),
		}
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return &ProviderError{
			Provider: c.provider,
			Kind:     KindTimeout,
			Reason:   reasonFromBody(body, resp.Status),
		}
	case resp.StatusCode >= 400:
		return Rejected(c.provider, reasonFromBody(body, resp.Status))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return NewProviderError(c.provider, KindMalformedResponse, errors.Wrap(err, "decoding response"))
	}
	return nil
}

// reasonFromBody extracts an error message from the common upstream error
// envelopes, falling back to the HTTP status line.
func reasonFromBody(body []byte, status string) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Errors  []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return status
	}
	if len(envelope.Errors) > 0 {
		e := envelope.Errors[0]
		if e.Detail != "" {
			return e.Detail
		}
		if e.Title != "" {
			return e.Title
		}
	}
	if len(envelope.Error) > 0 {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return status
}

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(i int) *int {
	return &i
}
