// Package openfinance is the HTTP client of the remote aggregation service.
// Each entity type is exposed as a Collection implementing reconcile.Source.
package openfinance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"finsync/internal/domain/reconcile"
)

const (
	defaultTimeout  = 60 * time.Second
	requestIDHeader = "X-Request-Id"
)

// ErrNoToken is returned by TokenFuncs that have no credentials.
var ErrNoToken = errors.New("no access token")

// TokenFunc returns the bearer token for the next request.
type TokenFunc func(ctx context.Context) (string, error)

// StaticToken returns a TokenFunc for a fixed token.
func StaticToken(token string) TokenFunc {
	return func(ctx context.Context) (string, error) {
		if token == "" {
			return "", ErrNoToken
		}
		return token, nil
	}
}

// Client handles communication with the aggregation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenFunc
}

// NewClient creates a client for baseURL. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration, token TokenFunc) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if token == nil {
		token = StaticToken("")
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// ErrorResponse is the body of a rejected request.
type ErrorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	ReferenceID  string `json:"referenceCode,omitempty"`
}

// do executes a request and returns the response body. A nil body means the
// remote answered without content. Failures are *reconcile.Error values.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, &reconcile.Error{Kind: reconcile.KindAuthentication, Op: op, Err: err}
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &reconcile.Error{Kind: reconcile.KindValidation, Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &reconcile.Error{Kind: reconcile.KindTransport, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &reconcile.Error{Kind: reconcile.KindTransport, Op: op, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &reconcile.Error{Kind: reconcile.KindTransport, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp.StatusCode, respBody)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}
	return respBody, nil
}

func statusError(op string, status int, body []byte) *reconcile.Error {
	kind := reconcile.KindRemoteRejected
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = reconcile.KindAuthentication
	}

	e := &reconcile.Error{Kind: kind, Op: op, Status: status}
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.ErrorCode != "" || errResp.ErrorMessage != "") {
		e.Code = errResp.ErrorCode
		e.Message = errResp.ErrorMessage
	} else {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
	}
	return e
}
