package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is the HTTP implementation of Gateway against the billing
// platform's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type lookupResponse struct {
	Candidate *CallCandidate `json:"candidate"`
}

func (c *Client) LookupCall(ctx context.Context, callerID string, approxTime time.Time, windowMinutes int, expectedPayout *float64) (*CallCandidate, error) {
	query := url.Values{}
	query.Set("callerId", callerID)
	query.Set("approxTime", approxTime.UTC().Format(time.RFC3339))
	query.Set("windowMinutes", strconv.Itoa(windowMinutes))
	if expectedPayout != nil {
		query.Set("expectedPayout", strconv.FormatFloat(*expectedPayout, 'f', 2, 64))
	}

	var resp lookupResponse
	if _, err := c.do(ctx, http.MethodGet, "/v1/calls/lookup?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	return resp.Candidate, nil
}

type legChainResponse struct {
	Legs []Leg `json:"legs"`
}

func (c *Client) GetLegChain(ctx context.Context, callID string) ([]Leg, error) {
	var resp legChainResponse
	if _, err := c.do(ctx, http.MethodGet, "/v1/calls/"+url.PathEscape(callID)+"/legs", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Legs, nil
}

func (c *Client) OverridePayment(ctx context.Context, legID string, req OverrideRequest) (*OverrideResult, error) {
	var resp OverrideResult
	raw, err := c.do(ctx, http.MethodPost, "/v1/legs/"+url.PathEscape(legID)+"/override", req, &resp)
	if err != nil {
		return nil, err
	}

	resp.Raw = raw
	return &resp, nil
}

// do executes one request and decodes the response into out, returning the
// raw body so callers can persist it verbatim in the audit log.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (string, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("platform request failed: %w", err)
	}
	defer httpResp.Body.Close()

	rawBytes, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read platform response: %w", err)
	}
	raw := string(rawBytes)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: httpResp.StatusCode,
			Message:    http.StatusText(httpResp.StatusCode),
			Raw:        raw,
		}
		// The platform reports a machine-readable code on structured errors.
		var decoded struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(rawBytes, &decoded); jsonErr == nil {
			if decoded.Code != "" {
				apiErr.Code = decoded.Code
			}
			if decoded.Message != "" {
				apiErr.Message = decoded.Message
			}
		}
		return raw, apiErr
	}

	if out != nil && len(rawBytes) > 0 {
		if err := json.Unmarshal(rawBytes, out); err != nil {
			return raw, fmt.Errorf("failed to decode platform response: %w", err)
		}
	}

	return raw, nil
}
