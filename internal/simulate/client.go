package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/token"
)

const tokenTTL = time.Hour

// apiError is the body of every failed request.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// response is a decoded reply.
type response struct {
	Status int
	Body   []byte
	Err    apiError
}

// client signs requests for any caller with a shared issuer.
type client struct {
	baseURL string
	http    *http.Client
	issuer  *token.Issuer
}

func newClient(baseURL string, timeout time.Duration, issuer *token.Issuer) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		issuer:  issuer,
	}
}

// do sends body as JSON on behalf of caller. An empty caller sends no token.
func (c *client) do(ctx context.Context, method, path string, caller types.Account, body any) (response, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return response{}, fmt.Errorf("marshal request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		raw, err := c.issuer.Issue(caller.String(), tokenTTL)
		if err != nil {
			return response{}, fmt.Errorf("issue token for %s: %w", caller, err)
		}
		req.Header.Set("Authorization", "Bearer "+raw)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	out := response{Status: resp.StatusCode, Body: data}
	if resp.StatusCode >= http.StatusBadRequest {
		_ = json.Unmarshal(data, &out.Err)
	}
	return out, nil
}

// call is do followed by decoding a successful body into v.
func (c *client) call(ctx context.Context, method, path string, caller types.Account, body, v any) (response, error) {
	resp, err := c.do(ctx, method, path, caller, body)
	if err != nil {
		return resp, err
	}
	if v != nil && resp.Status < http.StatusBadRequest {
		if err := json.Unmarshal(resp.Body, v); err != nil {
			return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}
