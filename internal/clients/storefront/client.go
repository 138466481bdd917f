package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Jenaru0/dela-storefront/internal/gate"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
	"github.com/Jenaru0/dela-storefront/internal/platform/envutil"
)

const maxBodyBytes = 1 << 20

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client speaks JSON to the storefront API. It implements gate.Doer for
// authenticated calls and the session AuthAPI.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: baseURL, timeout: timeout, httpClient: hc}, nil
}

func NewFromEnv() (*Client, error) {
	return New(Options{
		BaseURL: envutil.String("STOREFRONT_API_BASE_URL", "http://localhost:8080"),
		Timeout: envutil.Seconds("STOREFRONT_API_TIMEOUT_SECONDS", 15*time.Second),
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do performs one exchange and returns the response for any status. Only a
// failure to get a response is an error.
func (c *Client) Do(ctx context.Context, req gate.Request, accessToken string) (*gate.Response, error) {
	var body io.Reader
	if req.Body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(req.Body); err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err)
		}
		body = &buf
	}

	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	hreq, err := http.NewRequestWithContext(ctx2, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, err
	}
	setHeaders(hreq, accessToken, req.Body != nil)

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		return nil, apierr.Transport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apierr.Transport(fmt.Errorf("read %s %s: %w", req.Method, req.Path, err))
	}
	return &gate.Response{Status: resp.StatusCode, Body: raw}, nil
}

// doJSON runs an exchange without the gate and maps non-2xx statuses to errors.
func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, body, out any) error {
	resp, err := c.Do(ctx, gate.Request{Method: method, Path: path, Body: body}, accessToken)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *gate.Response, out any) error {
	if !resp.OK() {
		return errorFor(resp.Status, resp.Body)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func setHeaders(req *http.Request, accessToken string, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}
