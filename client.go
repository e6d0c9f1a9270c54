// Package recaptcha verifies reCAPTCHA solution tokens against Google's
// siteverify endpoint. The Client is the low-level building block; the
// CaptchaService and Middleware layers wire it to policy-driven secrets
// and plain net/http handlers.
package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	verifyEndpoint = "https://www.google.com/recaptcha/api/siteverify"
	signupURL      = "https://www.google.com/recaptcha/admin"
	clientVersion  = "go_1.0"
)

// Error codes reported in Result.ErrorCodes. CodeMissingInput and
// CodeMissingErrorCodes are produced locally; the rest come from the
// remote service.
const (
	CodeMissingInput      = "missing-input"
	CodeMissingErrorCodes = "missing-error-codes"

	CodeMissingInputSecret   = "missing-input-secret"
	CodeInvalidInputSecret   = "invalid-input-secret"
	CodeMissingInputResponse = "missing-input-response"
	CodeInvalidInputResponse = "invalid-input-response"
	CodeBadRequest           = "bad-request"
	CodeTimeoutOrDuplicate   = "timeout-or-duplicate"
)

// Doer issues a single HTTP exchange. *http.Client satisfies it; tests
// substitute a double.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the outcome of one verification call. ErrorCodes is populated
// exactly when Success is false.
type Result struct {
	Success    bool
	ErrorCodes []string
}

// Client calls the siteverify endpoint with a fixed shared secret. It is
// immutable after New and safe for concurrent use.
type Client struct {
	secret    string
	endpoint  string
	userAgent string
	client    Doer
}

// New builds a Client for the given shared secret. An empty secret is a
// configuration fault, not a verification failure.
func New(secret string, opts ...Option) (*Client, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, &ConfigError{
			Message: "secret is required; sign up for API keys at " + signupURL,
		}
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	c := &Client{
		secret:    secret,
		endpoint:  s.endpoint,
		userAgent: s.userAgent,
		client:    s.client,
	}
	if c.client == nil {
		c.client = s.httpClient()
	}
	return c, nil
}

// Verify checks one solution token, optionally attributing it to the end
// user's IP. An empty token short-circuits to a missing-input failure
// without touching the network. Transport and malformed-response faults
// come back as errors; an explicit rejection by the service is a normal
// Result, not an error.
func (c *Client) Verify(ctx context.Context, remoteIP, response string) (Result, error) {
	if response == "" {
		return Result{Success: false, ErrorCodes: []string{CodeMissingInput}}, nil
	}

	q := url.Values{}
	q.Set("secret", c.secret)
	q.Set("remoteip", strings.TrimSpace(remoteIP))
	q.Set("v", clientVersion)
	q.Set("response", strings.TrimSpace(response))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, &TransportError{Op: "build siteverify request", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, &TransportError{Op: "siteverify request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &TransportError{Op: "read siteverify response", Err: err}
	}

	var raw struct {
		Success    *bool    `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, &ResponseFormatError{Body: body, Err: err}
	}
	if raw.Success == nil {
		return Result{}, &ResponseFormatError{Body: body, Err: errors.New("success field missing")}
	}

	if *raw.Success {
		return Result{Success: true}, nil
	}
	codes := raw.ErrorCodes
	if len(codes) == 0 {
		codes = []string{CodeMissingErrorCodes}
	}
	return Result{Success: false, ErrorCodes: codes}, nil
}
