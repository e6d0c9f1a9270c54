package recaptcha

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultConnectTimeout = 60 * time.Second
	defaultTimeout        = 60 * time.Second
	defaultMaxRedirects   = 5
	defaultUserAgent      = "recaptcha-go/1.0"
)

type settings struct {
	endpoint       string
	userAgent      string
	connectTimeout time.Duration
	timeout        time.Duration
	maxRedirects   int
	proxy          *url.URL
	client         Doer
}

func defaultSettings() settings {
	return settings{
		endpoint:       verifyEndpoint,
		userAgent:      defaultUserAgent,
		connectTimeout: defaultConnectTimeout,
		timeout:        defaultTimeout,
		maxRedirects:   defaultMaxRedirects,
	}
}

// Option adjusts the transport configuration of a Client.
type Option func(*settings)

// WithHTTPClient replaces the whole transport. Timeout, proxy and redirect
// options are ignored when a custom Doer is set.
func WithHTTPClient(d Doer) Option {
	return func(s *settings) {
		if d != nil {
			s.client = d
		}
	}
}

// WithTimeout bounds the full request/response exchange.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConnectTimeout bounds connection establishment only.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithProxy routes the siteverify call through the given proxy URL.
func WithProxy(u *url.URL) Option {
	return func(s *settings) {
		s.proxy = u
	}
}

// WithMaxRedirects caps redirect following; zero stops redirects entirely.
func WithMaxRedirects(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRedirects = n
		}
	}
}

// WithUserAgent overrides the identifying User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithEndpoint points the client at a different verification URL, mostly
// useful against a local test server.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) {
		if endpoint != "" {
			s.endpoint = endpoint
		}
	}
}

func (s settings) httpClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: s.connectTimeout,
		}).DialContext,
	}
	if s.proxy != nil {
		transport.Proxy = http.ProxyURL(s.proxy)
	}

	max := s.maxRedirects
	return &http.Client{
		Timeout:   s.timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if max == 0 {
				return http.ErrUseLastResponse
			}
			if len(via) >= max {
				return fmt.Errorf("stopped after %d redirects", max)
			}
			return nil
		},
	}
}
