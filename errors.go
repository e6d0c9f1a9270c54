package recaptcha

import "fmt"

// ConfigError reports unusable client configuration, such as a missing
// secret. It is returned at construction time and is not retryable until
// the configuration is fixed.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "recaptcha: " + e.Message
}

// TransportError wraps a connection-level fault (DNS, TLS, timeout,
// cancellation) raised while talking to the siteverify endpoint. The
// client never retries; callers decide.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("recaptcha: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseFormatError reports a siteverify response body that is not the
// expected JSON shape. It is never folded into a pass/fail result.
type ResponseFormatError struct {
	Body []byte
	Err  error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("recaptcha: unexpected response body: %v", e.Err)
}

func (e *ResponseFormatError) Unwrap() error {
	return e.Err
}
