package chaterr

import (
	"errors"
	"fmt"
)

// Kind enumerates the failure classes surfaced by the provider layer.
type Kind int

const (
	KindUnsupportedModel Kind = iota + 1
	KindMissingAPIKey
	KindInvalidConfiguration
	KindInvalidResponse
	KindAuthenticationFailed
	KindRateLimitExceeded
	KindServerError
	KindNetworkError
	KindInvalidSessionID
)

var kindNames = map[Kind]string{
	KindUnsupportedModel:     "unsupported_model",
	KindMissingAPIKey:        "missing_api_key",
	KindInvalidConfiguration: "invalid_configuration",
	KindInvalidResponse:      "invalid_response",
	KindAuthenticationFailed: "authentication_failed",
	KindRateLimitExceeded:    "rate_limit_exceeded",
	KindServerError:          "server_error",
	KindNetworkError:         "network_error",
	KindInvalidSessionID:     "invalid_session_id",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ErrSerialization is wrapped by request transformers when a unified request
// cannot be expressed in a vendor's wire format.
var ErrSerialization = errors.New("serialization failed")

// ErrParse is wrapped by response parsers when a vendor payload is malformed.
var ErrParse = errors.New("parse failed")

// Sentinels for errors.Is matching on kind alone.
var (
	ErrUnsupportedModel     = &Error{Kind: KindUnsupportedModel}
	ErrMissingAPIKey        = &Error{Kind: KindMissingAPIKey}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrInvalidResponse      = &Error{Kind: KindInvalidResponse}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrRateLimitExceeded    = &Error{Kind: KindRateLimitExceeded}
	ErrServerError          = &Error{Kind: KindServerError}
	ErrNetworkError         = &Error{Kind: KindNetworkError}
	ErrInvalidSessionID     = &Error{Kind: KindInvalidSessionID}
)

// Error is the single error type returned by dispatch. Only the fields
// relevant to Kind are populated.
type Error struct {
	Kind Kind
	// Model is set for KindUnsupportedModel.
	Model string
	// Provider is set for KindMissingAPIKey.
	Provider string
	// Detail is set for KindServerError, e.g. "Server error: 503".
	Detail string
	// StatusCode is the HTTP status that produced the error, if any.
	StatusCode int
	// Upstream carries the vendor's own error message when the error body
	// could be decoded. It never changes Detail.
	Upstream string
	Err      error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindUnsupportedModel:
		msg = fmt.Sprintf("unsupported model: %s", e.Model)
	case KindMissingAPIKey:
		msg = fmt.Sprintf("missing API key for provider %s", e.Provider)
	case KindInvalidConfiguration:
		msg = "invalid provider configuration"
	case KindInvalidResponse:
		msg = "invalid response from provider"
	case KindAuthenticationFailed:
		msg = "authentication failed"
	case KindRateLimitExceeded:
		msg = "rate limit exceeded"
	case KindServerError:
		msg = e.Detail
		if msg == "" {
			msg = "server error"
		}
	case KindNetworkError:
		msg = "network error"
	case KindInvalidSessionID:
		msg = "invalid session id"
	default:
		msg = e.Kind.String()
	}

	if e.Upstream != "" {
		msg += " (" + e.Upstream + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. Non-empty
// Model, Provider and Detail on target must match as well, so
// errors.Is(err, UnsupportedModel("x")) is exact while
// errors.Is(err, ErrUnsupportedModel) matches any model.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Model != "" && t.Model != e.Model {
		return false
	}
	if t.Provider != "" && t.Provider != e.Provider {
		return false
	}
	if t.Detail != "" && t.Detail != e.Detail {
		return false
	}
	return true
}

// KindOf extracts the Kind from err, if err wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func UnsupportedModel(model string) *Error {
	return &Error{Kind: KindUnsupportedModel, Model: model}
}

func MissingAPIKey(provider string) *Error {
	return &Error{Kind: KindMissingAPIKey, Provider: provider}
}

func InvalidConfiguration(cause error) *Error {
	return &Error{Kind: KindInvalidConfiguration, Err: cause}
}

func InvalidResponse(cause error) *Error {
	return &Error{Kind: KindInvalidResponse, Err: cause}
}

func AuthenticationFailed() *Error {
	return &Error{Kind: KindAuthenticationFailed, StatusCode: 401}
}

func RateLimitExceeded() *Error {
	return &Error{Kind: KindRateLimitExceeded, StatusCode: 429}
}

func ServerError(detail string) *Error {
	return &Error{Kind: KindServerError, Detail: detail}
}

func NetworkError(cause error) *Error {
	return &Error{Kind: KindNetworkError, Err: cause}
}

func InvalidSessionID() *Error {
	return &Error{Kind: KindInvalidSessionID}
}
