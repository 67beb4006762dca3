package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidTemperature   = errors.New("temperature must be between 0 and 2")
	ErrInvalidMaxTokens     = errors.New("max tokens must be positive")
	ErrInvalidTopP          = errors.New("top_p must be between 0 and 1")
	ErrInvalidTimeout       = errors.New("timeout must be positive")
	ErrInvalidRetryAttempts = errors.New("retry attempts must not be negative")
)

// RequestParameters holds generation settings. A nil field means the vendor
// default applies. Extras carries vendor-specific keys by their wire name,
// e.g. "frequency_penalty" or "random_seed".
type RequestParameters struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
	Stream      bool
	Extras      map[string]any
}

// Validate checks ranges without coercing any value.
func (p RequestParameters) Validate() error {
	if p.Temperature != nil {
		if err := ValidateTemperature(*p.Temperature); err != nil {
			return err
		}
	}
	if p.MaxTokens != nil {
		if err := ValidateMaxTokens(*p.MaxTokens); err != nil {
			return err
		}
	}
	if p.TopP != nil {
		if err := ValidateTopP(*p.TopP); err != nil {
			return err
		}
	}
	return nil
}

// DefaultParameters are used for single-turn messages sent without explicit
// settings.
func DefaultParameters() RequestParameters {
	return RequestParameters{
		Temperature: Ptr(0.7),
		MaxTokens:   Ptr(4000),
	}
}

func ValidateTemperature(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 2 {
		return fmt.Errorf("%w, got %v", ErrInvalidTemperature, v)
	}
	return nil
}

func ValidateTopP(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w, got %v", ErrInvalidTopP, v)
	}
	return nil
}

func ValidateMaxTokens(v int) error {
	if v <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidMaxTokens, v)
	}
	return nil
}

func ValidateTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidTimeout, d)
	}
	return nil
}

func ValidateRetryAttempts(n int) error {
	if n < 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidRetryAttempts, n)
	}
	return nil
}
