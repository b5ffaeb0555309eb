package provider

import (
	"errors"
	"fmt"
	"time"
)

// ErrProviderUnavailable indicates a transient failure (network error, timeout, server error).
type ErrProviderUnavailable struct {
	Provider ProviderName
	Cause    error
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrRateLimited indicates the upstream explicitly refused the request with
// 429 or 503. The caller may retry after RetryAfter; the gateway never does.
type ErrRateLimited struct {
	Provider   ProviderName
	StatusCode int
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("provider %s rate limited (HTTP %d)", e.Provider, e.StatusCode)
}

// ErrBadResponse indicates the upstream answered with something that could not
// be decoded. HTML is set when the body was an HTML page, which for Lidarr
// almost always means the configured URL is missing its base path.
type ErrBadResponse struct {
	Provider ProviderName
	HTML     bool
	Cause    error
}

func (e *ErrBadResponse) Error() string {
	if e.HTML {
		return fmt.Sprintf("provider %s returned HTML instead of JSON; if it is served behind a base path, include it in the URL (e.g. http://host:8686/lidarr)", e.Provider)
	}
	return fmt.Sprintf("provider %s bad response: %v", e.Provider, e.Cause)
}

func (e *ErrBadResponse) Unwrap() error { return e.Cause }

// ErrNotConfigured indicates the provider has no credential configured.
// Callers treat it as an expected branch, not a failure.
type ErrNotConfigured struct {
	Provider ProviderName
}

func (e *ErrNotConfigured) Error() string {
	return fmt.Sprintf("provider %s: not configured", e.Provider)
}

// ErrInvalidID indicates a malformed external identifier.
type ErrInvalidID struct {
	ID string
}

func (e *ErrInvalidID) Error() string {
	return fmt.Sprintf("invalid artist id %q", e.ID)
}

// ErrNotFound indicates the provider has no data for the requested ID.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: %s not found", e.Provider, e.ID)
}

// IsNotConfigured reports whether err is (or wraps) ErrNotConfigured.
func IsNotConfigured(err error) bool {
	var nc *ErrNotConfigured
	return errors.As(err, &nc)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsInvalidID reports whether err is (or wraps) ErrInvalidID.
func IsInvalidID(err error) bool {
	var inv *ErrInvalidID
	return errors.As(err, &inv)
}

// IsRetryable reports whether the caller may retry the request later.
func IsRetryable(err error) bool {
	var rl *ErrRateLimited
	if errors.As(err, &rl) {
		return true
	}
	var un *ErrProviderUnavailable
	return errors.As(err, &un)
}

// IsMisconfigured reports whether err signals a wrong provider base URL.
func IsMisconfigured(err error) bool {
	var br *ErrBadResponse
	return errors.As(err, &br) && br.HTML
}

// IsExpected reports whether err is an outcome that says nothing about the
// health of the upstream (absent credential, unknown id, malformed id).
func IsExpected(err error) bool {
	return err == nil || IsNotConfigured(err) || IsNotFound(err) || IsInvalidID(err)
}
