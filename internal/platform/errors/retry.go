package errors

// Retry semantics for the fetch stage. Only transport trouble is worth another
// attempt; data and persistence errors need an operator

import (
	"context"
	stderrs "errors"
	"net"
)

// Retryable reports whether err is a transport failure a bounded retry may fix
func Retryable(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	switch CodeOf(err) {
	case ErrorCodeUnavailable, ErrorCodeTooManyRequests, ErrorCodeTimeout:
		return true
	case ErrorCodeUnknown:
		return IsTimeout(err)
	default:
		return false
	}
}

// IsTimeout reports whether err is a deadline or network timeout anywhere in the chain
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if IsCode(err, ErrorCodeTimeout) || stderrs.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrs.As(err, &ne) && ne.Timeout()
}

// Transport classifies a raw client error: timeouts become ErrorCodeTimeout,
// everything else ErrorCodeUnavailable. Already classified errors pass through
func Transport(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if IsTimeout(err) {
		return Wrap(err, ErrorCodeTimeout, msg)
	}
	return Wrap(err, ErrorCodeUnavailable, msg)
}

// permanent marks an otherwise retryable error as not worth another attempt
type permanent struct{ error }

func (p permanent) Unwrap() error { return p.error }

// Code keeps the classification of the wrapped error
func (p permanent) Code() ErrorCode { return CodeOf(p.error) }

// Permanent marks err so Retryable reports false while CodeOf is unchanged,
// e.g. a 404 from the publisher is Unavailable yet pointless to repeat
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p permanent
	return stderrs.As(err, &p)
}
