package cmn

import (
	"net"

	"github.com/pkg/errors"
)

// Sentinel errors for the fatal-to-one-task outcomes of spec section 7.
// They are returned unwrapped, so callers compare them with ==; Wrap and
// Wrapf below are used for the other, non-sentinel failures.
var (
	ErrNoValidTargets        = errors.New("no valid target to reconstruct")
	ErrInsufficientSources   = errors.New("insufficient sources to reach min_required_sources")
	ErrAllTargetsDead        = errors.New("all targets dead after window transfer")
	ErrInterrupted           = errors.New("task interrupted")
	ErrInvalidSources        = errors.New("live source indices must be unique and at least min_required_sources")
	ErrInvalidTargets        = errors.New("target indices must be disjoint from live sources and at most parity_units")
)

// Wrap is a thin re-export so callers in this module never import
// github.com/pkg/errors directly; it keeps the wrapping convention in one
// place.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// IsTimeout reports whether err (at any depth of pkg/errors wrapping) is a
// net.Error that timed out — the "slice-read timeout elapsed" outcome of
// section 4.2.3, distinguished from a genuine transport failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	if ne, ok := errors.Cause(err).(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}
