package service

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrLicenseNotFound     = errors.New("license not found")
	ErrLicenseInactive     = errors.New("license inactive")
	ErrDeviceMismatch      = errors.New("device mismatch")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// BadRequestError reports a missing or invalid request field.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

func badRequest(reason string) error {
	return &BadRequestError{Reason: reason}
}

// UpstreamError is returned when the message sink rejects or fails a send.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream send failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream send failed: %d - %s", e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsBusiness reports whether err is an expected outcome that is answered with
// a regular {"success": false} payload rather than a server error.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrLicenseNotFound) ||
		errors.Is(err, ErrLicenseInactive) ||
		errors.Is(err, ErrDeviceMismatch) ||
		errors.Is(err, ErrInsufficientCredits)
}
