package usecase

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP layer can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUpstreamAuth
	KindUpstreamRejected
	KindTransport
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstreamAuth:
		return "upstream_auth"
	case KindUpstreamRejected:
		return "upstream_rejected"
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is returned by every usecase operation that fails.
// StatusCode is only meaningful for KindUpstreamRejected.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func KindOf(err error) Kind {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Kind
	}
	return KindInternal
}

var (
	ErrInvalidAmount      = errors.New("amount must be positive, at most 9999999999.99, with at most 2 decimal places")
	ErrInvalidPhoneNumber = errors.New("payer_phone_number must be 5 to 15 digits")
	ErrInvalidCurrency    = errors.New("currency must be 3 to 10 letters")
	ErrInvalidPagination  = errors.New("skip and limit must be non-negative")
)

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}
