package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/pharmacy-checkout/internal/storefront"
)

// ErrorKind classifies checkout failures.
type ErrorKind string

const (
	KindAuthRequired         ErrorKind = "AUTH_REQUIRED"
	KindEmptyCart            ErrorKind = "EMPTY_CART"
	KindNoAddress            ErrorKind = "NO_ADDRESS"
	KindEmptySelection       ErrorKind = "EMPTY_SELECTION"
	KindValidationFailed     ErrorKind = "VALIDATION_FAILED"
	KindUpstreamUnavailable  ErrorKind = "UPSTREAM_UNAVAILABLE"
	KindNonFatalAdvisory     ErrorKind = "NON_FATAL_ADVISORY"
	KindSubmissionInProgress ErrorKind = "SUBMISSION_IN_PROGRESS"
)

// Error is a classified checkout failure with a user-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrAuthRequired         = &Error{Kind: KindAuthRequired}
	ErrEmptyCart            = &Error{Kind: KindEmptyCart}
	ErrNoAddress            = &Error{Kind: KindNoAddress}
	ErrEmptySelection       = &Error{Kind: KindEmptySelection}
	ErrValidationFailed     = &Error{Kind: KindValidationFailed}
	ErrUpstreamUnavailable  = &Error{Kind: KindUpstreamUnavailable}
	ErrSubmissionInProgress = &Error{Kind: KindSubmissionInProgress}
)

const (
	msgAuthRequired        = "please login to continue"
	msgEmptyCart           = "your cart is empty"
	msgNoAddress           = "please select a delivery address"
	msgEmptySelection      = "select at least one item to order"
	msgUpstreamUnavailable = "the store is temporarily unavailable, please try again"
	msgInProgress          = "an order is already being placed for this session"
	msgValidationFailed    = "invalid request"
)

var defaultMessages = map[ErrorKind]string{
	KindAuthRequired:         msgAuthRequired,
	KindEmptyCart:            msgEmptyCart,
	KindNoAddress:            msgNoAddress,
	KindEmptySelection:       msgEmptySelection,
	KindValidationFailed:     msgValidationFailed,
	KindUpstreamUnavailable:  msgUpstreamUnavailable,
	KindSubmissionInProgress: msgInProgress,
}

// DefaultMessage is the user-facing text for kind when an error carries none.
func DefaultMessage(kind ErrorKind) string {
	return defaultMessages[kind]
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of err, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// classify maps storefront failures onto the checkout taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return err
	}

	if apiErr, ok := storefront.AsAPIError(err); ok {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return newError(KindAuthRequired, msgAuthRequired, err)
		case apiErr.Status >= http.StatusInternalServerError:
			return newError(KindUpstreamUnavailable, msgUpstreamUnavailable, err)
		default:
			return newError(KindValidationFailed, apiErr.Message, err)
		}
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	return newError(KindUpstreamUnavailable, msgUpstreamUnavailable, err)
}
