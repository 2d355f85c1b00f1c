package domain

import (
	"errors"
	"fmt"
)

// Reason classifies why a submission was rejected.
type Reason string

const (
	ReasonMissingRecipient Reason = "missing-recipient"
	ReasonUnknownRecipient Reason = "unknown-recipient"
	ReasonSelfTarget       Reason = "self-target"
	ReasonDuplicate        Reason = "duplicate"
	ReasonUnknownCategory  Reason = "unknown-category"
	ReasonLink             Reason = "link"
	ReasonEmpty            Reason = "empty"
)

// ValidationError is recovered locally and surfaced to the submitter.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Reason, e.Detail)
}

func Invalid(reason Reason, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

// IsReason reports whether err is a ValidationError with the given reason.
func IsReason(err error, reason Reason) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Reason == reason
}

// NotFoundError references an expired or unknown item or recipient.
type NotFoundError struct {
	What string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.What, e.ID) }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ErrAllocationExhausted is fatal for the current publish attempt only.
var ErrAllocationExhausted = errors.New("identifier space exhausted")

// DeliveryError wraps a failed send/edit/answer against the chat platform.
type DeliveryError struct {
	Op        string
	Temporary bool
	Err       error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("delivery %s: %v", e.Op, e.Err) }
func (e *DeliveryError) Unwrap() error { return e.Err }

// IsTemporary reports whether err is a DeliveryError worth retrying.
func IsTemporary(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Temporary
}
