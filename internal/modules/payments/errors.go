package payments

import (
	"errors"
	"fmt"
	"strings"

	"sslrelay.com/app/internal/shared/validation"
)

var (
	ErrInvalidRequest       = errors.New("invalid payment request")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrProcessorRejected    = errors.New("processor rejected the request")
	ErrProcessorUnreachable = errors.New("processor unreachable")
	ErrValidationAmbiguous  = errors.New("processor validation ambiguous")
)

// InvalidRequestError lists the offending fields. It never involves the
// processor.
type InvalidRequestError struct {
	Fields map[string]string
}

func (e *InvalidRequestError) Error() string {
	keys := validation.FieldErrors(e.Fields).Keys()
	return fmt.Sprintf("%v: %s", ErrInvalidRequest, strings.Join(keys, ", "))
}

func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// ProcessorRejectedError carries the processor's own message and raw payload
// for diagnostics.
type ProcessorRejectedError struct {
	Message string
	Payload map[string]any
}

func (e *ProcessorRejectedError) Error() string {
	return fmt.Sprintf("%v: %s", ErrProcessorRejected, e.Message)
}

func (e *ProcessorRejectedError) Unwrap() error { return ErrProcessorRejected }

func missingField(name string) *InvalidRequestError {
	return &InvalidRequestError{Fields: map[string]string{name: "This field is required."}}
}
