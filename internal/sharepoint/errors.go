package sharepoint

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/graph"
)

// Code classifies a failure of the synchronization layer.
type Code string

const (
	CodeAuthRequired      Code = "AUTH_REQUIRED"
	CodeListNotFound      Code = "LIST_NOT_FOUND"
	CodeColumnNotFound    Code = "COLUMN_NOT_FOUND"
	CodeLookupUnresolved  Code = "LOOKUP_UNRESOLVED"
	CodeRemoteRejected    Code = "REMOTE_REJECTED"
	CodePartialAttachment Code = "PARTIAL_ATTACHMENT_FAILURE"
)

// Error is a typed failure. Two errors match under errors.Is when their codes match,
// so callers test against the sentinels below.
type Error struct {
	Code     Code
	Message  string
	Internal error
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error { return e.Internal }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrAuthRequired      = &Error{Code: CodeAuthRequired, Message: "authentication required"}
	ErrListNotFound      = &Error{Code: CodeListNotFound, Message: "list not found"}
	ErrColumnNotFound    = &Error{Code: CodeColumnNotFound, Message: "column not found"}
	ErrLookupUnresolved  = &Error{Code: CodeLookupUnresolved, Message: "reference could not be resolved"}
	ErrRemoteRejected    = &Error{Code: CodeRemoteRejected, Message: "remote store rejected the request"}
	ErrPartialAttachment = &Error{Code: CodePartialAttachment, Message: "attachments partially uploaded"}
)

// Wrap returns a copy of sentinel carrying internal as its cause.
func Wrap(sentinel *Error, internal error) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Internal: internal}
}

// WithMessage returns a copy of sentinel with a specific message.
func WithMessage(sentinel *Error, format string, args ...any) *Error {
	return &Error{Code: sentinel.Code, Message: fmt.Sprintf(format, args...), Internal: sentinel.Internal}
}

// SchemaError lists the required columns of a list that could not be found.
type SchemaError struct {
	List    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("list %q is missing columns: %s", e.List, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrColumnNotFound }

// PartialAttachmentError reports a row that was saved while some of its attachments
// were not. The row is not rolled back.
type PartialAttachmentError struct {
	ItemID string
	Failed []string
	Err    error
}

func (e *PartialAttachmentError) Error() string {
	return fmt.Sprintf("item %s saved but %d attachment(s) failed (%s): %v",
		e.ItemID, len(e.Failed), strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialAttachmentError) Unwrap() error { return e.Err }

func (e *PartialAttachmentError) Is(target error) bool { return target == ErrPartialAttachment }

// classify turns transport and remote failures into the typed taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	if errors.Is(err, auth.ErrAuthRequired) || errors.Is(err, auth.ErrInteractionCancelled) {
		return Wrap(ErrAuthRequired, err)
	}

	var httpErr *graph.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusUnauthorized {
			return Wrap(ErrAuthRequired, err)
		}

		return Wrap(ErrRemoteRejected, err)
	}

	return err
}

// isSchemaRejection reports whether the store refused a write because of an unknown field.
func isSchemaRejection(err error) bool {
	var httpErr *graph.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}

	return httpErr.StatusCode == http.StatusBadRequest
}
