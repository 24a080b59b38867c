package core

import "fmt"

// Kind classifies a pipeline failure. Every kind is recoverable: the caller
// re-prompts, retries, or reports, and the triggering operation has no side
// effect unless documented otherwise.
type Kind string

const (
	// KindValidation marks a row that failed schema validation.
	KindValidation Kind = "ValidationError"
	// KindDuplicateRow marks a row rejected by the deduplicator or by the
	// persisted (PalletID, Bin) uniqueness check.
	KindDuplicateRow Kind = "DuplicateRow"
	// KindInvalidScope marks a session opened over an empty bin set or a
	// location with no matching inventory.
	KindInvalidScope Kind = "InvalidScope"
	// KindInvalidTransition marks a backward or repeated session
	// lifecycle transition.
	KindInvalidTransition Kind = "InvalidTransition"
	// KindInvalidQuantity marks a counted quantity that is not a
	// non-negative integer.
	KindInvalidQuantity Kind = "InvalidQuantity"
	// KindOutOfScope marks a count against a pallet outside the session's
	// location or bin set.
	KindOutOfScope Kind = "OutOfScope"
	// KindSessionClosed marks a count recorded against a session that is
	// no longer in progress.
	KindSessionClosed Kind = "SessionClosed"
	// KindImportFailed marks an ingest collaborator failure (unreadable
	// upload, malformed spreadsheet).
	KindImportFailed Kind = "ImportFailed"
	// KindStorageFailed marks a storage collaborator failure.
	KindStorageFailed Kind = "StorageFailed"
	// KindEmptyInput marks an aggregate requested over zero actions.
	KindEmptyInput Kind = "EmptyInput"
	// KindNotFound marks a lookup for a session or record that does not
	// exist.
	KindNotFound Kind = "NotFound"
)

// Error is a typed pipeline failure. Use [errors.As] to recover the Kind at
// the calling layer (the web layer maps kinds to HTTP statuses).
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two pipeline errors by kind, so sentinel comparisons like
// errors.Is(err, &Error{Kind: KindSessionClosed}) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errf builds a pipeline error with a formatted message.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a pipeline error around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind carried by err, or "" when err is not a pipeline
// error.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
