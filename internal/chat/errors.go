package chat

import (
	"errors"
	"fmt"
)

// Validation errors are deterministic and surfaced directly to the caller;
// they are never retried.
var (
	ErrEmptyMessage       = errors.New("message body and attachments are both empty")
	ErrTooManyAttachments = errors.New("too many file attachments")
	ErrMessageTooLong     = errors.New("message body too long")
	ErrForbidden          = errors.New("only the sender may modify this message")
	ErrEditWindowExpired  = errors.New("edit window has expired")
	ErrAttachmentInvalid  = errors.New("attachment reference is invalid")
)

// StoreError marks a transient storage failure. Callers surface it as a
// generic failure and never commit partial state behind it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("message store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
