package constants

const (
	// Shared REST/WS transport-agnostic errors
	ErrCodeAuthFailed      = "AUTH_FAILED"
	ErrCodeAuthExpired     = "AUTH_EXPIRED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"

	// Messaging domain errors
	ErrCodeEmptyMessage       = "EMPTY_MESSAGE"
	ErrCodeTooManyAttachments = "TOO_MANY_ATTACHMENTS"
	ErrCodeMessageTooLong     = "MESSAGE_TOO_LONG"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeEditWindowExpired  = "EDIT_WINDOW_EXPIRED"
	ErrCodeAttachmentInvalid  = "ATTACHMENT_INVALID"

	// Call negotiation domain errors
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
)
