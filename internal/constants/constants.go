package constants

import "time"

const (
	// IDRandomBytes is the entropy behind every generated identifier.
	IDRandomBytes = 12

	// MaxFileAttachments caps File attachments per message, enforced at
	// composition time.
	MaxFileAttachments = 5

	// MaxMessageBodyLength caps the message body in characters.
	MaxMessageBodyLength = 4000

	// EditWindow is how long after creation a sender may still alter a
	// message body.
	EditWindow = 5 * time.Minute

	// ThreadPageMaxLimit bounds page size on thread fetches.
	ThreadPageMaxLimit = 100

	// FeedClientSendBufferSize is the per-connection outbound event buffer.
	FeedClientSendBufferSize = 256
)
