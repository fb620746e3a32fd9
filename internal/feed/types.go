package feed

import "courier/internal/models"

// Operation codes for WebSocket messages
type OpCode int

const (
	// DISPATCH - Events and commands with type field
	OpDispatch OpCode = 0

	// Lifecycle ops (Server -> Client)
	OpHello OpCode = 1 // Sent on connection
)

// Event types (Server -> Client via DISPATCH)
const (
	EventTypeMessageCreate      = "MESSAGE_CREATE"
	EventTypeMessageUpdate      = "MESSAGE_UPDATE"
	EventTypeMessageRead        = "MESSAGE_READ"
	EventTypeMessageUnread      = "MESSAGE_UNREAD"
	EventTypeConversationDelete = "CONVERSATION_DELETE"
	EventTypeCallAccepted       = "CALL_ACCEPTED"
	EventTypeError              = "ERROR"
)

// Command types (Client -> Server via DISPATCH)
const (
	CmdThreadSubscribe   = "THREAD_SUBSCRIBE"
	CmdThreadUnsubscribe = "THREAD_UNSUBSCRIBE"
	CmdPresenceSet       = "PRESENCE_SET"
)

type WSMessage struct {
	Op   OpCode      `json:"op"`
	Type string      `json:"t,omitempty"` // Event/command type (only for DISPATCH)
	Data interface{} `json:"d,omitempty"`
	Seq  *int64      `json:"s,omitempty"`
}

// Server -> Client payloads

type HelloPayload struct {
	SessionID string `json:"session_id"`
}

// ChangePayload identifies the thread a mutation touched. Consumers re-fetch
// the affected view rather than patching it.
type ChangePayload struct {
	FromID  string          `json:"from_id"`
	ToID    string          `json:"to_id"`
	JobID   *string         `json:"job_id,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}

// CallAcceptedPayload is pushed to both parties of an accepted invitation.
// ShouldOpenCall is true only on the proposer's connection for instant calls.
type CallAcceptedPayload struct {
	MessageID      string          `json:"message_id"`
	CallType       models.CallType `json:"call_type"`
	ShouldOpenCall bool            `json:"should_open_call"`
	ICEServers     []ICEServer     `json:"ice_servers,omitempty"`
}

// ErrorPayload sent when the server rejects a client command
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client -> Server payloads (via DISPATCH)

type ThreadSubscribePayload struct {
	CounterpartID string  `json:"counterpart_id"`
	JobID         *string `json:"job_id,omitempty"`
}

type PresenceSetPayload struct {
	Status string `json:"status"` // online, away
}

// threadKey identifies one thread subscription on a connection.
type threadKey struct {
	counterpartID string
	jobID         string // "" for direct threads
	direct        bool
}

func newThreadKey(counterpartID string, jobID *string) threadKey {
	if jobID == nil {
		return threadKey{counterpartID: counterpartID, direct: true}
	}
	return threadKey{counterpartID: counterpartID, jobID: *jobID}
}
