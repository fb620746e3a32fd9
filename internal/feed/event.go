package feed

import "courier/internal/models"

// EventKind enumerates the mutations the change feed reports.
type EventKind string

const (
	EventMessageCreate      EventKind = "message_create"
	EventMessageUpdate      EventKind = "message_update"
	EventMessageRead        EventKind = "message_read"
	EventMessageUnread      EventKind = "message_unread"
	EventConversationDelete EventKind = "conversation_delete"
	EventCallAccepted       EventKind = "call_accepted"
)

// Event describes one mutation of the message set. Subscribers react by
// re-fetching their view; the payload identifies the affected thread, not a
// patch to apply. CallAccepted is the one exception consumers may inspect
// incrementally (to open the call UI for the proposer).
type Event struct {
	Kind    EventKind
	FromID  string
	ToID    string
	JobID   *string
	Message *models.Message // set for create/update
	Call    *CallEvent      // set for call_accepted
}

// CallEvent carries the incremental detail of an accepted invitation.
type CallEvent struct {
	MessageID      string
	ProposerID     string
	CallType       models.CallType
	ShouldOpenCall bool
	ICEServers     []ICEServer
}

// ICEServer is the client-side connection bootstrap for an accepted call.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// Touches reports whether the event involves the given user.
func (e Event) Touches(userID string) bool {
	return e.FromID == userID || e.ToID == userID
}

// Scope restricts a subscription to either a viewer's whole inbox or one
// thread (counterpart + job context).
type Scope struct {
	ViewerID      string
	CounterpartID string  // empty for inbox scope
	JobID         *string // only meaningful for thread scope; nil matches direct threads
	thread        bool
}

// InboxScope covers every message touching the viewer.
func InboxScope(viewerID string) Scope {
	return Scope{ViewerID: viewerID}
}

// ThreadScope covers messages between viewer and one counterpart within one
// job context. A nil jobID scopes to the direct (no-job) thread, not to all
// threads with that counterpart.
func ThreadScope(viewerID, counterpartID string, jobID *string) Scope {
	return Scope{ViewerID: viewerID, CounterpartID: counterpartID, JobID: jobID, thread: true}
}

func (s Scope) Matches(e Event) bool {
	if !e.Touches(s.ViewerID) {
		return false
	}
	if !s.thread {
		return true
	}
	if !e.Touches(s.CounterpartID) {
		return false
	}
	return jobEqual(s.JobID, e.JobID)
}

func jobEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
