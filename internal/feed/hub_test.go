package feed

import (
	"testing"
)

func jobPtr(s string) *string { return &s }

func TestScopeMatches(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		event Event
		want  bool
	}{
		{
			name:  "inbox_matches_inbound",
			scope: InboxScope("alice"),
			event: Event{Kind: EventMessageCreate, FromID: "bob", ToID: "alice"},
			want:  true,
		},
		{
			name:  "inbox_matches_outbound",
			scope: InboxScope("alice"),
			event: Event{Kind: EventMessageCreate, FromID: "alice", ToID: "bob"},
			want:  true,
		},
		{
			name:  "inbox_ignores_other_parties",
			scope: InboxScope("alice"),
			event: Event{Kind: EventMessageCreate, FromID: "bob", ToID: "carol"},
			want:  false,
		},
		{
			name:  "thread_matches_same_job",
			scope: ThreadScope("alice", "bob", jobPtr("job_1")),
			event: Event{Kind: EventMessageCreate, FromID: "bob", ToID: "alice", JobID: jobPtr("job_1")},
			want:  true,
		},
		{
			name:  "thread_rejects_other_job",
			scope: ThreadScope("alice", "bob", jobPtr("job_1")),
			event: Event{Kind: EventMessageCreate, FromID: "bob", ToID: "alice", JobID: jobPtr("job_2")},
			want:  false,
		},
		{
			name:  "direct_thread_rejects_job_event",
			scope: ThreadScope("alice", "bob", nil),
			event: Event{Kind: EventMessageCreate, FromID: "bob", ToID: "alice", JobID: jobPtr("job_1")},
			want:  false,
		},
		{
			name:  "job_thread_rejects_direct_event",
			scope: ThreadScope("alice", "bob", jobPtr("job_1")),
			event: Event{Kind: EventMessageCreate, FromID: "bob", ToID: "alice"},
			want:  false,
		},
		{
			name:  "direct_thread_matches_direct_event",
			scope: ThreadScope("alice", "bob", nil),
			event: Event{Kind: EventMessageRead, FromID: "bob", ToID: "alice"},
			want:  true,
		},
		{
			name:  "thread_rejects_other_counterpart",
			scope: ThreadScope("alice", "bob", nil),
			event: Event{Kind: EventMessageCreate, FromID: "carol", ToID: "alice"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Matches(tt.event); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHubPublishFansOutToMatchingScopes(t *testing.T) {
	hub := NewHub()

	inbox := hub.Subscribe(InboxScope("alice"))
	thread := hub.Subscribe(ThreadScope("alice", "bob", nil))
	other := hub.Subscribe(InboxScope("carol"))
	defer inbox.Cancel()
	defer thread.Cancel()
	defer other.Cancel()

	hub.Publish(Event{Kind: EventMessageCreate, FromID: "bob", ToID: "alice"})

	select {
	case e := <-inbox.Events():
		if e.Kind != EventMessageCreate {
			t.Fatalf("inbox event kind = %q, want %q", e.Kind, EventMessageCreate)
		}
	default:
		t.Fatal("inbox subscription received no event")
	}

	select {
	case <-thread.Events():
	default:
		t.Fatal("thread subscription received no event")
	}

	select {
	case e := <-other.Events():
		t.Fatalf("unrelated subscription received event %+v", e)
	default:
	}
}

func TestHubPublishDropsWhenSubscriberBufferFull(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(InboxScope("alice"))
	defer sub.Cancel()

	for i := 0; i < cap(sub.events)+10; i++ {
		hub.Publish(Event{Kind: EventMessageCreate, FromID: "bob", ToID: "alice"})
	}

	if got := len(sub.events); got != cap(sub.events) {
		t.Fatalf("buffered events = %d, want full buffer %d", got, cap(sub.events))
	}
}

func TestSubscriptionCancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(InboxScope("alice"))

	sub.Cancel()
	sub.Cancel()

	// Publishing after cancel must not panic on the closed channel.
	hub.Publish(Event{Kind: EventMessageCreate, FromID: "bob", ToID: "alice"})
}

func TestHubShutdownCancelsSubscriptions(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(InboxScope("alice"))

	hub.Shutdown()

	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed event channel after shutdown")
	}

	late := hub.Subscribe(InboxScope("bob"))
	hub.Publish(Event{Kind: EventMessageCreate, FromID: "alice", ToID: "bob"})
	select {
	case <-late.Events():
		t.Fatal("subscription made after shutdown must not receive events")
	default:
	}
}

func TestNextSequenceMonotonic(t *testing.T) {
	hub := NewHub()
	prev := hub.NextSequence()
	for i := 0; i < 100; i++ {
		next := hub.NextSequence()
		if next <= prev {
			t.Fatalf("NextSequence() = %d after %d, want strictly increasing", next, prev)
		}
		prev = next
	}
}
