package convo

import (
	"testing"
	"time"

	"courier/internal/models"
)

func strPtr(s string) *string { return &s }

// newest-first, matching store return order
func fixtureMessages(base time.Time) []*models.Message {
	return []*models.Message{
		{ID: "msg_5", FromID: "bob", ToID: "alice", JobID: strPtr("job_1"), Body: "latest on job", CreatedAt: base},
		{ID: "msg_4", FromID: "alice", ToID: "bob", JobID: nil, Body: "direct reply", IsRead: true, CreatedAt: base.Add(-1 * time.Minute)},
		{ID: "msg_3", FromID: "bob", ToID: "alice", JobID: nil, Body: "direct hello", CreatedAt: base.Add(-2 * time.Minute)},
		{ID: "msg_2", FromID: "carol", ToID: "alice", JobID: strPtr("job_2"), Body: "carol pitch", IsRead: true, CreatedAt: base.Add(-3 * time.Minute)},
		{ID: "msg_1", FromID: "alice", ToID: "bob", JobID: strPtr("job_1"), Body: "first on job", IsRead: true, CreatedAt: base.Add(-4 * time.Minute)},
	}
}

func TestAggregateGroupsByJobAndCounterpart(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	got := Aggregate("alice", fixtureMessages(base), FilterAll)

	if len(got) != 3 {
		t.Fatalf("Aggregate() returned %d conversations, want 3", len(got))
	}

	// Most recently active first.
	first := got[0]
	if first.JobID == nil || *first.JobID != "job_1" || first.CounterpartID != "bob" {
		t.Fatalf("Aggregate() first conversation = (%v, %s), want (job_1, bob)", first.JobID, first.CounterpartID)
	}
	if first.LastMessageBody != "latest on job" {
		t.Fatalf("Aggregate() preview = %q, want newest message body", first.LastMessageBody)
	}
	if !first.LastMessageAt.Equal(base) {
		t.Fatalf("Aggregate() lastMessageAt = %v, want %v", first.LastMessageAt, base)
	}
	if first.UnreadCount != 1 {
		t.Fatalf("Aggregate() unread = %d, want 1", first.UnreadCount)
	}

	second := got[1]
	if second.JobID != nil || second.CounterpartID != "bob" {
		t.Fatalf("Aggregate() second conversation = (%v, %s), want direct thread with bob", second.JobID, second.CounterpartID)
	}

	third := got[2]
	if third.JobID == nil || *third.JobID != "job_2" || third.CounterpartID != "carol" {
		t.Fatalf("Aggregate() third conversation = (%v, %s), want (job_2, carol)", third.JobID, third.CounterpartID)
	}
	if third.UnreadCount != 0 {
		t.Fatalf("Aggregate() carol unread = %d, want 0", third.UnreadCount)
	}
}

func TestAggregateKeepsDirectAndJobThreadsSeparate(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	got := Aggregate("alice", fixtureMessages(base), FilterAll)

	jobThreads := 0
	directThreads := 0
	for _, conv := range got {
		if conv.CounterpartID != "bob" {
			continue
		}
		if conv.JobID != nil {
			jobThreads++
		} else {
			directThreads++
		}
	}
	if jobThreads != 1 || directThreads != 1 {
		t.Fatalf("Aggregate() bob threads = %d job + %d direct, want 1 + 1", jobThreads, directThreads)
	}
}

func TestAggregateUnreadCountsOnlyInboundUnread(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	msgs := []*models.Message{
		// Viewer's own unsent-read flag must not count against them.
		{ID: "msg_2", FromID: "alice", ToID: "bob", Body: "mine", CreatedAt: base},
		{ID: "msg_1", FromID: "bob", ToID: "alice", Body: "theirs", CreatedAt: base.Add(-time.Minute)},
	}

	got := Aggregate("alice", msgs, FilterAll)
	if len(got) != 1 {
		t.Fatalf("Aggregate() returned %d conversations, want 1", len(got))
	}
	if got[0].UnreadCount != 1 {
		t.Fatalf("Aggregate() unread = %d, want 1 (outbound messages never count)", got[0].UnreadCount)
	}
}

func TestAggregateUnreadFilter(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	got := Aggregate("alice", fixtureMessages(base), FilterUnread)

	for _, conv := range got {
		if conv.UnreadCount == 0 {
			t.Fatalf("Aggregate(FilterUnread) returned conversation with 0 unread: %+v", conv)
		}
	}
	if len(got) != 2 {
		t.Fatalf("Aggregate(FilterUnread) returned %d conversations, want 2", len(got))
	}
}

func TestAggregateArchivedBehavesAsAll(t *testing.T) {
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	all := Aggregate("alice", fixtureMessages(base), FilterAll)
	archived := Aggregate("alice", fixtureMessages(base), FilterArchived)

	if len(all) != len(archived) {
		t.Fatalf("Aggregate(FilterArchived) returned %d conversations, want %d", len(archived), len(all))
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate("alice", nil, FilterAll)
	if len(got) != 0 {
		t.Fatalf("Aggregate() on empty input returned %d conversations, want 0", len(got))
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		raw     string
		want    Filter
		wantErr bool
	}{
		{raw: "", want: FilterAll},
		{raw: "all", want: FilterAll},
		{raw: "unread", want: FilterUnread},
		{raw: "archived", want: FilterArchived},
		{raw: "starred", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFilter(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseFilter(%q) error = nil, want error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseFilter(%q) error = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseFilter(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
