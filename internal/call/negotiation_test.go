package call

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"courier/internal/chat"
	"courier/internal/config"
	"courier/internal/db"
	"courier/internal/feed"
	"courier/internal/models"
	"courier/internal/notify"
)

type testEnv struct {
	svc   *Service
	chat  *chat.Service
	hub   *feed.Hub
	alice *models.User
	bob   *models.User
}

func newTestEnv(t *testing.T, turn config.TURNConfig) *testEnv {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	users := db.NewUserRepository(database)
	messages := db.NewMessageRepository(database)
	blobs := db.NewBlobRepository(database)
	notifier := notify.NewService(db.NewNotificationRepository(database))
	hub := feed.NewHub()

	chatService := chat.NewService(messages, users, blobs, notifier, hub, "http://localhost:8080")

	alice, err := users.Create("alice")
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	bob, err := users.Create("bob")
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}

	return &testEnv{
		svc:   NewService(chatService, messages, users, notifier, hub, turn),
		chat:  chatService,
		hub:   hub,
		alice: alice,
		bob:   bob,
	}
}

func TestProposeInstant(t *testing.T) {
	env := newTestEnv(t, config.TURNConfig{})

	msg, err := env.svc.Propose(context.Background(), env.alice.ID, env.bob.ID, nil, models.CallInstant, nil)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	inv := msg.Invitation()
	if inv == nil {
		t.Fatal("Propose() message carries no invitation")
	}
	if inv.Status != models.CallPending || inv.CallType != models.CallInstant {
		t.Fatalf("Propose() invitation = %+v, want pending instant", inv)
	}
	if !strings.Contains(msg.Body, "Instant video call") {
		t.Fatalf("Propose() body = %q, want instant summary", msg.Body)
	}
}

func TestProposeScheduleValidation(t *testing.T) {
	env := newTestEnv(t, config.TURNConfig{})
	ctx := context.Background()
	when := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	if _, err := env.svc.Propose(ctx, env.alice.ID, env.bob.ID, nil, models.CallInstant, &when); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("Propose(instant with time) error = %v, want %v", err, ErrInvalidSchedule)
	}
	if _, err := env.svc.Propose(ctx, env.alice.ID, env.bob.ID, nil, models.CallScheduled, nil); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("Propose(scheduled without time) error = %v, want %v", err, ErrInvalidSchedule)
	}

	msg, err := env.svc.Propose(ctx, env.alice.ID, env.bob.ID, nil, models.CallScheduled, &when)
	if err != nil {
		t.Fatalf("Propose(scheduled) error = %v", err)
	}
	if !strings.Contains(msg.Body, "Apr 1, 2026") {
		t.Fatalf("Propose() body = %q, want formatted date", msg.Body)
	}
}

func TestRespondAcceptInstant(t *testing.T) {
	env := newTestEnv(t, config.TURNConfig{
		Host:   "turn.example.com",
		Port:   3478,
		Secret: "secret",
		TTL:    time.Hour,
	})
	ctx := context.Background()

	msg, err := env.svc.Propose(ctx, env.alice.ID, env.bob.ID, nil, models.CallInstant, nil)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	proposerSub := env.hub.Subscribe(feed.InboxScope(env.alice.ID))
	defer proposerSub.Cancel()

	result, err := env.svc.Respond(ctx, env.bob.ID, msg.ID, ActionAccept, nil)
	if err != nil {
		t.Fatalf("Respond(accept) error = %v", err)
	}

	if !result.ShouldOpenCall {
		t.Fatal("accepting an instant call must open the call for the responder")
	}
	if len(result.ICEServers) == 0 {
		t.Fatal("responder must receive ICE servers when the call opens")
	}
	if got := result.Message.Invitation().Status; got != models.CallAccepted {
		t.Fatalf("invitation status = %q, want accepted", got)
	}

	stored, err := env.chat.FindMessage(msg.ID)
	if err != nil {
		t.Fatalf("FindMessage() error = %v", err)
	}
	if stored.Invitation().Status != models.CallAccepted {
		t.Fatal("accepted status must be persisted")
	}

	// The proposer's feed gets both the message update and the call event.
	var sawCallEvent bool
	for i := 0; i < 2; i++ {
		select {
		case e := <-proposerSub.Events():
			if e.Kind == feed.EventCallAccepted {
				sawCallEvent = true
				if e.Call == nil || e.Call.ProposerID != env.alice.ID || !e.Call.ShouldOpenCall {
					t.Fatalf("call event = %+v, want proposer auto-open", e.Call)
				}
				if len(e.Call.ICEServers) == 0 {
					t.Fatal("call event must carry the proposer's ICE servers")
				}
			}
		default:
		}
	}
	if !sawCallEvent {
		t.Fatal("accepting must publish a call_accepted event")
	}
}

func TestRespondAcceptScheduledDoesNotOpenCall(t *testing.T) {
	env := newTestEnv(t, config.TURNConfig{})
	ctx := context.Background()
	when := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	msg, err := env.svc.Propose(ctx, env.alice.ID, env.bob.ID, nil, models.CallScheduled, &when)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	result, err := env.svc.Respond(ctx, env.bob.ID, msg.ID, ActionAccept, nil)
	if err != nil {
		t.Fatalf("Respond(accept) error = %v", err)
	}
	if result.ShouldOpenCall {
		t.Fatal("accepting a scheduled call must not auto-open")
	}
	if result.ICEServers != nil {
		t.Fatal("no ICE servers when the call does not open")
	}
}

func TestRespondDecline(t *testing.T) {
	env := newTestEnv(t, config.TURNConfig{})
	ctx := context.Background()

	msg, err := env.svc.Propose(ctx, env.alice.ID, env.bob.ID, nil, models.CallInstant, nil)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	result, err := env.svc.Respond(ctx, env.bob.ID, msg.ID, ActionDecline, nil)
	if err != nil {
		t.Fatalf("Respond(decline) error = %v", err)
	}
	if result.Message.Invitation().Status != models.CallDeclined {
		t.Fatalf("invitation status = %q, want declined", result.Message.Invitation().Status)
	}
	if result.ShouldOpenCall || result.Counter != nil {
		t.Fatalf("decline result = %+v, want no call and no counter", result)
	}
}

func TestRespondCounterPropose(t *testing.T) {
	env := newTestEnv(t, config.TURNConfig{})
	ctx := context.Background()
	when := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	newTime := time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC)

	msg, err := env.svc.Propose(ctx, env.alice.ID, env.bob.ID, nil, models.CallScheduled, &when)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	if _, err := env.svc.Respond(ctx, env.bob.ID, msg.ID, ActionCounterPropose, nil); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("Respond(counter without time) error = %v, want %v", err, ErrInvalidSchedule)
	}

	result, err := env.svc.Respond(ctx, env.bob.ID, msg.ID, ActionCounterPropose, &newTime)
	if err != nil {
		t.Fatalf("Respond(counter) error = %v", err)
	}

	if result.Message.Invitation().Status != models.CallCounterProposed {
		t.Fatalf("original status = %q, want counter_proposed", result.Message.Invitation().Status)
	}
	if result.Counter == nil {
		t.Fatal("counter-proposal must produce a fresh invitation")
	}

	counterInv := result.Counter.Invitation()
	if counterInv == nil || counterInv.Status != models.CallPending || !counterInv.IsCounterProposal {
		t.Fatalf("counter invitation = %+v, want pending counter-proposal", counterInv)
	}
	if result.Counter.FromID != env.bob.ID || result.Counter.ToID != env.alice.ID {
		t.Fatalf("counter direction = %s -> %s, want back to the proposer", result.Counter.FromID, result.Counter.ToID)
	}
	if counterInv.ScheduledAt == nil || !counterInv.ScheduledAt.Equal(newTime) {
		t.Fatalf("counter scheduledAt = %v, want %v", counterInv.ScheduledAt, newTime)
	}

	// The original proposer can now respond to the counter.
	if _, err := env.svc.Respond(ctx, env.alice.ID, result.Counter.ID, ActionAccept, nil); err != nil {
		t.Fatalf("Respond(accept counter) error = %v", err)
	}
}

func TestRespondGuards(t *testing.T) {
	env := newTestEnv(t, config.TURNConfig{})
	ctx := context.Background()

	msg, err := env.svc.Propose(ctx, env.alice.ID, env.bob.ID, nil, models.CallInstant, nil)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	// Only the invited party may respond.
	if _, err := env.svc.Respond(ctx, env.alice.ID, msg.ID, ActionAccept, nil); !errors.Is(err, chat.ErrForbidden) {
		t.Fatalf("Respond() by proposer error = %v, want %v", err, chat.ErrForbidden)
	}

	// A plain message is not an invitation.
	plain, err := env.chat.Send(ctx, env.alice.ID, chat.SendInput{To: env.bob.ID, Body: "hello"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if _, err := env.svc.Respond(ctx, env.bob.ID, plain.ID, ActionAccept, nil); !errors.Is(err, ErrNotInvitation) {
		t.Fatalf("Respond() to plain message error = %v, want %v", err, ErrNotInvitation)
	}

	// Responses to a settled invitation change nothing.
	if _, err := env.svc.Respond(ctx, env.bob.ID, msg.ID, ActionDecline, nil); err != nil {
		t.Fatalf("Respond(decline) error = %v", err)
	}
	if _, err := env.svc.Respond(ctx, env.bob.ID, msg.ID, ActionAccept, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Respond() after decline error = %v, want %v", err, ErrInvalidTransition)
	}

	stored, err := env.chat.FindMessage(msg.ID)
	if err != nil {
		t.Fatalf("FindMessage() error = %v", err)
	}
	if stored.Invitation().Status != models.CallDeclined {
		t.Fatalf("status after rejected transition = %q, want declined untouched", stored.Invitation().Status)
	}
}

func TestRespondMissingMessage(t *testing.T) {
	env := newTestEnv(t, config.TURNConfig{})

	if _, err := env.svc.Respond(context.Background(), env.bob.ID, "msg_missing", ActionAccept, nil); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("Respond() missing message error = %v, want %v", err, db.ErrNotFound)
	}
}
