package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"courier/internal/constants"
	"courier/internal/models"
	"courier/internal/presence"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 15 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Client is one websocket session. It owns an inbox subscription, any thread
// subscriptions the client opened, and the session's heartbeat timer; all are
// torn down together when the connection ends.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	heartbeat *presence.Heartbeat
	user      *models.User
	send      chan *WSMessage
	sessionID string

	connCloseOnce sync.Once
	closed        atomic.Bool
	stopHeartbeat context.CancelFunc

	mu      sync.Mutex
	status  string
	inbox   *Subscription
	threads map[threadKey]*Subscription
}

func NewClient(hub *Hub, conn *websocket.Conn, user *models.User, heartbeat *presence.Heartbeat) *Client {
	c := &Client{
		hub:       hub,
		conn:      conn,
		heartbeat: heartbeat,
		user:      user,
		send:      make(chan *WSMessage, constants.FeedClientSendBufferSize),
		sessionID: uuid.New().String(),
		status:    models.StatusOnline,
		threads:   make(map[threadKey]*Subscription),
	}

	c.inbox = hub.Subscribe(InboxScope(user.ID))
	go c.forward(c.inbox)

	hbCtx, cancel := context.WithCancel(context.Background())
	c.stopHeartbeat = cancel
	go heartbeat.Run(hbCtx, user.ID, c.Status)

	return c
}

func (c *Client) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close tears down subscriptions, the heartbeat timer and the connection.
// Safe to call more than once.
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		c.connCloseOnce.Do(func() { c.conn.Close() })
		return
	}

	c.stopHeartbeat()

	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.threads)+1)
	subs = append(subs, c.inbox)
	for _, sub := range c.threads {
		subs = append(subs, sub)
	}
	c.threads = make(map[threadKey]*Subscription)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}

	c.connCloseOnce.Do(func() { c.conn.Close() })
}

// SendHello sends the HELLO message to initiate the session
func (c *Client) SendHello() {
	c.send <- &WSMessage{
		Op:   OpHello,
		Data: HelloPayload{SessionID: c.sessionID},
	}
}

func (c *Client) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "component", "feed", "user_id", c.user.ID, "error", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("error parsing client message", "component", "feed", "user_id", c.user.ID, "error", err)
			continue
		}

		c.handleCommand(&msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if c.closed.Load() {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			if c.closed.Load() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleCommand(msg *WSMessage) {
	if msg.Op != OpDispatch {
		return
	}

	switch msg.Type {
	case CmdThreadSubscribe:
		var payload ThreadSubscribePayload
		if !decodePayload(msg.Data, &payload) || payload.CounterpartID == "" {
			c.sendError(constants.ErrCodeInvalidRequest, "invalid thread subscribe payload")
			return
		}
		c.subscribeThread(payload.CounterpartID, payload.JobID)

	case CmdThreadUnsubscribe:
		var payload ThreadSubscribePayload
		if !decodePayload(msg.Data, &payload) || payload.CounterpartID == "" {
			c.sendError(constants.ErrCodeInvalidRequest, "invalid thread unsubscribe payload")
			return
		}
		c.unsubscribeThread(payload.CounterpartID, payload.JobID)

	case CmdPresenceSet:
		var payload PresenceSetPayload
		if !decodePayload(msg.Data, &payload) {
			c.sendError(constants.ErrCodeInvalidRequest, "invalid presence payload")
			return
		}
		if payload.Status != models.StatusOnline && payload.Status != models.StatusAway {
			c.sendError(constants.ErrCodeInvalidRequest, "status must be online or away")
			return
		}
		c.mu.Lock()
		c.status = payload.Status
		c.mu.Unlock()
		c.heartbeat.Beat(c.user.ID, payload.Status)

	default:
		c.sendError(constants.ErrCodeInvalidRequest, "unknown command")
	}
}

func (c *Client) subscribeThread(counterpartID string, jobID *string) {
	key := newThreadKey(counterpartID, jobID)

	c.mu.Lock()
	if _, exists := c.threads[key]; exists {
		c.mu.Unlock()
		return
	}
	sub := c.hub.Subscribe(ThreadScope(c.user.ID, counterpartID, jobID))
	c.threads[key] = sub
	c.mu.Unlock()

	go c.forward(sub)
}

func (c *Client) unsubscribeThread(counterpartID string, jobID *string) {
	key := newThreadKey(counterpartID, jobID)

	c.mu.Lock()
	sub, ok := c.threads[key]
	if ok {
		delete(c.threads, key)
	}
	c.mu.Unlock()

	if ok {
		sub.Cancel()
	}
}

// forward translates feed events into DISPATCH frames. One goroutine per
// subscription; it exits when the subscription is cancelled.
func (c *Client) forward(sub *Subscription) {
	for event := range sub.Events() {
		msg, ok := c.dispatchFor(event)
		if !ok {
			continue
		}

		select {
		case c.send <- msg:
		default:
			slog.Warn("dropped dispatch for slow client", "component", "feed", "user_id", c.user.ID, "type", msg.Type)
		}
	}
}

func (c *Client) dispatchFor(event Event) (*WSMessage, bool) {
	var (
		eventType string
		data      any
	)

	switch event.Kind {
	case EventMessageCreate, EventMessageUpdate:
		eventType = EventTypeMessageCreate
		if event.Kind == EventMessageUpdate {
			eventType = EventTypeMessageUpdate
		}
		data = ChangePayload{FromID: event.FromID, ToID: event.ToID, JobID: event.JobID, Message: event.Message}

	case EventMessageRead:
		eventType = EventTypeMessageRead
		data = ChangePayload{FromID: event.FromID, ToID: event.ToID, JobID: event.JobID}

	case EventMessageUnread:
		eventType = EventTypeMessageUnread
		data = ChangePayload{FromID: event.FromID, ToID: event.ToID, JobID: event.JobID}

	case EventConversationDelete:
		eventType = EventTypeConversationDelete
		data = ChangePayload{FromID: event.FromID, ToID: event.ToID, JobID: event.JobID}

	case EventCallAccepted:
		if event.Call == nil {
			return nil, false
		}
		payload := CallAcceptedPayload{
			MessageID: event.Call.MessageID,
			CallType:  event.Call.CallType,
		}
		// Only the original proposer's session auto-opens the call UI, and
		// only for instant calls.
		if event.Call.ProposerID == c.user.ID && event.Call.ShouldOpenCall {
			payload.ShouldOpenCall = true
			payload.ICEServers = event.Call.ICEServers
		}
		eventType = EventTypeCallAccepted
		data = payload

	default:
		return nil, false
	}

	seq := c.hub.NextSequence()
	return &WSMessage{Op: OpDispatch, Type: eventType, Data: data, Seq: &seq}, true
}

func (c *Client) sendError(code, message string) {
	seq := c.hub.NextSequence()
	msg := &WSMessage{
		Op:   OpDispatch,
		Type: EventTypeError,
		Data: ErrorPayload{Code: code, Message: message},
		Seq:  &seq,
	}
	select {
	case c.send <- msg:
	default:
	}
}

// decodePayload re-marshals the loosely-typed DISPATCH data into dst.
func decodePayload(data any, dst any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
