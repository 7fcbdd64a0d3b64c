// Package collab shares open stories between websocket clients. Every room
// wraps one workspace session; clients submit editor actions and receive the
// edits of others.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/storyeditor/internal/history"
	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/workspace"
)

var ErrHubStopped = errors.New("collaboration hub stopped")

// Sessions opens and closes the stories rooms edit.
type Sessions interface {
	Open(ctx context.Context, storyID string) (*workspace.Session, error)
	Close(storyID string)
}

// These actions mint ids on the server, so clients cannot replay them and
// receive the resulting document instead.
var serverOnlyActions = map[string]bool{
	reducer.TypeCombineElements:       true,
	reducer.TypeDuplicateElementsByID: true,
	reducer.TypeDuplicateGroup:        true,
}

type Room struct {
	storyID  string
	session  *workspace.Session
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager

	// applyMu orders edits and the messages announcing them.
	applyMu sync.Mutex
	seq     int64
}

func NewRoom(storyID string, session *workspace.Session) *Room {
	return &Room{
		storyID:  storyID,
		session:  session,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

// locked runs fn with applyMu held. The lock is released if fn panics.
func (r *Room) locked(fn func()) {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()
	fn()
}

// syncMessage must be called with applyMu held.
func (r *Room) syncMessage() *Message {
	h := r.session.History()
	msg := newMessage(TypeDocSync, DocSyncPayload{
		ServerSeq: r.seq,
		State:     history.EntryFromState(r.session.State()),
		CanUndo:   h.CanUndo(),
		CanRedo:   h.CanRedo(),
	})
	msg.StoryID = r.storyID
	msg.Seq = r.seq
	return msg
}

type Hub struct {
	sessions Sessions
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	rooms      map[string]*Room // storyID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(sessions Sessions, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions:   sessions,
		logger:     logger,
		now:        time.Now,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeRooms()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Join opens the client's story and adds the client to its room.
func (h *Hub) Join(ctx context.Context, client *Client) error {
	if _, err := h.sessions.Open(ctx, client.StoryID); err != nil {
		return err
	}
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) room(storyID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[storyID]
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.StoryID]
	if !ok {
		// Join opened the session; this is a cache hit unless the last
		// client left in between.
		session, err := h.sessions.Open(context.Background(), client.StoryID)
		if err != nil {
			h.mu.Unlock()
			h.logger.Error("open story for room", "story", client.StoryID, "error", err)
			client.Send(newMessage(TypeError, ErrorPayload{Message: "story could not be opened"}))
			client.close()
			return
		}
		room = NewRoom(client.StoryID, session)
		h.rooms[client.StoryID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	room.presence.Update(client.ClientID, &PresencePayload{UserID: client.UserID, DisplayName: client.DisplayName})

	room.locked(func() {
		client.Send(newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID, ServerSeq: room.seq}))
		client.Send(room.syncMessage())
	})
	client.Send(room.presence.StateMessage())

	join := newMessage(TypePresenceJoin, PresenceJoinPayload{UserID: client.UserID, DisplayName: client.DisplayName})
	join.UserID = client.UserID
	join.ClientID = client.ClientID
	h.broadcastToRoom(client.StoryID, join, client.ClientID)

	h.logger.Info("client joined", "user", client.UserID, "story", client.StoryID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.StoryID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.StoryID)
		h.sessions.Close(client.StoryID)
	}
	h.mu.Unlock()

	if !empty {
		leave := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
		leave.UserID = client.UserID
		leave.ClientID = client.ClientID
		h.broadcastToRoom(client.StoryID, leave, "")
	}

	h.logger.Info("client left", "user", client.UserID, "story", client.StoryID)
}

func (h *Hub) closeRooms() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.close()
		}
		h.sessions.Close(id)
	}
	h.rooms = make(map[string]*Room)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("message handler panicked", "error", rec, "type", msg.Type, "user", sender.UserID)
			sender.Send(newMessage(TypeError, ErrorPayload{Message: "internal error"}))
		}
	}()

	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	case TypeHistoryUndo, TypeHistoryRedo:
		h.handleHistory(sender, msg)
	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type " + msg.Type}))
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		h.logger.Warn("invalid presence payload", "error", err)
		return
	}
	presence.DisplayName = sender.DisplayName
	presence.UserID = sender.UserID

	room := h.room(sender.StoryID)
	if room == nil {
		return
	}
	room.presence.Update(sender.ClientID, &presence)

	out := newMessage(TypePresenceUpdate, presence)
	out.UserID = sender.UserID
	out.ClientID = sender.ClientID
	h.broadcastToRoom(sender.StoryID, out, sender.ClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid operation payload"}))
		return
	}
	op := submit.Operation

	action, err := reducer.DecodeAction(op.Action)
	if err != nil {
		h.nack(sender, op.ID, err.Error())
		return
	}
	if _, ok := action.(reducer.Restore); ok {
		h.nack(sender, op.ID, "restore is not accepted from clients")
		return
	}

	room := h.room(sender.StoryID)
	if room == nil {
		h.nack(sender, op.ID, "story is not open")
		return
	}

	var prev, next *reducer.State
	var changed bool
	room.locked(func() {
		prev = room.session.State()
		next = room.session.Dispatch(action)
		changed = next != prev
		if changed {
			room.seq++
		}
		h.announce(room, sender, op, action, changed)
	})

	if changed && !samePages(prev, next) {
		h.prunePresence(room, next)
	}
}

// announce acks op to its sender and shares the change with the room.
// Called with applyMu held.
func (h *Hub) announce(room *Room, sender *Client, op Operation, action reducer.Action, changed bool) {
	seq := room.seq
	ack := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: h.now().UnixMilli(),
		Changed:         changed,
	})
	ack.Seq = seq
	sender.Send(ack)

	if changed {
		if serverOnlyActions[reducer.ActionType(action)] {
			h.broadcastToRoom(room.storyID, room.syncMessage(), "")
		} else {
			out := newMessage(TypeOpBroadcast, OperationBroadcastPayload{Operation: op, UserID: sender.UserID, ServerSeq: seq})
			out.Seq = seq
			out.UserID = sender.UserID
			out.ClientID = sender.ClientID
			h.broadcastToRoom(room.storyID, out, sender.ClientID)
		}
	}
}

// Sync tells the story's room that its document changed outside the hub.
// Clients receive the whole document.
func (h *Hub) Sync(storyID string) {
	room := h.room(storyID)
	if room == nil {
		return
	}
	var next *reducer.State
	room.locked(func() {
		room.seq++
		h.broadcastToRoom(storyID, room.syncMessage(), "")
		next = room.session.State()
	})

	h.prunePresence(room, next)
}

func (h *Hub) handleHistory(sender *Client, msg *Message) {
	var p HistoryPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid history payload"}))
			return
		}
	}
	if p.Count <= 0 {
		p.Count = 1
	}

	room := h.room(sender.StoryID)
	if room == nil {
		return
	}

	var ok bool
	var next *reducer.State
	room.locked(func() {
		if msg.Type == TypeHistoryUndo {
			ok = room.session.Undo(p.Count)
		} else {
			ok = room.session.Redo(p.Count)
		}
		if !ok {
			return
		}
		room.seq++
		h.broadcastToRoom(room.storyID, room.syncMessage(), "")
		next = room.session.State()
	})
	if !ok {
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "nothing to " + msg.Type[len("history."):]}))
		return
	}

	h.prunePresence(room, next)
}

// prunePresence clears references to deleted pages and elements from
// everyone's presence and tells the room.
func (h *Hub) prunePresence(room *Room, st *reducer.State) {
	for _, clientID := range room.presence.Prune(st.Pages) {
		p, ok := room.presence.Get(clientID)
		if !ok {
			continue
		}
		out := newMessage(TypePresenceUpdate, p)
		out.UserID = p.UserID
		out.ClientID = clientID
		h.broadcastToRoom(room.storyID, out, "")
	}
}

func (h *Hub) nack(sender *Client, opID, reason string) {
	sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: opID, Reason: reason}))
}

func (h *Hub) broadcastToRoom(storyID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[storyID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func samePages(a, b *reducer.State) bool {
	if len(a.Pages) != len(b.Pages) {
		return false
	}
	for i := range a.Pages {
		if a.Pages[i] != b.Pages[i] {
			return false
		}
	}
	return true
}
