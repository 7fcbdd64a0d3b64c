package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/storyeditor/internal/idlequeue"
	"github.com/inamate/storyeditor/internal/persistence"
	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/render"
	"github.com/inamate/storyeditor/internal/workspace"
)

const storyData = `{"version":1,"pages":[{"id":"p1","elements":[
	{"id":"bg","type":"shape","isBackground":true,"isDefaultBackground":true,"width":412,"height":618},
	{"id":"t1","type":"text","content":"Hi","x":10,"y":10,"width":100,"height":40}
]}]}`

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*workspace.Session
	closed   []string
	verify   bool
}

func (f *fakeSessions) Open(_ context.Context, id string) (*workspace.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	if id != "s1" {
		return nil, persistence.ErrNotFound
	}
	r, err := persistence.LoadStory(&persistence.RawStory{ID: id, Title: "Old", StoryData: json.RawMessage(storyData)}, nil)
	if err != nil {
		return nil, err
	}
	s := workspace.NewSession(id, false, workspace.Deps{Renderer: render.NewRasterizer(0.1)},
		workspace.Options{Scheduler: &idlequeue.ManualScheduler{}, VerifyFrozen: f.verify})
	s.Load(r)
	f.sessions[id] = s
	return s, nil
}

func (f *fakeSessions) Close(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.Close()
		delete(f.sessions, id)
	}
	f.closed = append(f.closed, id)
}

func (f *fakeSessions) session(id string) *workspace.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

func (f *fakeSessions) closedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

func startHub(t *testing.T) (*Hub, *fakeSessions) {
	t.Helper()
	sessions := &fakeSessions{sessions: map[string]*workspace.Session{}}
	hub := NewHub(sessions, nil)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub, sessions
}

func join(t *testing.T, hub *Hub, clientID, userID string) *Client {
	t.Helper()
	c := NewClient(hub, nil, userID, "User "+userID, "s1", clientID)
	require.NoError(t, hub.Join(context.Background(), c))
	return c
}

func next(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func expect(t *testing.T, c *Client, typ string) *Message {
	t.Helper()
	msg := next(t, c)
	require.Equal(t, typ, msg.Type)
	return msg
}

func submit(t *testing.T, hub *Hub, c *Client, opID, action string) {
	t.Helper()
	payload, err := json.Marshal(OperationSubmitPayload{Operation: Operation{ID: opID, Action: json.RawMessage(action)}})
	require.NoError(t, err)
	hub.handleMessage(c, &Message{Type: TypeOpSubmit, Payload: payload})
}

func joinPair(t *testing.T, hub *Hub) (*Client, *Client) {
	t.Helper()
	a := join(t, hub, "c1", "u1")
	expect(t, a, TypeWelcome)
	syncMsg := expect(t, a, TypeDocSync)
	var doc DocSyncPayload
	require.NoError(t, json.Unmarshal(syncMsg.Payload, &doc))
	assert.Equal(t, "Old", doc.State.Story.Title)
	require.Len(t, doc.State.Pages, 1)
	expect(t, a, TypePresenceState)

	b := join(t, hub, "c2", "u2")
	expect(t, b, TypeWelcome)
	expect(t, b, TypeDocSync)
	state := expect(t, b, TypePresenceState)
	var presences PresenceStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &presences))
	assert.Len(t, presences.Presences, 2)

	joined := expect(t, a, TypePresenceJoin)
	assert.Equal(t, "u2", joined.UserID)
	return a, b
}

func TestSubmittedActionIsAckedAndBroadcast(t *testing.T) {
	hub, sessions := startHub(t)
	a, b := joinPair(t, hub)

	submit(t, hub, a, "op-1", `{"type":"UPDATE_STORY","payload":{"properties":{"title":"New"}}}`)

	ack := expect(t, a, TypeOpAck)
	var ackPayload OperationAckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &ackPayload))
	assert.Equal(t, "op-1", ackPayload.OperationID)
	assert.Equal(t, int64(1), ackPayload.ServerSeq)
	assert.True(t, ackPayload.Changed)

	bc := expect(t, b, TypeOpBroadcast)
	var bcPayload OperationBroadcastPayload
	require.NoError(t, json.Unmarshal(bc.Payload, &bcPayload))
	assert.Equal(t, "op-1", bcPayload.Operation.ID)
	assert.Equal(t, "u1", bcPayload.UserID)
	assert.JSONEq(t, `{"type":"UPDATE_STORY","payload":{"properties":{"title":"New"}}}`, string(bcPayload.Operation.Action))

	s, err := sessions.Open(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "New", s.State().Story.Title)
}

func TestNoOpActionIsAckedOnly(t *testing.T) {
	hub, _ := startHub(t)
	a, b := joinPair(t, hub)

	submit(t, hub, a, "op-1", `{"type":"DELETE_ELEMENTS","payload":{"elementIds":["missing"]}}`)
	ack := expect(t, a, TypeOpAck)
	var p OperationAckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &p))
	assert.False(t, p.Changed)
	assert.Zero(t, p.ServerSeq)
	assert.Empty(t, b.send)
}

func TestInvalidActionsAreNacked(t *testing.T) {
	hub, _ := startHub(t)
	a, _ := joinPair(t, hub)

	submit(t, hub, a, "op-1", `{"type":"NOT_AN_ACTION"}`)
	nack := expect(t, a, TypeOpNack)
	var p OperationNackPayload
	require.NoError(t, json.Unmarshal(nack.Payload, &p))
	assert.Equal(t, "op-1", p.OperationID)
	assert.Contains(t, p.Reason, "unknown action type")

	submit(t, hub, a, "op-2", `{"type":"RESTORE","payload":{"pages":[]}}`)
	nack = expect(t, a, TypeOpNack)
	require.NoError(t, json.Unmarshal(nack.Payload, &p))
	assert.Equal(t, "op-2", p.OperationID)
}

func TestDuplicateSendsDocumentToEveryone(t *testing.T) {
	hub, _ := startHub(t)
	a, b := joinPair(t, hub)

	submit(t, hub, a, "op-1", `{"type":"DUPLICATE_ELEMENTS_BY_ID","payload":{"elementIds":["t1"]}}`)
	expect(t, a, TypeOpAck)
	for _, c := range []*Client{a, b} {
		msg := expect(t, c, TypeDocSync)
		var doc DocSyncPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &doc))
		assert.Len(t, doc.State.Pages[0].Elements, 3)
		assert.True(t, doc.CanUndo)
	}
}

func TestUndoRedoSyncsRoom(t *testing.T) {
	hub, _ := startHub(t)
	a, b := joinPair(t, hub)

	hub.handleMessage(b, &Message{Type: TypeHistoryUndo})
	errMsg := expect(t, b, TypeError)
	assert.Contains(t, string(errMsg.Payload), "nothing to undo")

	submit(t, hub, a, "op-1", `{"type":"UPDATE_STORY","payload":{"properties":{"title":"New"}}}`)
	expect(t, a, TypeOpAck)
	expect(t, b, TypeOpBroadcast)

	hub.handleMessage(b, &Message{Type: TypeHistoryUndo, Payload: json.RawMessage(`{"count":1}`)})
	for _, c := range []*Client{a, b} {
		msg := expect(t, c, TypeDocSync)
		var doc DocSyncPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &doc))
		assert.Equal(t, "Old", doc.State.Story.Title)
		assert.True(t, doc.CanRedo)
	}

	hub.handleMessage(a, &Message{Type: TypeHistoryRedo})
	msg := expect(t, b, TypeDocSync)
	var doc DocSyncPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &doc))
	assert.Equal(t, "New", doc.State.Story.Title)
}

func TestDeletingSelectedElementPrunesPresence(t *testing.T) {
	hub, _ := startHub(t)
	a, b := joinPair(t, hub)

	hub.handleMessage(b, &Message{Type: TypePresenceUpdate, Payload: json.RawMessage(`{"pageId":"p1","selection":["t1"]}`)})
	upd := expect(t, a, TypePresenceUpdate)
	assert.Equal(t, "c2", upd.ClientID)

	submit(t, hub, a, "op-1", `{"type":"DELETE_ELEMENTS","payload":{"elementIds":["t1"]}}`)
	expect(t, a, TypeOpAck)
	expect(t, b, TypeOpBroadcast)

	for _, c := range []*Client{a, b} {
		msg := expect(t, c, TypePresenceUpdate)
		var p PresencePayload
		require.NoError(t, json.Unmarshal(msg.Payload, &p))
		assert.Equal(t, "p1", p.PageID)
		assert.Empty(t, p.Selection)
	}
}

func TestLastClientLeavingClosesSession(t *testing.T) {
	hub, sessions := startHub(t)
	a, b := joinPair(t, hub)

	hub.Unregister(b)
	left := expect(t, a, TypePresenceLeave)
	assert.Equal(t, "u2", left.UserID)
	assert.Empty(t, sessions.closedIDs())

	hub.Unregister(a)
	require.Eventually(t, func() bool { return len(sessions.closedIDs()) == 1 }, time.Second, time.Millisecond)
	_, ok := <-a.send
	assert.False(t, ok)

	// A client that already left is ignored.
	hub.Unregister(a)
}

func TestJoinUnknownStory(t *testing.T) {
	hub, _ := startHub(t)
	c := NewClient(hub, nil, "u1", "Ann", "nope", "c1")
	err := hub.Join(context.Background(), c)
	assert.True(t, errors.Is(err, persistence.ErrNotFound))
}

func TestStopClosesClients(t *testing.T) {
	hub, _ := startHub(t)
	a, _ := joinPair(t, hub)
	hub.Stop()
	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.closed
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, hub.Join(context.Background(), NewClient(hub, nil, "u3", "C", "s1", "c3")), ErrHubStopped)
}

func TestSyncBroadcastsOutsideChanges(t *testing.T) {
	hub, sessions := startHub(t)
	a, b := joinPair(t, hub)

	action, err := reducer.DecodeAction([]byte(`{"type":"UPDATE_STORY","payload":{"properties":{"title":"From REST"}}}`))
	require.NoError(t, err)
	sessions.session("s1").Dispatch(action)
	hub.Sync("s1")

	for _, c := range []*Client{a, b} {
		msg := expect(t, c, TypeDocSync)
		assert.Equal(t, int64(1), msg.Seq)
		var doc DocSyncPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &doc))
		assert.Equal(t, "From REST", doc.State.Story.Title)
		assert.True(t, doc.CanUndo)
	}

	submit(t, hub, a, "op-1", `{"type":"UPDATE_STORY","payload":{"properties":{"title":"Live"}}}`)
	ack := expect(t, a, TypeOpAck)
	assert.Equal(t, int64(2), ack.Seq, "sequence continues after a sync")

	hub.Sync("missing")
}

func TestMutatedStateIsReportedToSender(t *testing.T) {
	hub, sessions := startHub(t)
	sessions.mu.Lock()
	sessions.verify = true
	sessions.mu.Unlock()

	a := join(t, hub, "c1", "u1")
	expect(t, a, TypeWelcome)
	expect(t, a, TypeDocSync)
	expect(t, a, TypePresenceState)

	sessions.session("s1").State().Story.Title = "Changed in place"

	submit(t, hub, a, "op-1", `{"type":"UPDATE_STORY","payload":{"properties":{"title":"New"}}}`)
	msg := expect(t, a, TypeError)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "internal error", p.Message)

	// the room is not left locked
	hub.Sync("s1")
	expect(t, a, TypeDocSync)
}
