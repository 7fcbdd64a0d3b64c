package collab

import (
	"encoding/json"

	"github.com/inamate/storyeditor/internal/history"
)

type Message struct {
	Type     string          `json:"type"`
	StoryID  string          `json:"storyId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type PresencePayload struct {
	PageID      string     `json:"pageId,omitempty"`
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
	UserID      string     `json:"userId,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceStatePayload maps client ids to their presence.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	TypeWelcome = "welcome"

	// TypeDocSync carries the whole document. It is sent on join and
	// whenever an edit cannot be replayed by clients as-is.
	TypeDocSync = "doc.sync"

	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"

	TypeHistoryUndo = "history.undo"
	TypeHistoryRedo = "history.redo"
)

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	ServerSeq int64  `json:"serverSeq"`
}

type DocSyncPayload struct {
	ServerSeq int64         `json:"serverSeq"`
	State     history.Entry `json:"state"`
	CanUndo   bool          `json:"canUndo"`
	CanRedo   bool          `json:"canRedo"`
}

// Operation is one editor action submitted by a client. Action holds the
// action envelope, {"type": ..., "payload": ...}.
type Operation struct {
	ID        string          `json:"id"`
	ClientSeq int64           `json:"clientSeq"`
	Timestamp int64           `json:"timestamp"`
	Action    json.RawMessage `json:"action"`
}

type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
	Changed         bool   `json:"changed"`
}

type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}

// HistoryPayload is the payload of undo and redo requests.
type HistoryPayload struct {
	Count int `json:"count,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(ErrorPayload{Message: err.Error()})
		typ = TypeError
	}
	return &Message{Type: typ, Payload: data}
}
