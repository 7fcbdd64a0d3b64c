// Package storyapi exposes open stories over HTTP.
package storyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/storyeditor/internal/auth"
	"github.com/inamate/storyeditor/internal/history"
	"github.com/inamate/storyeditor/internal/pagecanvas"
	"github.com/inamate/storyeditor/internal/persistence"
	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/workspace"
)

const maxBodySize = 4 << 20

var errRestoreNotAllowed = errors.New("restore cannot be dispatched directly")

// Sessions opens and closes story sessions.
type Sessions interface {
	Open(ctx context.Context, storyID string) (*workspace.Session, error)
	Close(storyID string)
}

// Rooms is told about every change made over HTTP so that live editors
// of the story catch up.
type Rooms interface {
	Sync(storyID string)
}

type Handler struct {
	sessions Sessions
	rooms    Rooms
	logger   *slog.Logger
}

// NewHandler serves sessions. rooms may be nil.
func NewHandler(sessions Sessions, rooms Rooms, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, rooms: rooms, logger: logger}
}

func (h *Handler) changed(s *workspace.Session) {
	if h.rooms != nil {
		h.rooms.Sync(s.StoryID)
	}
}

// Register mounts the story routes on r.
func (h *Handler) Register(r *mux.Router) {
	s := r.PathPrefix("/stories/{storyId}").Subrouter()
	s.HandleFunc("", h.Get).Methods(http.MethodGet)
	s.HandleFunc("/session", h.CloseSession).Methods(http.MethodDelete)
	s.HandleFunc("/actions", h.Dispatch).Methods(http.MethodPost)
	s.HandleFunc("/undo", h.Undo).Methods(http.MethodPost)
	s.HandleFunc("/redo", h.Redo).Methods(http.MethodPost)
	s.HandleFunc("/save", h.Save).Methods(http.MethodPost)
	s.HandleFunc("/autosave", h.AutoSave).Methods(http.MethodPost)
	s.HandleFunc("/backup", h.GetBackup).Methods(http.MethodGet)
	s.HandleFunc("/backup/restore", h.RestoreBackup).Methods(http.MethodPost)
	s.HandleFunc("/backup", h.DiscardBackup).Methods(http.MethodDelete)
	s.HandleFunc("/pages/{pageId}/canvas.png", h.PageCanvas).Methods(http.MethodGet)
	s.HandleFunc("/elements/{elementId}/text-colors", h.TextColors).Methods(http.MethodGet)
}

type stateResponse struct {
	State    history.Entry `json:"state"`
	Version  int           `json:"version"`
	CanUndo  bool          `json:"canUndo"`
	CanRedo  bool          `json:"canRedo"`
	IsSaving bool          `json:"isSaving"`
}

type historyRequest struct {
	Count int `json:"count"`
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*workspace.Session, bool) {
	s, err := h.sessions.Open(r.Context(), mux.Vars(r)["storyId"])
	if err != nil {
		h.handleError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) writeState(w http.ResponseWriter, s *workspace.Session) {
	hist := s.History()
	writeJSON(w, http.StatusOK, stateResponse{
		State:    history.EntryFromState(s.State()),
		Version:  hist.VersionNumber(),
		CanUndo:  hist.CanUndo(),
		CanRedo:  hist.CanRedo(),
		IsSaving: s.IsSaving(),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeState(w, s)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Close(mux.Vars(r)["storyId"])
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch applies one action envelope, or an array of them as a single
// change.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	actions, err := decodeActions(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	prev := s.State()
	if s.Dispatch(actions...) != prev {
		h.changed(s)
	}
	h.logger.Debug("actions dispatched", "story", s.StoryID, "count", len(actions), "user", auth.UserIDFromContext(r.Context()))
	h.writeState(w, s)
}

func decodeActions(body json.RawMessage) ([]reducer.Action, error) {
	var raws []json.RawMessage
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
	} else {
		raws = []json.RawMessage{body}
	}

	actions := make([]reducer.Action, 0, len(raws))
	for _, raw := range raws {
		a, err := reducer.DecodeAction(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := a.(reducer.Restore); ok {
			return nil, errRestoreNotAllowed
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*workspace.Session).Undo)
}

func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*workspace.Session).Redo)
}

func (h *Handler) step(w http.ResponseWriter, r *http.Request, move func(*workspace.Session, int) bool) {
	req := historyRequest{Count: 1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !move(s, req.Count) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no history entry in that direction"})
		return
	}
	h.changed(s)
	h.writeState(w, s)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	saved, err := s.Save(r.Context())
	if err != nil {
		h.saveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) AutoSave(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.AutoSave(r.Context()); err != nil {
		h.saveError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	e, found := s.RecoveredBackup()
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no backup"})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !s.RestoreBackup() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no backup"})
		return
	}
	h.changed(s)
	h.writeState(w, s)
}

func (h *Handler) DiscardBackup(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.DiscardBackup()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PageCanvas(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	img, err := s.PageCanvas(r.Context(), mux.Vars(r)["pageId"])
	if err != nil {
		h.handleError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		h.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) TextColors(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := s.AccessibleTextColors(r.Context(), mux.Vars(r)["elementId"])
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// saveError reports a failed save with the message editors are shown.
func (h *Handler) saveError(w http.ResponseWriter, err error) {
	code := persistence.StatusCode(err)
	if code == 0 {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, map[string]string{"error": persistence.SaveErrorMessage(err)})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	if code := persistence.StatusCode(err); code != 0 {
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}
	switch {
	case errors.Is(err, workspace.ErrPageNotFound), errors.Is(err, workspace.ErrElementNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, pagecanvas.ErrNoCanvas):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, pagecanvas.ErrNoRegion):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("story request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
