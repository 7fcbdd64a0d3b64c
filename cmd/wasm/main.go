//go:build js && wasm

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"syscall/js"

	"github.com/inamate/storyeditor/internal/history"
	"github.com/inamate/storyeditor/internal/idlequeue"
	"github.com/inamate/storyeditor/internal/persistence"
	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/render"
	"github.com/inamate/storyeditor/internal/story"
	"github.com/inamate/storyeditor/internal/workspace"
)

var (
	session *workspace.Session
	sched   = &idlequeue.ManualScheduler{}
)

func main() {
	editor := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	editor.Set("loadStory", js.FuncOf(loadStory))
	editor.Set("loadSample", js.FuncOf(loadSample))
	editor.Set("dispatch", js.FuncOf(dispatch))
	editor.Set("undo", js.FuncOf(undo))
	editor.Set("redo", js.FuncOf(redo))
	editor.Set("subscribe", js.FuncOf(subscribe))
	// runIdle is meant to be called from requestIdleCallback.
	editor.Set("runIdle", js.FuncOf(runIdle))

	// --- Queries (frontend ← editor) ---
	editor.Set("getState", js.FuncOf(getState))
	editor.Set("getHistory", js.FuncOf(getHistory))
	editor.Set("pendingIdle", js.FuncOf(pendingIdle))
	editor.Set("getPageCanvas", js.FuncOf(getPageCanvas))
	editor.Set("getTextColors", js.FuncOf(getTextColors))
	editor.Set("encodeStory", js.FuncOf(encodeStory))

	js.Global().Set("storyEditor", editor)
	js.Global().Set("storyEditorWasmReady", js.ValueOf(true))

	select {}
}

func errorResult(err error) any {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func okResult() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func jsonResult(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(string(data))
}

func requireSession() bool {
	return session != nil
}

// --- Command Handlers ---

func loadStory(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing story JSON"})
	}

	var raw persistence.RawStory
	if err := json.Unmarshal([]byte(args[0].String()), &raw); err != nil {
		return errorResult(err)
	}
	var caps map[string]bool
	if len(args) > 1 && args[1].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[1].String()), &caps); err != nil {
			return errorResult(err)
		}
	}
	restore, err := persistence.LoadStory(&raw, caps)
	if err != nil {
		return errorResult(err)
	}

	openSession(raw.ID, raw.Status == "auto-draft", restore)
	return okResult()
}

// loadSample opens the built-in two page story.
func loadSample(this js.Value, args []js.Value) any {
	id := "sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	st, pages := story.NewSampleStory(id)
	openSession(id, true, reducer.Restore{
		Pages:   pages,
		Current: pages[0].ID,
		Story:   st,
	})
	return okResult()
}

func openSession(id string, isNew bool, restore reducer.Restore) {
	if session != nil {
		session.Close()
	}
	session = workspace.NewSession(id, isNew, workspace.Deps{
		Renderer: render.NewRasterizer(0.5),
	}, workspace.Options{Scheduler: sched})
	session.Load(restore)
	session.QueueCanvases()
}

func dispatch(this js.Value, args []js.Value) any {
	if !requireSession() {
		return js.ValueOf(map[string]any{"error": "no story loaded"})
	}
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing action JSON"})
	}

	data := []byte(args[0].String())
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		raws = []json.RawMessage{data}
	}
	actions := make([]reducer.Action, 0, len(raws))
	for _, raw := range raws {
		a, err := reducer.DecodeAction(raw)
		if err != nil {
			return errorResult(err)
		}
		actions = append(actions, a)
	}

	prev := session.State()
	next := session.Dispatch(actions...)
	return js.ValueOf(map[string]any{"ok": true, "changed": prev != next})
}

func historyCount(args []js.Value) int {
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		if n := args[0].Int(); n > 0 {
			return n
		}
	}
	return 1
}

func undo(this js.Value, args []js.Value) any {
	if !requireSession() {
		return js.ValueOf(false)
	}
	return js.ValueOf(session.Undo(historyCount(args)))
}

func redo(this js.Value, args []js.Value) any {
	if !requireSession() {
		return js.ValueOf(false)
	}
	return js.ValueOf(session.Redo(historyCount(args)))
}

// subscribe calls the callback after each change. It returns an unsubscribe
// function.
func subscribe(this js.Value, args []js.Value) any {
	if !requireSession() || len(args) < 1 || args[0].Type() != js.TypeFunction {
		return js.Null()
	}
	cb := args[0]
	unsubscribe := session.Store().Subscribe(func(_, _ *reducer.State) {
		cb.Invoke()
	})
	var release js.Func
	release = js.FuncOf(func(js.Value, []js.Value) any {
		unsubscribe()
		release.Release()
		return nil
	})
	return release
}

func runIdle(this js.Value, args []js.Value) any {
	return js.ValueOf(sched.Fire())
}

// --- Query Handlers ---

func getState(this js.Value, args []js.Value) any {
	if !requireSession() {
		return js.Null()
	}
	return jsonResult(history.EntryFromState(session.State()))
}

func getHistory(this js.Value, args []js.Value) any {
	if !requireSession() {
		return js.Null()
	}
	h := session.History()
	return js.ValueOf(map[string]any{
		"version": h.VersionNumber(),
		"canUndo": h.CanUndo(),
		"canRedo": h.CanRedo(),
	})
}

func pendingIdle(this js.Value, args []js.Value) any {
	return js.ValueOf(sched.Pending())
}

// getPageCanvas returns the page rendering as a PNG data URL.
func getPageCanvas(this js.Value, args []js.Value) any {
	if !requireSession() || len(args) < 1 {
		return js.Null()
	}
	img, err := session.PageCanvas(context.Background(), args[0].String())
	if err != nil {
		return errorResult(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errorResult(err)
	}
	return js.ValueOf("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func getTextColors(this js.Value, args []js.Value) any {
	if !requireSession() || len(args) < 1 {
		return js.Null()
	}
	res, err := session.AccessibleTextColors(context.Background(), args[0].String())
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

// encodeStory returns the story in the shape the save endpoint expects.
func encodeStory(this js.Value, args []js.Value) any {
	if !requireSession() {
		return js.Null()
	}
	raw, err := persistence.EncodeStory(session.State())
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(raw)
}
