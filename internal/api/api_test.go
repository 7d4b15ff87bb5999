package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/clipkeep/clipkeep/internal/content"
	"github.com/clipkeep/clipkeep/internal/event"
	"github.com/clipkeep/clipkeep/internal/history"
	"github.com/clipkeep/clipkeep/internal/syncer"
)

type fakeClipboard struct {
	mu      sync.Mutex
	current content.Item
	present bool
	writes  []content.Item
}

func (f *fakeClipboard) set(it content.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = it
	f.present = true
}

func (f *fakeClipboard) ReadNow() (content.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.present {
		return content.Item{}, errors.New("clipboard is empty or unsupported")
	}
	return f.current, nil
}

func (f *fakeClipboard) WriteNow(it content.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, it)
	f.current = it
	f.present = true
	return nil
}

func (f *fakeClipboard) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

type fakeSyncer struct {
	mu      sync.Mutex
	enabled bool
	syncErr error
	syncs   int
	pushed  []content.Item
}

func (f *fakeSyncer) Status() syncer.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return syncer.Status{AutoSyncEnabled: f.enabled, LastServerIndex: 34, LastLocalIndex: 12}
}

func (f *fakeSyncer) SyncNow(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	return f.syncErr
}

func (f *fakeSyncer) ToggleAutoSync() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = !f.enabled
	return f.enabled
}

func (f *fakeSyncer) OnLocalChange(_ context.Context, item content.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, item)
}

func (f *fakeSyncer) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

type fixture struct {
	srv    *httptest.Server
	store  history.Store
	clips  *fakeClipboard
	engine *fakeSyncer
	bus    *event.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  history.NewMemory(50),
		clips:  &fakeClipboard{},
		engine: &fakeSyncer{enabled: true},
		bus:    event.NewBus(),
	}
	f.srv = httptest.NewServer(New(f.store, f.clips, f.engine, f.bus).Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) url(path string) string { return f.srv.URL + "/api/v1" + path }

func do(t *testing.T, method, url string, body io.Reader, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStatusIncludesHistoryCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e1, _ := f.store.Append(ctx, content.NewText("one"))
	f.store.Append(ctx, content.NewText("two"))
	f.store.TogglePin(ctx, e1.ID)

	resp := do(t, http.MethodGet, f.url("/status"), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d", resp.StatusCode)
	}
	var got map[string]any
	decode(t, resp, &got)

	if got["autoSyncEnabled"] != true {
		t.Fatalf("autoSyncEnabled missing: %v", got)
	}
	if got["historyTotal"].(float64) != 2 || got["historyUnpinned"].(float64) != 1 {
		t.Fatalf("got counts %v/%v, want 2/1", got["historyTotal"], got["historyUnpinned"])
	}
	if got["lastServerIndex"].(float64) != 34 {
		t.Fatalf("got lastServerIndex %v", got["lastServerIndex"])
	}
}

func TestSyncEndpoint(t *testing.T) {
	f := newFixture(t)

	resp := do(t, http.MethodPost, f.url("/sync"), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d", resp.StatusCode)
	}
	if f.engine.syncs != 1 {
		t.Fatalf("got %d syncs", f.engine.syncs)
	}

	f.engine.syncErr = syncer.ErrSyncInFlight
	resp = do(t, http.MethodPost, f.url("/sync"), nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("got %d, want 409 while in flight", resp.StatusCode)
	}
}

func TestAutoSyncToggle(t *testing.T) {
	f := newFixture(t)

	resp := do(t, http.MethodPost, f.url("/autosync"), nil, nil)
	var got map[string]bool
	decode(t, resp, &got)
	if got["autoSyncEnabled"] != false {
		t.Fatalf("got %v, want toggled off", got)
	}

	resp = do(t, http.MethodPost, f.url("/autosync"), nil, nil)
	decode(t, resp, &got)
	if got["autoSyncEnabled"] != true {
		t.Fatalf("got %v, want toggled back on", got)
	}
}

func TestHistoryListPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.store.Append(ctx, content.NewText(fmt.Sprintf("entry %d", i)))
	}

	resp := do(t, http.MethodGet, f.url("/history?limit=2&offset=1"), nil, nil)
	var got []entryJSON
	decode(t, resp, &got)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].ID != 4 || got[1].ID != 3 {
		t.Fatalf("got ids %d,%d, want 4,3", got[0].ID, got[1].ID)
	}
	if got[0].Preview != "entry 3" {
		t.Fatalf("got preview %q", got[0].Preview)
	}
}

func TestHistoryPinDeleteNotFound(t *testing.T) {
	f := newFixture(t)
	e, _ := f.store.Append(context.Background(), content.NewText("keep"))

	resp := do(t, http.MethodPost, f.url(fmt.Sprintf("/history/%d/pin", e.ID)), nil, nil)
	var got map[string]any
	decode(t, resp, &got)
	if got["pinned"] != true {
		t.Fatalf("got %v, want pinned", got)
	}

	resp = do(t, http.MethodPost, f.url("/history/9999/pin"), nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got %d, want 404", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, f.url(fmt.Sprintf("/history/%d", e.ID)), nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("got %d, want 204", resp.StatusCode)
	}
	// Deleting again is still a 204; absent ids are a no-op.
	resp = do(t, http.MethodDelete, f.url(fmt.Sprintf("/history/%d", e.ID)), nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("got %d, want 204 on repeat", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, f.url("/history/banana"), nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d, want 400 for a bad id", resp.StatusCode)
	}
}

func TestHistoryRestoreWritesClipboardOnly(t *testing.T) {
	f := newFixture(t)
	e, _ := f.store.Append(context.Background(), content.NewText("old value"))

	resp := do(t, http.MethodPost, f.url(fmt.Sprintf("/history/%d/restore", e.ID)), nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("got %d", resp.StatusCode)
	}
	if f.clips.writeCount() != 1 {
		t.Fatalf("got %d clipboard writes", f.clips.writeCount())
	}
	if f.engine.pushCount() != 0 {
		t.Fatal("restore must not push")
	}

	resp = do(t, http.MethodPost, f.url("/history/777/restore"), nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got %d, want 404", resp.StatusCode)
	}
}

func TestHistoryRestoreRejectsFiles(t *testing.T) {
	f := newFixture(t)
	e, _ := f.store.Append(context.Background(), content.NewFile("a.bin", []byte{1}))

	resp := do(t, http.MethodPost, f.url(fmt.Sprintf("/history/%d/restore", e.ID)), nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", resp.StatusCode)
	}
	if f.clips.writeCount() != 0 {
		t.Fatal("file entry written to clipboard")
	}
}

func TestHistoryPayloadHeaders(t *testing.T) {
	f := newFixture(t)
	e, _ := f.store.Append(context.Background(),
		content.NewFile("tax form.pdf", []byte("%PDF")))

	resp := do(t, http.MethodGet, f.url(fmt.Sprintf("/history/%d/payload", e.ID)), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Type"); got != "file" {
		t.Fatalf("got X-Type %q", got)
	}
	if got := resp.Header.Get("X-FileName"); got != "tax%20form.pdf" {
		t.Fatalf("got X-FileName %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "%PDF" {
		t.Fatalf("got body %q", body)
	}
}

func TestClipboardGet(t *testing.T) {
	f := newFixture(t)

	resp := do(t, http.MethodGet, f.url("/clipboard"), nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got %d, want 404 for an empty clipboard", resp.StatusCode)
	}

	f.clips.set(content.NewImage([]byte{9, 9, 9}))
	resp = do(t, http.MethodGet, f.url("/clipboard"), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Type"); got != "screenshot" {
		t.Fatalf("got X-Type %q", got)
	}
}

func TestClipboardPostText(t *testing.T) {
	f := newFixture(t)

	resp := do(t, http.MethodPost, f.url("/clipboard"),
		bytes.NewReader([]byte("typed via cli")), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d", resp.StatusCode)
	}
	var got entryJSON
	decode(t, resp, &got)
	if got.Kind != content.KindText || got.Preview != "typed via cli" {
		t.Fatalf("got %+v", got)
	}
	if f.clips.writeCount() != 1 {
		t.Fatalf("got %d clipboard writes", f.clips.writeCount())
	}
	waitFor(t, func() bool { return f.engine.pushCount() == 1 }, "local change never pushed")

	total, _, _ := f.store.Count(context.Background())
	if total != 1 {
		t.Fatalf("got %d history entries", total)
	}
}

func TestClipboardPostFileSkipsSystemClipboard(t *testing.T) {
	f := newFixture(t)

	h := http.Header{}
	h.Set("X-Type", "file")
	h.Set("X-FileName", "archive%20final.zip")
	resp := do(t, http.MethodPost, f.url("/clipboard"), bytes.NewReader([]byte("PK")), h)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d", resp.StatusCode)
	}
	var got entryJSON
	decode(t, resp, &got)
	if got.Kind != content.KindFile || got.FileName != "archive final.zip" {
		t.Fatalf("got %+v", got)
	}
	if f.clips.writeCount() != 0 {
		t.Fatal("file payload was written to the system clipboard")
	}
	waitFor(t, func() bool { return f.engine.pushCount() == 1 }, "file never offered for push")
}

func TestClipboardPostRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	h := http.Header{}
	h.Set("X-Type", "carrier-pigeon")
	resp := do(t, http.MethodPost, f.url("/clipboard"), bytes.NewReader([]byte("x")), h)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d for unknown type", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, f.url("/clipboard"), bytes.NewReader(nil), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d for empty body", resp.StatusCode)
	}
}
