// Package api exposes the daemon's local control surface: sync status and
// control, history inspection, direct clipboard access, and a live event
// stream. The daemon serves it over the Unix control socket and, when
// configured, an additional TCP listener for tray or web UIs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clipkeep/clipkeep/internal/content"
	"github.com/clipkeep/clipkeep/internal/event"
	"github.com/clipkeep/clipkeep/internal/history"
	"github.com/clipkeep/clipkeep/internal/syncer"
)

// maxBody bounds uploaded clipboard payloads.
const maxBody = 16 << 20

// Clipboard is the slice of the monitor the API needs.
type Clipboard interface {
	ReadNow() (content.Item, error)
	WriteNow(content.Item) error
}

// Syncer is the slice of the sync engine the API needs.
type Syncer interface {
	Status() syncer.Status
	SyncNow(ctx context.Context) error
	ToggleAutoSync() bool
	OnLocalChange(ctx context.Context, item content.Item)
}

// Server wires the control routes to their collaborators.
type Server struct {
	store  history.Store
	clips  Clipboard
	engine Syncer
	bus    *event.Bus
}

// New constructs a Server. All collaborators must be non-nil.
func New(store history.Store, clips Clipboard, engine Syncer, bus *event.Bus) *Server {
	return &Server{store: store, clips: clips, engine: engine, bus: bus}
}

// Routes returns the control API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.getStatus)
		r.Post("/sync", s.postSync)
		r.Post("/autosync", s.postAutoSync)

		r.Get("/history", s.listHistory)
		r.Delete("/history/{id}", s.deleteHistory)
		r.Post("/history/{id}/pin", s.togglePin)
		r.Post("/history/{id}/restore", s.restoreHistory)
		r.Get("/history/{id}/payload", s.historyPayload)

		r.Get("/clipboard", s.getClipboard)
		r.Post("/clipboard", s.postClipboard)

		r.Get("/events", s.handleEvents)
	})
	return r
}

// requestLogger logs each request at debug level through the global slog
// logger, keeping one log pipeline for the whole daemon.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"took", time.Since(start))
	})
}

type statusResponse struct {
	syncer.Status
	HistoryTotal    int `json:"historyTotal"`
	HistoryUnpinned int `json:"historyUnpinned"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	total, unpinned, err := s.store.Count(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:          s.engine.Status(),
		HistoryTotal:    total,
		HistoryUnpinned: unpinned,
	})
}

func (s *Server) postSync(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.SyncNow(r.Context()); err != nil {
		if errors.Is(err, syncer.ErrSyncInFlight) {
			http.Error(w, "sync already in progress", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) postAutoSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"autoSyncEnabled": s.engine.ToggleAutoSync(),
	})
}

type entryJSON struct {
	ID        uint64       `json:"id"`
	Kind      content.Kind `json:"kind"`
	Pinned    bool         `json:"pinned"`
	CreatedAt time.Time    `json:"createdAt"`
	Size      int          `json:"size"`
	FileName  string       `json:"fileName,omitempty"`
	Preview   string       `json:"preview"`
}

func toEntryJSON(e history.Entry) entryJSON {
	return entryJSON{
		ID:        e.ID,
		Kind:      e.Item.Kind,
		Pinned:    e.Pinned,
		CreatedAt: e.CreatedAt,
		Size:      e.Item.Size(),
		FileName:  e.Item.FileName,
		Preview:   e.Item.Preview(),
	}
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	entries, err := s.store.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) togglePin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.store.TogglePin(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, "history entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": e.ID, "pinned": e.Pinned})
}

func (s *Server) restoreHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, "history entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if e.Item.Kind == content.KindFile {
		http.Error(w, "file entries cannot be restored to the clipboard", http.StatusBadRequest)
		return
	}
	// Restoring only touches the local clipboard; the monitor suppresses its
	// own write, so nothing is re-recorded or pushed.
	if err := s.clips.WriteNow(e.Item); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) historyPayload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, "history entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeItem(w, e.Item)
}

func (s *Server) getClipboard(w http.ResponseWriter, r *http.Request) {
	item, err := s.clips.ReadNow()
	if err != nil {
		http.Error(w, "clipboard is empty or unsupported", http.StatusNotFound)
		return
	}
	writeItem(w, item)
}

func (s *Server) postClipboard(w http.ResponseWriter, r *http.Request) {
	kind := content.KindText
	if raw := r.Header.Get("X-Type"); raw != "" {
		var ok bool
		if kind, ok = content.KindFromWire(raw); !ok {
			http.Error(w, fmt.Sprintf("unknown X-Type %q", raw), http.StatusBadRequest)
			return
		}
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	var item content.Item
	switch kind {
	case content.KindText:
		item = content.NewText(string(body))
	case content.KindImage:
		item = content.NewImage(body)
	case content.KindFile:
		var name string
		if raw := r.Header.Get("X-FileName"); raw != "" {
			if name, err = url.PathUnescape(raw); err != nil {
				http.Error(w, "bad X-FileName: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		item = content.NewFile(name, body)
	}

	// File payloads never land on the system clipboard; they are recorded
	// and offered for push only.
	if item.Kind != content.KindFile {
		if err := s.clips.WriteNow(item); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	entry, err := s.store.Append(r.Context(), item)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.bus.Publish(event.Changed(item.Kind))
	// Push without holding the response open; the daemon's write above was
	// suppressed by the monitor, so this is the only push trigger.
	go s.engine.OnLocalChange(context.WithoutCancel(r.Context()), item)

	writeJSON(w, http.StatusOK, toEntryJSON(entry))
}

// writeItem sends an item the way the remote endpoint would: raw body plus
// X-Type and X-FileName headers.
func writeItem(w http.ResponseWriter, item content.Item) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Type", item.Kind.WireName())
	if item.FileName != "" {
		w.Header().Set("X-FileName", url.PathEscape(item.FileName))
	}
	w.Write(item.Data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode response", "err", err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
