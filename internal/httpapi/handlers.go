package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noteflux/noteflux/internal/indexer"
	"github.com/noteflux/noteflux/internal/observability"
	"github.com/noteflux/noteflux/internal/search"
)

// Handler implements the thin HTTP surface in front of the Searcher and
// Indexer: search, ask, index status, and a websocket progress feed for a
// running indexing pass.
type Handler struct {
	Searcher     *search.Searcher
	Indexer      *indexer.DefaultIndexer
	Logger       *observability.Logger
	ErrorHandler *observability.ErrorHandler

	upgrader websocket.Upgrader
}

// NewHandler builds an HTTP handler around the searcher and indexer.
func NewHandler(searcher *search.Searcher, idx *indexer.DefaultIndexer, logger *observability.Logger, errorHandler *observability.ErrorHandler) *Handler {
	return &Handler{
		Searcher:     searcher,
		Indexer:      idx,
		Logger:       logger,
		ErrorHandler: errorHandler,
		upgrader: websocket.Upgrader{
			// Same-origin CLI/local tooling only; this is not a browser-facing
			// multi-origin API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/search", h.handleSearch)
	mux.HandleFunc("/ask", h.handleAsk)
	mux.HandleFunc("/index/status", h.handleIndexStatus)
	mux.HandleFunc("/index/progress", h.handleIndexProgress)
	mux.HandleFunc("/person/context", h.handlePersonContext)
	mux.HandleFunc("/person/action-items", h.handleActionItems)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeEnvelope(w, http.StatusBadRequest, NewError(ErrorCodeInvalidParams, "q is required", nil))
		return
	}

	mode := search.SearchMode(q.Get("mode"))
	if mode == "" {
		mode = search.ModeHybrid
	}
	limit := 10
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	results, err := h.Searcher.Search(r.Context(), query, q.Get("vault"), q.Get("category"), q.Get("person"), limit, mode)
	if err != nil {
		h.ErrorHandler.HandleError(r.Context(), err, observability.ErrorContext{
			Operation: "search", ErrorType: "search_failed",
		})
		writeEnvelope(w, http.StatusInternalServerError, NewError(ErrorCodeInternalError, err.Error(), nil))
		return
	}
	writeEnvelope(w, http.StatusOK, NewResult(results))
}

type askRequest struct {
	Question string `json:"question"`
	Vault    string `json:"vault"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeEnvelope(w, http.StatusMethodNotAllowed, NewError(ErrorCodeInvalidRequest, "POST required", nil))
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, NewError(ErrorCodeParseError, "invalid JSON body", nil))
		return
	}
	if req.Question == "" {
		writeEnvelope(w, http.StatusBadRequest, NewError(ErrorCodeInvalidParams, "question is required", nil))
		return
	}

	answer, sources, err := h.Searcher.QueryWithLLM(r.Context(), req.Question, req.Vault, search.ModeHybrid)
	if err != nil {
		h.ErrorHandler.HandleError(r.Context(), err, observability.ErrorContext{
			Operation: "ask", ErrorType: "ask_failed",
		})
		writeEnvelope(w, http.StatusInternalServerError, NewError(ErrorCodeInternalError, err.Error(), nil))
		return
	}
	writeEnvelope(w, http.StatusOK, NewResult(map[string]interface{}{
		"answer":  answer,
		"sources": sources,
	}))
}

func (h *Handler) handlePersonContext(w http.ResponseWriter, r *http.Request) {
	person := r.URL.Query().Get("person")
	if person == "" {
		writeEnvelope(w, http.StatusBadRequest, NewError(ErrorCodeInvalidParams, "person is required", nil))
		return
	}

	pc, err := h.Searcher.GetPersonContext(r.Context(), person)
	if err != nil {
		h.ErrorHandler.HandleError(r.Context(), err, observability.ErrorContext{
			Operation: "person_context", ErrorType: "person_context_failed",
		})
		writeEnvelope(w, http.StatusInternalServerError, NewError(ErrorCodeInternalError, err.Error(), nil))
		return
	}
	writeEnvelope(w, http.StatusOK, NewResult(pc))
}

func (h *Handler) handleActionItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	person := q.Get("person")
	limit := 20
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.Searcher.GetActionItems(r.Context(), person, limit)
	if err != nil {
		h.ErrorHandler.HandleError(r.Context(), err, observability.ErrorContext{
			Operation: "action_items", ErrorType: "action_items_failed",
		})
		writeEnvelope(w, http.StatusInternalServerError, NewError(ErrorCodeInternalError, err.Error(), nil))
		return
	}
	writeEnvelope(w, http.StatusOK, NewResult(items))
}

func (h *Handler) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, NewResult(h.Indexer.Status()))
}

// handleIndexProgress streams IndexStatus snapshots over a websocket every
// 500ms until the client disconnects, a write fails, or a snapshot shows no
// pass running (that last snapshot is still sent).
func (h *Handler) handleIndexProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			status := h.Indexer.Status()
			if err := conn.WriteJSON(status); err != nil {
				return
			}
			if !status.Running {
				return
			}
		}
	}
}

func writeEnvelope(w http.ResponseWriter, httpStatus int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(env)
}
