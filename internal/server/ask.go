package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"osservatorio/internal/domain"
	"osservatorio/internal/pipeline"
)

// Asker answers one question, reporting progress through the callback.
type Asker interface {
	Ask(ctx context.Context, question string, status pipeline.StatusFunc) *domain.ResponsePayload
}

// CacheReader is the read side of the response cache. The handler
// checks it before committing to a stream so a cached answer goes out
// as one plain JSON body instead of an SSE session.
type CacheReader interface {
	Get(question string) (*domain.ResponsePayload, bool)
}

type AskHandler struct {
	pipeline Asker
	cache    CacheReader
}

func NewAskHandler(p Asker, cache CacheReader) *AskHandler {
	return &AskHandler{pipeline: p, cache: cache}
}

type askRequest struct {
	Query string `json:"query"`
}

// HandleAsk serves POST /ask. Cache hits and request errors return
// plain JSON; everything else streams SSE status events followed by a
// single result event carrying the payload.
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, errorPayload(domain.ErrCodeBadRequest, "Richiesta non valida: atteso application/json."))
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload(domain.ErrCodeBadRequest, "Corpo della richiesta non valido."))
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload(domain.ErrCodeEmptyQuery, "La domanda è vuota."))
		return
	}

	if cached, ok := h.cache.Get(query); ok {
		log.Printf("server: cache hit for /ask")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		// No streaming support: answer in one body.
		writeJSON(w, http.StatusOK, h.pipeline.Ask(r.Context(), query, nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	payload := h.pipeline.Ask(r.Context(), query, func(msg string) {
		writeSSE(w, flusher, "status", map[string]string{"status": msg})
	})
	writeSSE(w, flusher, "result", payload)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Printf("server: sse marshal failed: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, payload *domain.ResponsePayload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("server: response encode failed: %v", err)
	}
}

func errorPayload(code, message string) *domain.ResponsePayload {
	p := domain.NewResponsePayload()
	p.SetError(code, message)
	return p
}

const (
	askWSWriteWait = 10 * time.Second
	askWSReadWait  = 60 * time.Second
)

var askWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type askWSOutbound struct {
	Type    string                  `json:"type"`
	Status  string                  `json:"status,omitempty"`
	Payload *domain.ResponsePayload `json:"payload,omitempty"`
}

// HandleAskWS mirrors the SSE stream over a websocket for the embedded
// widget: one question in, a sequence of status frames and a final
// result frame out.
func (h *AskHandler) HandleAskWS(w http.ResponseWriter, r *http.Request) {
	conn, err := askWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(askWSReadWait)); err != nil {
		log.Printf("server: ask ws set read deadline failed: %v", err)
		return
	}

	var req askRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeWS(conn, askWSOutbound{Type: "result", Payload: errorPayload(domain.ErrCodeBadRequest, "Messaggio non valido.")})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeWS(conn, askWSOutbound{Type: "result", Payload: errorPayload(domain.ErrCodeEmptyQuery, "La domanda è vuota.")})
		return
	}

	payload := h.pipeline.Ask(r.Context(), query, func(msg string) {
		writeWS(conn, askWSOutbound{Type: "status", Status: msg})
	})
	writeWS(conn, askWSOutbound{Type: "result", Payload: payload})
}

func writeWS(conn *websocket.Conn, out askWSOutbound) {
	if err := conn.SetWriteDeadline(time.Now().Add(askWSWriteWait)); err != nil {
		return
	}
	if err := conn.WriteJSON(out); err != nil {
		log.Printf("server: ask ws write failed: %v", err)
	}
}
