package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// streamEventDelay is the pause between SSE frames so slow consumers can
// drain before the next event lands.
const streamEventDelay = 100 * time.Millisecond

// ArticleRequest is the fact-check request body
type ArticleRequest struct {
	Article string `json:"article"`
}

// RAGQueryRequest is the RAG query body
type RAGQueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Server exposes the pipeline and the RAG service over HTTP
type Server struct {
	router   *mux.Router
	orch     *PipelineOrchestrator
	store    *ResultStore
	rag      *RAGIndex
	hub      *ProgressHub
	notifier *DiscordNotifier
	origins  []string
}

// NewServer builds the router. notifier may be nil when Discord is off.
func NewServer(orch *PipelineOrchestrator, store *ResultStore, rag *RAGIndex, notifier *DiscordNotifier, origins []string) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		orch:     orch,
		store:    store,
		rag:      rag,
		hub:      NewProgressHub(),
		notifier: notifier,
		origins:  origins,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/factcheck/stream", s.handleFactCheckStream).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/factcheck", s.handleFactCheckAsync).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/results/{id}", s.handleGetResult).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/results", s.handleListResults).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/rag/query", s.handleRAGQuery).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/rag/documents/{id}", s.handleRAGDocument).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/rag/stats", s.handleRAGStats).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws/progress", s.handleWebSocket)
	s.router.Use(s.corsMiddleware)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleFactCheckStream runs the pipeline and streams progress as
// Server-Sent Events. The consumer always receives a terminal frame,
// followed by a final done frame.
func (s *Server) handleFactCheckStream(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	GetState().IncrementRunCount()

	writeFrame := func(ev ProgressEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			Logger().Error("Failed to marshal progress event: %v", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	var final *AnalysisRun
	events := s.orch.Run(r.Context(), req.Article)
	for ev := range events {
		writeFrame(ev)
		s.hub.Broadcast(ev)

		if ev.Status == EventCompleted {
			if run, ok := ev.Data["result_data"].(*AnalysisRun); ok {
				final = run
			}
		}

		// Give the consumer room to drain between frames
		select {
		case <-time.After(streamEventDelay):
		case <-r.Context().Done():
			return
		}
	}

	if final != nil {
		GetState().RecordCompleted(final.AnalysisID)
		writeFrame(ProgressEvent{
			Status:     EventInfo,
			Message:    fmt.Sprintf("Results saved to database with ID: %s", final.AnalysisID),
			AnalysisID: final.AnalysisID,
		})
		s.rag.Add(final)
		if s.notifier != nil {
			go s.notifier.NotifyCompleted(final)
		}
	} else {
		GetState().RecordFailed()
	}

	writeFrame(ProgressEvent{Status: EventDone})
}

// handleFactCheckAsync acknowledges immediately and processes in the
// background.
func (s *Server) handleFactCheckAsync(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	taskID := NewAnalysisID(req.Article, time.Now())
	GetState().IncrementRunCount()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		run, err := s.orch.RunSyncAs(ctx, taskID, req.Article)
		if err != nil {
			Logger().Error("Background fact check %s failed: %v", taskID, err)
			GetState().RecordFailed()
			return
		}
		GetState().RecordCompleted(run.AnalysisID)
		s.rag.Add(run)
		if s.notifier != nil {
			s.notifier.NotifyCompleted(run)
		}
	}()

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "processing",
		"message": "Fact checking process started",
		"task_id": taskID,
	})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("result not found: %s", id))
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": ids})
}

func (s *Server) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	var req RAGQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TopK == 0 {
		req.TopK = 5
	}

	docs, err := s.rag.Query(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": docs,
		"query":   req.Query,
	})
}

func (s *Server) handleRAGDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	doc, err := s.rag.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("document with ID %s not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRAGStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_count": s.rag.Len(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetState().Snapshot())
}

// Progress websocket, after the dashboard broadcast pattern

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger().Error("Error upgrading to websocket: %v", err)
		return
	}
	s.hub.Register(conn)
}

// ProgressHub fans progress events out to connected websocket clients
type ProgressHub struct {
	clients map[*websocket.Conn]bool
	mutex   sync.Mutex
}

// NewProgressHub creates an empty hub
func NewProgressHub() *ProgressHub {
	return &ProgressHub{clients: make(map[*websocket.Conn]bool)}
}

// Register adds a client and keeps its read side drained
func (h *ProgressHub) Register(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends an event to every connected client, dropping dead ones
func (h *ProgressHub) Broadcast(ev ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		Logger().Error("Error marshaling websocket message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
}

func (h *ProgressHub) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	conn.Close()
	delete(h.clients, conn)
}

// corsMiddleware allows the configured frontend origins
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range s.origins {
			if origin == allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				break
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		Logger().Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
