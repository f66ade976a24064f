package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"jhimki-stock-backend/internal/bot"
	"jhimki-stock-backend/internal/config"
	"jhimki-stock-backend/internal/session"
	"jhimki-stock-backend/internal/types"
	"jhimki-stock-backend/web"
)

// Bot is the orchestration surface the HTTP layer depends on.
type Bot interface {
	ProcessMessage(ctx context.Context, sessionID, message string, clientHistory []session.Turn) *bot.Result
}

type Server struct {
	router   *chi.Mux
	bot      Bot
	sessions session.Store
	cfg      config.Config
}

func New(cfg config.Config, b Bot, sessions session.Store) *Server {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{router: r, bot: b, sessions: sessions, cfg: cfg}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Get("/api/session/{id}", s.handleSessionInfo)
	s.router.Delete("/api/session/{id}", s.handleClearSession)
	s.router.Handle("/*", http.FileServer(http.FS(web.Assets())))
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	sid := s.getOrCreateSessionID(r, w, req.SessionID)

	history := make([]session.Turn, 0, len(req.History))
	for _, h := range req.History {
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		history = append(history, session.Turn{Role: h.Role, Content: h.Content, Timestamp: h.Timestamp})
	}

	res := s.bot.ProcessMessage(r.Context(), sid, req.Message, history)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Id", sid)
	_ = json.NewEncoder(w).Encode(types.ChatResponse{
		SessionID:  sid,
		Response:   res.Response,
		Products:   res.Products,
		IntentData: res.IntentData,
	})
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "id")
	info, err := s.sessions.Info(r.Context(), sid)
	if err != nil {
		log.Printf("[session] info failed for %s: %v", sid, err)
		s.writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if info == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.SessionInfo{
		SessionID:   info.SessionID,
		CreatedAt:   info.CreatedAt,
		LastUpdated: info.LastUpdated,
		TurnCount:   info.TurnCount,
	})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "id")
	if err := s.sessions.Clear(r.Context(), sid); err != nil {
		log.Printf("[session] clear failed for %s: %v", sid, err)
		s.writeError(w, http.StatusInternalServerError, "session clear failed")
		return
	}
	ClearSessionCookie(w)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "cleared", "session_id": sid})
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg})
}

func newSessionID() string {
	return fmt.Sprintf("s_%s", uuid.NewString())
}

// getOrCreateSessionID resolves the session identifier: request body first,
// then header, then cookie, otherwise a fresh one. The cookie is refreshed
// either way so browser clients survive a cleared localStorage.
func (s *Server) getOrCreateSessionID(r *http.Request, w http.ResponseWriter, fromBody string) string {
	sid := strings.TrimSpace(fromBody)
	if sid == "" {
		sid = strings.TrimSpace(r.Header.Get("X-Session-Id"))
	}
	if sid == "" {
		if c, err := GetSessionCookie(r); err == nil {
			sid = c
		}
	}
	if sid == "" {
		sid = newSessionID()
		log.Printf("[session] creating new session: %s", sid)
	}
	SetSessionCookie(w, sid)
	return sid
}
