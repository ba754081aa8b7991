// Package server implements the reference CRM backend the client talks to:
// a small HTTP API over the sqlite store plus a per-conversation SSE feed.
package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/constants"
	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/store"
)

// Server wires the store and the hub behind an HTTP router.
type Server struct {
	store    *store.Store
	hub      *Hub
	token    string
	pageSize int
}

// New creates a server. An empty token disables authentication. A
// non-positive pageSize falls back to the default message page size.
func New(st *store.Store, token string, pageSize int) *Server {
	if pageSize <= 0 {
		pageSize = constants.MessagePageSize
	}
	return &Server{
		store:    st,
		hub:      NewHub(),
		token:    token,
		pageSize: pageSize,
	}
}

// Hub exposes the server's message hub, mainly for tests and seeding.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.authenticate)

	r.Route("/api/conversations", func(r chi.Router) {
		r.Get("/", s.handleListConversations)
		r.Post("/", s.handleCreateConversation)
		r.Route("/{conversationID}", func(r chi.Router) {
			r.Get("/", s.handleGetConversation)
			r.Get("/messages", s.handleGetMessages)
			r.Post("/messages", s.handlePostMessage)
			r.Get("/stream", s.handleStream)
		})
	})

	return r
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.token {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list conversations")
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	out := make([]conversationDTO, len(convs))
	for i, c := range convs {
		out[i] = conversationToDTO(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Contact) == "" {
		writeError(w, http.StatusBadRequest, "contact is required")
		return
	}

	conv, err := s.store.CreateConversation(req.Contact, req.PipelineStageID, req.Priority, req.AssigneeID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create conversation")
		writeError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conversationToDTO(conv))
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	conv, err := s.store.GetConversation(id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("Failed to get conversation")
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}

	msgs, lastPage, err := s.store.GetMessagesPage(id, 1, s.pageSize)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("Failed to get messages")
		writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}

	writeJSON(w, http.StatusOK, conversationPageDTO{
		Conversation: conversationToDTO(conv),
		Messages:     messagesToDTO(msgs),
		LastPage:     lastPage,
	})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}

	msgs, lastPage, err := s.store.GetMessagesPage(id, page, s.pageSize)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("Failed to get messages")
		writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}

	writeJSON(w, http.StatusOK, historyPageDTO{
		Messages: messagesToDTO(msgs),
		LastPage: lastPage,
	})
}

// handlePostMessage stores a new message and broadcasts it to stream
// subscribers. The direction defaults to outbound; channel webhooks post
// inbound messages through the same route.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	direction := store.DirectionOutbound
	switch req.Direction {
	case "", string(store.DirectionOutbound):
	case string(store.DirectionInbound):
		direction = store.DirectionInbound
	default:
		writeError(w, http.StatusBadRequest, "invalid direction")
		return
	}

	if _, err := s.store.GetConversation(id); errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	} else if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("Failed to get conversation")
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}

	msg, err := s.store.AppendMessage(id, req.TempID, req.Content, direction)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("Failed to append message")
		writeError(w, http.StatusInternalServerError, "failed to append message")
		return
	}

	s.hub.Publish(msg)
	writeJSON(w, http.StatusCreated, messageToDTO(msg))
}

// handleStream serves the conversation's message feed as server-sent events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.hub.Subscribe(id)
	defer s.hub.Unsubscribe(id, sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub:
			if !ok {
				return
			}
			payload, err := json.Marshal(messageToDTO(msg))
			if err != nil {
				log.Error().Err(err).Msg("Failed to encode stream event")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
