package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// callerID returns the caller or writes 401. Connection routes always need an
// identity, even when auth is optional elsewhere.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := UserID(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return "", false
	}
	return id, true
}

func (s *Server) connectionGraph(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	g, err := s.connections.Graph(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type sendRequestBody struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Message     string `json:"message"`
}

func (s *Server) sendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var body sendRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := s.connections.Send(r.Context(), userID, body.RecipientID, body.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"request": req})
}

func (s *Server) acceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	req, friendships, err := s.connections.Accept(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req, "friendships": friendships})
}

func (s *Server) declineRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	req, err := s.connections.Decline(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

func (s *Server) removeFriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := s.connections.Remove(r.Context(), userID, chi.URLParam(r, "friendId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
