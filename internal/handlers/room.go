// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pokerdealer/dealerd/internal/directory"
	"github.com/pokerdealer/dealerd/internal/models"
)

type createRoomRequest struct {
	Host     models.Player       `json:"host"`
	Settings models.GameSettings `json:"settings"`
}

type joinRoomRequest struct {
	User models.Player `json:"user"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type movePlayerRequest struct {
	PlayerID string          `json:"playerId"`
	Position models.Position `json:"position"`
}

type roomResponse struct {
	RoomID     string       `json:"roomId"`
	Room       *models.Room `json:"room"`
	InviteLink string       `json:"inviteLink,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// HealthHandler is the connectivity probe clients hit before join attempts.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRoomHandler mints a room with the caller as host.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := EnsureIdentity(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		http.Error(w, "bad room request payload", http.StatusBadRequest)
		return
	}

	room, err := s.Directory.CreateRoom(r.Context(), identity.Player(req.Host), req.Settings)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomResponse{
		RoomID:     room.Code,
		Room:       room,
		InviteLink: s.inviteLink(room.Code),
	})
}

// GetRoomHandler returns the authoritative room document, with the same
// shareable invite link the create response carries.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := s.Directory.GetRoom(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{
		RoomID:     room.Code,
		Room:       room,
		InviteLink: s.inviteLink(room.Code),
	})
}

// JoinRoomHandler seats the caller in the room.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := EnsureIdentity(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		http.Error(w, "bad join request payload", http.StatusBadRequest)
		return
	}

	room, err := s.Directory.JoinRoom(r.Context(), r.PathValue("code"), identity.Player(req.User))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{RoomID: room.Code, Room: room})
}

// UpdateRoleHandler sets the caller's role (player or dealer).
func (s *Server) UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := EnsureIdentity(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad role request payload", http.StatusBadRequest)
		return
	}

	if _, err := s.Directory.UpdateRole(r.Context(), r.PathValue("code"), identity.ID, req.Role); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// MovePlayerHandler records a host drag placement for one player.
func (s *Server) MovePlayerHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := EnsureIdentity(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	var req movePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad move request payload", http.StatusBadRequest)
		return
	}

	_, err = s.Directory.MovePlayer(r.Context(), r.PathValue("code"), identity.ID, req.PlayerID, req.Position)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// RemovePlayerHandler removes a non-host player from the room.
func (s *Server) RemovePlayerHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := EnsureIdentity(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	_, err = s.Directory.RemovePlayer(r.Context(), r.PathValue("code"), identity.ID, r.PathValue("playerId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// writeServiceError maps directory sentinels onto HTTP statuses. Anything
// unrecognized is a 500 and gets logged; the client only sees a generic
// message.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrNotFound), errors.Is(err, directory.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, directory.ErrRoomFull), errors.Is(err, directory.ErrDealerTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, directory.ErrHostImmutable), errors.Is(err, directory.ErrNotHost):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.Logger.WithError(err).Error("Unhandled directory error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
