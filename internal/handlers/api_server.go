// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pokerdealer/dealerd/internal/directory"
	"github.com/pokerdealer/dealerd/internal/fanout"
)

// Server owns the HTTP surface of the room service: the directory behind
// the REST API and the hub behind the WebSocket fan-out.
type Server struct {
	Directory *directory.Service
	Hub       *fanout.Hub
	Logger    *logrus.Logger

	// BotName builds the t.me invite deep link returned alongside rooms.
	BotName string
}

func NewServer(dir *directory.Service, hub *fanout.Hub, logger *logrus.Logger) *Server {
	botName := os.Getenv("TELEGRAM_BOT_NAME")
	if botName == "" {
		botName = "PokerDealerGameBot"
	}
	return &Server{
		Directory: dir,
		Hub:       hub,
		Logger:    logger,
		BotName:   botName,
	}
}

// Routes registers every endpoint on a fresh mux. The WS route is separate
// from the rest so main can leave it outside the logging middleware (the
// status-recording wrapper would break the connection hijack).
func (s *Server) Routes() (api http.Handler, ws http.Handler) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.HealthHandler)
	mux.HandleFunc("POST /api/rooms", s.CreateRoomHandler)
	mux.HandleFunc("GET /api/rooms/{code}", s.GetRoomHandler)
	mux.HandleFunc("POST /api/rooms/{code}/join", s.JoinRoomHandler)
	mux.HandleFunc("PUT /api/rooms/{code}/role", s.UpdateRoleHandler)
	mux.HandleFunc("PUT /api/rooms/{code}/move", s.MovePlayerHandler)
	mux.HandleFunc("DELETE /api/rooms/{code}/player/{playerId}", s.RemovePlayerHandler)

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("GET /api/rooms/{code}/ws", s.RoomWSHandler)
	return mux, wsMux
}

func (s *Server) inviteLink(code string) string {
	return "https://t.me/" + s.BotName + "?code=" + code
}
