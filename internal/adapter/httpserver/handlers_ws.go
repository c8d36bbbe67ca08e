package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // public observer endpoint, any origin may watch
	},
}

// clientMessage is the only message observers send: a snapshot request.
type clientMessage struct {
	Event string `json:"event"`
}

// handleWebSocket upgrades the connection and registers it as an
// observer. The read pump serves "getPolls" snapshot requests and
// otherwise just watches for disconnect.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket", "error", err)
		return nil
	}

	if err := s.hub.Register(conn); err != nil {
		// Hub already closed the connection.
		slog.Warn("Failed to register observer", "error", err)
		return nil
	}
	defer s.hub.Unregister(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Event == "getPolls" {
			s.sendSnapshot(c, conn)
		}
	}
}

func (s *Server) sendSnapshot(c echo.Context, conn *websocket.Conn) {
	polls, err := s.app.ListPolls(c.Request().Context())
	if err != nil {
		slog.Error("Failed to load polls for snapshot", "error", err)
		return
	}
	s.hub.SendPollSnapshot(conn, s.presentPolls(polls))
}
