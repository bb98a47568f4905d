package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/auth"
	"github.com/gokatarajesh/duel-platform/internal/config"
	ws "github.com/gokatarajesh/duel-platform/pkg/http/ws"
)

// NewUpgrader accepts WebSocket upgrades from the configured CORS origins.
// Requests without an Origin header (non-browser clients) are accepted.
func NewUpgrader(cfg config.CORS) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = struct{}{}
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// DuelSocket upgrades authenticated users onto the hub so duel and
// leaderboard events reach them. Clients only send pings.
type DuelSocket struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewDuelSocket(hub *ws.Hub, upgrader websocket.Upgrader, logger zerolog.Logger) *DuelSocket {
	return &DuelSocket{
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "duel_socket").Logger(),
	}
}

func (s *DuelSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", claims.UserID).Msg("websocket upgrade failed")
		return
	}

	logger := s.logger.With().Int64("user_id", claims.UserID).Logger()
	conn := ws.NewConnection(raw, logger)
	s.hub.RegisterConnection(claims.UserID, conn)
	defer func() {
		s.hub.UnregisterConnection(claims.UserID, conn)
		conn.Close()
	}()

	go conn.WritePump()
	conn.ReadPump(func(msg ws.Message) error {
		if msg.Type != ws.TypePing {
			reply, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: "unsupported_message", Message: "only ping is accepted"})
			if err != nil {
				return err
			}
			return conn.Send(reply)
		}
		pong, err := ws.NewMessage(ws.TypePong, nil)
		if err != nil {
			return err
		}
		pong.RequestID = msg.RequestID
		return conn.Send(pong)
	})
}
