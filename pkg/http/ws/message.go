package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypeDuelStarted        = "duel_started"
	TypeDuelFinished       = "duel_finished"
	TypeSearchCanceled     = "duel_search_canceled"
	TypeInvitation         = "duel_invitation"
	TypeInvitationCanceled = "duel_invitation_canceled"
	TypeInvitationDenied   = "duel_invitation_denied"
	TypeLeaderboardUpdate  = "leaderboard_update"
	TypeError              = "error"
	TypePong               = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Server Messages (outgoing)

// DuelEventPayload accompanies every duel_* message. Fields not relevant to
// the event type are omitted.
type DuelEventPayload struct {
	EventID          string `json:"event_id"`
	DuelID           *int64 `json:"duel_id,omitempty"`
	OpponentNickname string `json:"opponent_nickname,omitempty"`
	ConfigurationID  *int64 `json:"configuration_id,omitempty"`
}

type LeaderboardUpdatePayload struct {
	Top    []LeaderboardEntry `json:"top"`
	UserID int64              `json:"user_id"`
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Rating   int    `json:"rating"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
