package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/logging"
	emergencyservice "github.com/sahara-labs/sahara/backend/internal/service/emergency"
	"github.com/sahara-labs/sahara/backend/internal/service/session"
	"github.com/sahara-labs/sahara/backend/internal/service/therapy"
)

const (
	// readWait bounds how long the connection may stay silent; pongs reset it.
	readWait = 60 * time.Second
	// pingPeriod must be shorter than readWait so an idle but healthy client
	// keeps the connection alive.
	pingPeriod = 54 * time.Second
)

// WebSocketHandler drives full voice turns over one websocket connection.
type WebSocketHandler struct {
	sessions     *session.Service
	orchestrator *therapy.Orchestrator
	upgrader     websocket.Upgrader
	logger       zerolog.Logger
}

// NewWebSocketHandler creates the websocket voice handler.
func NewWebSocketHandler(sessions *session.Service, orchestrator *therapy.Orchestrator) *WebSocketHandler {
	return &WebSocketHandler{
		sessions:     sessions,
		orchestrator: orchestrator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logging.Component("voice-ws"),
	}
}

// RegisterWebSocketRoutes registers the websocket route.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/voice-chat", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AudioMessage is one uploaded audio chunk. AudioData travels base64-encoded
// and is decoded by the JSON unmarshal.
type AudioMessage struct {
	AudioData  []byte `json:"audioData"`
	Format     string `json:"format"`
	Language   string `json:"language"`
	IsFinal    bool   `json:"isFinal"`
	ChunkIndex int    `json:"chunkIndex"`
}

// TextMessage is a typed utterance sent instead of audio.
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connectionState accumulates audio chunks between final markers. One state
// per connection; the read loop is the only goroutine touching it.
type connectionState struct {
	sessionID   string
	language    string
	audioFormat string
	buffer      bytes.Buffer
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Info().Str("session", sessionID).Msg("voice channel opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	go h.pingLoop(ctx, conn)

	state := &connectionState{sessionID: sessionID, language: sess.Language}

	h.send(conn, "connected", sessionID, map[string]any{
		"language": sess.Language,
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Warn().Err(err).Str("session", sessionID).Msg("websocket read failed")
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(readWait))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendError(conn, "session mismatch")
				continue
			}

			h.handleMessage(ctx, conn, state, &msg)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "audio":
		h.handleAudioMessage(ctx, conn, state, msg.Data)
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	case "ping":
		h.send(conn, "pong", state.sessionID, nil)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleAudioMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		h.sendError(conn, "invalid audio payload")
		return
	}

	if len(audio.AudioData) > 0 {
		state.buffer.Write(audio.AudioData)
	}
	if audio.Format != "" {
		state.audioFormat = audio.Format
	}
	if audio.Language != "" {
		state.language = audio.Language
	}

	if audio.IsFinal {
		h.processBufferedAudio(ctx, conn, state)
	}
}

func (h *WebSocketHandler) processBufferedAudio(ctx context.Context, conn *websocket.Conn, state *connectionState) {
	audioBytes := state.buffer.Bytes()
	state.buffer.Reset()

	if len(audioBytes) == 0 {
		return
	}

	format := state.audioFormat
	if format == "" {
		format = "webm"
	}

	h.logger.Debug().Str("session", state.sessionID).Str("format", format).Int("bytes", len(audioBytes)).Msg("processing voice turn")

	turn, err := h.orchestrator.ProcessVoiceTurn(ctx, state.sessionID, audioBytes, format, state.language)
	if err != nil {
		h.logger.Error().Err(err).Str("session", state.sessionID).Msg("voice turn failed")
		h.sendError(conn, turnErrorMessage(err))
		return
	}

	// The session may have adopted the detected language mid-conversation.
	state.language = turn.Language

	h.send(conn, "transcription", state.sessionID, map[string]any{
		"text":     turn.Transcription,
		"language": turn.Language,
		"isFinal":  true,
	})

	h.sendTurn(conn, state, turn)
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, "invalid text payload")
		return
	}
	if strings.TrimSpace(text.Text) == "" {
		return
	}

	turn, err := h.orchestrator.ProcessTextTurn(ctx, state.sessionID, text.Text)
	if err != nil {
		h.logger.Error().Err(err).Str("session", state.sessionID).Msg("text turn failed")
		h.sendError(conn, turnErrorMessage(err))
		return
	}

	state.language = turn.Language
	h.sendTurn(conn, state, turn)
}

// sendTurn delivers the reply frame and, on a crisis turn, the crisis frame
// after it. The reply always goes out first so support is never delayed
// behind escalation.
func (h *WebSocketHandler) sendTurn(conn *websocket.Conn, state *connectionState, turn *therapy.TurnResult) {
	data := map[string]any{
		"response": turn.Reply,
		"mood":     turn.Mood,
		"language": turn.Language,
		"isCrisis": turn.IsCrisis,
	}
	if len(turn.ReplyAudio) > 0 {
		data["audioData"] = base64.StdEncoding.EncodeToString(turn.ReplyAudio)
		data["format"] = turn.AudioFormat
	}
	h.send(conn, "response", state.sessionID, data)

	if turn.IsCrisis {
		h.send(conn, "crisis", state.sessionID, map[string]any{
			"level":     turn.CrisisLevel,
			"helplines": emergencyservice.Helplines(),
		})
	}
}

func turnErrorMessage(err error) string {
	switch {
	case errors.Is(err, therapy.ErrEmptyUtterance):
		return "message is required"
	case errors.Is(err, session.ErrSessionNotFound):
		return "session not found"
	case errors.Is(err, therapy.ErrSpeechNotConfigured):
		return "speech recognition is not configured"
	default:
		return "failed to process message"
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msgType, sessionID string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn().Err(err).Str("type", msgType).Msg("websocket write failed")
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, "error", "", map[string]string{"message": message})
}

// pingLoop keeps idle connections alive. WriteControl is safe alongside the
// read loop's WriteJSON calls.
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}
