package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	speechmodel "github.com/sahara-labs/sahara/backend/internal/model/speech"
	"github.com/sahara-labs/sahara/backend/internal/service/session"
	"github.com/sahara-labs/sahara/backend/internal/service/therapy"
)

type wsTranscriber struct {
	text     string
	language string
}

func (s *wsTranscriber) TranscribeBuffer(_ context.Context, sessionID string, _ []byte, _, _ string) (*speechmodel.Transcription, error) {
	return &speechmodel.Transcription{SessionID: sessionID, Text: s.text, Language: s.language}, nil
}

type wsSynthesizer struct {
	audio []byte
}

func (s *wsSynthesizer) SynthesizeToBuffer(_ context.Context, sessionID, _, _ string, _ speechmodel.Prosody) (*speechmodel.Synthesis, error) {
	return &speechmodel.Synthesis{SessionID: sessionID, AudioData: s.audio, Format: "mp3", RequestID: "req-1"}, nil
}

type wsFrame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type voiceEnv struct {
	server    *httptest.Server
	conn      *websocket.Conn
	sessionID string
}

func (e *voiceEnv) close() {
	e.conn.Close()
	e.server.Close()
}

func (e *voiceEnv) sendFrame(t *testing.T, msgType, sessionID string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal frame data: %v", err)
	}
	msg := map[string]interface{}{
		"type":      msgType,
		"sessionId": sessionID,
		"data":      json.RawMessage(raw),
		"timestamp": time.Now().Unix(),
	}
	if err := e.conn.WriteJSON(msg); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func (e *voiceEnv) readFrame(t *testing.T) wsFrame {
	t.Helper()
	var f wsFrame
	if err := e.conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func (e *voiceEnv) readData(t *testing.T, wantType string) map[string]interface{} {
	t.Helper()
	f := e.readFrame(t)
	if f.Type != wantType {
		t.Fatalf("frame type = %q, want %q", f.Type, wantType)
	}
	data := map[string]interface{}{}
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &data); err != nil {
			t.Fatalf("unmarshal %s data: %v", wantType, err)
		}
	}
	return data
}

// setupVoiceEnv starts a voice websocket backed by a real orchestrator with
// stubbed recognition and synthesis, dials it and consumes the connected
// frame.
func setupVoiceEnv(t *testing.T, transcript string) *voiceEnv {
	t.Helper()

	sessions := session.NewService()
	orchestrator := therapy.NewOrchestrator(sessions, nil,
		&wsTranscriber{text: transcript, language: "en"},
		&wsSynthesizer{audio: []byte("mp3-bytes")},
	)

	sess, err := sessions.CreateSession(context.Background(), "en")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	router := chi.NewRouter()
	NewWebSocketHandler(sessions, orchestrator).RegisterWebSocketRoutes(router)
	server := httptest.NewServer(router)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/voice-chat?sessionId=" + sess.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	env := &voiceEnv{server: server, conn: conn, sessionID: sess.ID}
	if data := env.readData(t, "connected"); data["language"] != "en" {
		t.Fatalf("connected language = %v", data["language"])
	}
	return env
}

func TestVoiceChatAudioTurn(t *testing.T) {
	env := setupVoiceEnv(t, "I feel a bit low today")
	defer env.close()

	env.sendFrame(t, "audio", env.sessionID, AudioMessage{
		AudioData: []byte("chunk-one"),
		Format:    "webm",
	})
	env.sendFrame(t, "audio", env.sessionID, AudioMessage{
		AudioData: []byte("chunk-two"),
		IsFinal:   true,
	})

	transcription := env.readData(t, "transcription")
	if transcription["text"] != "I feel a bit low today" {
		t.Errorf("transcription = %v", transcription["text"])
	}
	if transcription["isFinal"] != true {
		t.Errorf("isFinal = %v", transcription["isFinal"])
	}

	response := env.readData(t, "response")
	reply, _ := response["response"].(string)
	if reply == "" {
		t.Error("expected a reply")
	}
	if response["isCrisis"] != false {
		t.Errorf("isCrisis = %v", response["isCrisis"])
	}
	audioB64, _ := response["audioData"].(string)
	audio, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil || string(audio) != "mp3-bytes" {
		t.Errorf("audioData = %q, err = %v", audioB64, err)
	}
	if response["format"] != "mp3" {
		t.Errorf("format = %v", response["format"])
	}
}

func TestVoiceChatTextTurnFlagsCrisis(t *testing.T) {
	env := setupVoiceEnv(t, "unused")
	defer env.close()

	env.sendFrame(t, "text", env.sessionID, TextMessage{Text: "I want to kill myself"})

	response := env.readData(t, "response")
	if response["isCrisis"] != true {
		t.Fatalf("isCrisis = %v, want true", response["isCrisis"])
	}
	if reply, _ := response["response"].(string); reply == "" {
		t.Error("crisis turn must still carry a reply")
	}

	crisisData := env.readData(t, "crisis")
	if crisisData["level"] != "crisis" {
		t.Errorf("level = %v", crisisData["level"])
	}
	helplines, _ := crisisData["helplines"].([]interface{})
	if len(helplines) == 0 {
		t.Error("expected helplines in the crisis frame")
	}
}

func TestVoiceChatEmptyTranscriptionAsksForRetry(t *testing.T) {
	env := setupVoiceEnv(t, "   ")
	defer env.close()

	env.sendFrame(t, "audio", env.sessionID, AudioMessage{
		AudioData: []byte("noise"),
		Format:    "webm",
		IsFinal:   true,
	})

	transcription := env.readData(t, "transcription")
	if transcription["text"] != "" && transcription["text"] != nil {
		t.Errorf("transcription = %v, want empty", transcription["text"])
	}

	response := env.readData(t, "response")
	if reply, _ := response["response"].(string); reply == "" {
		t.Error("expected a retry prompt")
	}
	if _, ok := response["audioData"]; ok {
		t.Error("retry prompt must not carry audio")
	}
}

func TestVoiceChatPingPong(t *testing.T) {
	env := setupVoiceEnv(t, "unused")
	defer env.close()

	env.sendFrame(t, "ping", env.sessionID, nil)

	f := env.readFrame(t)
	if f.Type != "pong" {
		t.Fatalf("frame type = %q, want pong", f.Type)
	}
}

func TestVoiceChatRejectsMismatchedSession(t *testing.T) {
	env := setupVoiceEnv(t, "unused")
	defer env.close()

	env.sendFrame(t, "text", "some-other-session", TextMessage{Text: "hello"})

	data := env.readData(t, "error")
	if msg, _ := data["message"].(string); !strings.Contains(msg, "session mismatch") {
		t.Errorf("message = %q", msg)
	}
}

func TestVoiceChatRejectsUnknownType(t *testing.T) {
	env := setupVoiceEnv(t, "unused")
	defer env.close()

	env.sendFrame(t, "bogus", env.sessionID, nil)

	data := env.readData(t, "error")
	if msg, _ := data["message"].(string); !strings.Contains(msg, "unsupported message type") {
		t.Errorf("message = %q", msg)
	}
}

func TestVoiceChatHandshakeValidation(t *testing.T) {
	sessions := session.NewService()
	orchestrator := therapy.NewOrchestrator(sessions, nil, nil, nil)

	router := chi.NewRouter()
	NewWebSocketHandler(sessions, orchestrator).RegisterWebSocketRoutes(router)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws/voice-chat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing sessionId: status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/ws/voice-chat?sessionId=nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", resp.StatusCode)
	}
}
