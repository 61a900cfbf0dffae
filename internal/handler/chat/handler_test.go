package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	speechmodel "github.com/sahara-labs/sahara/backend/internal/model/speech"
	"github.com/sahara-labs/sahara/backend/internal/service/session"
	"github.com/sahara-labs/sahara/backend/internal/service/therapy"
)

type stubTranscriber struct {
	text     string
	language string
}

func (s *stubTranscriber) TranscribeBuffer(_ context.Context, sessionID string, _ []byte, _, _ string) (*speechmodel.Transcription, error) {
	return &speechmodel.Transcription{SessionID: sessionID, Text: s.text, Language: s.language}, nil
}

type stubSynthesizer struct {
	audio []byte
}

func (s *stubSynthesizer) SynthesizeToBuffer(_ context.Context, sessionID, _, _ string, _ speechmodel.Prosody) (*speechmodel.Synthesis, error) {
	return &speechmodel.Synthesis{SessionID: sessionID, AudioData: s.audio, Format: "mp3", RequestID: "req-1"}, nil
}

func setupRouter() (*chi.Mux, *session.Service) {
	sessions := session.NewService()
	orchestrator := therapy.NewOrchestrator(sessions, nil, &stubTranscriber{text: "I feel sad", language: "en"}, &stubSynthesizer{audio: []byte("mp3-bytes")})
	handler := New(sessions, orchestrator)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, sessions
}

func createSession(t *testing.T, sessions *session.Service, lang string) string {
	t.Helper()
	sess, err := sessions.CreateSession(context.Background(), lang)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess.ID
}

func TestCreateSessionReturnsSession(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"language":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var body struct {
		ID       string `json:"id"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ID == "" {
		t.Error("expected a generated session id")
	}
	if body.Language != "hi" {
		t.Errorf("language = %q, want hi", body.Language)
	}
}

func TestCreateSessionEmptyBodyDefaultsLanguage(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"language":"en"`) {
		t.Errorf("expected default language in %s", resp.Body.String())
	}
}

func TestChatTurnRepliesAndRecordsHistory(t *testing.T) {
	r, sessions := setupRouter()
	sessionID := createSession(t, sessions, "en")

	payload, _ := json.Marshal(map[string]string{"sessionId": sessionID, "message": "I feel worried about exams"})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result struct {
		Response string `json:"response"`
		IsCrisis bool   `json:"isCrisis"`
		Mood     string `json:"mood"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Response == "" {
		t.Error("expected a reply")
	}
	if result.IsCrisis {
		t.Error("ordinary worry should not be a crisis")
	}

	histReq := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID+"/history", nil)
	histResp := httptest.NewRecorder()
	r.ServeHTTP(histResp, histReq)

	if histResp.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", histResp.Code)
	}
	var hist struct {
		History []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"history"`
	}
	if err := json.Unmarshal(histResp.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 2 {
		t.Fatalf("history length = %d, want user + assistant", len(hist.History))
	}
	if hist.History[0].Role != "user" || hist.History[1].Role != "assistant" {
		t.Errorf("unexpected roles %s/%s", hist.History[0].Role, hist.History[1].Role)
	}
}

func TestChatUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	payload := []byte(`{"sessionId":"missing","message":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestChatValidation(t *testing.T) {
	r, sessions := setupRouter()
	sessionID := createSession(t, sessions, "en")

	cases := []struct {
		name string
		body string
	}{
		{name: "missing session id", body: `{"message":"hello"}`},
		{name: "blank message", body: `{"sessionId":"` + sessionID + `","message":"   "}`},
		{name: "malformed json", body: `{`},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tc.body))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, resp.Code)
		}
	}
}

func voiceChatRequest(t *testing.T, sessionID, language string, audio []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", "clip.webm")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	writer.WriteField("sessionId", sessionID)
	if language != "" {
		writer.WriteField("language", language)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/voice-chat", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestVoiceChatReturnsTranscriptionAndAudio(t *testing.T) {
	r, sessions := setupRouter()
	sessionID := createSession(t, sessions, "en")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, voiceChatRequest(t, sessionID, "en", []byte("voice-bytes")))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result struct {
		Transcription string `json:"transcription"`
		Response      string `json:"response"`
		AudioBase64   string `json:"audioBase64"`
		AudioFormat   string `json:"audioFormat"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Transcription != "I feel sad" {
		t.Errorf("transcription = %q", result.Transcription)
	}
	if result.Response == "" {
		t.Error("expected a reply")
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioBase64)
	if err != nil {
		t.Fatalf("decode audio: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("audio = %q", audio)
	}
	if result.AudioFormat != "mp3" {
		t.Errorf("audio format = %q", result.AudioFormat)
	}
}

func TestVoiceChatRequiresAudio(t *testing.T) {
	r, sessions := setupRouter()
	sessionID := createSession(t, sessions, "en")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("sessionId", sessionID)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/voice-chat", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/history", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeleteSessionClearsHistory(t *testing.T) {
	r, sessions := setupRouter()
	sessionID := createSession(t, sessions, "en")

	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+sessionID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	histReq := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID+"/history", nil)
	histResp := httptest.NewRecorder()
	r.ServeHTTP(histResp, histReq)

	if histResp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after clearing, got %d", histResp.Code)
	}
}
