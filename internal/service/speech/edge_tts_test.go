package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/sahara-labs/sahara/backend/internal/analysis/emotion"
	"github.com/sahara-labs/sahara/backend/internal/model/speech"
)

func audioFrame(payload []byte) []byte {
	header := "X-RequestId:x\r\nContent-Type:audio/mpeg\r\nPath:audio\r\n"
	frame := binary.BigEndian.AppendUint16(nil, uint16(len(header)))
	frame = append(frame, header...)
	return append(frame, payload...)
}

func TestSynthesizeAssemblesAudioUntilTurnEnd(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ssmlCh := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("TrustedClientToken") != "test-token" {
			t.Errorf("missing trusted client token in %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("ConnectionId") == "" {
			t.Error("missing connection ID")
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, cfg, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read speech config: %v", err)
			return
		}
		if !strings.Contains(string(cfg), "Path:speech.config") || !strings.Contains(string(cfg), edgeOutputFormat) {
			t.Errorf("unexpected speech config frame: %s", cfg)
		}

		_, ssml, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read ssml: %v", err)
			return
		}
		ssmlCh <- string(ssml)

		conn.WriteMessage(websocket.BinaryMessage, audioFrame([]byte("MP3a")))
		conn.WriteMessage(websocket.BinaryMessage, audioFrame([]byte("MP3b")))
		conn.WriteMessage(websocket.TextMessage, []byte("X-RequestId:x\r\nPath:audio.metadata\r\n\r\n{}"))
		conn.WriteMessage(websocket.TextMessage, []byte("X-RequestId:x\r\nPath:turn.end\r\n\r\n"))
	}))
	defer server.Close()

	client := NewEdgeTTSClient(&speech.Config{
		TTSEndpoint: "ws" + strings.TrimPrefix(server.URL, "http"),
		TTSToken:    "test-token",
		Timeout:     5,
	})

	synth, err := client.Synthesize(context.Background(), &speech.SynthesizeRequest{
		SessionID: "session-1",
		Text:      "You are not alone",
		Language:  "hi",
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(synth.AudioData) != "MP3aMP3b" {
		t.Errorf("audio = %q, want the concatenated chunks", synth.AudioData)
	}
	if synth.Format != "mp3" {
		t.Errorf("format = %q", synth.Format)
	}
	if synth.Voice != "hi-IN-SwaraNeural" {
		t.Errorf("voice = %q, want the Hindi directory voice", synth.Voice)
	}
	if synth.RequestID == "" || strings.Contains(synth.RequestID, "-") {
		t.Errorf("request ID %q should be a dashless UUID", synth.RequestID)
	}

	ssml := <-ssmlCh
	if !strings.Contains(ssml, "Path:ssml") {
		t.Errorf("ssml frame missing path header: %s", ssml)
	}
	if !strings.Contains(ssml, "<voice name='hi-IN-SwaraNeural'>") {
		t.Errorf("ssml frame missing voice element: %s", ssml)
	}
	if !strings.Contains(ssml, "You are not alone") {
		t.Errorf("ssml frame missing reply text: %s", ssml)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client := NewEdgeTTSClient(&speech.Config{TTSEndpoint: "wss://example.invalid"})

	_, err := client.Synthesize(context.Background(), &speech.SynthesizeRequest{Text: "   "})
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("got %v, want ErrEmptyText", err)
	}
}

func TestResolveVoicePrecedence(t *testing.T) {
	cases := []struct {
		name     string
		override string
		voice    string
		language string
		want     string
	}{
		{name: "override wins", override: "en-US-JennyNeural", voice: "hi-IN-SwaraNeural", language: "hi", want: "en-US-JennyNeural"},
		{name: "explicit voice", voice: "hi-IN-MadhurNeural", language: "hi", want: "hi-IN-MadhurNeural"},
		{name: "directory voice", language: "es", want: "es-ES-ElviraNeural"},
		{name: "unknown language falls back", language: "xx", want: "en-US-AriaNeural"},
	}

	for _, tc := range cases {
		client := NewEdgeTTSClient(&speech.Config{VoiceOverride: tc.override})
		got := client.resolveVoice(&speech.SynthesizeRequest{Voice: tc.voice, Language: tc.language})
		if got != tc.want {
			t.Errorf("%s: resolveVoice = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestBuildSSMLEscapesAndAppliesProsody(t *testing.T) {
	got := buildSSML("Breathe in & hold <slowly>", "hi-IN-SwaraNeural", speech.Prosody{Rate: "-5%", Pitch: "-5Hz"})

	want := "<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='hi-IN'>" +
		"<voice name='hi-IN-SwaraNeural'>" +
		"<prosody rate='-5%' pitch='-5Hz' volume='+0%'>" +
		"Breathe in &amp; hold &lt;slowly&gt;" +
		"</prosody></voice></speak>"
	if got != want {
		t.Errorf("buildSSML = %s, want %s", got, want)
	}
}

func TestBuildSSMLDefaultsToNeutralProsody(t *testing.T) {
	got := buildSSML("Hello", "en-US-AriaNeural", speech.Prosody{})

	if !strings.Contains(got, "rate='+0%' pitch='+0Hz' volume='+0%'") {
		t.Errorf("expected neutral prosody values in %s", got)
	}
	if !strings.Contains(got, "xml:lang='en-US'") {
		t.Errorf("expected locale from voice name in %s", got)
	}
}

func TestProsodyForMood(t *testing.T) {
	cases := []struct {
		mood  emotion.Mood
		rate  string
		pitch string
	}{
		{mood: emotion.Anxious, rate: "-5%", pitch: "-5Hz"},
		{mood: emotion.Angry, rate: "-5%", pitch: "-5Hz"},
		{mood: emotion.Sad, rate: "-3%", pitch: "-5Hz"},
		{mood: emotion.Hopeful, rate: "+3%", pitch: "+5Hz"},
		{mood: emotion.Calm, rate: "", pitch: ""},
	}

	for _, tc := range cases {
		got := ProsodyForMood(tc.mood)
		if got.Rate != tc.rate || got.Pitch != tc.pitch {
			t.Errorf("ProsodyForMood(%s) = %+v, want rate %q pitch %q", tc.mood, got, tc.rate, tc.pitch)
		}
	}
}

func TestBinaryAudioPayload(t *testing.T) {
	got, err := binaryAudioPayload(audioFrame([]byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("binaryAudioPayload failed: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("payload = %v, want the audio bytes", got)
	}

	header := "X-RequestId:x\r\nPath:something.else\r\n"
	frame := binary.BigEndian.AppendUint16(nil, uint16(len(header)))
	frame = append(frame, header...)
	frame = append(frame, 9, 9)
	got, err = binaryAudioPayload(frame)
	if err != nil {
		t.Fatalf("non-audio frame errored: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("non-audio frame yielded payload %v", got)
	}

	if _, err := binaryAudioPayload([]byte{0}); err == nil {
		t.Error("expected an error for a truncated frame")
	}
}

func TestFramePath(t *testing.T) {
	frame := []byte("X-RequestId:abc\r\nContent-Type:application/json\r\nPath:turn.end\r\n\r\n{}")
	if got := framePath(frame); got != "turn.end" {
		t.Errorf("framePath = %q, want turn.end", got)
	}
	if got := framePath([]byte("no headers here")); got != "" {
		t.Errorf("framePath on junk = %q, want empty", got)
	}
}
