package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/model/language"
	"github.com/sahara-labs/sahara/backend/internal/model/speech"
)

// The Edge speech endpoint speaks a framed protocol over one WebSocket:
// text frames carry CRLF-separated headers, a blank line and a body, and
// binary frames start with a two-byte big-endian header length followed by
// the header block and the audio payload. A text frame with Path:turn.end
// closes the turn.
const edgeOutputFormat = "audio-24khz-48kbitrate-mono-mp3"

// EdgeTTSClient synthesizes speech through the Edge neural voice WebSocket
// endpoint.
type EdgeTTSClient struct {
	config *speech.Config
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// NewEdgeTTSClient creates a text-to-speech client for the configured
// endpoint.
func NewEdgeTTSClient(config *speech.Config) *EdgeTTSClient {
	return &EdgeTTSClient{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
		logger: logging.Component("tts"),
	}
}

// Synthesize converts one reply into spoken audio. The voice is the
// configured override when set, then the request voice, then the directory
// voice for the request language.
func (c *EdgeTTSClient) Synthesize(ctx context.Context, req *speech.SynthesizeRequest) (*speech.Synthesis, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if timeout := time.Duration(c.config.Timeout) * time.Second; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")

	wsURL, err := c.buildEndpoint(requestID)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS WebSocket: %w", err)
	}
	defer conn.Close()

	// A blocked read is not interrupted by ctx, so mirror the deadline onto
	// the connection.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	voice := c.resolveVoice(req)
	ssml := buildSSML(text, voice, req.Prosody)

	c.logger.Debug().
		Str("sessionId", req.SessionID).
		Str("voice", voice).
		Int("textLen", len(text)).
		Msg("requesting synthesis")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfigFrame())); err != nil {
		return nil, fmt.Errorf("failed to send speech config: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlFrame(requestID, ssml))); err != nil {
		return nil, fmt.Errorf("failed to send synthesis request: %w", err)
	}

	var audioBuffer bytes.Buffer

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return nil, fmt.Errorf("failed to read synthesis response: %w", err)
			}

			switch msgType {
			case websocket.BinaryMessage:
				chunk, err := binaryAudioPayload(data)
				if err != nil {
					return nil, err
				}
				audioBuffer.Write(chunk)

			case websocket.TextMessage:
				switch framePath(data) {
				case "turn.start", "response", "audio.metadata":
					// Bookkeeping frames, nothing to collect.
				case "turn.end":
					if audioBuffer.Len() == 0 {
						return nil, fmt.Errorf("synthesis produced no audio")
					}
					return &speech.Synthesis{
						SessionID: req.SessionID,
						AudioData: audioBuffer.Bytes(),
						Format:    "mp3",
						Voice:     voice,
						RequestID: requestID,
						CreatedAt: time.Now(),
					}, nil
				default:
					c.logger.Debug().Str("path", framePath(data)).Msg("unexpected synthesis frame")
				}
			}
		}
	}
}

func (c *EdgeTTSClient) buildEndpoint(connectionID string) (string, error) {
	u, err := url.Parse(c.config.TTSEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid TTS endpoint: %w", err)
	}

	q := u.Query()
	q.Set("TrustedClientToken", c.config.TTSToken)
	q.Set("ConnectionId", connectionID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *EdgeTTSClient) resolveVoice(req *speech.SynthesizeRequest) string {
	if c.config.VoiceOverride != "" {
		return c.config.VoiceOverride
	}
	if req.Voice != "" {
		return req.Voice
	}
	return language.VoiceFor(req.Language)
}

func speechConfigFrame() string {
	var b strings.Builder
	b.WriteString("X-Timestamp:" + edgeTimestamp() + "\r\n")
	b.WriteString("Content-Type:application/json; charset=utf-8\r\n")
	b.WriteString("Path:speech.config\r\n")
	b.WriteString("\r\n")
	b.WriteString(`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + edgeOutputFormat + `"}}}}`)
	return b.String()
}

func ssmlFrame(requestID, ssml string) string {
	var b strings.Builder
	b.WriteString("X-RequestId:" + requestID + "\r\n")
	b.WriteString("Content-Type:application/ssml+xml\r\n")
	b.WriteString("X-Timestamp:" + edgeTimestamp() + "\r\n")
	b.WriteString("Path:ssml\r\n")
	b.WriteString("\r\n")
	b.WriteString(ssml)
	return b.String()
}

// buildSSML wraps the reply in a prosody block for the chosen voice. Empty
// prosody fields become the neutral values the endpoint expects.
func buildSSML(text, voice string, prosody speech.Prosody) string {
	rate := valueOr(prosody.Rate, "+0%")
	pitch := valueOr(prosody.Pitch, "+0Hz")
	volume := valueOr(prosody.Volume, "+0%")

	var b strings.Builder
	b.WriteString("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='" + voiceLocale(voice) + "'>")
	b.WriteString("<voice name='" + voice + "'>")
	b.WriteString("<prosody rate='" + rate + "' pitch='" + pitch + "' volume='" + volume + "'>")
	b.WriteString(html.EscapeString(text))
	b.WriteString("</prosody></voice></speak>")
	return b.String()
}

// voiceLocale extracts the locale from a neural voice name, for example
// "hi-IN" from "hi-IN-SwaraNeural".
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

// edgeTimestamp renders the JavaScript-style date string the endpoint
// expects in X-Timestamp headers.
func edgeTimestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05") + " GMT+0000 (Coordinated Universal Time)"
}

// binaryAudioPayload strips the length-prefixed header block from a binary
// frame and returns the audio bytes. Binary frames without an audio path
// yield nothing.
func binaryAudioPayload(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("binary frame too short: %d bytes", len(data))
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+headerLen {
		return nil, fmt.Errorf("binary frame header truncated")
	}
	for _, line := range strings.Split(string(data[2:2+headerLen]), "\r\n") {
		if value, ok := strings.CutPrefix(line, "Path:"); ok && strings.TrimSpace(value) == "audio" {
			return data[2+headerLen:], nil
		}
	}
	return nil, nil
}

// framePath returns the Path header of a text frame, or empty when absent.
func framePath(data []byte) string {
	head, _, _ := strings.Cut(string(data), "\r\n\r\n")
	for _, line := range strings.Split(head, "\r\n") {
		if value, ok := strings.CutPrefix(line, "Path:"); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
