package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sahara-labs/sahara/backend/internal/config"
	speechmodel "github.com/sahara-labs/sahara/backend/internal/model/speech"
	"github.com/sahara-labs/sahara/backend/internal/service/speech"
)

// voicecheck exercises the speech providers from the command line, outside
// the HTTP server. Useful for verifying credentials and listening to voices
// before wiring a frontend.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: no .env file loaded, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "", "check mode: stt or tts")
	audioPath := flag.String("audio", "", "input audio file for stt")
	text := flag.String("text", "", "input text for tts")
	outputPath := flag.String("out", "", "tts output file (defaults to tts-output-<ts>.mp3)")
	format := flag.String("format", "", "stt input format, inferred from the file extension when empty")
	language := flag.String("lang", "", "language code, defaults to English")
	voice := flag.String("voice", "", "tts voice ID, resolved from the language when empty")
	session := flag.String("session", "", "session ID, generated when empty")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	if *mode != "stt" && *mode != "tts" {
		flag.Usage()
		log.Fatal("specify -mode=stt or -mode=tts")
	}

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("voicecheck-%d", time.Now().UnixNano())
	}

	speechCfg := &speechmodel.Config{
		STTBaseURL:    cfg.Speech.STTBaseURL,
		STTAPIKey:     cfg.Speech.STTAPIKey,
		STTModel:      cfg.Speech.STTModel,
		TTSEndpoint:   cfg.Speech.TTSEndpoint,
		TTSToken:      cfg.Speech.TTSToken,
		VoiceOverride: cfg.Speech.TTSVoice,
		MaxAudioBytes: cfg.Speech.MaxAudioBytes,
		Timeout:       cfg.Speech.Timeout,
	}

	svc := speech.NewService(speechCfg)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "stt":
		runSTT(ctx, svc, speechCfg, sessionID, *audioPath, *format, *language)
	case "tts":
		runTTS(ctx, svc, sessionID, *text, *voice, *language, *outputPath)
	}
}

func runSTT(ctx context.Context, svc *speech.Service, cfg *speechmodel.Config, sessionID, audioPath, format, language string) {
	if !cfg.STTConfigured() {
		log.Fatal("STT_API_KEY is not set, transcription cannot run")
	}
	if audioPath == "" {
		log.Fatal("stt mode needs -audio with a path to an audio file")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		log.Fatalf("failed to open audio file: %v", err)
	}
	defer file.Close()

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
		if format == "" {
			format = "wav"
		}
	}

	req := &speechmodel.TranscribeRequest{
		SessionID: sessionID,
		AudioData: file,
		Format:    format,
		Language:  language,
	}

	log.Printf("transcribing: session=%s format=%s language=%s", sessionID, format, language)

	resp, err := svc.TranscribeAudio(ctx, req)
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}

	log.Printf("transcription ok: text=%q language=%s duration=%dms", resp.Text, resp.Language, resp.Duration)
}

func runTTS(ctx context.Context, svc *speech.Service, sessionID, text, voice, language, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("tts mode needs -text with something to say")
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.mp3", time.Now().Unix())
	}

	req := &speechmodel.SynthesizeRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Language:  language,
	}

	log.Printf("synthesizing: session=%s voice=%s language=%s", sessionID, voice, language)

	resp, err := svc.SynthesizeSpeech(ctx, req)
	if err != nil {
		log.Fatalf("synthesis failed: %v", err)
	}

	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}

	log.Printf("synthesis ok: wrote %s (%d bytes, voice=%s)", outputPath, len(resp.AudioData), resp.Voice)
}
