package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/sahara-labs/sahara/backend/internal/config"
	"github.com/sahara-labs/sahara/backend/internal/handler"
	"github.com/sahara-labs/sahara/backend/internal/logging"
	speechmodel "github.com/sahara-labs/sahara/backend/internal/model/speech"
	"github.com/sahara-labs/sahara/backend/internal/service/ai"
	"github.com/sahara-labs/sahara/backend/internal/service/dispatch"
	emergencyservice "github.com/sahara-labs/sahara/backend/internal/service/emergency"
	"github.com/sahara-labs/sahara/backend/internal/service/session"
	"github.com/sahara-labs/sahara/backend/internal/service/speech"
	"github.com/sahara-labs/sahara/backend/internal/service/therapy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	sessions := session.NewService()
	contacts := emergencyservice.NewStore()
	composer := emergencyservice.NewComposer(contacts, sessions)

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		AccountSID:   cfg.Alert.TwilioAccountSID,
		AuthToken:    cfg.Alert.TwilioAuthToken,
		WhatsAppFrom: cfg.Alert.WhatsAppFrom,
		SMSFrom:      cfg.Alert.SMSFrom,
		Timeout:      time.Duration(cfg.Alert.Timeout) * time.Second,
	})

	var replyer therapy.Replyer
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("reply model unavailable, falling back to fixed supportive text")
		} else {
			replyer = aiService
			log.Info().Str("model", cfg.AI.Model).Msg("reply model initialized")
		}
	} else {
		log.Info().Msg("model credentials not configured, replies use fixed supportive text")
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
	speechSvc := speech.NewService(speechCfg)

	var transcriber therapy.Transcriber
	if speechCfg.STTConfigured() {
		transcriber = speechSvc
		log.Info().Str("model", cfg.Speech.STTModel).Msg("speech recognition enabled")
	} else {
		log.Warn().Msg("STT_API_KEY not set, voice input is disabled")
	}

	// Synthesis needs no credentials, the default Edge endpoint works as-is.
	var synthesizer therapy.Synthesizer = speechSvc

	orchestrator := therapy.NewOrchestrator(sessions, replyer, transcriber, synthesizer)

	router := handler.NewRouter(sessions, orchestrator, contacts, composer, dispatcher, speechSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("Sahara backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
