package therapy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/analysis/crisis"
	"github.com/sahara-labs/sahara/backend/internal/analysis/emotion"
	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/model/chat"
	"github.com/sahara-labs/sahara/backend/internal/model/language"
	speechmodel "github.com/sahara-labs/sahara/backend/internal/model/speech"
	"github.com/sahara-labs/sahara/backend/internal/service/ai"
	"github.com/sahara-labs/sahara/backend/internal/service/session"
	"github.com/sahara-labs/sahara/backend/internal/service/speech"
)

// Stages a turn passes through. Text turns skip transcribed; turns without a
// configured synthesizer skip synthesized. Every successful turn ends
// delivered.
const (
	StageReceived      = "received"
	StageTranscribed   = "transcribed"
	StageClassified    = "classified"
	StageResponding    = "responding"
	StageCrisisFlagged = "crisis_flagged"
	StageSynthesized   = "synthesized"
	StageDelivered     = "delivered"
)

var (
	ErrEmptyUtterance      = errors.New("utterance is empty")
	ErrSpeechNotConfigured = errors.New("speech service not configured")
)

// TurnResult is the observable outcome of one conversation turn.
type TurnResult struct {
	SessionID     string       `json:"sessionId"`
	Stage         string       `json:"stage"`
	Transcription string       `json:"transcription,omitempty"`
	Reply         string       `json:"response"`
	ReplyAudio    []byte       `json:"-"`
	AudioFormat   string       `json:"audioFormat,omitempty"`
	IsCrisis      bool         `json:"isCrisis"`
	CrisisLevel   crisis.Level `json:"crisisLevel"`
	Mood          emotion.Mood `json:"mood"`
	Language      string       `json:"language"`
}

// Replyer produces supportive replies. *ai.Service satisfies it; the
// orchestrator runs with a nil Replyer when no model is configured and
// answers with fixed fallback text instead.
type Replyer interface {
	GenerateReply(ctx context.Context, sessionID, lang string, history []chat.Message, userText string, guidance *ai.Guidance) (*schema.Message, error)
	StreamReply(ctx context.Context, lang string, history []chat.Message, userText string, guidance *ai.Guidance) (*schema.StreamReader[*schema.Message], error)
	StreamingEnabled() bool
}

// Transcriber converts user audio into text.
type Transcriber interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, lang string) (*speechmodel.Transcription, error)
}

// Synthesizer renders reply text as audio.
type Synthesizer interface {
	SynthesizeToBuffer(ctx context.Context, sessionID, text, lang string, prosody speechmodel.Prosody) (*speechmodel.Synthesis, error)
}

// Orchestrator sequences one conversation turn: transcription, crisis and
// mood classification, reply, synthesis. It flags crises on the session but
// never sends alerts; escalation stays an explicit user action.
type Orchestrator struct {
	sessions    *session.Service
	replyer     Replyer
	transcriber Transcriber
	synthesizer Synthesizer

	turnLocks sync.Map // session id -> *sync.Mutex
	logger    zerolog.Logger
}

// NewOrchestrator wires the turn pipeline. Any collaborator except sessions
// may be nil; the turn then degrades (fallback reply, no voice) instead of
// failing.
func NewOrchestrator(sessions *session.Service, replyer Replyer, transcriber Transcriber, synthesizer Synthesizer) *Orchestrator {
	return &Orchestrator{
		sessions:    sessions,
		replyer:     replyer,
		transcriber: transcriber,
		synthesizer: synthesizer,
		logger:      logging.Component("therapy"),
	}
}

// ProcessTextTurn runs one typed utterance through the pipeline.
func (o *Orchestrator) ProcessTextTurn(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	return o.ProcessStreamTurn(ctx, sessionID, text, nil)
}

// ProcessStreamTurn behaves like ProcessTextTurn but emits reply chunks
// through onDelta while the model streams. The returned result carries the
// complete reply; crisis turns answer with the canned response and never
// stream.
func (o *Orchestrator) ProcessStreamTurn(ctx context.Context, sessionID, text string, onDelta func(chunk string)) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyUtterance
	}

	lock := o.turnLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	o.stage(sessionID, StageReceived)

	result, err := o.runTurn(ctx, sess, text, onDelta)
	if err != nil {
		return nil, err
	}

	if err := o.finishTurn(ctx, result, ""); err != nil {
		return nil, err
	}
	return result, nil
}

// ProcessVoiceTurn transcribes one audio utterance, runs the text pipeline
// and synthesizes the reply. Synthesis failure degrades to a text-only
// result.
func (o *Orchestrator) ProcessVoiceTurn(ctx context.Context, sessionID string, audio []byte, format, lang string) (*TurnResult, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyUtterance
	}
	if o.transcriber == nil {
		return nil, ErrSpeechNotConfigured
	}

	lock := o.turnLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	o.stage(sessionID, StageReceived)

	transcription, err := o.transcriber.TranscribeBuffer(ctx, sessionID, audio, format, lang)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	o.stage(sessionID, StageTranscribed)

	// The caller's language choice wins; otherwise adopt what the recognizer
	// detected, as long as it is a supported code.
	chosen := lang
	if strings.TrimSpace(chosen) == "" {
		chosen = transcription.Language
	}
	if code := language.Base(chosen); code != "" && code != sess.Language {
		if _, ok := language.ByCode(code); ok {
			if err := o.sessions.SetLanguage(ctx, sessionID, code); err == nil {
				sess.Language = code
			}
		}
	}

	text := strings.TrimSpace(transcription.Text)
	if text == "" {
		// Silence or noise; ask for a retry instead of classifying nothing.
		result := &TurnResult{
			SessionID:   sessionID,
			Stage:       StageDelivered,
			Reply:       retryPrompt(sess.Language),
			CrisisLevel: crisis.LevelNone,
			Mood:        emotion.Calm,
			Language:    sess.Language,
		}
		return result, nil
	}

	result, err := o.runTurn(ctx, sess, text, nil)
	if err != nil {
		return nil, err
	}
	result.Transcription = text

	audioRef := o.synthesizeReply(ctx, sessionID, result)
	if err := o.finishTurn(ctx, result, audioRef); err != nil {
		return nil, err
	}
	return result, nil
}

// ClearSession discards the conversation along with its turn lock.
func (o *Orchestrator) ClearSession(ctx context.Context, sessionID string) error {
	if err := o.sessions.Clear(ctx, sessionID); err != nil {
		return err
	}
	o.turnLocks.Delete(sessionID)
	return nil
}

// runTurn classifies the utterance and produces the reply. The caller holds
// the turn lock and appends the assistant message via finishTurn.
func (o *Orchestrator) runTurn(ctx context.Context, sess chat.Session, text string, onDelta func(string)) (*TurnResult, error) {
	sessionID := sess.ID

	// History for the model excludes the utterance being answered; it rides
	// along as the query instead.
	history, err := o.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := o.sessions.AppendMessage(ctx, sessionID, chat.RoleUser, text, ""); err != nil {
		return nil, err
	}

	level := crisis.Classify(text, sess.Language)
	decision := emotion.Analyze(text)
	o.stage(sessionID, StageClassified)

	if err := o.sessions.SetMood(ctx, sessionID, string(decision.Mood)); err != nil {
		return nil, err
	}

	result := &TurnResult{
		SessionID:   sessionID,
		CrisisLevel: level,
		Mood:        decision.Mood,
		Language:    sess.Language,
	}

	if level.IsCrisis() {
		result.IsCrisis = true
		if err := o.sessions.SetCrisisFlag(ctx, sessionID, true); err != nil {
			return nil, err
		}
		o.stage(sessionID, StageCrisisFlagged)
	}
	o.stage(sessionID, StageResponding)

	result.Reply = o.replyFor(ctx, sess, history, text, level, decision, onDelta)
	return result, nil
}

// replyFor picks the reply source. A crisis always answers with the canned
// response; everything else goes through the model with mood and severity
// guidance, degrading to fixed fallback text when the model is absent or
// fails.
func (o *Orchestrator) replyFor(ctx context.Context, sess chat.Session, history []chat.Message, text string, level crisis.Level, decision emotion.Decision, onDelta func(string)) string {
	if level.IsCrisis() {
		return ai.CrisisReply(sess.Language)
	}

	if o.replyer == nil {
		return fallbackReply(sess.Language)
	}

	guidance := &ai.Guidance{Mood: decision, Level: level}

	if onDelta != nil && o.replyer.StreamingEnabled() {
		reply, err := o.streamReply(ctx, sess, history, text, guidance, onDelta)
		if err != nil {
			o.logger.Error().Err(err).Str("session", sess.ID).Msg("streamed reply failed")
			return fallbackReply(sess.Language)
		}
		return reply
	}

	response, err := o.replyer.GenerateReply(ctx, sess.ID, sess.Language, history, text, guidance)
	if err != nil {
		o.logger.Error().Err(err).Str("session", sess.ID).Msg("reply generation failed")
		return fallbackReply(sess.Language)
	}
	return response.Content
}

func (o *Orchestrator) streamReply(ctx context.Context, sess chat.Session, history []chat.Message, text string, guidance *ai.Guidance, onDelta func(string)) (string, error) {
	stream, err := o.replyer.StreamReply(ctx, sess.Language, history, text, guidance)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			onDelta(chunk.Content)
		}
	}

	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}
	return full.Content, nil
}

// synthesizeReply attaches reply audio when a synthesizer is configured.
// Returns the audio reference for the assistant message, empty when no audio
// was produced.
func (o *Orchestrator) synthesizeReply(ctx context.Context, sessionID string, result *TurnResult) string {
	if o.synthesizer == nil {
		return ""
	}

	prosody := speech.ProsodyForMood(result.Mood)
	synthesis, err := o.synthesizer.SynthesizeToBuffer(ctx, sessionID, result.Reply, result.Language, prosody)
	if err != nil {
		// Voice output is best-effort; the text reply already stands.
		o.logger.Warn().Err(err).Str("session", sessionID).Msg("synthesis failed, returning text only")
		return ""
	}

	result.ReplyAudio = synthesis.AudioData
	result.AudioFormat = synthesis.Format
	o.stage(sessionID, StageSynthesized)
	return synthesis.RequestID
}

func (o *Orchestrator) finishTurn(ctx context.Context, result *TurnResult, audioRef string) error {
	if _, err := o.sessions.AppendMessage(ctx, result.SessionID, chat.RoleAssistant, result.Reply, audioRef); err != nil {
		return err
	}
	result.Stage = StageDelivered
	o.stage(result.SessionID, StageDelivered)
	return nil
}

func (o *Orchestrator) turnLock(sessionID string) *sync.Mutex {
	lock, _ := o.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (o *Orchestrator) stage(sessionID, stage string) {
	o.logger.Debug().Str("session", sessionID).Str("stage", stage).Msg("turn stage")
}
