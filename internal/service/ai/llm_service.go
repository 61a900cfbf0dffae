package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/sahara-labs/sahara/backend/internal/analysis/crisis"
	"github.com/sahara-labs/sahara/backend/internal/analysis/emotion"
	"github.com/sahara-labs/sahara/backend/internal/config"
	"github.com/sahara-labs/sahara/backend/internal/logging"
	"github.com/sahara-labs/sahara/backend/internal/model/chat"
)

// Guidance carries the per-turn analysis results that shape the reply tone.
// Crisis-level turns never reach the model; see CrisisReply.
type Guidance struct {
	Mood  emotion.Decision
	Level crisis.Level
}

// Service generates supportive replies through a compiled prompt chain.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
	logger    zerolog.Logger
}

// NewService creates the reply service and compiles its chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
		logger:    logging.Component("ai"),
	}, nil
}

// StreamingEnabled reports whether SSE streaming output is switched on.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// GenerateReply produces one supportive reply for the user's latest message.
func (s *Service) GenerateReply(ctx context.Context, sessionID, lang string, history []chat.Message, userText string, guidance *Guidance) (*schema.Message, error) {
	input := s.buildChainInput(lang, history, userText, guidance)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run reply chain: %w", err)
	}

	s.logger.Debug().
		Str("session", sessionID).
		Str("language", lang).
		Int("length", len(response.Content)).
		Msg("reply generated")
	return response, nil
}

// StreamReply streams reply chunks through the configured chain.
func (s *Service) StreamReply(ctx context.Context, lang string, history []chat.Message, userText string, guidance *Guidance) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	input := s.buildChainInput(lang, history, userText, guidance)

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream reply chain output: %w", err)
	}

	return stream, nil
}

// GetChatModel returns the underlying chat model.
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

func (s *Service) buildChainInput(lang string, history []chat.Message, userText string, guidance *Guidance) map[string]any {
	return map[string]any{
		"system":  buildSystemPrompt(lang, guidance),
		"history": buildHistoryMessages(history),
		"query":   userText,
	}
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	const historyLimit = 10

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
