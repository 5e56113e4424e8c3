package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/serenity-spa/spachat/internal/ai"
	"github.com/serenity-spa/spachat/internal/config"
	"github.com/serenity-spa/spachat/internal/model"
	appErr "github.com/serenity-spa/spachat/internal/pkg/errors"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, threshold float64) []model.KnowledgeMatch
}

type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
}

type MessageStore interface {
	Append(ctx context.Context, msg *model.Message) error
}

type FallbackContextProvider interface {
	FallbackContext(ctx context.Context) string
}

// PersistOutcome records one best-effort write. Callers are free to ignore
// it: transcript persistence is observability, not part of the chat contract.
type PersistOutcome struct {
	Op  string
	Err error
}

func (o PersistOutcome) OK() bool {
	return o.Err == nil
}

// ChatRequest carries one chat turn. TopK and Threshold are nil when the
// caller did not send them; an explicit zero is passed through as-is.
type ChatRequest struct {
	Messages       []model.ChatMessage
	ConversationID string
	System         string
	TopK           *int
	Threshold      *float64
}

type ChatResult struct {
	Reply          model.ChatMessage
	ConversationID string
	Citations      []Citation
}

// ChatService orchestrates one grounded completion: retrieval with a two-pass
// widening strategy, context assembly with the business-info fallback, a
// single low-temperature completion call, and best-effort transcript logging.
type ChatService struct {
	chatter       ai.IChatter
	retriever     Retriever
	conversations ConversationStore
	messages      MessageStore
	business      FallbackContextProvider
	expansions    []QueryExpansion
	rag           config.RAGConfig
	systemPrompt  string
}

func NewChatService(
	chatter ai.IChatter,
	retriever Retriever,
	conversations ConversationStore,
	messages MessageStore,
	business FallbackContextProvider,
	rag config.RAGConfig,
	systemPrompt string,
) *ChatService {
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	return &ChatService{
		chatter:       chatter,
		retriever:     retriever,
		conversations: conversations,
		messages:      messages,
		business:      business,
		expansions:    DefaultExpansions(),
		rag:           rag,
		systemPrompt:  systemPrompt,
	}
}

// Chat runs the full request state machine. The completion call is the only
// hard dependency: retrieval and persistence failures degrade, never abort.
func (s *ChatService) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if s.chatter == nil || !s.chatter.Configured() {
		return nil, appErr.ErrMisconfigured
	}

	topK := s.rag.TopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	threshold := s.rag.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	system := req.System
	if system == "" {
		system = s.systemPrompt
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = newConversationID()
		if s.conversations != nil {
			s.persist(ctx, "create conversation", func() error {
				return s.conversations.Create(ctx, &model.Conversation{
					ID:    conversationID,
					Ctime: time.Now().UnixMilli(),
				})
			})
		}
	}

	lastUser := lastUserContent(req.Messages)
	if lastUser != "" && s.messages != nil {
		s.persist(ctx, "append user message", func() error {
			return s.messages.Append(ctx, &model.Message{
				ConversationID: conversationID,
				Role:           model.RoleUser,
				Content:        lastUser,
				Ctime:          time.Now().UnixMilli(),
			})
		})
	}

	var contextBlock string
	citations := make([]Citation, 0)
	if lastUser != "" {
		matches := s.retriever.Retrieve(ctx, lastUser, topK, threshold)
		if len(matches) == 0 {
			matches = s.retriever.Retrieve(ctx, ExpandQuery(lastUser, s.expansions), s.widenTopK(topK), s.widenThreshold(threshold))
		}
		contextBlock, citations = assembleContext(matches)
		if contextBlock == "" && s.business != nil {
			if biz := s.business.FallbackContext(ctx); biz != "" {
				contextBlock = bizContextTag + "\n" + biz
			}
		}
	}

	grounded := GroundedSystemPrompt(system, contextBlock)
	messages := make([]model.ChatMessage, 0, len(req.Messages)+1)
	messages = append(messages, model.ChatMessage{Role: model.RoleSystem, Content: grounded})
	messages = append(messages, req.Messages...)

	reply, err := s.chatter.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	if s.messages != nil {
		s.persist(ctx, "append assistant message", func() error {
			return s.messages.Append(ctx, &model.Message{
				ConversationID: conversationID,
				Role:           model.RoleAssistant,
				Content:        reply.Content,
				Ctime:          time.Now().UnixMilli(),
			})
		})
	}

	return &ChatResult{
		Reply:          reply,
		ConversationID: conversationID,
		Citations:      citations,
	}, nil
}

// widenTopK returns the pass-2 match count: at least the configured widened
// value, never less than what the caller asked for.
func (s *ChatService) widenTopK(topK int) int {
	widened := s.rag.WidenTopK
	if widened < 8 {
		widened = 8
	}
	if topK > widened {
		return topK
	}
	return widened
}

// widenThreshold returns the pass-2 threshold: capped at the configured
// ceiling regardless of the caller's stricter value.
func (s *ChatService) widenThreshold(threshold float64) float64 {
	ceiling := s.rag.WidenThreshold
	if ceiling <= 0 || ceiling > 0.5 {
		ceiling = 0.5
	}
	if threshold < ceiling {
		return threshold
	}
	return ceiling
}

// assembleContext wraps BuildContextBlock with a non-nil citations slice so
// responses always carry a JSON array.
func assembleContext(matches []model.KnowledgeMatch) (string, []Citation) {
	contextBlock, citations := BuildContextBlock(matches)
	if citations == nil {
		citations = make([]Citation, 0)
	}
	return contextBlock, citations
}

// lastUserContent scans messages in reverse for the most recent user turn.
func lastUserContent(messages []model.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// persist runs one best-effort write and logs the outcome. Failures are
// absorbed: a dead message log must not fail the chat.
func (s *ChatService) persist(ctx context.Context, op string, fn func() error) PersistOutcome {
	outcome := PersistOutcome{Op: op}
	if fn != nil {
		outcome.Err = fn()
	}
	if outcome.Err != nil {
		logutil.GetLogger(ctx).Warn("best-effort persistence failed", zap.String("op", op), zap.Error(outcome.Err))
	}
	return outcome
}
