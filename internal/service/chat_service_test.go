package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/serenity-spa/spachat/internal/config"
	"github.com/serenity-spa/spachat/internal/model"
	appErr "github.com/serenity-spa/spachat/internal/pkg/errors"
)

type fakeChatter struct {
	configured bool
	reply      model.ChatMessage
	err        error
	got        []model.ChatMessage
}

func (f *fakeChatter) Configured() bool { return f.configured }

func (f *fakeChatter) Chat(ctx context.Context, messages []model.ChatMessage) (model.ChatMessage, error) {
	f.got = messages
	return f.reply, f.err
}

type retrieveCall struct {
	query     string
	topK      int
	threshold float64
}

type fakeRetriever struct {
	calls   []retrieveCall
	results [][]model.KnowledgeMatch
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) []model.KnowledgeMatch {
	f.calls = append(f.calls, retrieveCall{query, topK, threshold})
	if len(f.results) == 0 {
		return nil
	}
	out := f.results[0]
	f.results = f.results[1:]
	return out
}

type fakeConvStore struct {
	created []model.Conversation
	err     error
}

func (f *fakeConvStore) Create(ctx context.Context, conv *model.Conversation) error {
	f.created = append(f.created, *conv)
	return f.err
}

type fakeMsgStore struct {
	appended []model.Message
	err      error
}

func (f *fakeMsgStore) Append(ctx context.Context, msg *model.Message) error {
	f.appended = append(f.appended, *msg)
	return f.err
}

type staticBusiness struct {
	text string
}

func (s *staticBusiness) FallbackContext(ctx context.Context) string { return s.text }

func defaultRAG() config.RAGConfig {
	return config.RAGConfig{TopK: 5, Threshold: 0.72, WidenTopK: 8, WidenThreshold: 0.5}
}

func userTurn(content string) []model.ChatMessage {
	return []model.ChatMessage{{Role: model.RoleUser, Content: content}}
}

func TestChatMisconfigured(t *testing.T) {
	svc := NewChatService(&fakeChatter{configured: false}, &fakeRetriever{}, nil, nil, nil, defaultRAG(), "")
	_, err := svc.Chat(context.Background(), &ChatRequest{Messages: userTurn("hi")})
	if !appErr.IsMisconfigured(err) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}

func TestChatSecondPassWidens(t *testing.T) {
	retriever := &fakeRetriever{}
	chatter := &fakeChatter{configured: true, reply: model.ChatMessage{Role: model.RoleAssistant, Content: "ok"}}
	business := &staticBusiness{text: "Business Info:\nAddress: 12 Elm St\nHours: Mon–Fri 09:00 — 19:00, Sat 10:00 — 18:00, Sun Closed"}
	svc := NewChatService(chatter, retriever, nil, nil, business, defaultRAG(), "")

	result, err := svc.Chat(context.Background(), &ChatRequest{Messages: userTurn("are you open saturday")})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if len(retriever.calls) != 2 {
		t.Fatalf("expected 2 retrieval passes, got %d", len(retriever.calls))
	}
	first, second := retriever.calls[0], retriever.calls[1]
	if first.query != "are you open saturday" || first.topK != 5 || first.threshold != 0.72 {
		t.Errorf("unexpected first pass: %+v", first)
	}
	if !strings.Contains(second.query, "business hours schedule opening times") {
		t.Errorf("second pass query not expanded: %q", second.query)
	}
	if second.topK != 8 {
		t.Errorf("second pass topK = %d, want 8", second.topK)
	}
	if second.threshold != 0.5 {
		t.Errorf("second pass threshold = %v, want 0.5", second.threshold)
	}

	system := chatter.got[0]
	if system.Role != model.RoleSystem {
		t.Fatalf("first message role = %q, want system", system.Role)
	}
	if !strings.Contains(system.Content, "【BIZ】") || !strings.Contains(system.Content, "Sat 10:00 — 18:00") {
		t.Errorf("business fallback missing from prompt: %q", system.Content)
	}
	if result.Citations == nil || len(result.Citations) != 0 {
		t.Errorf("expected empty non-nil citations, got %v", result.Citations)
	}
}

func TestChatFirstPassHit(t *testing.T) {
	retriever := &fakeRetriever{results: [][]model.KnowledgeMatch{{
		{Title: "pricing", Chunk: "Swedish massage is $95.", Similarity: 0.9},
	}}}
	chatter := &fakeChatter{configured: true, reply: model.ChatMessage{Role: model.RoleAssistant, Content: "$95"}}
	svc := NewChatService(chatter, retriever, nil, nil, &staticBusiness{text: "should not appear"}, defaultRAG(), "")

	result, err := svc.Chat(context.Background(), &ChatRequest{Messages: userTurn("how much is a massage")})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if len(retriever.calls) != 1 {
		t.Fatalf("expected one retrieval pass, got %d", len(retriever.calls))
	}
	system := chatter.got[0].Content
	if !strings.Contains(system, "【1】 (pricing)\nSwedish massage is $95.") {
		t.Errorf("numbered context missing: %q", system)
	}
	if strings.Contains(system, "should not appear") {
		t.Errorf("fallback used despite matches: %q", system)
	}
	if len(result.Citations) != 1 || result.Citations[0].Idx != 1 || result.Citations[0].Title != "pricing" {
		t.Errorf("unexpected citations: %+v", result.Citations)
	}
	if result.Reply.Content != "$95" {
		t.Errorf("reply = %q", result.Reply.Content)
	}
}

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestChatNewConversationPersisted(t *testing.T) {
	convs := &fakeConvStore{}
	msgs := &fakeMsgStore{}
	chatter := &fakeChatter{configured: true, reply: model.ChatMessage{Role: model.RoleAssistant, Content: "hello!"}}
	svc := NewChatService(chatter, &fakeRetriever{}, convs, msgs, nil, defaultRAG(), "")

	result, err := svc.Chat(context.Background(), &ChatRequest{Messages: userTurn("hi")})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !hexID.MatchString(result.ConversationID) {
		t.Fatalf("conversation id %q is not 32 hex chars", result.ConversationID)
	}
	if len(convs.created) != 1 || convs.created[0].ID != result.ConversationID {
		t.Fatalf("conversation not created: %+v", convs.created)
	}
	if len(msgs.appended) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(msgs.appended))
	}
	if msgs.appended[0].Role != model.RoleUser || msgs.appended[0].Content != "hi" {
		t.Errorf("unexpected user message: %+v", msgs.appended[0])
	}
	if msgs.appended[1].Role != model.RoleAssistant || msgs.appended[1].Content != "hello!" {
		t.Errorf("unexpected assistant message: %+v", msgs.appended[1])
	}
}

func TestChatExistingConversationReused(t *testing.T) {
	convs := &fakeConvStore{}
	chatter := &fakeChatter{configured: true, reply: model.ChatMessage{Role: model.RoleAssistant, Content: "ok"}}
	svc := NewChatService(chatter, &fakeRetriever{}, convs, nil, nil, defaultRAG(), "")

	result, err := svc.Chat(context.Background(), &ChatRequest{
		Messages:       userTurn("hi again"),
		ConversationID: "abc123",
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if result.ConversationID != "abc123" {
		t.Errorf("conversation id = %q, want abc123", result.ConversationID)
	}
	if len(convs.created) != 0 {
		t.Errorf("existing conversation should not be re-created: %+v", convs.created)
	}
}

func TestChatExplicitZeroKnobsHonored(t *testing.T) {
	retriever := &fakeRetriever{results: [][]model.KnowledgeMatch{{
		{Title: "pricing", Chunk: "facts", Similarity: 0.1},
	}}}
	chatter := &fakeChatter{configured: true, reply: model.ChatMessage{Role: model.RoleAssistant, Content: "ok"}}
	svc := NewChatService(chatter, retriever, nil, nil, nil, defaultRAG(), "")

	topK := 0
	threshold := 0.0
	_, err := svc.Chat(context.Background(), &ChatRequest{
		Messages:  userTurn("how much"),
		TopK:      &topK,
		Threshold: &threshold,
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	// an explicit zero is the caller's value, not an invitation to default
	first := retriever.calls[0]
	if first.topK != 0 || first.threshold != 0 {
		t.Fatalf("explicit zeros replaced by defaults: %+v", first)
	}
}

func TestChatAbsentKnobsDefault(t *testing.T) {
	retriever := &fakeRetriever{results: [][]model.KnowledgeMatch{{
		{Title: "pricing", Chunk: "facts", Similarity: 0.9},
	}}}
	chatter := &fakeChatter{configured: true, reply: model.ChatMessage{Role: model.RoleAssistant, Content: "ok"}}
	svc := NewChatService(chatter, retriever, nil, nil, nil, defaultRAG(), "")

	if _, err := svc.Chat(context.Background(), &ChatRequest{Messages: userTurn("how much")}); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	first := retriever.calls[0]
	if first.topK != 5 || first.threshold != 0.72 {
		t.Fatalf("absent knobs did not default: %+v", first)
	}
}

func TestChatPersistFailureDoesNotAbort(t *testing.T) {
	convs := &fakeConvStore{err: errors.New("db down")}
	msgs := &fakeMsgStore{err: errors.New("db down")}
	chatter := &fakeChatter{configured: true, reply: model.ChatMessage{Role: model.RoleAssistant, Content: "still here"}}
	svc := NewChatService(chatter, &fakeRetriever{}, convs, msgs, nil, defaultRAG(), "")

	result, err := svc.Chat(context.Background(), &ChatRequest{Messages: userTurn("hi")})
	if err != nil {
		t.Fatalf("persistence failure must not fail the chat: %v", err)
	}
	if result.Reply.Content != "still here" {
		t.Errorf("reply = %q", result.Reply.Content)
	}
}

func TestChatProviderErrorSurfaces(t *testing.T) {
	pe := &appErr.ProviderError{StatusCode: 429, Body: `{"error":"rate limited"}`}
	chatter := &fakeChatter{configured: true, err: pe}
	msgs := &fakeMsgStore{}
	svc := NewChatService(chatter, &fakeRetriever{}, nil, msgs, nil, defaultRAG(), "")

	_, err := svc.Chat(context.Background(), &ChatRequest{Messages: userTurn("hi")})
	got, ok := appErr.AsProviderError(err)
	if !ok || got.StatusCode != 429 {
		t.Fatalf("expected provider error passthrough, got %v", err)
	}
	// only the user turn was persisted; there is no assistant reply to log
	if len(msgs.appended) != 1 || msgs.appended[0].Role != model.RoleUser {
		t.Errorf("unexpected persisted messages: %+v", msgs.appended)
	}
}

func TestChatDefaultSystemPrompt(t *testing.T) {
	chatter := &fakeChatter{configured: true, reply: model.ChatMessage{Role: model.RoleAssistant, Content: "ok"}}
	svc := NewChatService(chatter, &fakeRetriever{}, nil, nil, nil, defaultRAG(), "")
	if _, err := svc.Chat(context.Background(), &ChatRequest{Messages: userTurn("hi")}); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !strings.HasPrefix(chatter.got[0].Content, "You are a friendly spa assistant.") {
		t.Errorf("default system prompt missing: %q", chatter.got[0].Content)
	}
}

func TestWidenTopK(t *testing.T) {
	svc := NewChatService(&fakeChatter{configured: true}, &fakeRetriever{}, nil, nil, nil, defaultRAG(), "")
	if got := svc.widenTopK(5); got != 8 {
		t.Errorf("widenTopK(5) = %d, want 8", got)
	}
	if got := svc.widenTopK(12); got != 12 {
		t.Errorf("widenTopK(12) = %d, want 12", got)
	}
}

func TestWidenThreshold(t *testing.T) {
	svc := NewChatService(&fakeChatter{configured: true}, &fakeRetriever{}, nil, nil, nil, defaultRAG(), "")
	if got := svc.widenThreshold(0.72); got != 0.5 {
		t.Errorf("widenThreshold(0.72) = %v, want 0.5", got)
	}
	if got := svc.widenThreshold(0.3); got != 0.3 {
		t.Errorf("widenThreshold(0.3) = %v, want 0.3", got)
	}
}

func TestLastUserContent(t *testing.T) {
	messages := []model.ChatMessage{
		{Role: model.RoleUser, Content: "first"},
		{Role: model.RoleAssistant, Content: "reply"},
		{Role: model.RoleUser, Content: "second"},
	}
	if got := lastUserContent(messages); got != "second" {
		t.Errorf("lastUserContent = %q, want second", got)
	}
	if got := lastUserContent(nil); got != "" {
		t.Errorf("lastUserContent(nil) = %q, want empty", got)
	}
}
