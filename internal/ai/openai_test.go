package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/serenity-spa/spachat/internal/model"
	appErr "github.com/serenity-spa/spachat/internal/pkg/errors"
)

func newTestProvider(t *testing.T, baseURL string) IAIProvider {
	t.Helper()
	p, err := NewProvider("openai", map[string]string{"api_key": "test-key", "base_url": baseURL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestOpenAIChat(t *testing.T) {
	var gotAuth string
	var gotReq openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "hello"}},
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	reply, err := p.Chat(context.Background(), "gpt-4o-mini", []model.ChatMessage{{Role: "user", Content: "hi"}}, 0.3)
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if reply.Content != "hello" || reply.Role != model.RoleAssistant {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" || gotReq.Temperature != 0.3 || gotReq.Stream {
		t.Errorf("unexpected request: %+v", gotReq)
	}
}

func TestOpenAIChatErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.Chat(context.Background(), "gpt-4o-mini", nil, 0.3)
	pe, ok := appErr.AsProviderError(err)
	if !ok {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", pe.StatusCode)
	}
	if !strings.Contains(pe.Body, "rate limited") {
		t.Errorf("body = %q", pe.Body)
	}
}

func TestOpenAIChatMissingKey(t *testing.T) {
	p, err := NewProvider("openai", map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Configured() {
		t.Error("provider without key reports configured")
	}
	if _, err := p.Chat(context.Background(), "gpt-4o-mini", nil, 0.3); !appErr.IsMisconfigured(err) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	values, err := p.Embed(context.Background(), "text-embedding-3-small", "hello", "RETRIEVAL_QUERY")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(values) != 3 {
		t.Errorf("unexpected embedding: %v", values)
	}
}

func TestEmbedderTruncatesLongInput(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotLen = len(req.Input)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": []float32{0.1}}},
		})
	}))
	defer srv.Close()

	e := NewEmbedder(newTestProvider(t, srv.URL), "text-embedding-3-small")
	long := strings.Repeat("x", maxEmbedChars+500)
	if _, err := e.Embed(context.Background(), long, "RETRIEVAL_DOCUMENT"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if gotLen != maxEmbedChars {
		t.Errorf("input length = %d, want %d", gotLen, maxEmbedChars)
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider("nope", nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
