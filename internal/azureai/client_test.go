package azureai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gurukul-labs/gurukul/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(Config{
		Endpoint:        srv.URL,
		APIKey:          "test-key",
		APIVersion:      "2024-02-01",
		EmbedDeployment: "text-embedding-3-large",
		ChatDeployment:  "gpt-4o",
	}, log.NewNop())
	return client, srv
}

func TestClient_Embed_ReordersByIndex(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("api-key"); got != "test-key" {
			t.Errorf("api-key header = %q, want test-key", got)
		}
		if !strings.Contains(r.URL.Path, "/deployments/text-embedding-3-large/embeddings") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		// Return vectors permuted: provider order must not be trusted.
		resp := embeddingResponse{Data: []embeddingData{
			{Index: 2, Embedding: []float32{3}},
			{Index: 0, Embedding: []float32{1}},
			{Index: 1, Embedding: []float32{2}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	for i, want := range []float32{1, 2, 3} {
		if vectors[i][0] != want {
			t.Errorf("vectors[%d][0] = %v, want %v (input order not preserved)", i, vectors[i][0], want)
		}
	}
}

func TestClient_Embed_EmptyInputSkipsProvider(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	vectors, err := client.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil vectors for empty input, got %v", vectors)
	}
	if calls != 0 {
		t.Errorf("provider was called %d times for empty input", calls)
	}
}

func TestClient_Embed_CountMismatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingResponse{Data: []embeddingData{{Index: 0, Embedding: []float32{1}}}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}

func TestClient_Embed_ProviderErrorPropagates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"429","message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := client.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error from provider failure")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry provider status, got: %v", err)
	}
}

func TestClient_Complete(t *testing.T) {
	var gotReq chatRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/deployments/gpt-4o/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)

		resp := chatResponse{Choices: []chatChoice{
			{Message: Message{Role: RoleAssistant, Content: "Heat flows from hot to cold."}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	messages := []Message{
		{Role: RoleSystem, Content: "answer from context"},
		{Role: RoleUser, Content: "what is conduction?"},
	}
	answer, err := client.Complete(context.Background(), messages, 0.2)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "Heat flows from hot to cold." {
		t.Errorf("answer = %q", answer)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != RoleSystem {
		t.Errorf("request messages not forwarded: %+v", gotReq.Messages)
	}
	if gotReq.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", gotReq.Temperature)
	}
}

func TestClient_Complete_NoChoices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	})

	if _, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}}, 0); err == nil {
		t.Fatal("expected error when response has no choices")
	}
}
