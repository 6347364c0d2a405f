package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/llm"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func completionBody(content, finishReason string) map[string]any {
	return map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": finishReason,
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected message layout: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(completionBody(`{"ok":true}`, "stop"))
	})

	c := llm.NewClient("test-key", srv.URL, time.Second, 1)
	res, err := c.Generate(context.Background(), llm.Request{
		System:   "you are a test",
		Messages: []llm.Message{{Role: "user", Content: "go"}},
		Model:    "gpt-4o-mini",
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Text != `{"ok":true}` {
		t.Errorf("text: got %q", res.Text)
	}
}

func TestGenerateTruncation(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionBody("{\"partial\":", "length"))
	})

	c := llm.NewClient("test-key", srv.URL, time.Second, 1)
	res, err := c.Generate(context.Background(), llm.Request{Model: "gpt-4o-mini", Messages: []llm.Message{{Role: "user", Content: "go"}}})
	if !errors.Is(err, llm.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if res.Text == "" {
		t.Error("truncated result should retain the partial text for diagnostics")
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(completionBody("ok", "stop"))
	})

	c := llm.NewClient("test-key", srv.URL, time.Second, 3)
	res, err := c.Generate(context.Background(), llm.Request{Model: "gpt-4o-mini", Messages: []llm.Message{{Role: "user", Content: "go"}}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("text: got %q", res.Text)
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	})

	c := llm.NewClient("test-key", srv.URL, time.Second, 2)
	if _, err := c.Generate(context.Background(), llm.Request{Model: "gpt-4o-mini", Messages: []llm.Message{{Role: "user", Content: "go"}}}); err == nil {
		t.Fatal("expected error after attempts exhausted")
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
}
