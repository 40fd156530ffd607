package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// ChatServer is a stand-in for an OpenAI-compatible chat completions endpoint
// that answers every request with the same assistant content.
type ChatServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
}

// NewChatServer starts a server replying with content. It is closed when t ends.
func NewChatServer(t testing.TB, content string) *ChatServer {
	t.Helper()
	cs := &ChatServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)

		cs.mu.Lock()
		cs.requests = append(cs.requests, payload)
		cs.mu.Unlock()

		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-fixture",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

// Requests returns the decoded request bodies received so far.
func (cs *ChatServer) Requests() []map[string]any {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]map[string]any, len(cs.requests))
	copy(out, cs.requests)
	return out
}

// Hits returns the number of requests received.
func (cs *ChatServer) Hits() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.requests)
}
