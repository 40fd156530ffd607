package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/catalog-extractor/internal/domain"
)

type fakeRenderer struct {
	pages []domain.RenderedPage
	err   error
	calls int
}

func (f *fakeRenderer) Render(ctx context.Context, path string) ([]domain.RenderedPage, error) {
	f.calls++
	return f.pages, f.err
}

func twoPages() []domain.RenderedPage {
	return []domain.RenderedPage{
		{Index: 0, Data: "cGFnZTA=", MIMEType: "image/png"},
		{Index: 1, Data: "cGFnZTE=", MIMEType: "image/png"},
	}
}

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

func newTestServer(t *testing.T, status int, body string, captured *map[string]any, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if captured != nil {
			if err := json.Unmarshal(raw, captured); err != nil {
				t.Errorf("unmarshal body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string, renderer domain.Renderer) *Client {
	t.Helper()
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: baseURL}, renderer, nil)
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		model     string
		wantModel string
		wantError bool
	}{
		{"valid api key and default model", "sk-test-key", "", defaultModel, false},
		{"valid api key and custom model", "sk-test-key", "gpt-4.1", "gpt-4.1", false},
		{"empty api key", "", "", "", true},
		{"blank api key", "   ", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(Config{APIKey: tt.apiKey, Model: tt.model}, &fakeRenderer{}, nil)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, client.Model())
			assert.Equal(t, defaultMaxTokens, client.maxTokens)
		})
	}
}

func TestNewClient_RequiresRenderer(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k"}, nil, nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestExtract_RequestShape(t *testing.T) {
	var payload map[string]any
	server := newTestServer(t, http.StatusOK,
		completionBody(`{"records":[{"Titolo":"Moby Dick","Autore":"Melville"}]}`), &payload, nil)

	renderer := &fakeRenderer{pages: twoPages()}
	records, err := newTestClient(t, server.URL, renderer).Extract(context.Background(), "catalogo.pdf", "extract title and author")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Titolo", "Autore"}, records[0].Keys())

	assert.Equal(t, "gpt-4o", payload["model"])
	assert.EqualValues(t, 4096, payload["max_tokens"])

	format, ok := payload["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])

	messages, ok := payload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], `"records"`)

	user := messages[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	parts, ok := user["content"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 3)

	text := parts[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "extract title and author", text["text"])

	for i, want := range []string{"data:image/png;base64,cGFnZTA=", "data:image/png;base64,cGFnZTE="} {
		part := parts[i+1].(map[string]any)
		assert.Equal(t, "image_url", part["type"])
		imageURL := part["image_url"].(map[string]any)
		assert.Equal(t, want, imageURL["url"], "page %d", i)
	}
}

func TestExtract_FencedResponse(t *testing.T) {
	server := newTestServer(t, http.StatusOK,
		completionBody("```json\n{\"records\":[{\"Titolo\":\"Moby Dick\",\"Autore\":\"Melville\"}]}\n```"), nil, nil)

	records, err := newTestClient(t, server.URL, &fakeRenderer{pages: twoPages()}).
		Extract(context.Background(), "catalogo.pdf", "extract")
	require.NoError(t, err)
	require.Len(t, records, 1)
	v, _ := records[0].Get("Autore")
	assert.Equal(t, "Melville", v)
}

func TestExtract_NoRecordsKey(t *testing.T) {
	server := newTestServer(t, http.StatusOK, completionBody(`{}`), nil, nil)

	records, err := newTestClient(t, server.URL, &fakeRenderer{pages: twoPages()}).
		Extract(context.Background(), "catalogo.pdf", "extract")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtract_RenderErrorSkipsNetwork(t *testing.T) {
	var hits int32
	server := newTestServer(t, http.StatusOK, completionBody(`{}`), nil, &hits)

	renderErr := domain.RenderError("failed to open document", errors.New("corrupt"))
	_, err := newTestClient(t, server.URL, &fakeRenderer{err: renderErr}).
		Extract(context.Background(), "broken.pdf", "extract")
	require.Error(t, err)
	assert.Same(t, renderErr, err)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestExtract_APIErrorIsExtractionError(t *testing.T) {
	var hits int32
	server := newTestServer(t, http.StatusUnauthorized,
		`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, nil, &hits)

	_, err := newTestClient(t, server.URL, &fakeRenderer{pages: twoPages()}).
		Extract(context.Background(), "catalogo.pdf", "extract")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
	assert.Contains(t, err.Error(), "status 401")

	var apiErr *openai.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	// no retries
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestExtract_InvalidJSONIsExtractionError(t *testing.T) {
	server := newTestServer(t, http.StatusOK, completionBody("Here are the records you asked for."), nil, nil)

	_, err := newTestClient(t, server.URL, &fakeRenderer{pages: twoPages()}).
		Extract(context.Background(), "catalogo.pdf", "extract")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
}

func TestExtract_NoChoices(t *testing.T) {
	body := `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`
	server := newTestServer(t, http.StatusOK, body, nil, nil)

	_, err := newTestClient(t, server.URL, &fakeRenderer{pages: twoPages()}).
		Extract(context.Background(), "catalogo.pdf", "extract")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
}
