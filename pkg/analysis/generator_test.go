package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"market-insight-be/internal/entity"
	"market-insight-be/pkg/draftstore"
	"market-insight-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIGeneratorPostsDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analysis/strategies", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "d1", req.DataId)
		assert.Equal(t, "Sales", req.DataName)
		assert.Equal(t, defaultDataType, req.DataType)

		_, _ = w.Write([]byte(`{"strategies":[{"name":"Bundle","type":"Upsell","channels":"Email"},"junk",{"name":"Win back","timeline":3}],"warning":"partial data"}`))
	}))
	defer srv.Close()

	ctx := draftstore.WithAuthToken(context.Background(), "tok")
	out, err := NewAPIGenerator(srv.URL+"/").Generate(ctx, entity.DatasetRef{Id: "d1", Name: "Sales"})

	require.NoError(t, err)
	require.Len(t, out.Strategies, 2)
	assert.Equal(t, "Bundle", out.Strategies[0].Name)
	assert.Equal(t, []string{"Email"}, []string(out.Strategies[0].Channels))
	assert.Equal(t, "Win back", out.Strategies[1].Name)
	assert.Empty(t, out.Strategies[1].Timeline)
	assert.Equal(t, "partial data", out.Warning)
}

func TestAPIGeneratorFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusBadGateway, body: `{"message":"upstream"}`},
		{name: "html page", status: http.StatusOK, body: "<!DOCTYPE html><html></html>"},
		{name: "not json", status: http.StatusOK, body: "strategies: none"},
		{name: "empty body", status: http.StatusOK, body: ""},
		{name: "strategies not a list", status: http.StatusOK, body: `{"strategies":{"name":"x"}}`},
		{name: "no strategies field", status: http.StatusOK, body: `{"warning":"nothing"}`},
		{name: "empty list", status: http.StatusOK, body: `{"strategies":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewAPIGenerator(srv.URL).Generate(context.Background(), entity.DatasetRef{Id: "d1"})

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGeneratorUnavailable))
		})
	}
}

func TestAPIGeneratorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewAPIGenerator(url).Generate(context.Background(), entity.DatasetRef{Id: "d1"})

	assert.True(t, errors.Is(err, ErrGeneratorUnavailable))
}

func ollamaServer(t *testing.T, content string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req["format"])
		assert.Equal(t, "llama3", req["model"])
		if opts, ok := req["options"].(map[string]any); assert.True(t, ok) {
			assert.Equal(t, float64(1200), opts["num_predict"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "llama3",
			"done":    true,
			"message": map[string]string{"role": "assistant", "content": content},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLMGeneratorExtractsFencedJSON(t *testing.T) {
	answer := "Here you go:\n```json\n{\"strategies\":[{\"name\":\"Referral loop\",\"type\":\"Launch\"}]}\n```"
	srv := ollamaServer(t, answer)

	gen := NewLLMGenerator(ollama.NewOllamaProvider(srv.URL, "llama3"))
	out, err := gen.Generate(context.Background(), entity.DatasetRef{Id: "d1", Name: "Sales"})

	require.NoError(t, err)
	require.Len(t, out.Strategies, 1)
	assert.Equal(t, "Referral loop", out.Strategies[0].Name)
}

func TestLLMGeneratorRejectsProse(t *testing.T) {
	srv := ollamaServer(t, "I cannot help with that.")

	gen := NewLLMGenerator(ollama.NewOllamaProvider(srv.URL, "llama3"))
	_, err := gen.Generate(context.Background(), entity.DatasetRef{Id: "d1"})

	assert.True(t, errors.Is(err, ErrGeneratorUnavailable))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("noise {\"a\":1} trailing"))
	assert.Equal(t, "no braces", extractJSON("no braces"))
}
