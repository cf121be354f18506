package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzlab/deal_go_server/config"
)

func TestMockMode(t *testing.T) {
	assert.True(t, NewClient(config.LLMConfig{}).MockMode())
	assert.True(t, NewClient(config.LLMConfig{APIKey: "sk-test", MockMode: true}).MockMode())
	assert.False(t, NewClient(config.LLMConfig{APIKey: "sk-test"}).MockMode())
}

func TestGenerateJSONMockParsePrompt(t *testing.T) {
	client := NewClient(config.LLMConfig{})

	result, usage, err := client.GenerateJSON(context.Background(), BuildParsePrompt("some contract text"), "")
	require.NoError(t, err)
	assert.Equal(t, "mock", usage.Model)

	assert.Equal(t, "FAR_BAR_ASIS", result["contract_type"])
	fields, ok := result["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(350000), fields["purchase_price"])
}

func TestGenerateJSONMockAnalyzePrompt(t *testing.T) {
	client := NewClient(config.LLMConfig{})

	prompt := BuildAnalyzePrompt("FAR_BAR_ASIS", nil, nil, "Lower the price to 340k")
	result, _, err := client.GenerateJSON(context.Background(), prompt, "")
	require.NoError(t, err)

	assert.Equal(t, "counter", result["recommendation"])
	changes, ok := result["changes"].([]interface{})
	require.True(t, ok)
	require.Len(t, changes, 1)
	change := changes[0].(map[string]interface{})
	assert.Equal(t, "purchase_price", change["field"])
	assert.Equal(t, "340000", change["to"])
}

func TestGenerateJSONMockTimelinePrompt(t *testing.T) {
	client := NewClient(config.LLMConfig{})

	result, _, err := client.GenerateJSON(context.Background(), BuildTimelinePrompt("contract"), "")
	require.NoError(t, err)

	timeline, ok := result["timeline"].([]interface{})
	require.True(t, ok)
	assert.Len(t, timeline, 5)
}

func TestGenerateJSONMockOfferLetterPrompt(t *testing.T) {
	client := NewClient(config.LLMConfig{})

	prompt := BuildOfferLetterPrompt(nil, nil, "warm")
	result, _, err := client.GenerateJSON(context.Background(), prompt, "")
	require.NoError(t, err)

	assert.Contains(t, result, "letter_text")
	assert.Contains(t, result, "headline_terms")
}

func TestGenerateJSONMockDeterministic(t *testing.T) {
	client := NewClient(config.LLMConfig{})
	prompt := BuildParsePrompt("text")

	first, _, err := client.GenerateJSON(context.Background(), prompt, "")
	require.NoError(t, err)
	second, _, err := client.GenerateJSON(context.Background(), prompt, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateTextMock(t *testing.T) {
	client := NewClient(config.LLMConfig{})

	initial, usage, err := client.GenerateText(context.Background(), BuildInitialContractPrompt("far_bar_asis", nil), "")
	require.NoError(t, err)
	assert.Equal(t, "mock", usage.Model)
	assert.Contains(t, initial, "FAR/BAR AS-IS")

	regen, _, err := client.GenerateText(context.Background(), BuildGenerateVersionPrompt(nil, nil, "text"), "")
	require.NoError(t, err)
	assert.Contains(t, regen, "$340,000.00")
}

func apiResponse(text string) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": text}},
		"usage":   map[string]int{"input_tokens": 10, "output_tokens": 20},
	})
	return string(payload)
}

func TestGenerateJSONRetriesOnInvalidJSON(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))

		if n < 3 {
			fmt.Fprint(w, apiResponse("not json at all"))
			return
		}

		// 重试时提示词必须带上上一次的解析错误
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		messages := req["messages"].([]interface{})
		content := messages[0].(map[string]interface{})["content"].(string)
		assert.Contains(t, content, "was not valid JSON")

		fmt.Fprint(w, apiResponse(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: server.URL})
	result, usage, err := client.GenerateJSON(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, true, result["ok"])
	assert.Equal(t, 10, usage.InputTokens)
	assert.Equal(t, 20, usage.OutputTokens)
}

func TestGenerateJSONRetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, apiResponse("still not json"))
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: server.URL})
	_, _, err := client.GenerateJSON(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerateJSONStripsCodeFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, apiResponse("```json\n{\"fenced\": true}\n```"))
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: server.URL})
	result, _, err := client.GenerateJSON(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, true, result["fenced"])
}

func TestGenerateJSONAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"type": "rate_limit_error", "message": "slow down"}}`)
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: server.URL})
	_, _, err := client.GenerateJSON(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_error")
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, stripCodeFences(`{"a": 1}`))
	assert.Equal(t, `{"a": 1}`, stripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripCodeFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripCodeFences("```json\n{\"a\": 1}"))
}

func TestPromptMarkers(t *testing.T) {
	// mock 路由依赖这些标记，模板改动时必须同步 mockJSONFor
	assert.Contains(t, BuildParsePrompt("x"), "FIELDS TO EXTRACT")
	assert.Contains(t, strings.ToLower(BuildTimelinePrompt("x")), "chronologically")
	assert.Contains(t, BuildOfferLetterPrompt(nil, nil, ""), "OFFER LETTER")
	assert.Contains(t, BuildInitialContractPrompt("slug", nil), "TEMPLATE TYPE")
	assert.NotContains(t, BuildGenerateVersionPrompt(nil, nil, "x"), "TEMPLATE TYPE")
}
