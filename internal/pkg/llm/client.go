// Package llm 封装对 Anthropic Messages API 的调用。
// 未配置 API Key 或开启 mock 模式时返回确定性样例数据，
// 保证整个流程在没有真实 Key 的环境里也能端到端跑通。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/wzlab/deal_go_server/config"
)

const (
	// DefaultModel 默认模型
	DefaultModel = "claude-sonnet-4-20250514"
	// DefaultBaseURL Anthropic API 地址
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion = "2023-06-01"

	// maxRetriesJSON JSON 解析失败后的重试次数
	maxRetriesJSON = 2
)

// ErrGenerationFailed 重试耗尽后 LLM 仍未返回合法 JSON
var ErrGenerationFailed = errors.New("llm generation failed")

// Usage 单次调用的 token 用量
type Usage struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
}

// Client Anthropic API 客户端
type Client struct {
	cfg        config.LLMConfig
	httpClient *http.Client
}

// NewClient 创建 LLM 客户端
func NewClient(cfg config.LLMConfig) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// MockMode 判断是否 mock 模式：显式开启或缺少 API Key
func (c *Client) MockMode() bool {
	return c.cfg.MockMode || c.cfg.APIKey == ""
}

// GenerateJSON 调用 LLM 并解析严格 JSON 响应。解析失败时把错误
// 附加到提示词里重试，重试耗尽返回 ErrGenerationFailed
func (c *Client) GenerateJSON(ctx context.Context, prompt, schemaHint string) (map[string]interface{}, *Usage, error) {
	if c.MockMode() {
		log.Printf("LLM mock mode active, returning sample JSON")
		return mockJSONFor(prompt), &Usage{Model: "mock"}, nil
	}

	system := "You are an AI assistant for real estate contract analysis. " +
		"You MUST return ONLY valid JSON. No markdown, no code fences, no explanation outside JSON. " +
		"Do not guess missing information, use the 'questions' array instead. " + schemaHint

	var lastErr error
	for attempt := 0; attempt <= maxRetriesJSON; attempt++ {
		userMsg := prompt
		if attempt > 0 && lastErr != nil {
			userMsg = fmt.Sprintf(
				"%s\n\nIMPORTANT: Your previous response was not valid JSON. Error: %s\nPlease return ONLY valid JSON with no other text.",
				prompt, lastErr.Error())
		}

		text, usage, err := c.callMessages(ctx, system, userMsg)
		if err != nil {
			return nil, nil, err
		}

		text = stripCodeFences(text)
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			lastErr = err
			log.Printf("LLM returned invalid JSON (attempt %d): %v", attempt+1, err)
			continue
		}
		return parsed, usage, nil
	}

	return nil, nil, fmt.Errorf("%w: invalid JSON after %d attempts: %v", ErrGenerationFailed, maxRetriesJSON+1, lastErr)
}

// GenerateText 调用 LLM 生成自由文本
func (c *Client) GenerateText(ctx context.Context, prompt, system string) (string, *Usage, error) {
	if c.MockMode() {
		log.Printf("LLM mock mode active, returning sample text")
		return mockTextFor(prompt), &Usage{Model: "mock"}, nil
	}

	if system == "" {
		system = "You are an AI assistant for real estate contract drafting. Follow instructions precisely."
	}
	return c.callMessages(ctx, system, prompt)
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) callMessages(ctx context.Context, system, userMsg string) (string, *Usage, error) {
	reqBody := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: userMsg}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to call llm api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result messagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", nil, fmt.Errorf("llm api error: %s: %s", result.Error.Type, result.Error.Message)
		}
		return "", nil, fmt.Errorf("llm api error: status %d", resp.StatusCode)
	}
	if len(result.Content) == 0 {
		return "", nil, fmt.Errorf("llm api returned empty content")
	}

	usage := &Usage{
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		Model:        c.cfg.Model,
	}
	return strings.TrimSpace(result.Content[0].Text), usage, nil
}

// stripCodeFences 去掉模型偶尔包上的 markdown 代码围栏
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
