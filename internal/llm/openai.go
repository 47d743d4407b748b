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
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient 走 OpenAI 兼容的 chat/completions 接口。
// 把 BaseURL 指向火山方舟即可用 doubao 系列模型。
type OpenAIClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewOpenAIClient 构造客户端，baseURL 为空时用 OpenAI 官方地址
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.APIKey == "" || c.Model == "" {
		return "", errors.New("llm api key and model are required")
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request llm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("llm response missing choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) ClassifyPerspective(ctx context.Context, title, content string) (string, error) {
	prompt := "请只输出一个英文标签：product 或 technology 或 industry。\n标题:" + title +
		"\n内容:" + truncateRunes(content, 1200)
	return c.chat(ctx, "你是AI资讯分类助手。", prompt)
}

func (c *OpenAIClient) SummarizeItem(ctx context.Context, title, content, sourceName, url string) ([]string, error) {
	prompt := fmt.Sprintf(
		"请将以下资讯总结为JSON，格式为{\"points\":[\"...\",\"...\"]}，2-4条，中文，简洁。\n标题:%s\n来源:%s\n链接:%s\n内容:%s",
		title, sourceName, url, truncateRunes(content, 4000))
	raw, err := c.chat(ctx, "你是严谨的科技编辑。", prompt)
	if err != nil {
		return nil, err
	}
	if points := parsePoints(raw); len(points) > 0 {
		if len(points) > 4 {
			points = points[:4]
		}
		return points, nil
	}
	log.Printf("llm: summary JSON parse failed, fallback to raw text")
	return []string{truncateRunes(raw, 120), "建议阅读原文确认关键细节。"}, nil
}

func (c *OpenAIClient) ComposeIntro(ctx context.Context, titles []string) (string, error) {
	if len(titles) > 12 {
		titles = titles[:12]
	}
	prompt := "请基于这些标题写3-5句中文日报导语：\n" + strings.Join(titles, "\n")
	return c.chat(ctx, "你是AI日报主编。", prompt)
}

func (c *OpenAIClient) ComposeObservations(ctx context.Context, snippets []string) ([]string, error) {
	if len(snippets) > 20 {
		snippets = snippets[:20]
	}
	prompt := "请基于以下信息给出1-2条跨来源观察，返回JSON: {\"observations\":[\"...\"]}\n" +
		strings.Join(snippets, "\n")
	raw, err := c.chat(ctx, "你是行业分析师。", prompt)
	if err != nil {
		return nil, err
	}
	if obs := parseObservations(raw); len(obs) > 0 {
		if len(obs) > 2 {
			obs = obs[:2]
		}
		return obs, nil
	}
	log.Printf("llm: observations JSON parse failed")
	return []string{"今日信息显示模型能力迭代与应用落地持续共振。"}, nil
}
