// Package publisher 负责把日报推送到企业微信群机器人。
package publisher

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

// 企业微信 markdown 消息上限 4096 字节，留出余量
const wecomMaxRunes = 3800

// 三次重试的等待梯度
var retryDelays = []time.Duration{30 * time.Second, 90 * time.Second, 180 * time.Second}

// WeComPublisher 企业微信群机器人 webhook 推送
type WeComPublisher struct {
	WebhookURL string
	HTTPClient *http.Client

	// 测试里替换成不真正等待的实现
	Sleep func(time.Duration)
}

func NewWeComPublisher(webhookURL string) *WeComPublisher {
	return &WeComPublisher{
		WebhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Sleep:      time.Sleep,
	}
}

type wecomMessage struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Content string `json:"content"`
	} `json:"markdown"`
}

type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Push 推送 markdown 正文，失败按梯度重试
func (p *WeComPublisher) Push(ctx context.Context, markdown string) error {
	if p.WebhookURL == "" {
		return errors.New("wecom webhook url is empty")
	}

	content := truncateRunes(markdown, wecomMaxRunes)
	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			delay := retryDelays[attempt-1]
			log.Printf("publisher: push attempt %d failed, retry in %s: %v", attempt, delay, lastErr)
			p.Sleep(delay)
		}
		if err := p.send(ctx, content); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("push wecom after %d attempts: %w", len(retryDelays)+1, lastErr)
}

func (p *WeComPublisher) send(ctx context.Context, content string) error {
	msg := wecomMessage{MsgType: "markdown"}
	msg.Markdown.Content = content

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request wecom: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("wecom status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed wecomResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode wecom response: %w", err)
	}
	if parsed.ErrCode != 0 {
		return fmt.Errorf("wecom errcode %d: %s", parsed.ErrCode, parsed.ErrMsg)
	}
	return nil
}

// PushAlert 推送失败告警，尽力而为，不重试
func (p *WeComPublisher) PushAlert(ctx context.Context, text string) {
	if p.WebhookURL == "" {
		return
	}
	if err := p.send(ctx, "**日报推送告警**\n"+text); err != nil {
		log.Printf("publisher: push alert failed: %v", err)
	}
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit-20]) + "\n\n(内容过长，已截断)"
}
