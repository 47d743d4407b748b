// Package feishu 飞书开放平台客户端：tenant_access_token 管理与消息发送，
// 以及事件回调（URL 校验 + 文本指令）的处理。
package feishu

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
	"sync"
	"time"
)

// 飞书文本消息长度上限（按经验值留余量）
const MaxMessageRunes = 6000

// Client 飞书应用机器人
type Client struct {
	AppID      string
	AppSecret  string
	BaseURL    string // 默认 https://open.feishu.cn
	HTTPClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(appID, appSecret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://open.feishu.cn"
	}
	return &Client{
		AppID:      appID,
		AppSecret:  appSecret,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled 是否配置了可用的应用凭证
func (c *Client) Enabled() bool {
	return c != nil && c.AppID != "" && c.AppSecret != ""
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// tenantToken 获取并缓存 tenant_access_token，提前 5 分钟刷新
func (c *Client) tenantToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"app_id":     c.AppID,
		"app_secret": c.AppSecret,
	})
	endpoint := c.BaseURL + "/open-apis/auth/v3/tenant_access_token/internal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request tenant token: %w", err)
	}
	defer resp.Body.Close()

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.Code != 0 {
		return "", fmt.Errorf("feishu token code %d: %s", parsed.Code, parsed.Msg)
	}

	c.token = parsed.TenantAccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(parsed.Expire-300) * time.Second)
	return c.token, nil
}

type sendResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// SendText 给单个目标发文本消息。receiveIDType: chat_id / open_id / user_id
func (c *Client) SendText(ctx context.Context, receiveID, receiveIDType, text string) error {
	token, err := c.tenantToken(ctx)
	if err != nil {
		return err
	}

	text = truncateRunes(text, MaxMessageRunes)
	content, _ := json.Marshal(map[string]string{"text": text})
	payload, _ := json.Marshal(map[string]string{
		"receive_id": receiveID,
		"msg_type":   "text",
		"content":    string(content),
	})

	endpoint := fmt.Sprintf("%s/open-apis/im/v1/messages?receive_id_type=%s", c.BaseURL, receiveIDType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("feishu status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode send response: %w", err)
	}
	if parsed.Code != 0 {
		return fmt.Errorf("feishu send code %d: %s", parsed.Code, parsed.Msg)
	}
	return nil
}

// Broadcast 给所有配置的目标发消息，单个目标失败不影响其余
func (c *Client) Broadcast(ctx context.Context, targets []string, receiveIDType, text string) error {
	var failed []string
	for _, target := range targets {
		if err := c.SendText(ctx, target, receiveIDType, text); err != nil {
			log.Printf("feishu: send to %s failed: %v", target, err)
			failed = append(failed, target)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("feishu broadcast failed for %d/%d targets", len(failed), len(targets))
	}
	return nil
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit-20]) + "\n\n(内容过长，已截断)"
}

// --- 事件回调 ---

// Event 回调请求体，兼容 URL 校验与 v2 事件格式
type Event struct {
	Challenge string `json:"challenge"`
	Type      string `json:"type"`
	Token     string `json:"token"`

	Header struct {
		EventType string `json:"event_type"`
		Token     string `json:"token"`
	} `json:"header"`

	Event struct {
		Message struct {
			MessageID string `json:"message_id"`
			ChatID    string `json:"chat_id"`
			MsgType   string `json:"message_type"`
			Content   string `json:"content"`
		} `json:"message"`
	} `json:"event"`
}

// Reply 事件处理结果
type Reply struct {
	// URL 校验时原样返回 challenge
	Challenge string `json:"challenge,omitempty"`
}

// CommandHandler 文本指令的业务回调
type CommandHandler interface {
	// HandleDigestCommand 收到“日报”指令：回发最新日报
	HandleDigestCommand(ctx context.Context, chatID string) error
	// HandleRunCommand 收到“运行”指令：触发一次流水线
	HandleRunCommand(ctx context.Context, chatID string) error
}

var ErrBadToken = errors.New("feishu event token mismatch")

// HandleEvent 处理一次事件回调。verificationToken 为空时跳过校验。
func HandleEvent(ctx context.Context, evt Event, verificationToken string, handler CommandHandler) (Reply, error) {
	// URL 校验握手
	if evt.Type == "url_verification" {
		return Reply{Challenge: evt.Challenge}, nil
	}

	if verificationToken != "" {
		token := evt.Header.Token
		if token == "" {
			token = evt.Token
		}
		if token != verificationToken {
			return Reply{}, ErrBadToken
		}
	}

	if evt.Header.EventType != "im.message.receive_v1" {
		return Reply{}, nil
	}
	msg := evt.Event.Message
	if msg.MsgType != "text" || handler == nil {
		return Reply{}, nil
	}

	var content struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
		return Reply{}, nil
	}

	// @机器人 的 mention 占位符形如 @_user_1，去掉后再匹配指令
	text := strings.TrimSpace(content.Text)
	for strings.Contains(text, "@_user_") {
		if idx := strings.Index(text, "@_user_"); idx != -1 {
			end := idx + len("@_user_")
			for end < len(text) && text[end] >= '0' && text[end] <= '9' {
				end++
			}
			text = strings.TrimSpace(text[:idx] + text[end:])
		}
	}

	switch {
	case strings.Contains(text, "日报"):
		if err := handler.HandleDigestCommand(ctx, msg.ChatID); err != nil {
			log.Printf("feishu: digest command failed: %v", err)
		}
	case strings.Contains(text, "运行"):
		if err := handler.HandleRunCommand(ctx, msg.ChatID); err != nil {
			log.Printf("feishu: run command failed: %v", err)
		}
	}
	return Reply{}, nil
}
