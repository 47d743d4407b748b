// Package llm 封装对 OpenAI 兼容接口（火山方舟 / OpenAI）的摘要调用。
// 下游只依赖 Client 接口，没有可用 key 时退回启发式的 Fallback。
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Client 日报生成需要的全部模型能力
type Client interface {
	// ClassifyPerspective 返回 product / technology / industry 之一的原始文本
	ClassifyPerspective(ctx context.Context, title, content string) (string, error)

	// SummarizeItem 把单条资讯压成 2-4 条要点
	SummarizeItem(ctx context.Context, title, content, sourceName, url string) ([]string, error)

	// ComposeIntro 基于标题列表写日报导语
	ComposeIntro(ctx context.Context, titles []string) (string, error)

	// ComposeObservations 跨条观察，1-2 条
	ComposeObservations(ctx context.Context, snippets []string) ([]string, error)
}

// 模型被要求返回的 JSON 形状
type pointsPayload struct {
	Points []string `json:"points"`
}

type observationsPayload struct {
	Observations []string `json:"observations"`
}

// stripCodeFences 模型偶尔把 JSON 包在 ```json 围栏里，剥掉再解析
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx != -1 {
		trimmed = strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}

func parsePoints(raw string) []string {
	var payload pointsPayload
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		return nil
	}
	return cleanLines(payload.Points)
}

func parseObservations(raw string) []string {
	var payload observationsPayload
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		return nil
	}
	return cleanLines(payload.Observations)
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
