package llm

import (
	"context"
	"fmt"
	"strings"
)

// FallbackClient 没有可用模型时的启发式实现，保证日报照常产出
type FallbackClient struct{}

func (FallbackClient) ClassifyPerspective(ctx context.Context, title, content string) (string, error) {
	return "", nil
}

func (FallbackClient) SummarizeItem(ctx context.Context, title, content, sourceName, url string) ([]string, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		text = title
	}
	return []string{
		fmt.Sprintf("该信息由%s发布，主题与 AI 发展相关。", sourceName),
		"核心内容：" + truncateRunes(text, 120),
		"可通过原文进一步确认发布时间与细节：" + url,
	}, nil
}

func (FallbackClient) ComposeIntro(ctx context.Context, titles []string) (string, error) {
	top := titles
	if len(top) > 3 {
		top = top[:3]
	}
	return "今日 AI 资讯覆盖产品、技术与行业动态。重点包括：" + strings.Join(top, "；") + "。", nil
}

func (FallbackClient) ComposeObservations(ctx context.Context, snippets []string) ([]string, error) {
	return []string{
		"模型发布与应用落地并行推进，产品化节奏持续加快。",
		"国内外厂商在成本、推理效率和场景深度上竞争明显。",
	}, nil
}
