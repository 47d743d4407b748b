// Package digest 把当日入选条目组装成日报：逐条要点 + 导语 + 跨条观察。
// 模型调用全部带启发式兜底，单条失败不影响整份日报。
package digest

import (
	"context"
	"fmt"
	"log"
	"time"

	"aibrief/internal/classifier"
	"aibrief/internal/llm"
	"aibrief/internal/ranker"
)

// BriefItem 日报中的一条
type BriefItem struct {
	Perspective classifier.Perspective `json:"perspective"`
	Title       string                 `json:"title"`
	KeyPoints   []string               `json:"key_points"`
	SourceName  string                 `json:"source_name"`
	URL         string                 `json:"url"`
	Score       float64                `json:"score"`
}

// DailyBrief 一天的完整日报
type DailyBrief struct {
	Date         string      `json:"date"` // YYYY-MM-DD，按配置时区
	Title        string      `json:"title"`
	Intro        string      `json:"intro"`
	Items        []BriefItem `json:"items"`
	Observations []string    `json:"observations"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Build 基于入选条目生成日报。client 出错时逐级退回 FallbackClient。
func Build(ctx context.Context, selected []ranker.Item, client llm.Client, runTime time.Time, loc *time.Location) DailyBrief {
	fallback := llm.FallbackClient{}

	items := make([]BriefItem, 0, len(selected))
	for _, it := range selected {
		points, err := client.SummarizeItem(ctx, it.Title, it.Summary, it.SourceName, it.URL)
		if err != nil {
			log.Printf("digest: summarize %q failed: %v", it.Title, err)
			points, _ = fallback.SummarizeItem(ctx, it.Title, it.Summary, it.SourceName, it.URL)
		}
		if len(points) > 4 {
			points = points[:4]
		}
		if len(points) < 2 {
			points = append(points, "建议阅读原文了解完整信息。")
		}

		items = append(items, BriefItem{
			Perspective: it.Perspective,
			Title:       it.Title,
			KeyPoints:   points,
			SourceName:  it.SourceName,
			URL:         it.URL,
			Score:       it.Score,
		})
	}

	titles := make([]string, 0, len(items))
	snippets := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
		snippets = append(snippets, it.Title+" "+joinPoints(it.KeyPoints))
	}

	intro, err := client.ComposeIntro(ctx, titles)
	if err != nil {
		log.Printf("digest: compose intro failed: %v", err)
		intro, _ = fallback.ComposeIntro(ctx, titles)
	}

	observations, err := client.ComposeObservations(ctx, snippets)
	if err != nil {
		log.Printf("digest: compose observations failed: %v", err)
		observations, _ = fallback.ComposeObservations(ctx, snippets)
	}
	if len(observations) > 2 {
		observations = observations[:2]
	}

	localDate := runTime.In(loc).Format("2006-01-02")
	return DailyBrief{
		Date:         localDate,
		Title:        "AI 每日情报 | " + localDate,
		Intro:        intro,
		Items:        items,
		Observations: observations,
		CreatedAt:    runTime.UTC(),
	}
}

func joinPoints(points []string) string {
	out := ""
	for i, p := range points {
		if i > 0 {
			out += "; "
		}
		out += p
	}
	return out
}

// RenderMarkdown 渲染推送和归档共用的 markdown 正文
func RenderMarkdown(brief DailyBrief) string {
	lines := []string{
		"# " + brief.Title,
		"",
		"**导语**：" + brief.Intro,
		"",
	}

	for i, item := range brief.Items {
		lines = append(lines,
			fmt.Sprintf("## %d、【%s】%s", i+1, item.Perspective.Label(), item.Title),
			"- 来源："+item.SourceName,
			"- 原文链接："+item.URL,
			"- 关键信息：",
		)
		for _, point := range item.KeyPoints {
			lines = append(lines, "  - "+point)
		}
		lines = append(lines, "")
	}

	lines = append(lines, "## 跨条观察")
	for _, obs := range brief.Observations {
		lines = append(lines, "- "+obs)
	}

	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

// TruncateForChannel 各推送渠道的长度上限不同，超长时截断并标注
func TruncateForChannel(markdown string, maxRunes int) string {
	rs := []rune(markdown)
	if len(rs) <= maxRunes {
		return markdown
	}
	return string(rs[:maxRunes-20]) + "\n\n(内容过长，已截断)"
}
