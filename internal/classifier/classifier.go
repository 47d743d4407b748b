// Package classifier 按"产品/技术/行业"三个视角给条目打标签。
// 先走规则词表，再看源 tags，最后才落到 LLM（可选）和兜底值。
package classifier

import (
	"context"
	"strings"

	"aibrief/internal/collector"
)

// Perspective 条目视角
type Perspective string

const (
	Product    Perspective = "product"
	Technology Perspective = "technology"
	Industry   Perspective = "industry"
)

// Label 打中文标签，用于日报渲染
func (p Perspective) Label() string {
	switch p {
	case Product:
		return "产品视角"
	case Technology:
		return "技术视角"
	case Industry:
		return "行业视角"
	}
	return "综合视角"
}

// Item 分类后的条目
type Item struct {
	collector.Item
	Perspective Perspective
	// rule / llm / fallback
	ClassifiedBy string
}

// PerspectiveClassifier LLM 兜底分类接口，由 llm 包实现
type PerspectiveClassifier interface {
	ClassifyPerspective(ctx context.Context, title, content string) (string, error)
}

var ruleKeywords = map[Perspective][]string{
	Product:    {"发布", "上线", "产品", "应用", "agent", "app", "launch", "release"},
	Technology: {"论文", "算法", "架构", "benchmark", "推理", "训练", "模型", "research"},
	Industry:   {"融资", "估值", "政策", "合作", "并购", "市场", "生态", "监管"},
}

// Classify 对一批条目做视角分类。llm 可以为 nil，useLLM 为 false 时也不会调用。
func Classify(ctx context.Context, items []collector.Item, llm PerspectiveClassifier, useLLM bool) []Item {
	classified := make([]Item, 0, len(items))
	for _, it := range items {
		p, by := classifyOne(ctx, it, llm, useLLM)
		classified = append(classified, Item{Item: it, Perspective: p, ClassifiedBy: by})
	}
	return classified
}

func classifyOne(ctx context.Context, it collector.Item, llm PerspectiveClassifier, useLLM bool) (Perspective, string) {
	text := strings.ToLower(it.Title + " " + it.Summary)

	if p, ok := ruleClassify(text); ok {
		return p, "rule"
	}
	if p, ok := tagClassify(it.Tags); ok {
		return p, "rule"
	}
	if useLLM && llm != nil {
		if raw, err := llm.ClassifyPerspective(ctx, it.Title, it.Summary); err == nil {
			if p, ok := parsePerspective(raw); ok {
				return p, "llm"
			}
		}
	}
	return Industry, "fallback"
}

// ruleClassify 词表计数，得分最高且无并列才算命中
func ruleClassify(text string) (Perspective, bool) {
	var best Perspective
	bestScore, secondScore := 0, 0

	for p, keywords := range ruleKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			secondScore = bestScore
			best, bestScore = p, score
		} else if score > secondScore {
			secondScore = score
		}
	}

	if bestScore == 0 || bestScore == secondScore {
		return "", false
	}
	return best, true
}

func tagClassify(tags []string) (Perspective, bool) {
	lowered := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		lowered[strings.ToLower(t)] = struct{}{}
	}
	if hasAny(lowered, "product", "application", "app") {
		return Product, true
	}
	if hasAny(lowered, "technology", "research", "model") {
		return Technology, true
	}
	if hasAny(lowered, "industry", "policy", "market") {
		return Industry, true
	}
	return "", false
}

func parsePerspective(raw string) (Perspective, bool) {
	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "product"):
		return Product, true
	case strings.Contains(lowered, "technology"):
		return Technology, true
	case strings.Contains(lowered, "industry"):
		return Industry, true
	}
	return "", false
}

func hasAny(set map[string]struct{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}
