package collector

import (
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// 摘要长度上限（按 rune 截断），控制后续喂给模型的 prompt 体积
const maxSummaryRunes = 500

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// normalizeEntries 把一个源的原始条目映射到统一的 Item 结构。
// 标题为空、URL 不合法、关键词不命中的条目直接跳过（记日志，不报错）。
func normalizeEntries(entries []RawEntry, spec SourceSpec, now time.Time) []Item {
	base, _ := url.Parse(spec.Endpoint)
	items := make([]Item, 0, len(entries))

	for _, entry := range entries {
		var title, link, summary, dateText string
		var parsed time.Time

		switch e := entry.(type) {
		case FeedEntry:
			title = cleanText(e.Title)
			link = resolveURL(base, e.Link)
			summary = cleanText(e.Description)
			if e.PublishedAt != nil {
				parsed = e.PublishedAt.UTC()
			} else {
				dateText = e.Published
			}
		case PageEntry:
			title = cleanText(e.Text)
			link = resolveURL(base, e.Href)
			summary = cleanText(e.Context)
			dateText = e.DateText
		default:
			continue
		}

		if title == "" {
			log.Printf("normalize %s: skip entry without title", spec.Name)
			continue
		}
		if link == "" {
			log.Printf("normalize %s: skip entry with bad url: %s", spec.Name, title)
			continue
		}
		if !matchesKeywords(spec.RequiredKeywordsAny, title, summary) {
			log.Printf("normalize %s: skip entry not matching keywords: %s", spec.Name, title)
			continue
		}

		if parsed.IsZero() && dateText != "" {
			parsed = parseWhen(dateText, now)
		}

		items = append(items, Item{
			Title:       title,
			URL:         link,
			SourceName:  spec.Name,
			PublishedAt: parsed,
			Summary:     truncateRunes(summary, maxSummaryRunes),
			Weight:      spec.Weight,
			Tags:        spec.Tags,
		})
	}
	return items
}

// cleanText 去掉 HTML 标签并折叠空白
func cleanText(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

// resolveURL 把相对链接解析为绝对链接，解析失败或非 http(s) 返回空串
func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	if ref.Host == "" {
		return ""
	}
	return ref.String()
}

func matchesKeywords(required []string, parts ...string) bool {
	keywords := make([]string, 0, len(required))
	for _, kw := range required {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, strings.ToLower(kw))
		}
	}
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(strings.Join(parts, " "))
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// truncateRunes 按 rune 截断，避免把多字节字符切半
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
