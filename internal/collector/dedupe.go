package collector

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

var titleStripPattern = regexp.MustCompile(`[^\w\x{4e00}-\x{9fff}]`)

// CanonicalURL 生成去重用的规范化 URL：scheme/host 小写、去尾部斜杠、
// 剔除跟踪参数、剩余 query 按 key 排序、丢弃 fragment。
func CanonicalURL(raw string, trackingParams []string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	tracked := make(map[string]struct{}, len(trackingParams))
	for _, k := range trackingParams {
		tracked[k] = struct{}{}
	}

	query := u.Query()
	for k := range query {
		if _, ok := tracked[k]; ok {
			query.Del(k)
		}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = query.Encode() // Encode 自带按 key 排序
	u.Fragment = ""
	return u.String()
}

// normalizeTitle 标题归一化：小写、去空白、只留字母数字和汉字
func normalizeTitle(title string) string {
	lowered := strings.ToLower(title)
	return titleStripPattern.ReplaceAllString(lowered, "")
}

// Dedupe 对条目做跨源去重，保序且首次出现者胜出，不合并字段。
// 主键是规范化 URL；同题异链且发布时间落在 window 内的视为同一篇的转载。
// 对自身输出再跑一遍结果不变。
func Dedupe(items []Item, window time.Duration, trackingParams []string) []Item {
	seenURLs := make(map[string]struct{}, len(items))
	seenTitles := make(map[string][]time.Time)
	out := make([]Item, 0, len(items))

	for _, it := range items {
		canonical := CanonicalURL(it.URL, trackingParams)
		if _, ok := seenURLs[canonical]; ok {
			continue
		}

		title := normalizeTitle(it.Title)
		if isTitleDuplicate(seenTitles[title], it.PublishedAt, window) {
			continue
		}

		seenURLs[canonical] = struct{}{}
		seenTitles[title] = append(seenTitles[title], it.PublishedAt)
		out = append(out, it)
	}
	return out
}

// isTitleDuplicate 同题条目的时间窗判定。任一侧没有发布时间时按重复处理：
// 转载镜像往往不带时间戳，漏掉一次去重比放进两条重复更糟。
func isTitleDuplicate(previous []time.Time, at time.Time, window time.Duration) bool {
	for _, prev := range previous {
		if prev.IsZero() || at.IsZero() {
			return true
		}
		delta := at.Sub(prev)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return true
		}
	}
	return false
}
