package collector

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// 相对时间：N小时前、N分钟前、N天前、刚刚、昨天
var relativePatterns = []struct {
	re   *regexp.Regexp
	unit time.Duration
}{
	{regexp.MustCompile(`(\d+)\s*分钟前`), time.Minute},
	{regexp.MustCompile(`(\d+)\s*小时前`), time.Hour},
	{regexp.MustCompile(`(\d+)\s*天前`), 24 * time.Hour},
}

var (
	justNowPattern   = regexp.MustCompile(`刚刚|今天`)
	yesterdayPattern = regexp.MustCompile(`昨天`)
)

// 能从长文本里切出来的日期片段
var dateSnippetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`),
	regexp.MustCompile(`\d{4}[年/\-.]\d{1,2}[月/\-.]\d{1,2}(?:日|号)?(?:\s+\d{1,2}[:：]\d{1,2})?`),
	regexp.MustCompile(`\d{1,2}月\d{1,2}日(?:\s+\d{1,2}[:：]\d{1,2})?`),
	regexp.MustCompile(`(?i)(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},\s+\d{4}(?:\s+\d{1,2}:\d{2})?`),
	regexp.MustCompile(`\d+\s*(?:分钟|小时|天)前|刚刚|昨天`),
}

var (
	chineseYMDPattern = regexp.MustCompile(`(\d{4})\s*[年/\-.]\s*(\d{1,2})\s*[月/\-.]\s*(\d{1,2})\s*(?:日|号)?(?:\s*(\d{1,2})[:：点时](\d{1,2}))?`)
	chineseMDPattern  = regexp.MustCompile(`(\d{1,2})\s*月\s*(\d{1,2})\s*日(?:\s*(\d{1,2})[:：点时](\d{1,2}))?`)
	unixSecondsDigits = regexp.MustCompile(`^(?:\d{10}|\d{13})$`)
)

// extractDateSnippet 从一段文本里切出最像日期的片段，切不出来返回空串
func extractDateSnippet(text string) string {
	for _, pattern := range dateSnippetPatterns {
		if m := pattern.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// parseWhen 尽力把时间文本解析成 UTC 时刻；解析不出来返回零值而不是报错。
// 支持相对时间、中文年月日、unix 时间戳，其余交给 dateparse。
func parseWhen(text string, ref time.Time) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}
	}

	// 相对时间只在短文本上匹配，长文本里"刚刚"多半是标题的一部分
	if len([]rune(text)) <= 80 {
		if t := parseRelative(text, ref); !t.IsZero() {
			return t
		}
	}

	snippet := text
	if len([]rune(text)) > 40 {
		snippet = extractDateSnippet(text)
		if snippet == "" {
			return time.Time{}
		}
	}

	if t := parseUnixTimestamp(snippet); !t.IsZero() {
		return t
	}
	// ISO 时间先走标准解析，否则会被中文年月日的宽松分隔符吃掉时分
	if t, err := time.Parse(time.RFC3339, snippet); err == nil {
		return t.UTC()
	}
	if t := parseChineseDate(snippet, ref); !t.IsZero() {
		return t
	}
	if t, err := dateparse.ParseAny(snippet); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func parseRelative(text string, ref time.Time) time.Time {
	for _, p := range relativePatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return ref.Add(-time.Duration(n) * p.unit).UTC()
		}
	}
	if yesterdayPattern.MatchString(text) {
		return ref.Add(-24 * time.Hour).UTC()
	}
	if justNowPattern.MatchString(text) {
		return ref.UTC()
	}
	return time.Time{}
}

func parseUnixTimestamp(text string) time.Time {
	if !unixSecondsDigits.MatchString(text) {
		return time.Time{}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return time.Time{}
	}
	if len(text) == 13 {
		n /= 1000
	}
	return time.Unix(n, 0).UTC()
}

func parseChineseDate(text string, ref time.Time) time.Time {
	if m := chineseYMDPattern.FindStringSubmatch(text); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]))
	}
	if m := chineseMDPattern.FindStringSubmatch(text); m != nil {
		t := buildDate(ref.Year(), atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]))
		// 月日式日期跨年时会落到"未来"，往前挪一年
		if !t.IsZero() && t.Sub(ref) > 48*time.Hour {
			t = t.AddDate(-1, 0, 0)
		}
		return t
	}
	return time.Time{}
}

func buildDate(year, month, day, hour, minute int) time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
