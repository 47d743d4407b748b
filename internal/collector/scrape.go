package collector

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// 默认的文章链接选择器：覆盖大多数资讯站的列表页结构
const defaultArticleSelector = "article a, h2 a, h3 a, li a"

// 少于这个字数的锚点文本基本是导航/按钮，不是文章标题
const minTitleChars = 8

// 导航类噪声词，命中即丢弃
var noiseTitleWords = []string{
	"登录", "注册", "关于", "联系我们", "订阅", "隐私", "条款", "下载",
	"交流群", "公众号", "learn more", "more",
}

// fetchPage 抓取一个网页并按选择器抽取文章锚点。
// 页面没有命中任何锚点返回空序列，不算错误。
func fetchPage(spec SourceSpec, opts Options) ([]RawEntry, error) {
	var linkPattern *regexp.Regexp
	if spec.LinkPattern != "" {
		compiled, err := regexp.Compile(spec.LinkPattern)
		if err != nil {
			return nil, &ParseError{Source: spec.Name, Err: err}
		}
		linkPattern = compiled
	}

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(opts.Timeout)
	if proxy := proxyFor(spec, opts); proxy != "" {
		if err := c.SetProxy(proxy); err != nil {
			return nil, &ProxyUnavailableError{Source: spec.Name}
		}
	}

	selector := spec.ArticleSelector
	if selector == "" {
		selector = defaultArticleSelector
	}

	entries := make([]RawEntry, 0, 32)
	seen := make(map[string]struct{})

	c.OnHTML(selector, func(e *colly.HTMLElement) {
		if len(entries) >= maxEntriesPerFetch {
			return
		}
		text := strings.TrimSpace(e.Text)
		href := e.Attr("href")
		if text == "" || href == "" {
			return
		}
		if isNoiseTitle(text) {
			return
		}
		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		absolute := e.Request.AbsoluteURL(href)
		if absolute == "" {
			absolute = href
		}
		if linkPattern != nil && !linkPattern.MatchString(absolute) {
			return
		}
		if _, ok := seen[absolute]; ok {
			return
		}
		seen[absolute] = struct{}{}

		dateText, context := nearbyDateAndContext(e.DOM, text, spec.DateSelector)
		entries = append(entries, PageEntry{
			Text:     text,
			Href:     absolute,
			DateText: dateText,
			Context:  context,
		})
	})

	if err := c.Visit(spec.Endpoint); err != nil {
		return nil, &FetchError{Source: spec.Name, Err: err}
	}
	return entries, nil
}

func isNoiseTitle(text string) bool {
	if len([]rune(text)) < minTitleChars {
		return true
	}
	lowered := strings.ToLower(text)
	for _, noise := range noiseTitleWords {
		if strings.Contains(lowered, noise) {
			return true
		}
	}
	return strings.HasSuffix(lowered, "app")
}

// nearbyDateAndContext 沿父节点向上找发布时间文案，同时带回容器文本做摘要兜底。
// 配置了 dateSelector 时优先在容器内按选择器取；最多向上爬 5 层，
// 再往上就是整页内容了。
func nearbyDateAndContext(sel *goquery.Selection, title, dateSelector string) (string, string) {
	node := sel
	context := ""
	for i := 0; i < 5; i++ {
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
		if dateSelector != "" {
			if picked := collapseSpaces(node.Find(dateSelector).First().Text()); picked != "" {
				return picked, collapseSpaces(node.Text())
			}
		}
		text := collapseSpaces(node.Text())
		if text == "" || text == title {
			continue
		}
		if context == "" {
			context = text
		}
		if snippet := extractDateSnippet(text); snippet != "" {
			return snippet, context
		}
	}
	return "", context
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
