package collector

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeFeedEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	published := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	spec := SourceSpec{Name: "测试源", Kind: KindFeed, Endpoint: "https://example.com/rss", ItemCap: 30, Weight: 1.5, Tags: []string{"media"}}

	entries := []RawEntry{
		FeedEntry{Title: "<b>新模型发布</b>", Link: "https://example.com/a", Description: "<p>详细  介绍</p>", PublishedAt: &published},
		FeedEntry{Title: "", Link: "https://example.com/b"},               // 无标题，跳过
		FeedEntry{Title: "坏链接", Link: "ftp://example.com/c"},              // 非 http(s)，跳过
		FeedEntry{Title: "相对链接", Link: "/d", Published: "2026年3月1日 09:00"}, // 相对于 endpoint 解析
	}

	items := normalizeEntries(entries, spec, now)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "新模型发布" {
		t.Errorf("html tags should be stripped, got %q", first.Title)
	}
	if first.Summary != "详细 介绍" {
		t.Errorf("summary = %q", first.Summary)
	}
	if !first.PublishedAt.Equal(published) {
		t.Errorf("parsed timestamp should win, got %v", first.PublishedAt)
	}
	if first.Weight != 1.5 || len(first.Tags) != 1 {
		t.Errorf("weight/tags not carried: %+v", first)
	}

	second := items[1]
	if second.URL != "https://example.com/d" {
		t.Errorf("relative link not resolved: %q", second.URL)
	}
	want := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if !second.PublishedAt.Equal(want) {
		t.Errorf("published text not parsed: %v", second.PublishedAt)
	}
}

func TestNormalizePageEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	spec := SourceSpec{Name: "列表页", Kind: KindScrape, Endpoint: "https://example.com/news", ItemCap: 30, Weight: 1}

	entries := []RawEntry{
		PageEntry{Text: "某厂商发布全新大模型产品", Href: "https://example.com/p/1", DateText: "3小时前", Context: "列表容器文本"},
		PageEntry{Text: "没有时间的文章标题条目", Href: "https://example.com/p/2"},
	}

	items := normalizeEntries(entries, spec, now)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[0].PublishedAt.Equal(now.Add(-3 * time.Hour)) {
		t.Errorf("relative date not parsed: %v", items[0].PublishedAt)
	}
	// 解析不出时间的条目保留，时间为零值
	if !items[1].PublishedAt.IsZero() {
		t.Errorf("missing date should stay zero, got %v", items[1].PublishedAt)
	}
}

func TestNormalizeKeywordFilter(t *testing.T) {
	spec := SourceSpec{
		Name: "泛科技源", Kind: KindFeed, Endpoint: "https://example.com/rss", ItemCap: 30,
		RequiredKeywordsAny: []string{"AI", "大模型"},
	}
	entries := []RawEntry{
		FeedEntry{Title: "大模型再进化", Link: "https://example.com/1"},
		FeedEntry{Title: "手机新品评测", Link: "https://example.com/2"},
		FeedEntry{Title: "通用新闻", Link: "https://example.com/3", Description: "本文讨论 ai 芯片"},
	}

	items := normalizeEntries(entries, spec, time.Now().UTC())
	if len(items) != 2 {
		t.Fatalf("expected 2 items after keyword filter, got %d", len(items))
	}
	if items[0].URL != "https://example.com/1" || items[1].URL != "https://example.com/3" {
		t.Errorf("wrong items kept: %+v", items)
	}
}

func TestNormalizeSummaryTruncated(t *testing.T) {
	spec := SourceSpec{Name: "s", Kind: KindFeed, Endpoint: "https://example.com/rss", ItemCap: 30}
	long := strings.Repeat("长", maxSummaryRunes+100)
	entries := []RawEntry{FeedEntry{Title: "标题", Link: "https://example.com/1", Description: long}}

	items := normalizeEntries(entries, spec, time.Now().UTC())
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if got := len([]rune(items[0].Summary)); got != maxSummaryRunes {
		t.Errorf("summary runes = %d, want %d", got, maxSummaryRunes)
	}
}
