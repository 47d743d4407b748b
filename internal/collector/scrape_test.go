package collector

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const listPageHTML = `<!DOCTYPE html>
<html><body>
<nav><li><a href="/login">登录</a></li><li><a href="/about">关于我们页面介绍</a></li></nav>
<ul>
  <li>
    <h3><a href="/p/1001">某大模型公司发布新一代推理模型</a></h3>
    <span class="date">2026年2月28日 10:30</span>
  </li>
  <li>
    <h3><a href="/p/1002">开源社区推出全新智能体框架项目</a></h3>
    <span class="date">3小时前</span>
  </li>
  <li>
    <h3><a href="/news/9">不符合链接模式的另一篇长标题文章</a></h3>
  </li>
  <li>
    <h3><a href="/p/1001">某大模型公司发布新一代推理模型</a></h3>
  </li>
</ul>
</body></html>`

func TestFetchPageExtractsArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listPageHTML)
	}))
	defer srv.Close()

	spec := SourceSpec{
		Name: "列表页", Kind: KindScrape, Endpoint: srv.URL, ItemCap: 30,
		LinkPattern: `/p/\d+`,
	}
	entries, err := fetchPage(spec, Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	// 噪声导航、不合模式的链接、同链接重复都被过滤
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}

	first, ok := entries[0].(PageEntry)
	if !ok {
		t.Fatalf("expected PageEntry, got %T", entries[0])
	}
	if first.Text != "某大模型公司发布新一代推理模型" {
		t.Errorf("title = %q", first.Text)
	}
	if first.Href != srv.URL+"/p/1001" {
		t.Errorf("href should be absolute, got %q", first.Href)
	}
	if first.DateText == "" {
		t.Errorf("nearby date text should be picked up")
	}

	second := entries[1].(PageEntry)
	if second.DateText != "3小时前" {
		t.Errorf("relative date text = %q", second.DateText)
	}
}

func TestFetchPageDateSelector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listPageHTML)
	}))
	defer srv.Close()

	spec := SourceSpec{
		Name: "列表页", Kind: KindScrape, Endpoint: srv.URL, ItemCap: 30,
		LinkPattern: `/p/\d+`, DateSelector: ".date",
	}
	entries, err := fetchPage(spec, Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if got := entries[0].(PageEntry).DateText; got != "2026年2月28日 10:30" {
		t.Errorf("date via selector = %q", got)
	}
}

func TestFetchPageNoMatchesIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>没有任何文章链接</p></body></html>`)
	}))
	defer srv.Close()

	spec := SourceSpec{Name: "空页面", Kind: KindScrape, Endpoint: srv.URL, ItemCap: 30}
	entries, err := fetchPage(spec, Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("zero matches must not be an error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestFetchPageBadLinkPattern(t *testing.T) {
	spec := SourceSpec{
		Name: "坏配置", Kind: KindScrape, Endpoint: "https://example.com", ItemCap: 30,
		LinkPattern: `([`,
	}
	_, err := fetchPage(spec, Options{Timeout: time.Second})
	if err == nil {
		t.Fatal("invalid link pattern should fail")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("expected ParseError, got %T", err)
	}
}
