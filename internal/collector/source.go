package collector

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind 区分两类数据源：feed 走 RSSHub/标准订阅，scrape 直接抓网页
type SourceKind string

const (
	KindFeed   SourceKind = "feed"
	KindScrape SourceKind = "scrape"
)

// SourceSpec 描述一个数据源，来自 config/sources.yaml，加载后只读
type SourceSpec struct {
	Name          string     `yaml:"name"`
	Kind          SourceKind `yaml:"kind"`
	Endpoint      string     `yaml:"endpoint"`
	RequiresProxy bool       `yaml:"requires_proxy"`
	ItemCap       int        `yaml:"item_cap"`

	Weight float64  `yaml:"weight"`
	Tags   []string `yaml:"tags"`

	// 仅 scrape 源使用的抽取规则
	ArticleSelector string `yaml:"article_selector"`
	LinkPattern     string `yaml:"link_pattern"`
	// 条目容器内定位发布时间的选择器；为空时在邻近文本里猜
	DateSelector string `yaml:"date_selector"`

	// 命中任意一个关键词才保留条目；为空表示不过滤
	RequiredKeywordsAny []string `yaml:"required_keywords_any"`
}

// Validate 检查配置项是否构成一个合法数据源。配置错误属于前置条件问题，
// 直接让 Collect 失败，而不是记进 manifest。
func (s SourceSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("source missing name")
	}
	if s.Kind != KindFeed && s.Kind != KindScrape {
		return fmt.Errorf("source %s: unknown kind %q", s.Name, s.Kind)
	}
	if strings.TrimSpace(s.Endpoint) == "" {
		return fmt.Errorf("source %s: missing endpoint", s.Name)
	}
	if s.ItemCap <= 0 {
		return fmt.Errorf("source %s: item_cap must be positive, got %d", s.Name, s.ItemCap)
	}
	return nil
}

// ResolveEndpoint 将 feed 源的路由（以 / 开头）拼到 RSSHub 基地址上；
// 绝对 URL 原样返回。
func (s SourceSpec) ResolveEndpoint(hubBase string) string {
	if s.Kind == KindFeed && strings.HasPrefix(s.Endpoint, "/") && hubBase != "" {
		return strings.TrimRight(hubBase, "/") + s.Endpoint
	}
	return s.Endpoint
}

// RawEntry 是抓取层返回的原始条目，只有两种形态：feed 条目和网页锚点。
// 归一化时用类型分支一次分发，不做字段探测。
type RawEntry interface {
	rawEntry()
}

// FeedEntry 来自订阅源的一条原始记录
type FeedEntry struct {
	Title       string
	Link        string
	Description string
	Author      string
	Published   string
	PublishedAt *time.Time // 解析器已给出的时间，优先于 Published 文本
}

func (FeedEntry) rawEntry() {}

// PageEntry 来自网页抓取的一条原始记录：锚点文本 + 链接 + 邻近的日期文本
type PageEntry struct {
	Text     string
	Href     string
	DateText string
	Context  string // 条目所在容器的文本，用作摘要兜底
}

func (PageEntry) rawEntry() {}

// Item 归一化后的统一条目。PublishedAt 零值表示来源没有给出可解析的时间。
type Item struct {
	Title       string
	URL         string
	SourceName  string
	PublishedAt time.Time
	Summary     string
	Weight      float64
	Tags        []string
}

// SourceStatus 单个源在一轮采集中的结果
type SourceStatus string

const (
	StatusSuccess SourceStatus = "success"
	StatusPartial SourceStatus = "partial" // 条目数触到 item_cap 被截断
	StatusFailed  SourceStatus = "failed"
)

// SourceOutcome 是 manifest 中的一行：该源本轮成功与否及原因
type SourceOutcome struct {
	Source    string
	Status    SourceStatus
	ItemCount int
	Reason    string
}

// Batch 一轮采集的产出：去重后的条目序列 + 按源的结果清单。
// 交给下游后不再修改。
type Batch struct {
	Items       []Item
	Manifest    []SourceOutcome
	CollectedAt time.Time
}

// FailedSources 方便调用方打日志
func (b Batch) FailedSources() []SourceOutcome {
	var failed []SourceOutcome
	for _, o := range b.Manifest {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}
