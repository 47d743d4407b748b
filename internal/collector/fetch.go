package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const (
	userAgent = "AIBriefBot/1.0"

	// 单次抓取最多吃多少条原始记录，防止畸形页面把解析拖垮
	maxEntriesPerFetch = 200

	// 响应体上限
	maxResponseBytes = 4 << 20
)

// Options 是 Collect 的全部外部输入：代理、RSSHub 基地址和调参项都显式传入，
// 不读环境变量，方便测试。
type Options struct {
	// Proxy 为空表示不走代理
	Proxy string

	// HubBase RSSHub 基地址，feed 源的路由 endpoint 会拼到它上面
	HubBase string

	// 单个源的抓取超时
	Timeout time.Duration

	// 并发抓取的 worker 数
	Workers int

	// 本轮采集的参考时间，零值取 time.Now
	Now time.Time

	// 判定"同题异链"重复的时间窗口
	TitleWindow time.Duration

	// 规范化 URL 时剔除的跟踪参数
	TrackingParams []string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
	if o.TitleWindow <= 0 {
		o.TitleWindow = time.Hour
	}
	if o.TrackingParams == nil {
		o.TrackingParams = DefaultTrackingParams()
	}
	return o
}

// DefaultTrackingParams 常见的跟踪参数，去重前从 URL 里剔掉
func DefaultTrackingParams() []string {
	return []string{
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
		"spm", "from", "source",
	}
}

// fetchSource 对一个源做一次网络抓取，返回原始条目。不做重试；
// "解析到 0 条"不算错误，只有传输/解析层失败才报错。
func fetchSource(ctx context.Context, spec SourceSpec, opts Options) ([]RawEntry, error) {
	if spec.RequiresProxy && opts.Proxy == "" {
		return nil, &ProxyUnavailableError{Source: spec.Name}
	}

	switch spec.Kind {
	case KindFeed:
		return fetchFeed(ctx, spec, opts)
	default:
		return fetchPage(spec, opts)
	}
}

func newHTTPClient(proxy string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
