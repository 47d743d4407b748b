package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mmcdole/gofeed"
)

// fetchFeed 对 feed 源发起一次 GET 并解析订阅体。
// endpoint 是路由时拼 RSSHub 基地址，代理（如配置）作用于整个请求。
func fetchFeed(ctx context.Context, spec SourceSpec, opts Options) ([]RawEntry, error) {
	client, err := newHTTPClient(proxyFor(spec, opts), opts.Timeout)
	if err != nil {
		return nil, &ProxyUnavailableError{Source: spec.Name}
	}

	target := spec.ResolveEndpoint(opts.HubBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Source: spec.Name, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: spec.Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Source: spec.Name, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ParseError{Source: spec.Name, Err: err}
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		if len(entries) >= maxEntriesPerFetch {
			break
		}
		entries = append(entries, FeedEntry{
			Title:       it.Title,
			Link:        it.Link,
			Description: firstNonEmpty(it.Description, it.Content),
			Author:      feedAuthor(it),
			Published:   it.Published,
			PublishedAt: it.PublishedParsed,
		})
	}
	return entries, nil
}

// proxyFor 只有标记了 requires_proxy 的源才走代理，其余源直连，
// 避免所有流量都挤在一个出口上。
func proxyFor(spec SourceSpec, opts Options) string {
	if spec.RequiresProxy {
		return opts.Proxy
	}
	return ""
}

func feedAuthor(it *gofeed.Item) string {
	if len(it.Authors) > 0 && it.Authors[0] != nil {
		return it.Authors[0].Name
	}
	if it.Author != nil {
		return it.Author.Name
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
