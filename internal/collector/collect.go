package collector

import (
	"context"
	"fmt"
	"log"
	"sync"
)

type sourceResult struct {
	items  []Item
	capped bool
	err    error
}

// Collect 是采集管线的唯一入口：按注册顺序遍历源，抓取并归一化，
// 单源失败只记入 manifest 不中断整轮，最后对全量条目做一次跨源去重。
// 只有前置条件问题（源列表为空、配置非法）才返回 error。
func Collect(ctx context.Context, sources []SourceSpec, opts Options) (Batch, error) {
	if len(sources) == 0 {
		return Batch{}, fmt.Errorf("collect: no sources configured")
	}
	for _, spec := range sources {
		if err := spec.Validate(); err != nil {
			return Batch{}, fmt.Errorf("collect: %w", err)
		}
	}
	opts = opts.withDefaults()

	// 各源相互独立，用固定大小的 worker 池并发抓取；
	// 结果写进按下标预分配的切片，天然保持注册顺序。
	results := make([]sourceResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, opts.Workers)

	for i, spec := range sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, spec SourceSpec) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = collectOne(ctx, spec, opts)
		}(i, spec)
	}
	wg.Wait()

	// manifest 是对各源结果的一次纯折叠
	batch := Batch{CollectedAt: opts.Now}
	var merged []Item
	for i, spec := range sources {
		res := results[i]
		outcome := SourceOutcome{Source: spec.Name, ItemCount: len(res.items)}
		switch {
		case res.err != nil:
			outcome.Status = StatusFailed
			outcome.Reason = res.err.Error()
			log.Printf("collect %s failed: %v", spec.Name, res.err)
		case res.capped:
			outcome.Status = StatusPartial
			outcome.Reason = fmt.Sprintf("item cap %d reached", spec.ItemCap)
		default:
			outcome.Status = StatusSuccess
		}
		batch.Manifest = append(batch.Manifest, outcome)
		merged = append(merged, res.items...)
	}

	batch.Items = Dedupe(merged, opts.TitleWindow, opts.TrackingParams)
	log.Printf("collect done: %d sources, %d items after dedupe", len(sources), len(batch.Items))
	return batch, nil
}

// collectOne 单个源的抓取+归一化，一个失败域。
// 抓取一旦返回数据就不再回退：归一化阶段只会丢单条，不会丢整源。
func collectOne(ctx context.Context, spec SourceSpec, opts Options) sourceResult {
	entries, err := fetchSource(ctx, spec, opts)
	if err != nil {
		return sourceResult{err: err}
	}

	items := normalizeEntries(entries, spec, opts.Now)
	capped := false
	if len(items) > spec.ItemCap {
		items = items[:spec.ItemCap]
		capped = true
	}
	return sourceResult{items: items, capped: capped}
}
