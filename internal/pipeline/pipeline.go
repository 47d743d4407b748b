// Package pipeline 串起一次完整的日报流水线：
// 采集 → 时间窗过滤 → 跨天去重 → 分类 → 排序选材 → 生成日报 → 归档 → 推送 → 记录。
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"

	"aibrief/internal/archive"
	"aibrief/internal/classifier"
	"aibrief/internal/collector"
	"aibrief/internal/config"
	"aibrief/internal/digest"
	"aibrief/internal/feishu"
	"aibrief/internal/llm"
	"aibrief/internal/publisher"
	"aibrief/internal/ranker"
	"aibrief/internal/storage"
)

// 只收最近 24 小时的条目进入日报
const freshWindow = 24 * time.Hour

// seen 记录回看 7 天
const seenLookbackDays = 7

// SeenStore 跨天去重与运行记录，摘出接口方便测试替换
type SeenStore interface {
	LoadSeenURLs(days int) (map[string]struct{}, error)
	MarkSeen(items []storage.SeenItem) error
	LogRun(entry storage.RunLog) error
	CacheLatestBrief(brief digest.DailyBrief)
}

// Pipeline 一次日报运行需要的全部依赖
type Pipeline struct {
	Settings *config.Settings
	Sources  []collector.SourceSpec
	LLM      llm.Client
	Store    SeenStore
	Archive  *archive.Store
	WeCom    *publisher.WeComPublisher
	Feishu   *feishu.Client
}

// Result 一次运行的产出摘要
type Result struct {
	Brief     digest.DailyBrief
	Manifest  []collector.SourceOutcome
	Collected int
	Fresh     int
	Selected  int
	Pushed    bool
}

// Run 执行一次完整流水线。采集部分失败不阻塞日报，推送失败发告警。
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	loc := p.Settings.Location()
	var res Result

	batch, err := collector.Collect(ctx, p.Sources, collector.Options{
		Proxy:       p.Settings.HTTPProxy,
		HubBase:     p.Settings.RSSHubBase,
		Timeout:     p.Settings.RequestTimeout(),
		Workers:     p.Settings.CollectWorkers,
		Now:         started,
		TitleWindow: p.Settings.TitleWindow(),
	})
	if err != nil {
		p.logRun(started, "failed", 0, nil, err)
		return res, fmt.Errorf("collect: %w", err)
	}
	res.Manifest = batch.Manifest
	res.Collected = len(batch.Items)

	fresh := filterFresh(batch.Items, started)
	res.Fresh = len(fresh)

	fresh, err = p.filterSeen(fresh)
	if err != nil {
		// 去重状态不可用时照常出报，宁可重复不可缺报
		log.Printf("pipeline: load seen urls failed, skip cross-day dedupe: %v", err)
	}

	if len(fresh) == 0 {
		err := fmt.Errorf("no fresh items collected from %d sources", len(p.Sources))
		p.logRun(started, "failed", 0, batch.Manifest, err)
		p.alert(ctx, "今日无新增资讯，未生成日报。")
		return res, err
	}

	useLLM := p.Settings.LLMAPIKey != ""
	classified := classifier.Classify(ctx, fresh, p.LLM, useLLM)
	ranked := ranker.Rank(classified, started)
	selected := ranker.Select(ranked, ranker.SelectOptions{
		ItemMin:           p.Settings.ItemMin,
		ItemMax:           p.Settings.ItemMax,
		MixMinEach:        p.Settings.MixMinEach,
		MaxItemsPerSource: p.Settings.MaxItemsPerSource,
	})
	res.Selected = len(selected)

	brief := digest.Build(ctx, selected, p.LLM, started, loc)
	res.Brief = brief
	markdown := digest.RenderMarkdown(brief)

	if p.Archive != nil {
		if err := p.Archive.Save(brief, markdown); err != nil {
			log.Printf("pipeline: archive failed: %v", err)
		}
	}
	if p.Store != nil {
		p.Store.CacheLatestBrief(brief)
	}

	pushErr := p.push(ctx, markdown)
	res.Pushed = pushErr == nil
	if pushErr != nil {
		log.Printf("pipeline: push failed: %v", pushErr)
		p.alert(ctx, fmt.Sprintf("日报推送失败：%v", pushErr))
	}

	p.markSeen(selected, brief.Date)

	status := "success"
	if len(batch.FailedSources()) > 0 || pushErr != nil {
		status = "partial"
	}
	p.logRun(started, status, len(selected), batch.Manifest, pushErr)

	log.Printf("pipeline: done, collected=%d fresh=%d selected=%d status=%s",
		res.Collected, res.Fresh, res.Selected, status)
	return res, nil
}

// filterFresh 留下 24 小时内的条目；没有发布时间的视为刚发现，保留
func filterFresh(items []collector.Item, now time.Time) []collector.Item {
	out := make([]collector.Item, 0, len(items))
	for _, it := range items {
		if !it.PublishedAt.IsZero() && now.Sub(it.PublishedAt) > freshWindow {
			continue
		}
		out = append(out, it)
	}
	return out
}

// filterSeen 剔除近几天已经推送过的条目
func (p *Pipeline) filterSeen(items []collector.Item) ([]collector.Item, error) {
	if p.Store == nil {
		return items, nil
	}
	seen, err := p.Store.LoadSeenURLs(seenLookbackDays)
	if err != nil {
		return items, err
	}
	out := make([]collector.Item, 0, len(items))
	for _, it := range items {
		key := collector.CanonicalURL(it.URL, collector.DefaultTrackingParams())
		if _, ok := seen[key]; ok {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (p *Pipeline) markSeen(selected []ranker.Item, date string) {
	if p.Store == nil || len(selected) == 0 {
		return
	}
	rows := make([]storage.SeenItem, 0, len(selected))
	for _, it := range selected {
		rows = append(rows, storage.SeenItem{
			CanonicalURL: collector.CanonicalURL(it.URL, collector.DefaultTrackingParams()),
			Title:        it.Title,
			SourceName:   it.SourceName,
			SeenDate:     date,
		})
	}
	if err := p.Store.MarkSeen(rows); err != nil {
		log.Printf("pipeline: mark seen failed: %v", err)
	}
}

// push 推送到所有启用的渠道，任一渠道成功即算推送成功
func (p *Pipeline) push(ctx context.Context, markdown string) error {
	if !p.Settings.PushEnabled {
		log.Printf("pipeline: push disabled")
		return nil
	}

	var errs []error
	pushed := false

	if p.WeCom != nil && p.WeCom.WebhookURL != "" {
		if err := p.WeCom.Push(ctx, markdown); err != nil {
			errs = append(errs, fmt.Errorf("wecom: %w", err))
		} else {
			pushed = true
		}
	}

	if p.Feishu.Enabled() && len(p.Settings.FeishuPushTargets) > 0 {
		text := digest.TruncateForChannel(markdown, feishu.MaxMessageRunes)
		if err := p.Feishu.Broadcast(ctx, p.Settings.FeishuPushTargets,
			p.Settings.FeishuReceiveIDType, text); err != nil {
			errs = append(errs, err)
		} else {
			pushed = true
		}
	}

	if len(errs) == 0 {
		return nil
	}
	if pushed {
		log.Printf("pipeline: partial push failure: %v", errs)
		return nil
	}
	return errs[0]
}

func (p *Pipeline) alert(ctx context.Context, text string) {
	if p.WeCom != nil && p.WeCom.WebhookURL != "" {
		p.WeCom.PushAlert(ctx, text)
	}
}

func (p *Pipeline) logRun(started time.Time, status string, itemCount int,
	manifest []collector.SourceOutcome, runErr error) {
	if p.Store == nil {
		return
	}

	metrics := datatypes.JSONMap{}
	for _, outcome := range manifest {
		metrics[outcome.Source] = map[string]any{
			"status": string(outcome.Status),
			"count":  outcome.ItemCount,
			"reason": outcome.Reason,
		}
	}
	if runErr != nil {
		metrics["error"] = runErr.Error()
	}

	entry := storage.RunLog{
		RunDate:    started.In(p.Settings.Location()).Format("2006-01-02"),
		Status:     status,
		ItemCount:  itemCount,
		Metrics:    metrics,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := p.Store.LogRun(entry); err != nil {
		log.Printf("pipeline: log run failed: %v", err)
	}
}
