// Package ranker 给分类后的条目打分排序，并按视角配额挑出当日入选集。
package ranker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"aibrief/internal/classifier"
)

// Item 打分后的条目
type Item struct {
	classifier.Item
	Score      float64
	RankReason string
}

var heatWords = []string{"发布", "开源", "融资", "上线", "breakthrough", "launch", "benchmark"}

// Rank 打分并按分数降序排列。分数 = 新鲜度 + 来源权重 + 热词 + 标签加成。
func Rank(items []classifier.Item, now time.Time) []Item {
	ranked := make([]Item, 0, len(items))
	for _, it := range items {
		recency := recencyScore(it.PublishedAt, now)
		authority := it.Weight * 2.5
		heat := heatScore(it.Title + " " + it.Summary)
		tagBonus := tagBonus(it.Tags)
		score := recency + authority + heat + tagBonus

		ranked = append(ranked, Item{
			Item:  it,
			Score: score,
			RankReason: fmt.Sprintf("recency=%.2f, authority=%.2f, heat=%.2f, tag_bonus=%.2f",
				recency, authority, heat, tagBonus),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// recencyScore 24 小时内线性衰减到 0；没有发布时间按当下算（刚发现的条目）
func recencyScore(publishedAt, now time.Time) float64 {
	base := publishedAt
	if base.IsZero() {
		base = now
	}
	ageHours := now.Sub(base).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	if ageHours > 24 {
		ageHours = 24
	}
	return 5.0 * (1 - ageHours/24.0)
}

func heatScore(text string) float64 {
	lowered := strings.ToLower(text)
	hits := 0
	for _, w := range heatWords {
		if strings.Contains(lowered, w) {
			hits++
		}
	}
	score := float64(hits) * 0.4
	if score > 2.0 {
		score = 2.0
	}
	return score
}

func tagBonus(tags []string) float64 {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = struct{}{}
	}
	bonus := 0.0
	if _, ok := set["priority_top"]; ok {
		bonus += 3.0
	}
	if _, ok := set["self_media"]; ok {
		bonus += 1.0
	}
	if _, ok := set["personal"]; ok {
		bonus += 0.8
	}
	if _, ok := set["creator"]; ok {
		bonus += 0.4
	}
	_, wechat := set["wechat"]
	_, official := set["official"]
	if wechat && !official {
		bonus += 0.2
	}
	if official {
		bonus -= 0.2
	}
	return bonus
}

// SelectOptions 入选集的配额参数
type SelectOptions struct {
	ItemMin           int
	ItemMax           int
	MixMinEach        int // 每个视角的最小条数
	MaxItemsPerSource int // 单源最多入选条数，<=0 不限制
}

// Select 按视角配额 + 单源上限挑选入选集，最终按分数降序。
// 先保证三个视角各自的最小配额，再按总分补齐到上限。
func Select(ranked []Item, opts SelectOptions) []Item {
	if opts.ItemMax < opts.ItemMin {
		opts.ItemMax = opts.ItemMin
	}

	grouped := map[classifier.Perspective][]Item{}
	for _, it := range ranked {
		grouped[it.Perspective] = append(grouped[it.Perspective], it)
	}

	var selected []Item
	selectedURLs := map[string]struct{}{}
	sourceCounts := map[string]int{}

	canAdd := func(it Item) bool {
		if _, ok := selectedURLs[it.URL]; ok {
			return false
		}
		if opts.MaxItemsPerSource > 0 && sourceCounts[it.SourceName] >= opts.MaxItemsPerSource {
			return false
		}
		return true
	}
	add := func(it Item) {
		selected = append(selected, it)
		selectedURLs[it.URL] = struct{}{}
		sourceCounts[it.SourceName]++
	}

	for _, p := range []classifier.Perspective{classifier.Product, classifier.Technology, classifier.Industry} {
		added := 0
		for _, it := range grouped[p] {
			if added >= opts.MixMinEach {
				break
			}
			if !canAdd(it) {
				continue
			}
			add(it)
			added++
		}
	}

	for _, it := range ranked {
		if len(selected) >= opts.ItemMax {
			break
		}
		if !canAdd(it) {
			continue
		}
		add(it)
	}

	sort.SliceStable(selected, func(i, j int) bool { return selected[i].Score > selected[j].Score })
	if len(selected) > opts.ItemMax {
		selected = selected[:opts.ItemMax]
	}
	return selected
}
