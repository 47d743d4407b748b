// Package storage 负责跨天去重状态与运行记录的持久化。
// PostgreSQL 存 seen 条目和运行日志，Redis 缓存最近一期日报。
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"aibrief/internal/digest"
)

// SeenItem 已推送过的条目，按规范化 URL 做跨天幂等
type SeenItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CanonicalURL string    `gorm:"size:1024;uniqueIndex" json:"canonicalUrl"`
	Title        string    `gorm:"size:512" json:"title"`
	SourceName   string    `gorm:"size:128;index" json:"sourceName"`
	SeenDate     string    `gorm:"size:10;index" json:"seenDate"` // YYYY-MM-DD，按配置时区
	CreatedAt    time.Time `json:"createdAt"`
}

// RunLog 一次流水线运行的结果摘要
type RunLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	RunDate    string            `gorm:"size:10;index" json:"runDate"`
	Status     string            `gorm:"size:32;index" json:"status"` // success / partial / failed
	ItemCount  int               `json:"itemCount"`
	Metrics    datatypes.JSONMap `gorm:"type:jsonb" json:"metrics"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&SeenItem{}, &RunLog{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// toValidUTF8 规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// LoadSeenURLs 载入最近 days 天推送过的规范化 URL 集合
func (s *Store) LoadSeenURLs(days int) (map[string]struct{}, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	var rows []SeenItem
	if err := s.DB.Where("seen_date >= ?", cutoff).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load seen items: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[row.CanonicalURL] = struct{}{}
	}
	return seen, nil
}

// MarkSeen 记录本次推送的条目，URL 冲突时忽略
func (s *Store) MarkSeen(items []SeenItem) error {
	for i := range items {
		items[i].Title = toValidUTF8(items[i].Title)
		if err := s.DB.Where("canonical_url = ?", items[i].CanonicalURL).
			FirstOrCreate(&items[i]).Error; err != nil {
			return fmt.Errorf("mark seen %s: %w", items[i].CanonicalURL, err)
		}
	}
	return nil
}

// PruneSeen 清理超过保留期的 seen 记录
func (s *Store) PruneSeen(days int) error {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	return s.DB.Where("seen_date < ?", cutoff).Delete(&SeenItem{}).Error
}

// LogRun 写入一条运行记录
func (s *Store) LogRun(entry RunLog) error {
	if err := s.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// ListRuns 倒序返回最近的运行记录
func (s *Store) ListRuns(limit int) ([]RunLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var rows []RunLog
	if err := s.DB.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return rows, nil
}

const latestBriefKey = "aibrief:latest"

// CacheLatestBrief 把最新日报写进 Redis，API 读取时免落盘扫描
func (s *Store) CacheLatestBrief(brief digest.DailyBrief) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(brief)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Redis.Set(ctx, latestBriefKey, data, 48*time.Hour).Err(); err != nil {
		log.Printf("warn: cache latest brief failed: %v", err)
	}
}

// LatestBrief 读取缓存的最新日报，未命中返回 false
func (s *Store) LatestBrief() (digest.DailyBrief, bool) {
	var brief digest.DailyBrief
	if s.Redis == nil {
		return brief, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, err := s.Redis.Get(ctx, latestBriefKey).Bytes()
	if err != nil {
		return brief, false
	}
	if err := json.Unmarshal(data, &brief); err != nil {
		return brief, false
	}
	return brief, true
}
