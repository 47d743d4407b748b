// Package archive 把每日日报落盘：markdown 给人看，json 给程序读。
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aibrief/internal/digest"
)

// Store 按日期归档日报文件
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Save 写入 <dir>/<date>.md 和 <dir>/<date>.json，同日重跑直接覆盖
func (s *Store) Save(brief digest.DailyBrief, markdown string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	mdPath := filepath.Join(s.Dir, brief.Date+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write markdown archive: %w", err)
	}

	data, err := json.MarshalIndent(brief, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal brief: %w", err)
	}
	jsonPath := filepath.Join(s.Dir, brief.Date+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write json archive: %w", err)
	}
	return nil
}

// Load 读取指定日期的日报，不存在时返回 os.ErrNotExist
func (s *Store) Load(date string) (digest.DailyBrief, error) {
	var brief digest.DailyBrief
	data, err := os.ReadFile(filepath.Join(s.Dir, date+".json"))
	if err != nil {
		return brief, fmt.Errorf("read archive %s: %w", date, err)
	}
	if err := json.Unmarshal(data, &brief); err != nil {
		return brief, fmt.Errorf("parse archive %s: %w", date, err)
	}
	return brief, nil
}

// LoadLatest 返回归档目录里日期最新的一份日报
func (s *Store) LoadLatest() (digest.DailyBrief, error) {
	var brief digest.DailyBrief
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return brief, fmt.Errorf("read archive dir: %w", err)
	}

	dates := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".json"))
	}
	if len(dates) == 0 {
		return brief, fmt.Errorf("load latest archive: %w", os.ErrNotExist)
	}

	// 文件名就是 YYYY-MM-DD，字典序即时间序
	sort.Strings(dates)
	return s.Load(dates[len(dates)-1])
}
