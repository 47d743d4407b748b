// Package scheduler 按配置时区在每天固定时刻触发一次日报流水线。
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"aibrief/internal/config"
	"aibrief/internal/pipeline"
)

// 单次流水线运行的最长时间
const runTimeout = 20 * time.Minute

type Scheduler struct {
	cron     *cron.Cron
	pipeline *pipeline.Pipeline

	mu      sync.Mutex
	running bool
}

// New 构造每日触发器。triggerTime 形如 "09:20"，按 loc 时区解释。
func New(triggerTime string, loc *time.Location, p *pipeline.Pipeline) (*Scheduler, error) {
	hour, minute, err := config.ParseHHMM(triggerTime)
	if err != nil {
		return nil, err
	}

	c := cron.New(cron.WithLocation(loc))
	s := &Scheduler{cron: c, pipeline: p}

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("register cron %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("scheduler: started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// TriggerNow 手动触发一次，已有运行在进行时返回 false
func (s *Scheduler) TriggerNow() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer s.finish()
		s.execute()
	}()
	return true
}

func (s *Scheduler) runOnce() {
	if !s.tryAcquire() {
		log.Printf("scheduler: previous run still in progress, skip")
		return
	}
	defer s.finish()
	s.execute()
}

func (s *Scheduler) execute() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	log.Printf("scheduler: start daily run")
	if _, err := s.pipeline.Run(ctx); err != nil {
		log.Printf("scheduler: daily run failed: %v", err)
		return
	}
	log.Printf("scheduler: daily run done")
}

func (s *Scheduler) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
