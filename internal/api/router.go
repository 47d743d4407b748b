// Package api 对外 HTTP 接口：健康检查、手动触发、最新日报查询和飞书事件回调。
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aibrief/internal/archive"
	"aibrief/internal/config"
	"aibrief/internal/digest"
	"aibrief/internal/feishu"
	"aibrief/internal/storage"
)

// BriefCache 最新日报的缓存读取，由 storage.Store 实现
type BriefCache interface {
	LatestBrief() (digest.DailyBrief, bool)
	ListRuns(limit int) ([]storage.RunLog, error)
}

// Trigger 手动触发流水线，由 scheduler.Scheduler 实现
type Trigger interface {
	TriggerNow() bool
}

type Server struct {
	settings *config.Settings
	cache    BriefCache
	archive  *archive.Store
	trigger  Trigger
	feishu   *feishu.Client
}

func NewServer(settings *config.Settings, cache BriefCache, arch *archive.Store,
	trigger Trigger, fs *feishu.Client) *Server {
	return &Server{
		settings: settings,
		cache:    cache,
		archive:  arch,
		trigger:  trigger,
		feishu:   fs,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/latest", s.latest)
		v1.GET("/briefs/:date", s.briefByDate)
		v1.GET("/runs", s.listRuns)
		v1.POST("/run-today", s.runToday)
	}

	r.POST("/feishu/events", s.feishuEvents)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// latest 优先读缓存，未命中时从归档目录兜底
func (s *Server) latest(c *gin.Context) {
	if s.cache != nil {
		if brief, ok := s.cache.LatestBrief(); ok {
			c.JSON(http.StatusOK, gin.H{"code": "ok", "data": brief})
			return
		}
	}
	if s.archive != nil {
		if brief, err := s.archive.LoadLatest(); err == nil {
			c.JSON(http.StatusOK, gin.H{"code": "ok", "data": brief})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"code":    "not_found",
		"message": "no brief generated yet",
	})
}

func (s *Server) briefByDate(c *gin.Context) {
	date := c.Param("date")
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "archive disabled"})
		return
	}
	brief, err := s.archive.Load(date)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no brief for " + date,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "data": brief})
}

func (s *Server) listRuns(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusOK, gin.H{"code": "ok", "data": []storage.RunLog{}})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	runs, err := s.cache.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "data": runs})
}

// runToday 手动触发一次流水线，异步执行
func (s *Server) runToday(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "unavailable",
			"message": "scheduler not running",
		})
		return
	}
	if !s.trigger.TriggerNow() {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "already_running",
			"message": "a run is already in progress",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": "accepted", "message": "run started"})
}

// feishuEvents 飞书事件回调入口
func (s *Server) feishuEvents(c *gin.Context) {
	var evt feishu.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": "invalid body"})
		return
	}

	reply, err := feishu.HandleEvent(c.Request.Context(), evt,
		s.settings.FeishuVerificationToken, s)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "message": err.Error()})
		return
	}
	if reply.Challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": reply.Challenge})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok"})
}

// HandleDigestCommand 把最新日报回发到指令所在群
func (s *Server) HandleDigestCommand(ctx context.Context, chatID string) error {
	if !s.feishu.Enabled() {
		return nil
	}
	var brief digest.DailyBrief
	ok := false
	if s.cache != nil {
		brief, ok = s.cache.LatestBrief()
	}
	if !ok && s.archive != nil {
		if b, err := s.archive.LoadLatest(); err == nil {
			brief, ok = b, true
		}
	}

	text := "暂时没有可用的日报，请稍后再试。"
	if ok {
		text = digest.TruncateForChannel(digest.RenderMarkdown(brief), feishu.MaxMessageRunes)
	}
	return s.feishu.SendText(ctx, chatID, "chat_id", text)
}

// HandleRunCommand 通过指令触发一次流水线
func (s *Server) HandleRunCommand(ctx context.Context, chatID string) error {
	if !s.feishu.Enabled() {
		return nil
	}
	text := "已开始生成今日日报，请稍候。"
	if s.trigger == nil || !s.trigger.TriggerNow() {
		text = "已有任务在运行中，请稍后再试。"
	}
	if err := s.feishu.SendText(ctx, chatID, "chat_id", text); err != nil {
		log.Printf("api: reply run command failed: %v", err)
	}
	return nil
}
