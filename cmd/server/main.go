package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"aibrief/internal/api"
	"aibrief/internal/archive"
	"aibrief/internal/config"
	"aibrief/internal/feishu"
	"aibrief/internal/llm"
	"aibrief/internal/pipeline"
	"aibrief/internal/publisher"
	"aibrief/internal/scheduler"
	"aibrief/internal/storage"
)

// 常驻服务入口：定时器 + HTTP API + 飞书事件回调
func main() {
	settings, err := config.LoadSettings("config/settings.yaml")
	if err != nil {
		log.Fatalf("load settings failed: %v", err)
	}
	sources, err := config.LoadSources("config/sources.yaml")
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}
	if len(sources) == 0 {
		log.Fatalf("no enabled sources configured")
	}

	store, err := storage.NewStore(settings.PostgresDSN, settings.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	var llmClient llm.Client
	if settings.LLMAPIKey != "" {
		llmClient = llm.NewOpenAIClient(settings.LLMAPIKey, settings.LLMModel, settings.LLMBaseURL)
	} else {
		log.Printf("llm api key not configured, using heuristic fallback")
		llmClient = llm.FallbackClient{}
	}

	fs := feishu.NewClient(settings.FeishuAppID, settings.FeishuAppSecret, settings.FeishuBaseURL)
	arch := archive.NewStore(settings.ArchivesDir)

	p := &pipeline.Pipeline{
		Settings: settings,
		Sources:  sources,
		LLM:      llmClient,
		Store:    store,
		Archive:  arch,
		WeCom:    publisher.NewWeComPublisher(settings.WecomWebhook),
		Feishu:   fs,
	}

	sched, err := scheduler.New(settings.TriggerTime, settings.Location(), p)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	r := gin.Default()
	apiServer := api.NewServer(settings, store, arch, sched, fs)
	apiServer.RegisterRoutes(r)

	addr := ":" + settings.AppPort
	log.Printf("starting server at %s, daily trigger %s %s",
		addr, settings.TriggerTime, settings.Timezone)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
