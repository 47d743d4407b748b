package main

import (
	"context"
	"flag"
	"log"
	"time"

	"aibrief/internal/archive"
	"aibrief/internal/config"
	"aibrief/internal/feishu"
	"aibrief/internal/llm"
	"aibrief/internal/pipeline"
	"aibrief/internal/publisher"
	"aibrief/internal/storage"
)

// 只跑一轮流水线就退出的命令行入口：适合手动补报和调试
func main() {
	var (
		settingsPath = flag.String("settings", "config/settings.yaml", "settings 文件路径")
		sourcesPath  = flag.String("sources", "config/sources.yaml", "sources 文件路径")
		noPush       = flag.Bool("no-push", false, "只生成归档，不推送")
		noStore      = flag.Bool("no-store", false, "不连数据库，跳过跨天去重和运行记录")
	)
	flag.Parse()

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		log.Fatalf("load settings failed: %v", err)
	}
	sources, err := config.LoadSources(*sourcesPath)
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}
	if *noPush {
		settings.PushEnabled = false
	}

	var store pipeline.SeenStore
	if !*noStore {
		s, err := storage.NewStore(settings.PostgresDSN, settings.RedisAddr)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		store = s
	}

	var llmClient llm.Client
	if settings.LLMAPIKey != "" {
		llmClient = llm.NewOpenAIClient(settings.LLMAPIKey, settings.LLMModel, settings.LLMBaseURL)
	} else {
		llmClient = llm.FallbackClient{}
	}

	p := &pipeline.Pipeline{
		Settings: settings,
		Sources:  sources,
		LLM:      llmClient,
		Store:    store,
		Archive:  archive.NewStore(settings.ArchivesDir),
		WeCom:    publisher.NewWeComPublisher(settings.WecomWebhook),
		Feishu:   feishu.NewClient(settings.FeishuAppID, settings.FeishuAppSecret, settings.FeishuBaseURL),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()

	res, err := p.Run(ctx)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	log.Printf("run done: collected=%d fresh=%d selected=%d pushed=%v",
		res.Collected, res.Fresh, res.Selected, res.Pushed)
	for _, outcome := range res.Manifest {
		log.Printf("source %s: %s (%d items) %s",
			outcome.Source, outcome.Status, outcome.ItemCount, outcome.Reason)
	}
}
