package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"aibrief/internal/collector"
)

// Settings 全局配置，来自 config/settings.yaml，字符串值支持 ${VAR:-default} 环境变量展开
type Settings struct {
	Timezone    string `yaml:"timezone"`
	TriggerTime string `yaml:"trigger_time"` // HH:MM，每日采集触发时刻
	AppPort     string `yaml:"app_port"`

	ItemMin           int `yaml:"item_min"`
	ItemMax           int `yaml:"item_max"`
	MixMinEach        int `yaml:"mix_min_each"`
	MaxItemsPerSource int `yaml:"max_items_per_source"`

	LLMProvider string `yaml:"llm_provider"` // volcengine / openai
	LLMModel    string `yaml:"llm_model"`
	LLMBaseURL  string `yaml:"llm_base_url"`
	LLMAPIKey   string `yaml:"llm_api_key"`

	PushEnabled  bool   `yaml:"push_enabled"`
	WecomWebhook string `yaml:"wecom_webhook"`

	FeishuEnabled           bool     `yaml:"feishu_enabled"`
	FeishuAppID             string   `yaml:"feishu_app_id"`
	FeishuAppSecret         string   `yaml:"feishu_app_secret"`
	FeishuVerificationToken string   `yaml:"feishu_verification_token"`
	FeishuBaseURL           string   `yaml:"feishu_base_url"`
	FeishuPushTargets       []string `yaml:"feishu_push_targets"`
	FeishuReceiveIDType     string   `yaml:"feishu_receive_id_type"` // chat_id / open_id

	HTTPProxy  string `yaml:"http_proxy"`
	RSSHubBase string `yaml:"rsshub_base"`

	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	CollectWorkers        int `yaml:"collect_workers"`
	TitleWindowMinutes    int `yaml:"title_window_minutes"`

	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
	ArchivesDir string `yaml:"archives_dir"`
}

// RequestTimeout 单源抓取超时
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// TitleWindow 同题去重时间窗
func (s *Settings) TitleWindow() time.Duration {
	return time.Duration(s.TitleWindowMinutes) * time.Minute
}

// Location 解析配置的时区，失败退回东八区
func (s *Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, fallback to Asia/Shanghai", s.Timezone)
		loc, err = time.LoadLocation("Asia/Shanghai")
		if err != nil {
			loc = time.FixedZone("CST", 8*3600)
		}
	}
	return loc
}

func defaultSettings() *Settings {
	return &Settings{
		Timezone:              "Asia/Shanghai",
		TriggerTime:           "09:20",
		AppPort:               getEnv("APP_PORT", "8000"),
		ItemMin:               8,
		ItemMax:               12,
		MixMinEach:            2,
		MaxItemsPerSource:     2,
		LLMProvider:           "volcengine",
		LLMBaseURL:            "https://ark.cn-beijing.volces.com/api/v3",
		FeishuBaseURL:         "https://open.feishu.cn",
		FeishuReceiveIDType:   "chat_id",
		RequestTimeoutSeconds: 15,
		CollectWorkers:        4,
		TitleWindowMinutes:    60,
		PostgresDSN:           getEnv("POSTGRES_DSN", "host=localhost user=aibrief password=aibrief dbname=aibrief port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		ArchivesDir:           "archives",
	}
}

// LoadSettings 读取 settings.yaml，缺省值按 defaultSettings 补齐
func LoadSettings(path string) (*Settings, error) {
	cfg := defaultSettings()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal([]byte(expandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return cfg, nil
}

type sourceEntry struct {
	collector.SourceSpec `yaml:",inline"`
	Enabled              *bool `yaml:"enabled"`
}

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

// LoadSources 读取 sources.yaml，跳过 enabled: false 的源，
// 权重和条目上限缺省时补默认值。
func LoadSources(path string) ([]collector.SourceSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal([]byte(expandEnv(string(raw))), &file); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	specs := make([]collector.SourceSpec, 0, len(file.Sources))
	for _, entry := range file.Sources {
		if entry.Enabled != nil && !*entry.Enabled {
			continue
		}
		spec := entry.SourceSpec
		if spec.Weight == 0 {
			spec.Weight = 1.0
		}
		if spec.ItemCap == 0 {
			spec.ItemCap = 30
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Z0-9_]+)(?::-([^}]*))?\}`)

// expandEnv 展开 ${VAR} / ${VAR:-default} 占位符
func expandEnv(raw string) string {
	return envPattern.ReplaceAllStringFunc(raw, func(m string) string {
		groups := envPattern.FindStringSubmatch(m)
		if v := os.Getenv(groups[1]); v != "" {
			return v
		}
		return groups[2]
	})
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseHHMM 把 "09:20" 拆成时和分
func ParseHHMM(value string) (int, int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid trigger time %q", value)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid trigger time %q", value)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid trigger time %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid trigger time %q", value)
	}
	return hour, minute, nil
}
