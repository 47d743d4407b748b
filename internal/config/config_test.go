package config

import (
	"os"
	"path/filepath"
	"testing"

	"aibrief/internal/collector"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("AIBRIEF_TEST_VAR", "from-env")

	cases := []struct {
		in   string
		want string
	}{
		{"${AIBRIEF_TEST_VAR}", "from-env"},
		{"${AIBRIEF_TEST_VAR:-fallback}", "from-env"},
		{"${AIBRIEF_TEST_MISSING:-fallback}", "fallback"},
		{"${AIBRIEF_TEST_MISSING}", ""},
		{"prefix-${AIBRIEF_TEST_VAR}-suffix", "prefix-from-env-suffix"},
		{"no placeholder", "no placeholder"},
	}
	for _, tc := range cases {
		if got := expandEnv(tc.in); got != tc.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("AIBRIEF_TEST_KEY", "sk-test")
	path := writeTempFile(t, "settings.yaml", `
timezone: "Asia/Shanghai"
trigger_time: "08:30"
item_max: 10
llm_api_key: "${AIBRIEF_TEST_KEY:-}"
title_window_minutes: 90
`)

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TriggerTime != "08:30" {
		t.Errorf("trigger_time = %q", cfg.TriggerTime)
	}
	if cfg.ItemMax != 10 {
		t.Errorf("item_max = %d", cfg.ItemMax)
	}
	if cfg.LLMAPIKey != "sk-test" {
		t.Errorf("llm_api_key = %q", cfg.LLMAPIKey)
	}
	// 未写的字段保持默认值
	if cfg.ItemMin != 8 || cfg.CollectWorkers != 4 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.TitleWindow().Minutes() != 90 {
		t.Errorf("title window = %v", cfg.TitleWindow())
	}
}

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timezone != "Asia/Shanghai" || cfg.TriggerTime != "09:20" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadSources(t *testing.T) {
	path := writeTempFile(t, "sources.yaml", `
sources:
  - name: "机器之心"
    kind: feed
    endpoint: "https://www.jiqizhixin.com/rss"
    weight: 1.5
    item_cap: 20
  - name: "禁用源"
    kind: feed
    endpoint: "https://example.com/rss"
    enabled: false
  - name: "默认值源"
    kind: scrape
    endpoint: "https://example.com/news"
`)

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("disabled source should be skipped, got %d", len(sources))
	}
	if sources[0].Weight != 1.5 || sources[0].ItemCap != 20 {
		t.Errorf("explicit values lost: %+v", sources[0])
	}
	if sources[1].Weight != 1.0 || sources[1].ItemCap != 30 {
		t.Errorf("defaults not applied: %+v", sources[1])
	}
	if sources[1].Kind != collector.KindScrape {
		t.Errorf("kind = %q", sources[1].Kind)
	}
}

func TestParseHHMM(t *testing.T) {
	hour, minute, err := ParseHHMM("09:20")
	if err != nil || hour != 9 || minute != 20 {
		t.Errorf("ParseHHMM(09:20) = %d:%d, %v", hour, minute, err)
	}

	for _, bad := range []string{"", "9", "25:00", "09:60", "ab:cd"} {
		if _, _, err := ParseHHMM(bad); err == nil {
			t.Errorf("ParseHHMM(%q) should fail", bad)
		}
	}
}
