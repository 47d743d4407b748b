package collector

import (
	"testing"
	"time"
)

func TestParseWhenRelative(t *testing.T) {
	ref := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		text string
		want time.Time
	}{
		{"3小时前", ref.Add(-3 * time.Hour)},
		{"15分钟前", ref.Add(-15 * time.Minute)},
		{"2天前", ref.Add(-48 * time.Hour)},
		{"刚刚", ref},
		{"昨天", ref.Add(-24 * time.Hour)},
	}

	for _, tc := range cases {
		if got := parseWhen(tc.text, ref); !got.Equal(tc.want) {
			t.Errorf("parseWhen(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestParseWhenChineseDate(t *testing.T) {
	ref := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := parseWhen("2026年2月28日 10:30", ref)
	want := time.Date(2026, 2, 28, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// 月日式日期默认取参考年份
	got = parseWhen("2月20日", ref)
	want = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseWhenCrossYear(t *testing.T) {
	// 1 月初遇到"12月30日"应该是去年
	ref := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	got := parseWhen("12月30日", ref)
	want := time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseWhenUnixTimestamp(t *testing.T) {
	ref := time.Now().UTC()

	got := parseWhen("1740800000", ref)
	want := time.Unix(1740800000, 0).UTC()
	if !got.Equal(want) {
		t.Errorf("seconds: got %v, want %v", got, want)
	}

	got = parseWhen("1740800000000", ref)
	if !got.Equal(want) {
		t.Errorf("millis: got %v, want %v", got, want)
	}
}

func TestParseWhenISO(t *testing.T) {
	ref := time.Now().UTC()
	got := parseWhen("2026-02-28T10:30:00Z", ref)
	want := time.Date(2026, 2, 28, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseWhenGarbage(t *testing.T) {
	ref := time.Now().UTC()
	for _, text := range []string{"", "不是时间", "点击查看更多精彩内容"} {
		if got := parseWhen(text, ref); !got.IsZero() {
			t.Errorf("parseWhen(%q) = %v, want zero", text, got)
		}
	}
}

func TestExtractDateSnippetFromLongText(t *testing.T) {
	text := "某公司发布新模型，引发热议。发布时间：2026年2月28日 10:30，作者：张三。"
	snippet := extractDateSnippet(text)
	if snippet == "" {
		t.Fatal("expected a date snippet")
	}

	ref := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got := parseWhen(text, ref)
	want := time.Date(2026, 2, 28, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
