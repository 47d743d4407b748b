package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"aibrief/internal/archive"
	"aibrief/internal/config"
	"aibrief/internal/digest"
	"aibrief/internal/storage"
)

type fakeCache struct {
	brief digest.DailyBrief
	ok    bool
	runs  []storage.RunLog
}

func (f *fakeCache) LatestBrief() (digest.DailyBrief, bool) { return f.brief, f.ok }
func (f *fakeCache) ListRuns(limit int) ([]storage.RunLog, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

type fakeTrigger struct {
	busy  bool
	calls int
}

func (f *fakeTrigger) TriggerNow() bool {
	f.calls++
	return !f.busy
}

func newTestRouter(cache BriefCache, arch *archive.Store, trigger Trigger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	settings := &config.Settings{FeishuVerificationToken: "tok"}
	NewServer(settings, cache, arch, trigger, nil).RegisterRoutes(r)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeCache{}, nil, nil)
	w := doRequest(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestLatestFromCache(t *testing.T) {
	cache := &fakeCache{brief: digest.DailyBrief{Date: "2026-03-01", Title: "AI 每日情报"}, ok: true}
	r := newTestRouter(cache, nil, nil)

	w := doRequest(r, http.MethodGet, "/api/v1/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Data digest.DailyBrief `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Date != "2026-03-01" {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestLatestFallsBackToArchive(t *testing.T) {
	arch := archive.NewStore(t.TempDir())
	brief := digest.DailyBrief{Date: "2026-02-28", Title: "归档日报"}
	if err := arch.Save(brief, "# 正文"); err != nil {
		t.Fatal(err)
	}

	r := newTestRouter(&fakeCache{}, arch, nil)
	w := doRequest(r, http.MethodGet, "/api/v1/latest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "归档日报") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestLatestNotFound(t *testing.T) {
	r := newTestRouter(&fakeCache{}, nil, nil)
	w := doRequest(r, http.MethodGet, "/api/v1/latest", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestBriefByDate(t *testing.T) {
	arch := archive.NewStore(t.TempDir())
	if err := arch.Save(digest.DailyBrief{Date: "2026-02-27"}, "# 正文"); err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(&fakeCache{}, arch, nil)

	if w := doRequest(r, http.MethodGet, "/api/v1/briefs/2026-02-27", ""); w.Code != http.StatusOK {
		t.Errorf("existing date status = %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/v1/briefs/2026-01-01", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing date status = %d", w.Code)
	}
}

func TestRunToday(t *testing.T) {
	trigger := &fakeTrigger{}
	r := newTestRouter(&fakeCache{}, nil, trigger)

	w := doRequest(r, http.MethodPost, "/api/v1/run-today", "")
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d", w.Code)
	}
	if trigger.calls != 1 {
		t.Errorf("trigger calls = %d", trigger.calls)
	}

	trigger.busy = true
	w = doRequest(r, http.MethodPost, "/api/v1/run-today", "")
	if w.Code != http.StatusConflict {
		t.Errorf("busy status = %d", w.Code)
	}
}

func TestFeishuEventsURLVerification(t *testing.T) {
	r := newTestRouter(&fakeCache{}, nil, nil)
	body := `{"type":"url_verification","challenge":"abc"}`
	w := doRequest(r, http.MethodPost, "/feishu/events", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "abc") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestFeishuEventsBadToken(t *testing.T) {
	r := newTestRouter(&fakeCache{}, nil, nil)
	body := `{"header":{"event_type":"im.message.receive_v1","token":"wrong"}}`
	w := doRequest(r, http.MethodPost, "/feishu/events", body)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d", w.Code)
	}
}
