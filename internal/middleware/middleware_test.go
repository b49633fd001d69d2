package middleware

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"

	appconfig "github.com/simsta2/modus-klar/config"
)

func newTestEngine() *route.Engine {
	return route.NewEngine(config.NewOptions([]config.Option{}))
}

func ok(ctx context.Context, c *app.RequestContext) {
	c.String(http.StatusOK, "ok")
}

func TestReviewerAuth(t *testing.T) {
	prev := appconfig.Cfg.ReviewerAPIKey
	t.Cleanup(func() { appconfig.Cfg.ReviewerAPIKey = prev })

	engine := newTestEngine()
	engine.POST("/reviews/:artifact_id", ReviewerAuth(), ok)

	appconfig.Cfg.ReviewerAPIKey = "coach-key"

	w := ut.PerformRequest(engine, http.MethodPost, "/reviews/1", nil,
		ut.Header{Key: ReviewerKeyHeader, Value: "coach-key"})
	if got := w.Result().StatusCode(); got != http.StatusOK {
		t.Fatalf("valid key: status = %d, want 200", got)
	}

	w = ut.PerformRequest(engine, http.MethodPost, "/reviews/1", nil,
		ut.Header{Key: ReviewerKeyHeader, Value: "wrong"})
	if got := w.Result().StatusCode(); got != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, want 401", got)
	}

	w = ut.PerformRequest(engine, http.MethodPost, "/reviews/1", nil)
	if got := w.Result().StatusCode(); got != http.StatusUnauthorized {
		t.Fatalf("missing key: status = %d, want 401", got)
	}
}

func TestReviewerAuthRejectsAllWithoutConfiguredKey(t *testing.T) {
	prev := appconfig.Cfg.ReviewerAPIKey
	t.Cleanup(func() { appconfig.Cfg.ReviewerAPIKey = prev })
	appconfig.Cfg.ReviewerAPIKey = ""

	engine := newTestEngine()
	engine.POST("/reviews/:artifact_id", ReviewerAuth(), ok)

	w := ut.PerformRequest(engine, http.MethodPost, "/reviews/1", nil,
		ut.Header{Key: ReviewerKeyHeader, Value: ""})
	if got := w.Result().StatusCode(); got != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", got)
	}
}

func TestRecoverMiddlewareReturns500(t *testing.T) {
	engine := newTestEngine()
	engine.Use(RecoverMiddleware())
	engine.GET("/boom", func(ctx context.Context, c *app.RequestContext) {
		panic("boom")
	})
	engine.GET("/fine", ok)

	w := ut.PerformRequest(engine, http.MethodGet, "/boom", nil)
	resp := w.Result()
	if resp.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode())
	}
	if !strings.Contains(string(resp.Body()), "INTERNAL_ERROR") {
		t.Fatalf("body = %s, want INTERNAL_ERROR code", resp.Body())
	}

	// panic 之后引擎仍然可用
	w = ut.PerformRequest(engine, http.MethodGet, "/fine", nil)
	if got := w.Result().StatusCode(); got != http.StatusOK {
		t.Fatalf("status after panic = %d, want 200", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := newTestEngine()
	engine.Use(CORSMiddleware())
	engine.OPTIONS("/v1/progress", ok)
	engine.GET("/v1/progress", ok)

	w := ut.PerformRequest(engine, http.MethodOptions, "/v1/progress", nil,
		ut.Header{Key: "Origin", Value: "https://app.example.com"})
	if got := w.Result().StatusCode(); got != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", got)
	}
}

func TestTrimRuntimeFrames(t *testing.T) {
	stack := strings.Join([]string{
		"goroutine 1 [running]:",
		"runtime/debug.Stack()",
		"\t/usr/local/go/src/runtime/debug/stack.go:26 +0x5e",
		"panic({0x1, 0x2})",
		"\t/usr/local/go/src/runtime/panic.go:770 +0x132",
		"github.com/simsta2/modus-klar/internal/handler.Submit()",
		"\t/app/internal/handler/submission.go:40 +0x10",
	}, "\n")

	got := trimRuntimeFrames([]byte(stack))
	if strings.Contains(got, "runtime/debug") || strings.Contains(got, "panic.go") {
		t.Fatalf("runtime frames kept:\n%s", got)
	}
	if !strings.Contains(got, "handler.Submit") || !strings.Contains(got, "submission.go:40") {
		t.Fatalf("application frame dropped:\n%s", got)
	}
}
