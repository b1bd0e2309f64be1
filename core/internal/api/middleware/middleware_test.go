package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tenantbase/core/internal/config"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

/* newTestRouter 构建只挂指定中间件的测试路由 */
func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	handler := func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) }
	r.GET("/api/test", handler)
	r.POST("/api/test", handler)
	return r
}

func TestSecurityHeadersApplied(t *testing.T) {
	cfg := config.DefaultConfig().Security
	r := newTestRouter(SecurityHeaders(&cfg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/test", nil))

	checks := map[string]string{
		"X-Content-Type-Options":            "nosniff",
		"X-Frame-Options":                   "DENY",
		"X-XSS-Protection":                  "1; mode=block",
		"X-DNS-Prefetch-Control":            "off",
		"X-Download-Options":                "noopen",
		"X-Permitted-Cross-Domain-Policies": "none",
		"Referrer-Policy":                   "strict-origin-when-cross-origin",
		"Cross-Origin-Opener-Policy":        "same-origin",
	}
	for name, want := range checks {
		if got := w.Header().Get(name); got != want {
			t.Errorf("响应头 %s 期望 %q，实际 %q", name, want, got)
		}
	}

	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "default-src 'self'") {
		t.Errorf("默认 CSP 应包含 default-src 'self'，实际 %q", csp)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("API 路由应禁止缓存，实际 %q", cc)
	}
	/* HSTS 默认关闭 */
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("未启用 HSTS 时不应下发 Strict-Transport-Security")
	}
}

func TestSecurityHeadersHSTS(t *testing.T) {
	cfg := config.DefaultConfig().Security
	cfg.EnableHSTS = true
	r := newTestRouter(SecurityHeaders(&cfg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/test", nil))

	if hsts := w.Header().Get("Strict-Transport-Security"); !strings.Contains(hsts, "max-age=63072000") {
		t.Errorf("HSTS 头错误: %q", hsts)
	}
}

func TestSecurityHeadersDoNotClobber(t *testing.T) {
	cfg := config.DefaultConfig().Security
	r := gin.New()
	/* 上游中间件先设置了定制值 */
	r.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Next()
	})
	r.Use(SecurityHeaders(&cfg))
	r.GET("/api/test", func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/test", nil))

	if got := w.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("已设置的头不应被覆盖，实际 %q", got)
	}
}

func TestCSRFSafeMethodsPass(t *testing.T) {
	r := newTestRouter(CSRF("", ""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/test", nil))
	if w.Code != 200 {
		t.Fatalf("GET 不应受 CSRF 限制，实际 %d", w.Code)
	}
}

func TestCSRFMatchingTokenPasses(t *testing.T) {
	r := newTestRouter(CSRF("csrf-token", "X-CSRF-Token"))

	req := httptest.NewRequest("POST", "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: "csrf-token", Value: "abc123"})
	req.Header.Set("X-CSRF-Token", "abc123")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("cookie 与请求头一致应放行，实际 %d", w.Code)
	}
}

func TestCSRFRejects(t *testing.T) {
	r := newTestRouter(CSRF("csrf-token", "X-CSRF-Token"))

	cases := []struct {
		name   string
		setup  func(*http.Request)
	}{
		{"缺少 cookie 和请求头", func(req *http.Request) {}},
		{"只有 cookie", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "csrf-token", Value: "abc"})
		}},
		{"只有请求头", func(req *http.Request) {
			req.Header.Set("X-CSRF-Token", "abc")
		}},
		{"两者不一致", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "csrf-token", Value: "abc"})
			req.Header.Set("X-CSRF-Token", "xyz")
		}},
	}

	for _, tc := range cases {
		req := httptest.NewRequest("POST", "/api/test", nil)
		tc.setup(req)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != 403 {
			t.Errorf("%s: 期望 403，实际 %d", tc.name, w.Code)
		}
	}
}

func TestBodyLimitOversizedRejected(t *testing.T) {
	r := newTestRouter(BodyLimit(1000000))

	req := httptest.NewRequest("POST", "/api/test", strings.NewReader("x"))
	req.ContentLength = 2000000

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("超限请求期望 413，实际 %d", w.Code)
	}
}

func TestBodyLimitWithinLimitPasses(t *testing.T) {
	r := newTestRouter(BodyLimit(1000000))

	req := httptest.NewRequest("POST", "/api/test", strings.NewReader(`{"a":1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("限制内请求应放行，实际 %d", w.Code)
	}
}

func TestBodyLimitAbsentContentLengthPasses(t *testing.T) {
	r := newTestRouter(BodyLimit(1000000))

	req := httptest.NewRequest("POST", "/api/test", strings.NewReader("small"))
	req.ContentLength = -1 /* chunked 传输无 Content-Length */

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("无 Content-Length 的请求应进入 MaxBytesReader 路径，实际 %d", w.Code)
	}
}

func TestClientIPPrecedence(t *testing.T) {
	r := gin.New()
	var got string
	r.GET("/ip", func(c *gin.Context) {
		got = clientIP(c)
		c.Status(200)
	})

	/* XFF 首段优先 */
	req := httptest.NewRequest("GET", "/ip", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	req.Header.Set("X-Real-IP", "198.51.100.99")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "198.51.100.1" {
		t.Fatalf("应取 X-Forwarded-For 首段，实际 %q", got)
	}

	/* 无 XFF 时取 X-Real-IP */
	req = httptest.NewRequest("GET", "/ip", nil)
	req.Header.Set("X-Real-IP", "198.51.100.99")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "198.51.100.99" {
		t.Fatalf("应取 X-Real-IP，实际 %q", got)
	}
}

func TestRecoveryConvertsPanicTo500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) {
		panic("数据库连接意外关闭")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("panic 请求期望 500，实际 %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"success":false`) {
		t.Fatalf("应返回统一错误响应结构，实际 %q", body)
	}
	/* panic 内容与堆栈只进日志，不进响应 */
	if strings.Contains(body, "数据库连接") || strings.Contains(body, "goroutine") {
		t.Fatalf("响应不应泄漏 panic 详情: %q", body)
	}
}

func TestRecoveryDoesNotTouchNormalRequests(t *testing.T) {
	r := newTestRouter(Recovery())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/test", nil))
	if w.Code != 200 {
		t.Fatalf("正常请求应不受影响，实际 %d", w.Code)
	}
}
