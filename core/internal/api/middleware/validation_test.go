package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSanitizeInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"script 块", `hello<script>alert(1)</script>world`, "helloworld"},
		{"大小写混合 script", `a<SCRIPT src="x">bad()</ScRiPt>b`, "ab"},
		{"javascript 伪协议", `<a href="javascript:alert(1)">x</a>`, `<a href="alert(1)">x</a>`},
		{"内联事件处理器", `<img src=x onerror=alert(1)>`, `<img src=x alert(1)>`},
		{"干净输入原样返回", "plain text 中文", "plain text 中文"},
	}

	for _, tc := range cases {
		if got := SanitizeInput(tc.input); got != tc.want {
			t.Errorf("%s: 期望 %q，实际 %q", tc.name, tc.want, got)
		}
	}
}

func TestSanitizeInputIdempotent(t *testing.T) {
	input := `x<script>a</script> javascript: onload= done`
	once := SanitizeInput(input)
	twice := SanitizeInput(once)
	if once != twice {
		t.Fatalf("净化应幂等，一次 %q 两次 %q", once, twice)
	}
}

func newValidationRouter(rules []ValidationRule) (*gin.Engine, *map[string]interface{}) {
	r := gin.New()
	var captured map[string]interface{}
	r.Use(InputValidation(rules))
	r.POST("/submit", func(c *gin.Context) {
		captured = GetSanitizedBody(c)
		c.JSON(200, gin.H{"ok": true})
	})
	return r, &captured
}

func TestInputValidationRequired(t *testing.T) {
	r, _ := newValidationRouter([]ValidationRule{
		{Field: "email", Required: true},
	})

	req := httptest.NewRequest("POST", "/submit", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("缺少必填字段期望 400，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "email") {
		t.Fatalf("错误信息应点名字段，实际 %s", w.Body.String())
	}
}

func TestInputValidationLengthAndPattern(t *testing.T) {
	r, _ := newValidationRouter([]ValidationRule{
		{Field: "code", Required: true, MinLength: 4, MaxLength: 8,
			Pattern: regexp.MustCompile(`^[0-9]+$`)},
	})

	for _, bad := range []string{`{"code":"12"}`, `{"code":"123456789"}`, `{"code":"abcd"}`} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/submit", strings.NewReader(bad)))
		if w.Code != 400 {
			t.Errorf("非法输入 %s 期望 400，实际 %d", bad, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/submit", strings.NewReader(`{"code":"123456"}`)))
	if w.Code != 200 {
		t.Fatalf("合法输入应放行，实际 %d", w.Code)
	}
}

func TestInputValidationAllowedValues(t *testing.T) {
	r, _ := newValidationRouter([]ValidationRule{
		{Field: "role", AllowedValues: []string{"admin", "user"}},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/submit", strings.NewReader(`{"role":"superuser"}`)))
	if w.Code != 400 {
		t.Fatalf("不在允许范围的值期望 400，实际 %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/submit", strings.NewReader(`{"role":"user"}`)))
	if w.Code != 200 {
		t.Fatalf("允许范围内的值应放行，实际 %d", w.Code)
	}
}

func TestInputValidationSanitizesBody(t *testing.T) {
	r, captured := newValidationRouter([]ValidationRule{
		{Field: "name", Sanitize: true, MaxLength: 100},
	})

	body := `{"name":"Bob<script>alert(1)</script>"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/submit", strings.NewReader(body)))

	if w.Code != 200 {
		t.Fatalf("净化后应放行，实际 %d", w.Code)
	}
	if (*captured)["name"] != "Bob" {
		t.Fatalf("上下文中的净化值错误: %v", (*captured)["name"])
	}
}

func TestInputValidationMalformedJSONTreatedAsEmpty(t *testing.T) {
	r, _ := newValidationRouter([]ValidationRule{
		{Field: "email", Required: true},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/submit", strings.NewReader(`not-json{{`)))
	if w.Code != 400 {
		t.Fatalf("坏 JSON 按空对象处理，必填字段应报 400，实际 %d", w.Code)
	}
}

func TestInputValidationSkipsGet(t *testing.T) {
	r := gin.New()
	r.Use(InputValidation([]ValidationRule{{Field: "email", Required: true}}))
	r.GET("/q", func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/q", nil))
	if w.Code != 200 {
		t.Fatalf("GET 请求不应做请求体校验，实际 %d", w.Code)
	}
}

func TestInputValidationRestoresBodyForBinding(t *testing.T) {
	r := gin.New()
	r.Use(InputValidation([]ValidationRule{{Field: "name", Sanitize: true}}))
	var bound struct {
		Name string `json:"name"`
	}
	r.POST("/bind", func(c *gin.Context) {
		if err := json.NewDecoder(c.Request.Body).Decode(&bound); err != nil {
			c.Status(500)
			return
		}
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/bind",
		strings.NewReader(`{"name":"Alice<script>x</script>"}`)))

	if w.Code != 200 {
		t.Fatalf("handler 应能重新解析请求体，实际 %d", w.Code)
	}
	if bound.Name != "Alice" {
		t.Fatalf("handler 读到的应是净化后的值，实际 %q", bound.Name)
	}
}

func TestSanitizeInputSplicedPayloads(t *testing.T) {
	/* 单轮替换后会重新拼出危险内容的输入，必须被循环净化收敛掉 */
	cases := []struct {
		name  string
		input string
	}{
		{"拼接的 javascript 伪协议", "jjavascript:avascript:"},
		{"嵌套拼接的 script 块", "<scr<script>x</script>ipt>alert(1)</scr<script>y</script>ipt>"},
		{"双重拼接", "jjjavascript:avascript:avascript:"},
	}
	for _, tc := range cases {
		got := SanitizeInput(tc.input)
		if jsURIRe.MatchString(got) || scriptTagRe.MatchString(got) || onHandlerRe.MatchString(got) {
			t.Errorf("%s: 净化结果仍含危险内容: %q", tc.name, got)
		}
	}

	if got := SanitizeInput("jjavascript:avascript:"); got != "" {
		t.Fatalf("拼接伪协议应被完全移除，实际 %q", got)
	}
}
