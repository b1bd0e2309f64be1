package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"tenantbase/core/internal/api/response"

	"github.com/gin-gonic/gin"
)

/*
ValidationRule 字段校验规则
功能：声明式描述单个请求字段的校验与净化策略。
Pattern 为预编译的正则，启动时构造，避免每请求编译开销。
*/
type ValidationRule struct {
	Field         string
	Required      bool
	MinLength     int
	MaxLength     int
	Pattern       *regexp.Regexp
	Sanitize      bool
	AllowedValues []string
}

/* 危险内容剥离正则，大小写不敏感 */
var (
	scriptTagRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	jsURIRe     = regexp.MustCompile(`(?i)javascript:`)
	onHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

/*
SanitizeInput 剥离字符串中的危险内容
功能：移除 <script> 块、javascript: 伪协议和内联事件处理器。
反复替换直到不动点："jjavascript:avascript:" 这类拼接在单轮替换后
会重新拼出危险内容，必须循环到输出稳定。
黑名单净化只是纵深防御的一层，输出侧仍须做上下文相关转义。
*/
func SanitizeInput(s string) string {
	for {
		cleaned := scriptTagRe.ReplaceAllString(s, "")
		cleaned = jsURIRe.ReplaceAllString(cleaned, "")
		cleaned = onHandlerRe.ReplaceAllString(cleaned, "")
		if cleaned == s {
			return cleaned
		}
		s = cleaned
	}
}

/*
validateField 按规则校验并净化单个字段值
返回：净化后的值和校验错误列表
*/
func validateField(rule ValidationRule, value string, present bool) (string, []string) {
	var errs []string

	if !present || value == "" {
		if rule.Required {
			errs = append(errs, fmt.Sprintf("字段 %s 不能为空", rule.Field))
		}
		return value, errs
	}

	if rule.Sanitize {
		value = SanitizeInput(value)
	}

	if rule.MinLength > 0 && len(value) < rule.MinLength {
		errs = append(errs, fmt.Sprintf("字段 %s 长度不能少于 %d", rule.Field, rule.MinLength))
	}
	if rule.MaxLength > 0 && len(value) > rule.MaxLength {
		errs = append(errs, fmt.Sprintf("字段 %s 长度不能超过 %d", rule.Field, rule.MaxLength))
	}
	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		errs = append(errs, fmt.Sprintf("字段 %s 格式无效", rule.Field))
	}
	if len(rule.AllowedValues) > 0 {
		allowed := false
		for _, v := range rule.AllowedValues {
			if value == v {
				allowed = true
				break
			}
		}
		if !allowed {
			errs = append(errs, fmt.Sprintf("字段 %s 的值不在允许范围内", rule.Field))
		}
	}

	return value, errs
}

/* sanitizedBodyKey 净化后请求体在 Gin 上下文中的键 */
const sanitizedBodyKey = "sanitized_body"

/*
GetSanitizedBody 从上下文提取净化后的请求体
*/
func GetSanitizedBody(c *gin.Context) map[string]interface{} {
	v, _ := c.Get(sanitizedBodyKey)
	body, _ := v.(map[string]interface{})
	return body
}

/*
InputValidation 输入校验与净化中间件
功能：对 POST/PUT/PATCH 请求体的 JSON 字段按规则校验并净化，
任一规则失败返回 400 和全部错误列表；通过后将净化副本注入上下文，
handler 应从 GetSanitizedBody 读取而不是重新解析原始 body。
非 JSON 或解析失败的请求体按空对象处理（交由 Required 规则报错）。
*/
func InputValidation(rules []ValidationRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH":
		default:
			c.Next()
			return
		}

		var raw []byte
		if c.Request.Body != nil {
			raw, _ = io.ReadAll(c.Request.Body)
		}

		body := map[string]interface{}{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				body = map[string]interface{}{}
			}
		}

		var errs []string
		for _, rule := range rules {
			v, present := body[rule.Field]
			str, isStr := v.(string)
			if present && !isStr {
				/* 非字符串字段只做 Required 检查，不做净化 */
				continue
			}
			cleaned, fieldErrs := validateField(rule, str, present)
			errs = append(errs, fieldErrs...)
			if present {
				body[rule.Field] = cleaned
			}
		}

		if len(errs) > 0 {
			response.GinBadRequest(c, strings.Join(errs, "; "))
			c.Abort()
			return
		}

		/* 净化副本注入上下文，同时恢复 body 供 ShouldBindJSON 使用 */
		cleaned, err := json.Marshal(body)
		if err != nil {
			cleaned = []byte("{}")
		}
		c.Set(sanitizedBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(cleaned))

		c.Next()
	}
}
