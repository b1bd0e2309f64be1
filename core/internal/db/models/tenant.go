package models

import (
	"strings"
)

/*
Tenant 租户（组织）
功能：多租户隔离单元，安全策略字段在全局默认值之上做浅覆盖。
AllowedDomains / IPWhitelist 以逗号分隔存储，空值表示不限制。
*/
type Tenant struct {
	BaseModel
	Name string `gorm:"type:varchar(128);not null" json:"name"`
	Slug string `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`

	/* 租户级安全策略 */
	AllowedDomains string `gorm:"type:varchar(1024)" json:"allowed_domains"` /* 允许的跨域来源，逗号分隔 */
	IPWhitelist    string `gorm:"type:varchar(1024)" json:"ip_whitelist"`    /* 允许的客户端 IP，逗号分隔 */
	MaxPayloadSize int64  `gorm:"default:0" json:"max_payload_size"`         /* 请求体上限（字节），0 表示用全局默认 */
	CSPOverride    string `gorm:"type:varchar(1024)" json:"csp_override"`    /* 覆盖全局 CSP，空值沿用默认 */

	Enabled bool `gorm:"default:true;not null" json:"enabled"`
}

func (Tenant) TableName() string {
	return "tenants"
}

/*
AllowedDomainList 返回解析后的跨域来源白名单
*/
func (t *Tenant) AllowedDomainList() []string {
	return splitCSV(t.AllowedDomains)
}

/*
IPWhitelistEntries 返回解析后的 IP 白名单
*/
func (t *Tenant) IPWhitelistEntries() []string {
	return splitCSV(t.IPWhitelist)
}

/* splitCSV 分割逗号分隔列表并去除空白项 */
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
