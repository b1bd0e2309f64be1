package service

import (
	"fmt"

	"github.com/mileusna/useragent"
)

/* 设备类型枚举，与 user_sessions.device_type 列对应 */
const (
	DeviceTypeDesktop = "desktop"
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeBot     = "bot"
	DeviceTypeUnknown = "unknown"
)

/*
DeviceInfo 从 User-Agent 解析出的设备指纹
*/
type DeviceInfo struct {
	DeviceName     string
	DeviceType     string
	BrowserName    string
	BrowserVersion string
	OSName         string
	OSVersion      string
	IsMobile       bool
}

/*
ParseUserAgent 解析 User-Agent 字符串为设备指纹
功能：提取浏览器、操作系统和设备类型；空串或无法识别的 UA
返回 unknown 类型而不报错，会话创建不因 UA 缺失失败。
*/
func ParseUserAgent(rawUA string) DeviceInfo {
	info := DeviceInfo{
		DeviceName:  "Unknown Device",
		DeviceType:  DeviceTypeUnknown,
		BrowserName: "Unknown",
		OSName:      "Unknown",
	}
	if rawUA == "" {
		return info
	}

	ua := useragent.Parse(rawUA)

	if ua.Name != "" {
		info.BrowserName = ua.Name
	}
	info.BrowserVersion = ua.Version
	if ua.OS != "" {
		info.OSName = ua.OS
	}
	info.OSVersion = ua.OSVersion
	info.IsMobile = ua.Mobile

	switch {
	case ua.Bot:
		info.DeviceType = DeviceTypeBot
	case ua.Tablet:
		info.DeviceType = DeviceTypeTablet
	case ua.Mobile:
		info.DeviceType = DeviceTypeMobile
	case ua.Desktop:
		info.DeviceType = DeviceTypeDesktop
	}

	/* 展示名："Chrome on Windows" 风格，会话管理页面直接显示 */
	if info.BrowserName != "Unknown" && info.OSName != "Unknown" {
		info.DeviceName = fmt.Sprintf("%s on %s", info.BrowserName, info.OSName)
	} else if info.BrowserName != "Unknown" {
		info.DeviceName = info.BrowserName
	}

	return info
}
