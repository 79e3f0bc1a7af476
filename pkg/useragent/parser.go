// Package useragent classifies User-Agent strings into the client metadata
// stored on click events.
package useragent

import (
	"strings"
	"sync"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Parser wraps the uap-go parser with device type classification.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// DeviceInfo is the parsed client metadata.
type DeviceInfo struct {
	DeviceType string // mobile, desktop, tablet, bot, unknown
	Browser    string // Chrome, Firefox, Safari, ...
	OS         string // Windows, iOS, Android, ...
	Raw        string // original User-Agent string
}

var (
	globalParser *Parser
	once         sync.Once
)

// NewParser creates a parser from the uap-core definitions compiled into
// uap-go.
func NewParser(log *zap.Logger) *Parser {
	return &Parser{
		parser: uaparser.NewFromSaved(),
		log:    log,
	}
}

// InitGlobalParser initializes the process-wide parser instance.
func InitGlobalParser(log *zap.Logger) {
	once.Do(func() {
		globalParser = NewParser(log)
	})
}

// GetGlobalParser returns the singleton parser, or nil before Init.
func GetGlobalParser() *Parser {
	return globalParser
}

// ParseUserAgent classifies one User-Agent string.
func (p *Parser) ParseUserAgent(userAgent string) *DeviceInfo {
	if userAgent == "" {
		return &DeviceInfo{
			DeviceType: "unknown",
			Browser:    "unknown",
			OS:         "unknown",
		}
	}

	client := p.parser.Parse(userAgent)

	return &DeviceInfo{
		DeviceType: p.deviceType(client, userAgent),
		Browser:    orUnknown(client.UserAgent.Family),
		OS:         orUnknown(client.Os.Family),
		Raw:        userAgent,
	}
}

func (p *Parser) deviceType(client *uaparser.Client, userAgent string) string {
	if isBot(client.UserAgent.Family, userAgent) {
		return "bot"
	}

	deviceFamily := client.Device.Family
	if deviceFamily != "" && deviceFamily != "Other" {
		if containsAny(deviceFamily, "iPad", "Tablet", "Kindle", "Surface") {
			return "tablet"
		}
		if containsAny(deviceFamily, "iPhone", "Android", "BlackBerry", "Windows Phone", "Mobile", "Phone") {
			return "mobile"
		}
	}

	osFamily := client.Os.Family
	if containsAny(osFamily, "iOS", "Android", "Windows Phone", "BlackBerry OS") {
		if isTabletOS(osFamily, userAgent) {
			return "tablet"
		}
		return "mobile"
	}

	if containsAny(osFamily, "Windows", "Mac OS X", "macOS", "Linux", "Ubuntu", "Chrome OS", "FreeBSD") {
		return "desktop"
	}

	return "unknown"
}

func isBot(uaFamily, userAgent string) bool {
	indicators := []string{
		"Googlebot", "Bingbot", "Slurp", "DuckDuckBot", "Baiduspider",
		"YandexBot", "facebookexternalhit", "Twitterbot", "LinkedInBot",
		"WhatsApp", "Telegram", "bot", "crawler", "spider", "scraper",
	}
	for _, indicator := range indicators {
		if containsFold(uaFamily, indicator) || containsFold(userAgent, indicator) {
			return true
		}
	}
	return false
}

// isTabletOS separates tablets from phones on the two big mobile platforms:
// iPads say "iPad", Android tablets lack the "Mobile" token.
func isTabletOS(osFamily, userAgent string) bool {
	if strings.Contains(osFamily, "iOS") {
		return strings.Contains(userAgent, "iPad")
	}
	if strings.Contains(osFamily, "Android") {
		return !strings.Contains(userAgent, "Mobile")
	}
	return false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func orUnknown(s string) string {
	if s == "" || s == "Other" {
		return "unknown"
	}
	return s
}
