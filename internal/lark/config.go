package lark

import (
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
)

const (
	regionFeishu = "feishu"
	regionLark   = "lark"

	// ReplyModeNormal delivers a reply as one message.
	ReplyModeNormal = "normal"
	// ReplyModeStream delivers a reply as an incrementally patched card.
	ReplyModeStream = "stream_message"
)

// Config holds the Lark app credentials and delivery settings.
type Config struct {
	AppID     string
	AppSecret string
	Region    string
	ReplyMode string
}

// Normalize validates the config and fills defaults.
func (c Config) Normalize() (Config, error) {
	c.AppID = strings.TrimSpace(c.AppID)
	c.AppSecret = strings.TrimSpace(c.AppSecret)
	if c.AppID == "" || c.AppSecret == "" {
		return Config{}, fmt.Errorf("lark app_id and app_secret are required")
	}
	region, err := normalizeRegion(c.Region)
	if err != nil {
		return Config{}, err
	}
	c.Region = region
	mode, err := normalizeReplyMode(c.ReplyMode)
	if err != nil {
		return Config{}, err
	}
	c.ReplyMode = mode
	return c, nil
}

func normalizeRegion(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", regionFeishu, "cn", "china":
		return regionFeishu, nil
	case regionLark, "global", "intl", "international":
		return regionLark, nil
	default:
		return "", fmt.Errorf("lark region must be feishu or lark")
	}
}

func normalizeReplyMode(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ReplyModeNormal:
		return ReplyModeNormal, nil
	case ReplyModeStream:
		return ReplyModeStream, nil
	default:
		return "", fmt.Errorf("lark reply_mode must be normal or stream_message")
	}
}

func (c Config) openBaseURL() string {
	if c.Region == regionLark {
		return lark.LarkBaseUrl
	}
	return lark.FeishuBaseUrl
}
