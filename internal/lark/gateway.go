// Package lark adapts the Lark open platform API for image uploads and
// streaming-card settings updates.
package lark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// Type is the adapter identity checked by the plugin's applicability gate.
const Type = "lark"

// ErrUpload indicates the platform rejected the media submission.
var ErrUpload = errors.New("lark image upload failed")

type imageAPI interface {
	Create(ctx context.Context, req *larkim.CreateImageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateImageResp, error)
}

type rawAPICaller interface {
	Patch(ctx context.Context, apiPath string, body interface{}, accessTokenType larkcore.AccessTokenType, options ...larkcore.RequestOptionFunc) (*larkcore.ApiResp, error)
}

// Gateway is the Lark media and card capability consumed by the pipeline.
type Gateway struct {
	cfg    Config
	images imageAPI
	raw    rawAPICaller
	logger *slog.Logger
}

// NewGateway creates a gateway backed by a real Lark client.
func NewGateway(log *slog.Logger, cfg Config) (*Gateway, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	client := lark.NewClient(cfg.AppID, cfg.AppSecret, lark.WithOpenBaseUrl(cfg.openBaseURL()))
	return &Gateway{
		cfg:    cfg,
		images: client.Im.V1.Image,
		raw:    client,
		logger: log.With(slog.String("adapter", "lark")),
	}, nil
}

// Type returns the adapter identity.
func (g *Gateway) Type() string {
	return Type
}

// ConfigValue returns the named delivery setting, or def when unset.
func (g *Gateway) ConfigValue(key, def string) string {
	switch key {
	case "reply_mode":
		if strings.TrimSpace(g.cfg.ReplyMode) != "" {
			return g.cfg.ReplyMode
		}
	case "region":
		if strings.TrimSpace(g.cfg.Region) != "" {
			return g.cfg.Region
		}
	}
	return def
}

// UploadImage submits image bytes to the Lark media store and returns the
// image key.
func (g *Gateway) UploadImage(ctx context.Context, reader io.Reader) (string, error) {
	if g.images == nil {
		return "", fmt.Errorf("lark image api not configured")
	}
	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType(larkim.ImageTypeMessage).
			Image(reader).
			Build()).
		Build()
	resp, err := g.images.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if resp == nil || !resp.Success() {
		code, msg := 0, ""
		if resp != nil {
			code, msg = resp.Code, resp.Msg
		}
		return "", fmt.Errorf("%w: %s (code: %d)", ErrUpload, msg, code)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil || strings.TrimSpace(*resp.Data.ImageKey) == "" {
		return "", fmt.Errorf("%w: empty image key", ErrUpload)
	}
	key := strings.TrimSpace(*resp.Data.ImageKey)
	g.logger.Debug("image uploaded", slog.String("image_key", key))
	return key, nil
}
