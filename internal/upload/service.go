// Package upload moves source images into the platform media store,
// memoizing results in the process-wide URL cache.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/memohai/imgtail/internal/imagecache"
)

var (
	// ErrGatewayUnavailable indicates no media gateway is configured; text
	// processing continues but uploads are skipped.
	ErrGatewayUnavailable = errors.New("media gateway unavailable")
)

// Fetcher downloads the raw bytes for an image URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MediaGateway submits image bytes to the platform media store and returns
// the opaque reference key.
type MediaGateway interface {
	UploadImage(ctx context.Context, reader io.Reader) (string, error)
}

// Service uploads images by URL. Exactly one cache write per successful
// upload; zero or one fetch and zero or one gateway call per invocation.
type Service struct {
	cache   *imagecache.Cache
	fetcher Fetcher
	gateway MediaGateway
	logger  *slog.Logger
	uploads atomic.Int64
}

// NewService creates an upload service.
func NewService(log *slog.Logger, cache *imagecache.Cache, fetcher Fetcher, gateway MediaGateway) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		gateway: gateway,
		logger:  log.With(slog.String("service", "upload")),
	}
}

// Upload returns the platform reference key for url. A cache hit
// short-circuits without any network I/O. On a miss the bytes are fetched,
// spooled to a temporary file, and submitted via the gateway; the temp file
// is removed on every exit path.
func (s *Service) Upload(ctx context.Context, url string) (string, error) {
	if key, ok := s.cache.Get(url); ok {
		s.logger.Debug("cache hit", slog.String("url", url), slog.String("key", key))
		return key, nil
	}
	if s.gateway == nil {
		return "", ErrGatewayUnavailable
	}

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}

	key, err := s.submitViaTempFile(ctx, data)
	if err != nil {
		return "", err
	}

	s.cache.Put(url, key)
	s.uploads.Add(1)
	s.logger.Info("image uploaded", slog.String("url", url), slog.String("key", key))
	return key, nil
}

// Uploads returns the number of successful gateway uploads performed.
func (s *Service) Uploads() int64 {
	return s.uploads.Load()
}

func (s *Service) submitViaTempFile(ctx context.Context, data []byte) (string, error) {
	tempFile, err := os.CreateTemp("", "imgtail-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}()

	if _, err := tempFile.Write(data); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind temp file: %w", err)
	}
	key, err := s.gateway.UploadImage(ctx, tempFile)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return key, nil
}
