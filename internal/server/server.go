// Package server exposes the pipeline over HTTP: host event ingestion plus
// an operational status surface.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/memohai/imgtail/internal/plugin"
	"github.com/memohai/imgtail/internal/transform"
)

// CacheStats reports URL cache occupancy.
type CacheStats interface {
	Len() int
}

// LedgerStats reports sessions with pending images.
type LedgerStats interface {
	Sessions() int
}

// UploadStats reports successful platform uploads.
type UploadStats interface {
	Uploads() int64
}

type Server struct {
	echo    *echo.Echo
	addr    string
	plugin  *plugin.Plugin
	adapter plugin.Adapter
	cache   CacheStats
	ledger  LedgerStats
	uploads UploadStats
	logger  *slog.Logger
}

// NewServer builds the echo server and registers routes.
func NewServer(log *slog.Logger, addr string, p *plugin.Plugin, adapter plugin.Adapter, cache CacheStats, ledger LedgerStats, uploads UploadStats) *Server {
	if log == nil {
		log = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		addr:    addr,
		plugin:  p,
		adapter: adapter,
		cache:   cache,
		ledger:  ledger,
		uploads: uploads,
		logger:  log.With(slog.String("service", "server")),
	}

	e.GET("/ping", s.ping)
	e.GET("/status", s.status)
	e.POST("/events/response", s.handleResponse)
	e.POST("/events/finalized", s.handleFinalized)
	return s
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"cache_entries":    s.cache.Len(),
		"pending_sessions": s.ledger.Sessions(),
		"uploads":          s.uploads.Uploads(),
	})
}

// responseEventRequest is one host response-lifecycle event.
type responseEventRequest struct {
	Session   string                      `json:"session"`
	Content   string                      `json:"content"`
	MessageID string                      `json:"message_id,omitempty"`
	CardID    string                      `json:"card_id,omitempty"`
	Messages  []transform.ResponseMessage `json:"messages,omitempty"`
}

type responseEventReply struct {
	Content  string `json:"content"`
	Override bool   `json:"override"`
}

func (s *Server) handleResponse(c echo.Context) error {
	var req responseEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}
	out, override := s.plugin.OnMessageResponded(c.Request().Context(), plugin.ResponseEvent{
		Adapter:   s.adapter,
		Session:   req.Session,
		Content:   req.Content,
		Messages:  req.Messages,
		MessageID: req.MessageID,
		CardID:    req.CardID,
	})
	return c.JSON(http.StatusOK, responseEventReply{Content: out, Override: override})
}

func (s *Server) handleFinalized(c echo.Context) error {
	var req responseEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}
	s.plugin.OnReplyFinalized(c.Request().Context(), plugin.ResponseEvent{
		Adapter:   s.adapter,
		Session:   req.Session,
		Content:   req.Content,
		MessageID: req.MessageID,
		CardID:    req.CardID,
	})
	return c.NoContent(http.StatusNoContent)
}
