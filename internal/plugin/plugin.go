// Package plugin is the event-facing facade of the pipeline: it gates on
// the active adapter and delivery mode, drives the transform engine per
// response event, and finalizes streaming cards once a reply completes.
package plugin

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/memohai/imgtail/internal/lark"
	"github.com/memohai/imgtail/internal/transform"
)

// Adapter is the platform capability the gate inspects.
type Adapter interface {
	Type() string
	ConfigValue(key, def string) string
}

// SettingsSender applies a settings update to a streaming card.
type SettingsSender interface {
	SendCardSettings(ctx context.Context, cardID string, settings map[string]any, requestUUID string, sequence int64) error
}

// ResponseEvent carries one response lifecycle event from the host.
type ResponseEvent struct {
	// Adapter is the transport the reply is delivered on.
	Adapter Adapter
	// Session is the session context's string form.
	Session string
	// Content is the response text fragment.
	Content string
	// Messages is the reply's response-message sequence; its last element
	// identifies the end marker.
	Messages []transform.ResponseMessage
	// MessageID identifies the reply message on the platform side.
	MessageID string
	// CardID identifies the streaming card carrying the reply, when the
	// host has one. A non-empty pair binds the card for finalization.
	CardID string
}

// Plugin wires the transform engine and card finalization to host events.
type Plugin struct {
	engine   *transform.Engine
	cards    *lark.CardRegistry
	settings SettingsSender
	logger   *slog.Logger
}

// New creates the plugin facade.
func New(log *slog.Logger, engine *transform.Engine, cards *lark.CardRegistry, settings SettingsSender) *Plugin {
	if log == nil {
		log = slog.Default()
	}
	return &Plugin{
		engine:   engine,
		cards:    cards,
		settings: settings,
		logger:   log.With(slog.String("service", "plugin")),
	}
}

// OnMessageResponded processes a response event and returns the replacement
// text plus whether the host should override the reply. It engages only
// when the adapter is the Lark transport configured for streaming delivery.
func (p *Plugin) OnMessageResponded(ctx context.Context, ev ResponseEvent) (string, bool) {
	if !p.applies(ev.Adapter) {
		return ev.Content, false
	}
	p.bindCard(ev)
	sessionID := transform.SessionIDFrom(ev.Session)
	phase := transform.PhaseFromMessages(ev.Messages)
	out := p.engine.Transform(ctx, sessionID, ev.Content, phase)
	return out, out != ev.Content
}

// OnReplyFinalized marks the reply's streaming card as finished. Fired once
// per completed reply; a missing card binding makes this a no-op. Failures
// are logged and never propagate.
func (p *Plugin) OnReplyFinalized(ctx context.Context, ev ResponseEvent) {
	p.bindCard(ev)
	cardID, ok := p.cards.CardID(ev.MessageID)
	if !ok {
		p.logger.Debug("no streaming card for message", slog.String("message_id", ev.MessageID))
		return
	}
	sequence := p.cards.NextSequence(ev.MessageID)
	err := p.settings.SendCardSettings(ctx, cardID, lark.StreamingFinishedSettings(), uuid.NewString(), sequence)
	if err != nil {
		p.logger.Error("finalize streaming card failed",
			slog.String("message_id", ev.MessageID),
			slog.String("card_id", cardID),
			slog.Int64("sequence", sequence),
			slog.Any("error", err),
		)
		return
	}
	p.logger.Info("streaming card finalized", slog.String("card_id", cardID), slog.Int64("sequence", sequence))
}

// Cards exposes the registry so inbound card creation can bind replies.
func (p *Plugin) Cards() *lark.CardRegistry {
	return p.cards
}

// bindCard records the reply's card binding when the event carries one.
// Bind is idempotent for a repeated pair, so every chunk may carry it.
func (p *Plugin) bindCard(ev ResponseEvent) {
	if ev.MessageID == "" || ev.CardID == "" {
		return
	}
	p.cards.Bind(ev.MessageID, ev.CardID)
}

func (p *Plugin) applies(adapter Adapter) bool {
	if adapter == nil {
		return false
	}
	if adapter.Type() != lark.Type {
		return false
	}
	return adapter.ConfigValue("reply_mode", lark.ReplyModeNormal) == lark.ReplyModeStream
}
