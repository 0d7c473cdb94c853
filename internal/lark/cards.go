package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
)

// CardRegistry tracks which reply messages are backed by a streaming card
// and the per-message sequence numbers the cardkit API requires for
// ordering settings updates.
type CardRegistry struct {
	mu        sync.Mutex
	cards     map[string]string
	sequences map[string]int64
}

// NewCardRegistry creates an empty registry.
func NewCardRegistry() *CardRegistry {
	return &CardRegistry{
		cards:     make(map[string]string),
		sequences: make(map[string]int64),
	}
}

// Bind associates a reply message ID with its streaming card ID.
func (r *CardRegistry) Bind(messageID, cardID string) {
	messageID = strings.TrimSpace(messageID)
	cardID = strings.TrimSpace(cardID)
	if messageID == "" || cardID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[messageID] = cardID
}

// CardID returns the card bound to messageID, if any.
func (r *CardRegistry) CardID(messageID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cardID, ok := r.cards[messageID]
	return cardID, ok
}

// NextSequence returns the current sequence for messageID and advances the
// counter by one. Sequences start at 1.
func (r *CardRegistry) NextSequence(messageID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.sequences[messageID]
	if seq == 0 {
		seq = 1
	}
	r.sequences[messageID] = seq + 1
	return seq
}

// Forget drops the card binding and sequence state for messageID.
func (r *CardRegistry) Forget(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cards, messageID)
	delete(r.sequences, messageID)
}

// StreamingFinishedSettings is the cardkit settings payload that marks a
// streaming card as completed.
func StreamingFinishedSettings() map[string]any {
	return map[string]any{
		"config": map[string]any{
			"streaming_mode": false,
		},
	}
}

// SendCardSettings applies a settings update to a streaming card. The
// sequence must increase monotonically per card; requestUUID deduplicates
// retries on the platform side.
func (g *Gateway) SendCardSettings(ctx context.Context, cardID string, settings map[string]any, requestUUID string, sequence int64) error {
	if g.raw == nil {
		return fmt.Errorf("lark card api not configured")
	}
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return fmt.Errorf("lark card id is required")
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal card settings: %w", err)
	}
	body := map[string]any{
		"settings": string(settingsJSON),
		"sequence": sequence,
		"uuid":     requestUUID,
	}
	resp, err := g.raw.Patch(ctx, "/open-apis/cardkit/v1/cards/"+cardID+"/settings", body, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return fmt.Errorf("lark card settings: %w", err)
	}
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(resp.RawBody, &parsed); err != nil {
		return fmt.Errorf("lark card settings: parse response: %w", err)
	}
	if parsed.Code != 0 {
		return fmt.Errorf("lark card settings failed: %s (code: %d)", parsed.Msg, parsed.Code)
	}
	return nil
}
