package transform

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/memohai/imgtail/internal/ledger"
)

// DefaultDisplayText is the hover text rendered for re-appended images.
const DefaultDisplayText = "图片"

var (
	// imagePattern matches Markdown image syntax with an http(s) URL:
	// anything inside the brackets as alt text, URL terminated at the
	// first closing parenthesis. Non-nested, single line.
	imagePattern = regexp.MustCompile(`!\[.*?\]\((https?://[^)]+)\)`)
	// blankRunPattern matches a run of blank lines, interior whitespace
	// included.
	blankRunPattern = regexp.MustCompile(`\n\s*\n`)
)

// Uploader moves one image URL into the platform media store.
type Uploader interface {
	Upload(ctx context.Context, url string) (string, error)
}

// Engine is the interim/terminal state machine over a reply's content.
// Phase transitions are driven by the caller from event identity; the
// engine itself only distinguishes the two phases.
type Engine struct {
	uploader Uploader
	ledger   *ledger.Ledger
	logger   *slog.Logger
}

// NewEngine creates a transform engine.
func NewEngine(log *slog.Logger, uploader Uploader, l *ledger.Ledger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		uploader: uploader,
		ledger:   l,
		logger:   log.With(slog.String("service", "transform")),
	}
}

// Transform processes one response event's content for the session.
//
// Interim: every matched image URL not yet recorded for the session is
// uploaded and, on success, appended to the ledger; all matches are
// stripped regardless of upload outcome. Content without matches passes
// through untouched.
//
// Terminal: the ledger is drained (one-shot) and the accumulated images
// are re-appended as "![displayText](key)" lines after the stripped
// content. An empty ledger leaves the content unchanged.
func (e *Engine) Transform(ctx context.Context, sessionID, content string, phase Phase) string {
	if phase == PhaseTerminal {
		return e.transformTerminal(content, sessionID)
	}
	return e.transformInterim(ctx, sessionID, content)
}

func (e *Engine) transformInterim(ctx context.Context, sessionID, content string) string {
	matches := imagePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return content
	}

	cleaned := stripImages(content)

	for _, match := range matches {
		url := match[1]
		if e.ledger.Has(sessionID, url) {
			e.logger.Debug("url already recorded for session", slog.String("session_id", sessionID), slog.String("url", url))
			continue
		}
		key, err := e.uploader.Upload(ctx, url)
		if err != nil {
			// Degraded outcome: this image is omitted from the final
			// reply, siblings and the rest of the message proceed.
			e.logger.Error("image upload failed", slog.String("url", url), slog.Any("error", err))
			continue
		}
		e.ledger.Append(sessionID, ledger.ImageReference{
			URL:         url,
			Key:         key,
			DisplayText: DefaultDisplayText,
		})
	}

	return cleaned
}

func (e *Engine) transformTerminal(content, sessionID string) string {
	refs := e.ledger.Drain(sessionID)
	if len(refs) == 0 {
		return content
	}

	lines := make([]string, 0, len(refs))
	for _, ref := range refs {
		lines = append(lines, "!["+ref.DisplayText+"]("+ref.Key+")")
	}
	joined := strings.Join(lines, "\n")

	cleaned := stripImages(content)
	if cleaned == "" {
		return joined
	}
	return cleaned + "\n\n" + joined
}

// stripImages removes all Markdown image matches, collapses blank-line
// runs to a single newline, and trims surrounding whitespace.
func stripImages(content string) string {
	cleaned := imagePattern.ReplaceAllString(content, "")
	cleaned = blankRunPattern.ReplaceAllString(cleaned, "\n")
	return strings.TrimSpace(cleaned)
}
