package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/imgtail/internal/ledger"
)

type fakeUploader struct {
	keys  map[string]string
	err   error
	calls []string
}

func (u *fakeUploader) Upload(ctx context.Context, url string) (string, error) {
	u.calls = append(u.calls, url)
	if u.err != nil {
		return "", u.err
	}
	return u.keys[url], nil
}

func newEngine(uploader *fakeUploader) (*Engine, *ledger.Ledger) {
	l := ledger.New()
	return NewEngine(nil, uploader, l), l
}

func TestInterimWithoutImagesIsPassThrough(t *testing.T) {
	t.Parallel()
	engine, _ := newEngine(&fakeUploader{})
	in := "plain text\n\n\nwith blank lines  "
	out := engine.Transform(context.Background(), "s1", in, PhaseInterim)
	assert.Equal(t, in, out, "match-free interim content must not be rewritten")
}

func TestInterimStripsUploadsAndRecords(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{keys: map[string]string{"https://x.test/a.png": "K1"}}
	engine, l := newEngine(uploader)

	out := engine.Transform(context.Background(), "s1", "Look ![cat](https://x.test/a.png) nice", PhaseInterim)
	assert.Equal(t, "Look  nice", out)
	require.Equal(t, []string{"https://x.test/a.png"}, uploader.calls)

	refs := l.Drain("s1")
	require.Len(t, refs, 1)
	assert.Equal(t, ledger.ImageReference{
		URL:         "https://x.test/a.png",
		Key:         "K1",
		DisplayText: "图片",
	}, refs[0])
}

func TestInterimCollapsesBlankRunsAndTrims(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{keys: map[string]string{"https://x.test/a.png": "K1"}}
	engine, _ := newEngine(uploader)

	in := "before\n\n![cat](https://x.test/a.png)\n \nafter\n"
	out := engine.Transform(context.Background(), "s1", in, PhaseInterim)
	assert.Equal(t, "before\nafter", out)
}

func TestInterimSameURLTwiceUploadsOnce(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{keys: map[string]string{"https://x.test/a.png": "K1"}}
	engine, l := newEngine(uploader)

	engine.Transform(context.Background(), "s1", "![a](https://x.test/a.png)", PhaseInterim)
	engine.Transform(context.Background(), "s1", "again ![a](https://x.test/a.png)", PhaseInterim)

	assert.Len(t, uploader.calls, 1, "second chunk with the same URL must not upload again")
	refs := l.Drain("s1")
	assert.Len(t, refs, 1)
}

func TestInterimUploadFailureStillStrips(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{err: errors.New("unreachable")}
	engine, l := newEngine(uploader)

	out := engine.Transform(context.Background(), "s1", "text ![x](https://x.test/broken.png)", PhaseInterim)
	assert.Equal(t, "text", out)
	assert.Empty(t, l.Drain("s1"), "failed upload must not be recorded")
}

func TestTerminalAppendsAccumulatedImages(t *testing.T) {
	t.Parallel()
	engine, l := newEngine(&fakeUploader{})
	l.Append("s1", ledger.ImageReference{URL: "https://x.test/a.png", Key: "K1", DisplayText: "图片"})

	out := engine.Transform(context.Background(), "s1", "done", PhaseTerminal)
	assert.Equal(t, "done\n\n![图片](K1)", out)
	assert.Empty(t, l.Drain("s1"), "terminal transform must drain the session ledger")
}

func TestTerminalWithEmptyContentRendersImagesAlone(t *testing.T) {
	t.Parallel()
	engine, l := newEngine(&fakeUploader{})
	l.Append("s1", ledger.ImageReference{URL: "https://x.test/a.png", Key: "K1", DisplayText: "图片"})
	l.Append("s1", ledger.ImageReference{URL: "https://x.test/b.png", Key: "K2", DisplayText: "图片"})

	out := engine.Transform(context.Background(), "s1", "   ", PhaseTerminal)
	assert.Equal(t, "![图片](K1)\n![图片](K2)", out)
}

func TestTerminalWithEmptyLedgerLeavesContentUnchanged(t *testing.T) {
	t.Parallel()
	engine, _ := newEngine(&fakeUploader{})
	out := engine.Transform(context.Background(), "s1", "hello", PhaseTerminal)
	assert.Equal(t, "hello", out)
}

func TestTerminalIgnoresResidualImageSyntax(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{}
	engine, l := newEngine(uploader)
	l.Append("s1", ledger.ImageReference{URL: "https://x.test/a.png", Key: "K1", DisplayText: "图片"})

	out := engine.Transform(context.Background(), "s1", "tail ![late](https://x.test/late.png)", PhaseTerminal)
	assert.Equal(t, "tail\n\n![图片](K1)", out)
	assert.Empty(t, uploader.calls, "terminal phase must not attempt new uploads")
}

func TestPhaseFromMessages(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		messages []ResponseMessage
		want     Phase
	}{
		{"empty sequence", nil, PhaseInterim},
		{"plain chunk", []ResponseMessage{{Text: "hi"}}, PhaseInterim},
		{"end marker last", []ResponseMessage{{Text: "hi"}, {Name: EndMarkerName}}, PhaseTerminal},
		{"end marker not last", []ResponseMessage{{Name: EndMarkerName}, {Text: "hi"}}, PhaseInterim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PhaseFromMessages(tc.messages)
			if got != tc.want {
				t.Errorf("PhaseFromMessages = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSessionIDFromIsStable(t *testing.T) {
	t.Parallel()
	a := SessionIDFrom("lark:bot:chat-1")
	b := SessionIDFrom("lark:bot:chat-1")
	c := SessionIDFrom("lark:bot:chat-2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
