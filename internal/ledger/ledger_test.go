package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendDedupesByURL(t *testing.T) {
	t.Parallel()
	l := New()

	ok := l.Append("s1", ImageReference{URL: "https://x.test/a.png", Key: "K1", DisplayText: "图片"})
	assert.True(t, ok)
	ok = l.Append("s1", ImageReference{URL: "https://x.test/a.png", Key: "K2", DisplayText: "图片"})
	assert.False(t, ok, "same URL must not be appended twice within a session")

	refs := l.Drain("s1")
	assert.Len(t, refs, 1)
	assert.Equal(t, "K1", refs[0].Key)
}

func TestAppendAllowsSameURLAcrossSessions(t *testing.T) {
	t.Parallel()
	l := New()
	assert.True(t, l.Append("s1", ImageReference{URL: "https://x.test/a.png", Key: "K1"}))
	assert.True(t, l.Append("s2", ImageReference{URL: "https://x.test/a.png", Key: "K1"}))
	assert.Equal(t, 2, l.Sessions())
}

func TestDrainIsOneShot(t *testing.T) {
	t.Parallel()
	l := New()
	l.Append("s1", ImageReference{URL: "https://x.test/a.png", Key: "K1"})
	l.Append("s1", ImageReference{URL: "https://x.test/b.png", Key: "K2"})

	first := l.Drain("s1")
	assert.Len(t, first, 2)
	assert.Equal(t, "https://x.test/a.png", first[0].URL)
	assert.Equal(t, "https://x.test/b.png", first[1].URL)

	second := l.Drain("s1")
	assert.Empty(t, second)
	assert.Equal(t, 0, l.Sessions())
}

func TestHas(t *testing.T) {
	t.Parallel()
	l := New()
	assert.False(t, l.Has("s1", "https://x.test/a.png"))
	l.Append("s1", ImageReference{URL: "https://x.test/a.png", Key: "K1"})
	assert.True(t, l.Has("s1", "https://x.test/a.png"))
	assert.False(t, l.Has("s2", "https://x.test/a.png"))
}

func TestAppendRejectsEmpty(t *testing.T) {
	t.Parallel()
	l := New()
	assert.False(t, l.Append("", ImageReference{URL: "https://x.test/a.png"}))
	assert.False(t, l.Append("s1", ImageReference{URL: ""}))
	assert.Equal(t, 0, l.Sessions())
}
