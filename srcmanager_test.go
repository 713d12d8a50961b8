package reverie

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Cacheable route ---

func TestCacheablize(t *testing.T) {
	p := CacheablePolicy{Enabled: true, Route: "/cache", Param: "url"}

	got := p.Cacheablize("/img/a.png", "https://host/")
	assert.True(t, strings.HasPrefix(got, "https://host/cache"), got)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "https://host/img/a.png", u.Query().Get("url"))

	tests := []struct {
		name   string
		policy CacheablePolicy
		in     string
		base   string
		want   string
	}{
		{"disabled", CacheablePolicy{Route: "/cache"}, "/img/a.png", "https://host/", "/img/a.png"},
		{"already routed", p, "/cache?url=x", "https://host/", "/cache?url=x"},
		{"absolute", p, "https://cdn/x.png", "https://host/", "https://host/cache?url=https%3A%2F%2Fcdn%2Fx.png"},
		{"no base", p, "/img/a.png", "", "/cache?url=%2Fimg%2Fa.png"},
		{"route with query", CacheablePolicy{Enabled: true, Route: "https://c/x?v=1", Param: "src"}, "a.png", "", "https://c/x?v=1&src=a.png"},
		{"default param", CacheablePolicy{Enabled: true, Route: "/c"}, "a.png", "", "/c?url=a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Cacheablize(tt.in, tt.base))
		})
	}
}

// --- Registration ---

func TestSrcManager_RegisterDedupes(t *testing.T) {
	m := NewSrcManager()
	m.RegisterSound(NewSound("a.ogg")).
		RegisterSound(NewSound("a.ogg")).
		RegisterImage(NewImage("bg", "/bg.png")).
		RegisterImage(NewImage("other-name", "/bg.png")).
		RegisterVideo("https://v/1.mp4").
		RegisterVideo("https://v/1.mp4")

	assert.Len(t, m.Src(), 3)
	assert.Len(t, m.SrcByType(SrcAudio), 1)
	assert.True(t, m.IsSrcRegistered("a.ogg"))
	assert.True(t, m.IsSrcRegistered("https://v/1.mp4"))
	assert.False(t, m.IsSrcRegistered("b.ogg"))
}

func TestSrcManager_ImageIdentityFollowsPolicy(t *testing.T) {
	m := NewSrcManager(WithCacheablePolicy(CacheablePolicy{Enabled: true, Route: "/cache"}, "https://host/"))
	m.RegisterImage(NewImage("bg", "/img/a.png"))

	id := m.Identity(m.Src()[0])
	assert.True(t, strings.HasPrefix(id, "https://host/cache?"), id)
	assert.True(t, m.IsSrcRegistered(id))
	assert.False(t, m.IsSrcRegistered("/img/a.png"))
}

func TestSrcManager_RegisterType(t *testing.T) {
	m := NewSrcManager()
	require.NoError(t, m.RegisterType(SrcAudio, "a.ogg"))
	require.NoError(t, m.RegisterType(SrcAudio, NewSound("b.ogg")))
	require.NoError(t, m.RegisterType(SrcImage, "/x.png"))
	require.NoError(t, m.RegisterType(SrcVideo, "v.mp4"))
	assert.Len(t, m.Src(), 4)

	err := m.RegisterType(SrcType("font"), "f.ttf")
	var se *SrcError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SrcType("font"), se.Type)
	assert.ErrorIs(t, err, ErrUnknownSrcType)

	assert.Error(t, m.RegisterType(SrcVideo, 42))
	assert.Error(t, m.Register(Src{Type: "font"}))
	assert.Len(t, m.Src(), 4, "rejected registrations leave the manager unchanged")
}

func TestSrcManager_Future(t *testing.T) {
	a, b := NewSrcManager(), NewSrcManager()
	a.RegisterFuture(b).RegisterFuture(b).RegisterFuture(a).RegisterFuture(nil)
	assert.Equal(t, []*SrcManager{b}, a.Future())
	assert.True(t, a.HasFuture(b))
	assert.False(t, b.HasFuture(a))
}

// --- Prefetch ---

func TestSrcManager_Prefetch(t *testing.T) {
	a, b, c := NewSrcManager(), NewSrcManager(), NewSrcManager()
	a.RegisterSound(NewSound("shared.ogg")).RegisterImage(NewImage("", "/a.png"))
	b.RegisterSound(NewSound("shared.ogg")).RegisterImage(NewImage("", "/b.png"))
	c.RegisterImage(NewImage("", "/c.png"))
	a.RegisterFuture(b)
	b.RegisterFuture(c).RegisterFuture(a)

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{"/a.png", "shared.ogg"}},
		{1, []string{"/a.png", "/b.png", "shared.ogg"}},
		{5, []string{"/a.png", "/b.png", "/c.png", "shared.ogg"}},
	}
	for _, tt := range tests {
		var mu sync.Mutex
		var got []string
		err := a.Prefetch(context.Background(), func(_ context.Context, _ Src, id string) error {
			mu.Lock()
			got = append(got, id)
			mu.Unlock()
			return nil
		}, tt.depth, 2)
		require.NoError(t, err)
		assert.ElementsMatch(t, tt.want, got, "depth %d", tt.depth)
	}
}

func TestSrcManager_PrefetchStopsOnError(t *testing.T) {
	m := NewSrcManager()
	for _, s := range []string{"1", "2", "3", "4"} {
		m.RegisterVideo(s)
	}
	boom := errors.New("boom")
	var calls atomic.Int32
	err := m.Prefetch(context.Background(), func(ctx context.Context, _ Src, id string) error {
		calls.Add(1)
		if id == "1" {
			return boom
		}
		return nil
	}, 0, 1)
	assert.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, calls.Load(), int32(4))
}
