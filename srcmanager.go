package reverie

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SrcType tags a media resource.
type SrcType string

const (
	SrcImage SrcType = "image"
	SrcVideo SrcType = "video"
	SrcAudio SrcType = "audio"
)

// Valid reports whether t is a known type tag.
func (t SrcType) Valid() bool {
	return t == SrcImage || t == SrcVideo || t == SrcAudio
}

// Src is one registered resource. Exactly one payload field is set,
// matching Type.
type Src struct {
	Type  SrcType
	Image *Image
	Video string
	Audio *Sound
}

// --- Cacheable route ---

// CacheablePolicy rewrites media URLs through a single cacheable endpoint.
type CacheablePolicy struct {
	Enabled bool
	Route   string // e.g. "/cache" or "https://cdn.example/cache"
	Param   string // query parameter carrying the original URL
}

// Cacheablize rewrites rawURL to a request against the cacheable route
// carrying the original URL as a query parameter. Relative URLs (starting
// with "/") are first resolved against base, and so is a relative route.
// URLs already under the route, and every URL when the policy is disabled,
// pass through unchanged.
func (p CacheablePolicy) Cacheablize(rawURL, base string) string {
	if !p.Enabled || p.Route == "" || strings.HasPrefix(rawURL, p.Route) {
		return rawURL
	}
	param := p.Param
	if param == "" {
		param = "url"
	}

	target := rawURL
	endpoint := p.Route
	if b, err := url.Parse(base); err == nil && base != "" {
		if strings.HasPrefix(rawURL, "/") {
			if u, err := url.Parse(rawURL); err == nil {
				target = b.ResolveReference(u).String()
			}
		}
		if r, err := url.Parse(p.Route); err == nil {
			endpoint = b.ResolveReference(r).String()
		}
	}
	if strings.HasPrefix(target, endpoint) {
		return target
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	q := url.Values{}
	q.Set(param, target)
	return endpoint + sep + q.Encode()
}

// --- SrcManager ---

// SrcManager tracks the media a scene depends on, deduplicated by logical
// identity, plus forward dependencies on managers whose resources will be
// needed soon.
type SrcManager struct {
	policy CacheablePolicy
	base   string

	mu     sync.RWMutex
	src    []Src
	future []*SrcManager
}

// SrcOption configures a SrcManager.
type SrcOption func(*SrcManager)

// WithCacheablePolicy makes image identities follow the cacheable-route
// rewrite relative to base.
func WithCacheablePolicy(p CacheablePolicy, base string) SrcOption {
	return func(m *SrcManager) {
		m.policy = p
		m.base = base
	}
}

// NewSrcManager creates an empty manager.
func NewSrcManager(opts ...SrcOption) *SrcManager {
	m := &SrcManager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Identity returns the logical identity of s: the source string for audio,
// the resolved (possibly cacheable) path for images, and the URL itself for
// video.
func (m *SrcManager) Identity(s Src) string {
	switch s.Type {
	case SrcAudio:
		if s.Audio != nil {
			return s.Audio.Src
		}
	case SrcImage:
		if s.Image != nil {
			return m.policy.Cacheablize(s.Image.Src, m.base)
		}
	case SrcVideo:
		return s.Video
	}
	return ""
}

// Register adds resources, skipping any whose identity is already
// registered. A resource with an unknown type tag is rejected with a
// *SrcError and nothing after it is registered.
func (m *SrcManager) Register(srcs ...Src) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range srcs {
		if !s.Type.Valid() {
			return &SrcError{Type: s.Type, Err: ErrUnknownSrcType}
		}
		if m.isRegisteredLocked(m.Identity(s)) {
			continue
		}
		m.src = append(m.src, s)
	}
	return nil
}

// RegisterType registers a payload under an explicit type tag. Audio
// accepts a *Sound or a source string; images accept an *Image or a
// source string; video accepts a URL string.
func (m *SrcManager) RegisterType(t SrcType, payload any) error {
	s := Src{Type: t}
	switch t {
	case SrcAudio:
		switch v := payload.(type) {
		case *Sound:
			s.Audio = v
		case string:
			s.Audio = NewSound(v)
		default:
			return &SrcError{Type: t, Err: fmt.Errorf("unsupported audio payload %T", payload)}
		}
	case SrcImage:
		switch v := payload.(type) {
		case *Image:
			s.Image = v
		case string:
			s.Image = NewImage("", v)
		default:
			return &SrcError{Type: t, Err: fmt.Errorf("unsupported image payload %T", payload)}
		}
	case SrcVideo:
		v, ok := payload.(string)
		if !ok {
			return &SrcError{Type: t, Err: fmt.Errorf("unsupported video payload %T", payload)}
		}
		s.Video = v
	default:
		return &SrcError{Type: t, Err: ErrUnknownSrcType}
	}
	return m.Register(s)
}

// RegisterSound registers an audio resource.
func (m *SrcManager) RegisterSound(s *Sound) *SrcManager {
	_ = m.Register(Src{Type: SrcAudio, Audio: s})
	return m
}

// RegisterImage registers an image resource.
func (m *SrcManager) RegisterImage(img *Image) *SrcManager {
	_ = m.Register(Src{Type: SrcImage, Image: img})
	return m
}

// RegisterVideo registers a video URL.
func (m *SrcManager) RegisterVideo(u string) *SrcManager {
	_ = m.Register(Src{Type: SrcVideo, Video: u})
	return m
}

// IsSrcRegistered reports whether a resource with the given identity is
// registered.
func (m *SrcManager) IsSrcRegistered(identity string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRegisteredLocked(identity)
}

func (m *SrcManager) isRegisteredLocked(identity string) bool {
	for _, s := range m.src {
		if m.Identity(s) == identity {
			return true
		}
	}
	return false
}

// Src returns the registered resources in registration order.
func (m *SrcManager) Src() []Src {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Src, len(m.src))
	copy(out, m.src)
	return out
}

// SrcByType returns the registered resources of type t in registration
// order.
func (m *SrcManager) SrcByType(t SrcType) []Src {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Src
	for _, s := range m.src {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// RegisterFuture records other as a forward dependency. Registering the same
// manager twice, or a manager with itself, is a no-op.
func (m *SrcManager) RegisterFuture(other *SrcManager) *SrcManager {
	if other == nil || other == m || m.HasFuture(other) {
		return m
	}
	m.mu.Lock()
	m.future = append(m.future, other)
	m.mu.Unlock()
	return m
}

// HasFuture reports whether other is a registered forward dependency.
func (m *SrcManager) HasFuture(other *SrcManager) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.future {
		if f == other {
			return true
		}
	}
	return false
}

// Future returns the forward dependencies in registration order.
func (m *SrcManager) Future() []*SrcManager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*SrcManager, len(m.future))
	copy(out, m.future)
	return out
}

// FetchFunc loads one resource ahead of time.
type FetchFunc func(ctx context.Context, s Src, identity string) error

// Prefetch walks this manager and its forward chain breadth first, up to
// depth levels of future edges (0 fetches only this manager), and fetches
// every distinct resource with at most limit concurrent calls. The first
// fetch error cancels the rest and is returned.
func (m *SrcManager) Prefetch(ctx context.Context, fetch FetchFunc, depth, limit int) error {
	type job struct {
		src Src
		id  string
	}
	var jobs []job
	seenSrc := make(map[string]bool)
	seenMgr := map[*SrcManager]bool{m: true}
	level := []*SrcManager{m}
	for d := 0; d <= depth && len(level) > 0; d++ {
		var next []*SrcManager
		for _, mgr := range level {
			for _, s := range mgr.Src() {
				id := mgr.Identity(s)
				if seenSrc[id] {
					continue
				}
				seenSrc[id] = true
				jobs = append(jobs, job{s, id})
			}
			for _, f := range mgr.Future() {
				if !seenMgr[f] {
					seenMgr[f] = true
					next = append(next, f)
				}
			}
		}
		level = next
	}

	LoggerFrom(ctx).Debug("[reverie] prefetch", "resources", len(jobs), "depth", depth)

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, j := range jobs {
		g.Go(func() error {
			if err := fetch(gctx, j.src, j.id); err != nil {
				return fmt.Errorf("prefetch %s %q: %w", j.src.Type, j.id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
