package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_cart/cartsync/internal/cache"
	"github.com/fjod/go_cart/cartsync/pkg/logger"
)

const (
	DefaultTTL = 24 * time.Hour

	tokenPrefix    = "session_"
	randomSuffixLn = 9
)

type Provider struct {
	cache cache.KeyValueCache
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger

	mu sync.Mutex
}

type Option func(*Provider)

func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) { p.ttl = ttl }
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Provider) { p.log = log }
}

func withNow(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(c cache.KeyValueCache, opts ...Option) *Provider {
	p := &Provider{
		cache: c,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ttl <= 0 {
		p.ttl = DefaultTTL
	}
	p.log = logger.OrDefault(p.log).With("component", "session")
	return p
}

func (p *Provider) TTL() time.Duration {
	return p.ttl
}

// GetOrCreate returns the stored session token, minting and storing a new one
// when none is live. A token is returned even if it could not be persisted.
func (p *Provider) GetOrCreate(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token := cache.GetOr(ctx, p.cache, cache.SessionKey, ""); token != "" {
		return token
	}

	token := p.newToken()
	if p.cache == nil || !p.cache.Set(ctx, cache.SessionKey, token, p.ttl) {
		p.log.WarnContext(ctx, "session token not persisted; a new one will be issued next time")
	} else {
		p.log.DebugContext(ctx, "new session issued", "session_id", token)
	}
	return token
}

// newToken builds "session_<unix millis>_<9 random chars>".
func (p *Provider) newToken() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomSuffixLn]
	return fmt.Sprintf("%s%d_%s", tokenPrefix, p.now().UnixMilli(), suffix)
}
