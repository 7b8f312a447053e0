// Package fx serves currency exchange rates from a TTL cache in front of a
// chain of public rate APIs. Prices are stored in USD cents; rates are
// target-currency units per one unit of the base.
package fx

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultBase is the canonical currency of stored prices.
const DefaultBase = "USD"

// ErrUnavailable is returned when no provider answered and nothing is cached.
var ErrUnavailable = errors.New("fx rates unavailable")

// ErrUnknownCurrency is returned by Convert for a currency missing from the snapshot.
var ErrUnknownCurrency = errors.New("unknown currency")

// Snapshot is one set of rates fetched from a provider.
type Snapshot struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	UpdatedAt time.Time                  `json:"updated_at"`
	Provider  string                     `json:"provider"`
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Rates = maps.Clone(s.Rates)
	return &c
}

// Status describes the cache without triggering a fetch.
type Status struct {
	Cached    bool                       `json:"cached"`
	Base      string                     `json:"base"`
	UpdatedAt *time.Time                 `json:"updated_at"`
	Provider  string                     `json:"provider,omitempty"`
	Sample    map[string]decimal.Decimal `json:"sample"`
}

// SharedCache lets several processes reuse one fetched snapshot.
type SharedCache interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot, ttl time.Duration) error
}

// Options configures a RateProvider. Zero values get defaults.
type Options struct {
	Sources     []Source
	TTL         time.Duration
	FallbackSAR decimal.Decimal
	Client      *http.Client
	Shared      SharedCache
	Logger      *zap.Logger
	Now         func() time.Time
}

// RateProvider caches the latest snapshot and refreshes it through the source chain.
type RateProvider struct {
	sources []Source
	ttl     time.Duration
	client  *http.Client
	shared  SharedCache
	logger  *zap.Logger
	now     func() time.Time

	inflight singleflight.Group

	mu          sync.Mutex
	snap        *Snapshot
	fallbackSAR decimal.Decimal
}

func NewRateProvider(opts Options) *RateProvider {
	p := &RateProvider{
		sources:     opts.Sources,
		ttl:         opts.TTL,
		client:      opts.Client,
		shared:      opts.Shared,
		logger:      opts.Logger,
		now:         opts.Now,
		fallbackSAR: opts.FallbackSAR,
	}
	if p.sources == nil {
		p.sources = DefaultSources("")
	}
	if p.ttl <= 0 {
		p.ttl = 30 * time.Minute
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 10 * time.Second}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if !p.fallbackSAR.IsPositive() {
		p.fallbackSAR = decimal.RequireFromString("3.75")
	}
	return p
}

// SetFallbackSAR changes the SAR rate filled in when a provider omits it.
func (p *RateProvider) SetFallbackSAR(rate decimal.Decimal) {
	if !rate.IsPositive() {
		return
	}
	p.mu.Lock()
	p.fallbackSAR = rate
	p.mu.Unlock()
}

func normalizeBase(base string) string {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return DefaultBase
	}
	return base
}

func (p *RateProvider) fresh(s *Snapshot, base string) bool {
	return s != nil && s.Base == base && p.now().Sub(s.UpdatedAt) <= p.ttl
}

func (p *RateProvider) current() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Rates returns the cached snapshot for base while it is within the TTL and
// fetches a new one otherwise. When every provider fails the last snapshot is
// served as-is, whatever its age or base.
func (p *RateProvider) Rates(ctx context.Context, base string) (*Snapshot, error) {
	base = normalizeBase(base)
	if s := p.current(); p.fresh(s, base) {
		return s.clone(), nil
	}
	if p.shared != nil {
		if s, err := p.shared.Load(ctx); err == nil && p.fresh(s, base) {
			p.mu.Lock()
			p.snap = s
			p.mu.Unlock()
			return s.clone(), nil
		}
	}

	s, err := p.fetch(ctx, base)
	if err != nil {
		if stale := p.current(); stale != nil {
			p.logger.Warn("serving stale fx rates", zap.String("base", stale.Base), zap.Error(err))
			return stale.clone(), nil
		}
		return nil, err
	}
	return s.clone(), nil
}

// Refresh fetches a new snapshot regardless of the cache.
func (p *RateProvider) Refresh(ctx context.Context, base string) (*Snapshot, error) {
	s, err := p.fetch(ctx, normalizeBase(base))
	if err != nil {
		return nil, err
	}
	return s.clone(), nil
}

// fetch runs the provider chain with at most one request in flight per base.
// Published snapshots are never mutated, so readers only hold p.mu briefly.
func (p *RateProvider) fetch(ctx context.Context, base string) (*Snapshot, error) {
	ch := p.inflight.DoChan(base, func() (any, error) {
		return p.fetchChain(context.WithoutCancel(ctx), base)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Snapshot), nil
	}
}

func (p *RateProvider) fetchChain(ctx context.Context, base string) (*Snapshot, error) {
	var lastErr error
	for _, src := range p.sources {
		got, err := fetchSource(ctx, p.client, src, base)
		if err != nil {
			p.logger.Warn("fx provider failed", zap.String("provider", src.Name), zap.Error(err))
			lastErr = err
			continue
		}

		s := &Snapshot{
			Base:      normalizeBase(got.Base),
			Rates:     got.Rates,
			UpdatedAt: p.now(),
			Provider:  src.Name,
		}
		if got.Base == "" {
			s.Base = base
		}
		p.mu.Lock()
		if _, ok := s.Rates["SAR"]; !ok {
			s.Rates["SAR"] = p.fallbackSAR
		}
		if _, ok := s.Rates[s.Base]; !ok {
			s.Rates[s.Base] = decimal.NewFromInt(1)
		}
		p.snap = s
		p.mu.Unlock()

		if p.shared != nil {
			if err := p.shared.Save(ctx, s, p.ttl); err != nil {
				p.logger.Warn("fx shared cache save failed", zap.Error(err))
			}
		}
		p.logger.Info("fx rates updated",
			zap.String("provider", src.Name),
			zap.String("base", s.Base),
			zap.Int("rates", len(s.Rates)))
		return s, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}

// Status reports the cached snapshot and up to eight of its rates.
func (p *RateProvider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{Base: DefaultBase, Sample: map[string]decimal.Decimal{}}
	if p.snap == nil {
		return st
	}
	updated := p.snap.UpdatedAt
	st.Cached = true
	st.Base = p.snap.Base
	st.UpdatedAt = &updated
	st.Provider = p.snap.Provider
	keys := slices.Sorted(maps.Keys(p.snap.Rates))
	for _, k := range keys[:min(8, len(keys))] {
		st.Sample[k] = p.snap.Rates[k]
	}
	return st
}

// Convert turns an amount in USD cents into units of currency, rounded to two places.
func (p *RateProvider) Convert(ctx context.Context, cents int64, currency string) (decimal.Decimal, error) {
	currency = normalizeBase(currency)
	amount := decimal.New(cents, -2)
	if currency == DefaultBase {
		return amount, nil
	}
	s, err := p.Rates(ctx, DefaultBase)
	if err != nil {
		return decimal.Zero, err
	}
	if s.Base != DefaultBase {
		return decimal.Zero, fmt.Errorf("%w: cached rates are based on %s", ErrUnavailable, s.Base)
	}
	rate, ok := s.Rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	return amount.Mul(rate).Round(2), nil
}
