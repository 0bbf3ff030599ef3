package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
)

// Rate resolution outcomes, reported to metrics.
const (
	rateIdentity    = "identity"
	rateCache       = "cache"
	rateLive        = "live"
	rateManual      = "manual"
	rateStale       = "stale"
	rateUnavailable = "unavailable"
)

// RateResolverConfig tunes rate lookups.
type RateResolverConfig struct {
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	StaleTTL     time.Duration
}

// RateResolver resolves the rate converting one unit of one currency into
// another: cache first, then the live source, then a manual override, then
// the last known rate.
type RateResolver struct {
	cache   Cache
	source  RateSource
	cfg     RateResolverConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewRateResolver creates a new RateResolver. Zero config fields take defaults.
func NewRateResolver(cache Cache, source RateSource, cfg RateResolverConfig, logger zerolog.Logger, m *metrics.Metrics) *RateResolver {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultRateFetchTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultRateCacheTTL
	}
	if cfg.StaleTTL <= 0 {
		cfg.StaleTTL = DefaultRateStaleTTL
	}
	return &RateResolver{
		cache:   cache,
		source:  source,
		cfg:     cfg,
		logger:  logger.With().Str("component", "rate_resolver").Logger(),
		metrics: m,
	}
}

// RateCacheKey is the cache key of a currency pair.
func RateCacheKey(from, to string) string {
	return from + "-" + to
}

func staleKey(key string) string {
	return key + ":stale"
}

// Resolve returns the quantized rate for from→to. Identical currencies
// resolve to 1 without I/O. A live rate always wins over manual; manual is
// used only when the source fails and is then cached like a live rate.
func (r *RateResolver) Resolve(ctx context.Context, from, to string, manual *decimal.Decimal) (decimal.Decimal, error) {
	from, to = domain.NormalizeCurrency(from), domain.NormalizeCurrency(to)
	if from == to {
		r.metrics.ObserveRate(rateIdentity)
		return domain.IdentityRate(), nil
	}
	if err := domain.ValidateCurrency(from); err != nil {
		return decimal.Zero, err
	}
	if err := domain.ValidateCurrency(to); err != nil {
		return decimal.Zero, err
	}

	key := RateCacheKey(from, to)
	log := r.logger.With().Str("pair", key).Logger()

	if rate, ok := r.lookup(ctx, key, log); ok {
		r.metrics.ObserveRate(rateCache)
		return rate, nil
	}

	rate, fetchErr := r.fetch(ctx, from, to)
	if fetchErr == nil {
		r.store(ctx, key, rate, log)
		r.metrics.ObserveRate(rateLive)
		return rate, nil
	}
	log.Warn().Err(fetchErr).Msg("live rate fetch failed")

	if manual != nil && manual.IsPositive() {
		rate := domain.QuantizeRate(*manual)
		r.store(ctx, key, rate, log)
		r.metrics.ObserveRate(rateManual)
		return rate, nil
	}

	if rate, ok := r.lookup(ctx, staleKey(key), log); ok {
		log.Warn().Str("rate", rate.String()).Msg("using stale rate")
		r.metrics.ObserveRate(rateStale)
		return rate, nil
	}

	r.metrics.ObserveRate(rateUnavailable)
	return decimal.Zero, fmt.Errorf("%w: %s: %w", domain.ErrRateUnavailable, key, fetchErr)
}

// Invalidate drops the fresh cache entry of a pair. The stale entry stays.
func (r *RateResolver) Invalidate(ctx context.Context, from, to string) error {
	key := RateCacheKey(domain.NormalizeCurrency(from), domain.NormalizeCurrency(to))
	return r.cache.Delete(ctx, key)
}

func (r *RateResolver) fetch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	started := time.Now()
	rates, err := r.source.FetchRates(fetchCtx, from, to)
	r.metrics.ObserveRateFetch(started)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("source response has no %s rate", to)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("source returned non-positive %s rate %s", to, rate)
	}
	return domain.QuantizeRate(rate), nil
}

// lookup treats any cache failure or unparsable value as a miss.
func (r *RateResolver) lookup(ctx context.Context, key string, log zerolog.Logger) (decimal.Decimal, bool) {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("rate cache read failed")
		}
		return decimal.Zero, false
	}

	rate, err := decimal.NewFromString(string(raw))
	if err != nil || !rate.IsPositive() {
		log.Warn().Str("key", key).Str("value", string(raw)).Msg("discarding invalid cached rate")
		return decimal.Zero, false
	}
	return rate, true
}

func (r *RateResolver) store(ctx context.Context, key string, rate decimal.Decimal, log zerolog.Logger) {
	value := []byte(rate.StringFixed(domain.RatePlaces))
	if err := r.cache.Set(ctx, key, value, r.cfg.CacheTTL); err != nil {
		log.Warn().Err(err).Msg("rate cache write failed")
	}
	if err := r.cache.Set(ctx, staleKey(key), value, r.cfg.StaleTTL); err != nil {
		log.Warn().Err(err).Msg("stale rate cache write failed")
	}
}
