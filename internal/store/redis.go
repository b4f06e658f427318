package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/pricing"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and refresh the cache; reads check
// Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through ---

func (s *CachedStore) SaveProfile(ctx context.Context, cfg pricing.Config) error {
	if err := s.primary.SaveProfile(ctx, cfg); err != nil {
		return err
	}
	s.cacheProfile(ctx, cfg)
	return nil
}

func (s *CachedStore) SetMarketParameters(ctx context.Context, mkt model.MarketParameters) error {
	if err := s.primary.SetMarketParameters(ctx, mkt); err != nil {
		return err
	}
	if data, err := json.Marshal(mkt); err == nil {
		s.rdb.Set(ctx, marketKey(), data, s.ttl)
	}
	return nil
}

// --- Read-through ---

func (s *CachedStore) GetProfile(ctx context.Context, name string) (*pricing.Config, error) {
	data, err := s.rdb.Get(ctx, profileKey(name)).Bytes()
	if err == nil {
		var cfg pricing.Config
		if json.Unmarshal(data, &cfg) == nil {
			return &cfg, nil
		}
	}

	cfg, err := s.primary.GetProfile(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cacheProfile(ctx, *cfg)
	return cfg, nil
}

func (s *CachedStore) GetMarketParameters(ctx context.Context) (*model.MarketParameters, error) {
	data, err := s.rdb.Get(ctx, marketKey()).Bytes()
	if err == nil {
		var mkt model.MarketParameters
		if json.Unmarshal(data, &mkt) == nil {
			return &mkt, nil
		}
	}

	mkt, err := s.primary.GetMarketParameters(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(mkt); err == nil {
		s.rdb.Set(ctx, marketKey(), data, s.ttl)
	}
	return mkt, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListProfiles(ctx context.Context) ([]pricing.Config, error) {
	return s.primary.ListProfiles(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheProfile(ctx context.Context, cfg pricing.Config) {
	if data, err := json.Marshal(cfg); err == nil {
		s.rdb.Set(ctx, profileKey(cfg.Name), data, s.ttl)
	}
}

func profileKey(name string) string { return fmt.Sprintf("profile:%s", name) }
func marketKey() string             { return "market:current" }
