package store

import (
	"context"
	"sort"
	"sync"

	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/pricing"
)

// MemoryStore implements Store with in-memory maps. Used for development
// and testing. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]pricing.Config
	market   *model.MarketParameters
}

// NewMemoryStore creates an in-memory store seeded with the given profiles.
func NewMemoryStore(seed ...pricing.Config) *MemoryStore {
	s := &MemoryStore{profiles: make(map[string]pricing.Config)}
	for _, cfg := range seed {
		s.profiles[cfg.Name] = cfg
	}
	return s
}

func (s *MemoryStore) SaveProfile(_ context.Context, cfg pricing.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[cfg.Name] = cfg
	return nil
}

func (s *MemoryStore) GetProfile(_ context.Context, name string) (*pricing.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.profiles[name]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copy := cfg
	return &copy, nil
}

func (s *MemoryStore) ListProfiles(_ context.Context) ([]pricing.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]pricing.Config, 0, len(s.profiles))
	for _, cfg := range s.profiles {
		profiles = append(profiles, cfg)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

func (s *MemoryStore) GetMarketParameters(_ context.Context) (*model.MarketParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.market == nil {
		return nil, ErrMarketNotSet
	}
	copy := *s.market
	return &copy, nil
}

func (s *MemoryStore) SetMarketParameters(_ context.Context, mkt model.MarketParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.market = &mkt
	return nil
}
