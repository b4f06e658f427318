package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/pricing"
)

func TestMemoryStore_ProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	cfg := pricing.DefaultConfig()
	cfg.Name = "aggressive"
	cfg.NewCustomerPremiumBps = 30

	if err := s.SaveProfile(ctx, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.GetProfile(ctx, "aggressive")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "aggressive" || got.NewCustomerPremiumBps != 30 {
		t.Errorf("profile did not round-trip: %+v", got)
	}
}

func TestMemoryStore_ProfileNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetProfile(context.Background(), "missing"); err != ErrProfileNotFound {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestMemoryStore_ListProfilesSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		cfg := pricing.DefaultConfig()
		cfg.Name = name
		if err := s.SaveProfile(ctx, cfg); err != nil {
			t.Fatalf("save %s failed: %v", name, err)
		}
	}

	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(profiles) != len(want) {
		t.Fatalf("expected %d profiles, got %d", len(want), len(profiles))
	}
	for i, name := range want {
		if profiles[i].Name != name {
			t.Errorf("profile %d = %q, want %q", i, profiles[i].Name, name)
		}
	}
}

func TestMemoryStore_SeedProfiles(t *testing.T) {
	s := NewMemoryStore(pricing.DefaultConfig())
	if _, err := s.GetProfile(context.Background(), "standard"); err != nil {
		t.Errorf("seeded profile should be retrievable, got %v", err)
	}
}

func TestMemoryStore_MarketNotSet(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetMarketParameters(context.Background()); err != ErrMarketNotSet {
		t.Errorf("expected ErrMarketNotSet, got %v", err)
	}
}

func TestMemoryStore_MarketRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	mkt := model.MarketParameters{
		ReferenceRate: decimal.NewFromFloat(4.10),
		CostOfFunds:   decimal.NewFromFloat(5.00),
		TargetNIM:     decimal.NewFromFloat(2.50),
	}
	if err := s.SetMarketParameters(ctx, mkt); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := s.GetMarketParameters(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.ReferenceRate.Equal(mkt.ReferenceRate) || !got.TargetNIM.Equal(mkt.TargetNIM) {
		t.Errorf("market parameters did not round-trip: %+v", got)
	}
}

func TestMemoryStore_GetProfileReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(pricing.DefaultConfig())

	first, _ := s.GetProfile(ctx, "standard")
	first.NewCustomerPremiumBps = 999

	second, _ := s.GetProfile(ctx, "standard")
	if second.NewCustomerPremiumBps == 999 {
		t.Error("mutating a returned profile must not affect the store")
	}
}
