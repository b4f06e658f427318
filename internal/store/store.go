// Package store defines persistence for calibration profiles and the
// session-wide market parameters. Implementations include PostgreSQL
// (source of truth), Redis (read-through cache), and in-memory (for
// development and testing).
//
// Priced quotes themselves are never stored: pricing is a stateless
// computation, and the store holds only the configuration it runs against.
package store

import (
	"context"
	"errors"

	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/pricing"
)

var (
	// ErrProfileNotFound is returned when no calibration profile exists
	// under the requested name.
	ErrProfileNotFound = errors.New("store: calibration profile not found")

	// ErrMarketNotSet is returned when no market parameters have been
	// configured yet.
	ErrMarketNotSet = errors.New("store: market parameters not set")
)

// Store is the persistence interface.
type Store interface {
	// SaveProfile creates or replaces a calibration profile by name.
	SaveProfile(ctx context.Context, cfg pricing.Config) error

	// GetProfile retrieves a calibration profile by name.
	GetProfile(ctx context.Context, name string) (*pricing.Config, error)

	// ListProfiles returns all stored calibration profiles.
	ListProfiles(ctx context.Context) ([]pricing.Config, error)

	// GetMarketParameters returns the current session market parameters.
	GetMarketParameters(ctx context.Context) (*model.MarketParameters, error)

	// SetMarketParameters replaces the session market parameters.
	SetMarketParameters(ctx context.Context, mkt model.MarketParameters) error
}
