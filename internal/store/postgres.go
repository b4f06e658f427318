package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/pricing"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Profiles and market parameters are stored as JSONB documents; the decimal
// fields round-trip through their string JSON encoding, so no precision is
// lost.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pricing_profiles (
			name       TEXT PRIMARY KEY,
			config     JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS market_parameters (
			id         INT PRIMARY KEY CHECK (id = 1),
			params     JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

func (s *PostgresStore) SaveProfile(ctx context.Context, cfg pricing.Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", cfg.Name, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO pricing_profiles (name, config, updated_at)
		 VALUES ($1, $2::JSONB, $3)
		 ON CONFLICT (name) DO UPDATE SET config = $2::JSONB, updated_at = $3`,
		cfg.Name, string(doc), time.Now().UTC(),
	)
	return err
}

func (s *PostgresStore) GetProfile(ctx context.Context, name string) (*pricing.Config, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config FROM pricing_profiles WHERE name = $1`, name).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", name, err)
	}

	var cfg pricing.Config
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", name, err)
	}
	return &cfg, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]pricing.Config, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT config FROM pricing_profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []pricing.Config
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var cfg pricing.Config
		if err := json.Unmarshal(doc, &cfg); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		profiles = append(profiles, cfg)
	}
	return profiles, rows.Err()
}

func (s *PostgresStore) GetMarketParameters(ctx context.Context) (*model.MarketParameters, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT params FROM market_parameters WHERE id = 1`).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMarketNotSet
	}
	if err != nil {
		return nil, fmt.Errorf("get market parameters: %w", err)
	}

	var mkt model.MarketParameters
	if err := json.Unmarshal(doc, &mkt); err != nil {
		return nil, fmt.Errorf("decode market parameters: %w", err)
	}
	return &mkt, nil
}

func (s *PostgresStore) SetMarketParameters(ctx context.Context, mkt model.MarketParameters) error {
	doc, err := json.Marshal(mkt)
	if err != nil {
		return fmt.Errorf("encode market parameters: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO market_parameters (id, params, updated_at)
		 VALUES (1, $1::JSONB, $2)
		 ON CONFLICT (id) DO UPDATE SET params = $1::JSONB, updated_at = $2`,
		string(doc), time.Now().UTC(),
	)
	return err
}
