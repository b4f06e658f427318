// Package riskfactor resolves the per-loan risk multipliers and composes
// them into a bounded composite risk score.
//
// Every factor is clamped to its calibrated range before multiplication, so
// the composite score stays inside [RiskMin, RiskMax] for any finite input.
// Table lookups are strict: a product or industry with no table entry is a
// configuration error, never a silent default.
package riskfactor

import (
	"errors"

	"github.com/meridianbank/pricing-engine/internal/model"
)

var (
	// ErrUnknownProduct is returned when the product has no factor table entry.
	ErrUnknownProduct = errors.New("riskfactor: product has no factor table entry")

	// ErrUnknownIndustry is returned when the industry has no factor table entry.
	ErrUnknownIndustry = errors.New("riskfactor: industry has no factor table entry")
)

// Config holds the calibration for factor resolution and risk composition.
// A Config is constructed once at startup and passed into every call; the
// engine never consults mutable package-level state.
type Config struct {
	ProductFactors            map[model.Product]float64  `json:"product_factors"`
	IndustryFactors           map[model.Industry]float64 `json:"industry_factors"`
	IndustryMedianUtilization map[model.Industry]float64 `json:"industry_median_utilization"`

	// Borrower factor: affine decreasing in credit score over
	// [ScoreMin, ScoreMax], clamped to [BorrowerFactorLow, BorrowerFactorHigh].
	ScoreMin           int     `json:"score_min"`
	ScoreMax           int     `json:"score_max"`
	BorrowerFactorLow  float64 `json:"borrower_factor_low"`
	BorrowerFactorHigh float64 `json:"borrower_factor_high"`

	// Collateral factor: affine increasing in loan-to-value percent above
	// CollateralRefLTV, clamped to [CollateralFactorMin, CollateralFactorMax].
	CollateralRefLTV        float64 `json:"collateral_ref_ltv"`
	CollateralSlopePerLTV   float64 `json:"collateral_slope_per_ltv"`
	CollateralFactorMin     float64 `json:"collateral_factor_min"`
	CollateralFactorMax     float64 `json:"collateral_factor_max"`

	// Utilization factor: base + ratio, median and drawdown terms, clamped
	// to [UtilizationFactorMin, UtilizationFactorMax].
	UtilizationBase           float64 `json:"utilization_base"`
	UtilizationRatioWeight    float64 `json:"utilization_ratio_weight"`
	UtilizationRatioCap       float64 `json:"utilization_ratio_cap"`
	UtilizationMedianWeight   float64 `json:"utilization_median_weight"`
	UtilizationMedianPivot    float64 `json:"utilization_median_pivot"`
	UtilizationDrawdownWeight float64 `json:"utilization_drawdown_weight"`
	UtilizationFactorMin      float64 `json:"utilization_factor_min"`
	UtilizationFactorMax      float64 `json:"utilization_factor_max"`
	UtilizationFallback       float64 `json:"utilization_fallback"`

	BucketMultipliers map[model.Bucket]float64 `json:"bucket_multipliers"`
	RiskMin           float64                  `json:"risk_min"`
	RiskMax           float64                  `json:"risk_max"`
}

// DefaultConfig returns the standard calibration profile.
func DefaultConfig() Config {
	return Config{
		ProductFactors: map[model.Product]float64{
			model.ProductTermLoan:       1.00,
			model.ProductAssetBacked:    1.10,
			model.ProductWorkingCapital: 1.05,
			model.ProductTradeFinance:   0.95,
		},
		IndustryFactors: map[model.Industry]float64{
			model.IndustryManufacturing: 1.00,
			model.IndustryConstruction:  1.25,
			model.IndustryTrading:       1.10,
			model.IndustryServices:      0.95,
			model.IndustryAgriculture:   1.15,
			model.IndustryRealEstate:    1.30,
		},
		IndustryMedianUtilization: map[model.Industry]float64{
			model.IndustryManufacturing: 0.65,
			model.IndustryConstruction:  0.75,
			model.IndustryTrading:       0.70,
			model.IndustryServices:      0.60,
			model.IndustryAgriculture:   0.70,
			model.IndustryRealEstate:    0.68,
		},

		ScoreMin:           300,
		ScoreMax:           900,
		BorrowerFactorLow:  0.55,
		BorrowerFactorHigh: 1.50,

		CollateralRefLTV:      50,
		CollateralSlopePerLTV: 0.008, // +0.40 over LTV 50→100
		CollateralFactorMin:   0.80,
		CollateralFactorMax:   1.20,

		UtilizationBase:           0.80,
		UtilizationRatioWeight:    0.40,
		UtilizationRatioCap:       1.20,
		UtilizationMedianWeight:   0.25,
		UtilizationMedianPivot:    0.65,
		UtilizationDrawdownWeight: 0.15,
		UtilizationFactorMin:      0.80,
		UtilizationFactorMax:      1.30,
		UtilizationFallback:       1.20,

		BucketMultipliers: map[model.Bucket]float64{
			model.BucketLow:    0.90,
			model.BucketMedium: 1.00,
			model.BucketHigh:   1.15,
		},
		RiskMin: 0.40,
		RiskMax: 3.50,
	}
}

// EffectiveDrawdown returns the utilization fraction assumed for a revolving
// request: the requested percentage if supplied, otherwise the industry
// median.
func (c Config) EffectiveDrawdown(req model.LoanRequest) float64 {
	if req.UtilizationPercent > 0 {
		return req.UtilizationPercent / 100
	}
	return c.IndustryMedianUtilization[req.Industry]
}

// Resolve looks up the product and industry factors and computes the
// borrower factor plus the product-category factor (collateral for
// fund-based products, utilization for revolving ones). Pure function of
// the request and the calibration tables.
func Resolve(req model.LoanRequest, cfg Config) (model.RiskFactors, error) {
	pf, ok := cfg.ProductFactors[req.Product]
	if !ok {
		return model.RiskFactors{}, ErrUnknownProduct
	}
	inf, ok := cfg.IndustryFactors[req.Industry]
	if !ok {
		return model.RiskFactors{}, ErrUnknownIndustry
	}

	f := model.RiskFactors{
		Product:  pf,
		Industry: inf,
		Borrower: borrowerFactor(req.BorrowerScore, cfg),
	}

	if req.Product.FundBased() {
		f.CollateralOrUtilization = collateralFactor(req.CollateralPercent, cfg)
	} else {
		f.CollateralOrUtilization = utilizationFactor(req, cfg)
	}
	return f, nil
}

// borrowerFactor maps credit score to a risk multiplier, decreasing as the
// score improves.
func borrowerFactor(score int, cfg Config) float64 {
	span := float64(cfg.ScoreMax - cfg.ScoreMin)
	factor := cfg.BorrowerFactorHigh -
		float64(score-cfg.ScoreMin)*(cfg.BorrowerFactorHigh-cfg.BorrowerFactorLow)/span
	return clamp(factor, cfg.BorrowerFactorLow, cfg.BorrowerFactorHigh)
}

// collateralFactor maps loan-to-value percent to a risk multiplier,
// increasing with LTV.
func collateralFactor(ltv float64, cfg Config) float64 {
	factor := cfg.CollateralFactorMin + (ltv-cfg.CollateralRefLTV)*cfg.CollateralSlopePerLTV
	return clamp(factor, cfg.CollateralFactorMin, cfg.CollateralFactorMax)
}

// utilizationFactor combines the working-capital/sales ratio with the
// industry's median utilization and the assumed drawdown. Zero or missing
// annual sales yields the calibrated fallback instead of a division.
func utilizationFactor(req model.LoanRequest, cfg Config) float64 {
	if req.AnnualSales.Sign() <= 0 {
		return clamp(cfg.UtilizationFallback, cfg.UtilizationFactorMin, cfg.UtilizationFactorMax)
	}

	wcRatio := req.WorkingCapital.InexactFloat64() / req.AnnualSales.InexactFloat64()
	wcRatio = clamp(wcRatio, 0, cfg.UtilizationRatioCap)

	median := cfg.IndustryMedianUtilization[req.Industry]
	drawdown := cfg.EffectiveDrawdown(req)

	factor := cfg.UtilizationBase +
		cfg.UtilizationRatioWeight*wcRatio +
		cfg.UtilizationMedianWeight*(median-cfg.UtilizationMedianPivot) +
		cfg.UtilizationDrawdownWeight*(drawdown-median)
	return clamp(factor, cfg.UtilizationFactorMin, cfg.UtilizationFactorMax)
}

// CompositeRisk multiplies the resolved factors by the bucket multiplier and
// clamps to [RiskMin, RiskMax]. No error conditions: clamping guarantees a
// valid score for any finite factors.
func CompositeRisk(f model.RiskFactors, bucket model.Bucket, cfg Config) float64 {
	risk := f.Product * f.Industry * f.Borrower * f.CollateralOrUtilization *
		cfg.BucketMultipliers[bucket]
	return clamp(risk, cfg.RiskMin, cfg.RiskMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
