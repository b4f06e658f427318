// Package rateband maps a composite risk score to a quoted interest-rate
// band: an affine spread curve in basis points over the reference rate,
// floored, adjusted, widened into a bucket-specific band, and clamped to the
// market-wide rate bounds.
//
// Rates are returned as shopspring/decimal; the curve arithmetic runs in
// float64 and converts at the boundary. Two ordering invariants hold for
// every output: spreadMin < spreadMax, and rateMin <= repRate <= rateMax.
package rateband

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/pricing-engine/internal/model"
)

// rateScale is the number of decimal places for rate rounding.
const rateScale int32 = 4

// Band is the constructed quote band for one bucket.
type Band struct {
	SpreadMinBps       int64
	SpreadMaxBps       int64
	RateMin            decimal.Decimal
	RateMax            decimal.Decimal
	RepresentativeRate decimal.Decimal
}

// AdjusterContext carries the request context visible to spread adjusters.
type AdjusterContext struct {
	Request model.LoanRequest
	Bucket  model.Bucket
	Risk    float64
}

// SpreadAdjuster transforms the center spread (bps) after the floor
// computation and before band construction. Adjusters run in a fixed,
// configured order; the result is re-floored to the minimum core spread, so
// no adjuster can price below the core floor.
type SpreadAdjuster func(bps float64, ctx AdjusterContext) float64

// ScoreFloor is one borrower risk band: scores at or above MinScore carry
// FloorBps.
type ScoreFloor struct {
	Label    string  `json:"label"`
	MinScore int     `json:"min_score"`
	FloorBps float64 `json:"floor_bps"`
}

// FactorStep is one industry floor step: industry factors at or above
// MinFactor carry AddonBps.
type FactorStep struct {
	MinFactor float64 `json:"min_factor"`
	AddonBps  float64 `json:"addon_bps"`
}

// Config holds the band calibration. Like the factor tables, a Config is
// built once and injected; the adjuster list is assembled separately by the
// engine since functions do not serialize.
type Config struct {
	SpreadBaseBps    float64 `json:"spread_base_bps"`
	SpreadSlopeBps   float64 `json:"spread_slope_bps"`
	MinCoreSpreadBps float64 `json:"min_core_spread_bps"`

	BucketFloorBps     map[model.Bucket]float64 `json:"bucket_floor_bps"`
	BucketHalfWidthBps map[model.Bucket]float64 `json:"bucket_half_width_bps"`
	MinGapBps          float64                  `json:"min_gap_bps"`

	// BorrowerFloors are ordered by descending MinScore; the first matching
	// band applies.
	BorrowerFloors []ScoreFloor `json:"borrower_floors"`

	// IndustrySteps are ordered by descending MinFactor; first match applies.
	IndustrySteps []FactorStep `json:"industry_steps"`

	ProductFloorAddonBps map[model.Product]float64 `json:"product_floor_addon_bps"`

	RateMinPct       float64 `json:"rate_min_pct"`
	RateMaxPct       float64 `json:"rate_max_pct"`
	FundFloorRatePct float64 `json:"fund_floor_rate_pct"`
}

// DefaultConfig returns the standard band calibration profile.
func DefaultConfig() Config {
	return Config{
		SpreadBaseBps:    180,
		SpreadSlopeBps:   140,
		MinCoreSpreadBps: 75,

		BucketFloorBps: map[model.Bucket]float64{
			model.BucketLow:    0,
			model.BucketMedium: 15,
			model.BucketHigh:   35,
		},
		BucketHalfWidthBps: map[model.Bucket]float64{
			model.BucketLow:    30,
			model.BucketMedium: 40,
			model.BucketHigh:   55,
		},
		MinGapBps: 10,

		BorrowerFloors: []ScoreFloor{
			{Label: "Low", MinScore: 750, FloorBps: 0},
			{Label: "Medium", MinScore: 650, FloorBps: 40},
			{Label: "Med-High", MinScore: 500, FloorBps: 80},
			{Label: "High", MinScore: 0, FloorBps: 120},
		},
		IndustrySteps: []FactorStep{
			{MinFactor: 1.25, AddonBps: 40},
			{MinFactor: 1.10, AddonBps: 25},
			{MinFactor: 1.00, AddonBps: 10},
		},
		ProductFloorAddonBps: map[model.Product]float64{
			model.ProductAssetBacked:    20,
			model.ProductWorkingCapital: 15,
			model.ProductTermLoan:       10,
			model.ProductTradeFinance:   5,
		},

		RateMinPct:       5.00,
		RateMaxPct:       12.00,
		FundFloorRatePct: 6.00,
	}
}

// BorrowerRiskLabel returns the risk band label for a credit score.
func (c Config) BorrowerRiskLabel(score int) string {
	for _, b := range c.BorrowerFloors {
		if score >= b.MinScore {
			return b.Label
		}
	}
	return "High"
}

func (c Config) borrowerFloor(score int) float64 {
	for _, b := range c.BorrowerFloors {
		if score >= b.MinScore {
			return b.FloorBps
		}
	}
	return 0
}

func (c Config) industryAddon(industryFactor float64) float64 {
	for _, s := range c.IndustrySteps {
		if industryFactor >= s.MinFactor {
			return s.AddonBps
		}
	}
	return 0
}

// Build constructs the rate band for one bucket.
//
// provisionPct is the annual expected-loss provision for the loan's
// delinquency stage; adjusters is the engine's ordered pipeline (may be nil).
func Build(
	risk float64,
	bucket model.Bucket,
	req model.LoanRequest,
	industryFactor float64,
	mkt model.MarketParameters,
	provisionPct float64,
	adjusters []SpreadAdjuster,
	cfg Config,
) Band {
	// 1. Risk-based curve.
	raw := cfg.SpreadBaseBps + cfg.SpreadSlopeBps*(risk-1)

	// 2. Floor sum.
	floor := cfg.MinCoreSpreadBps +
		cfg.BucketFloorBps[bucket] +
		cfg.borrowerFloor(req.BorrowerScore) +
		cfg.industryAddon(industryFactor) +
		cfg.ProductFloorAddonBps[req.Product]
	center := math.Max(raw, floor)

	// 3. Adjuster pipeline, then re-floor to the core spread.
	ctx := AdjusterContext{Request: req, Bucket: bucket, Risk: risk}
	for _, adj := range adjusters {
		center = adj(center, ctx)
	}
	center = math.Max(center, cfg.MinCoreSpreadBps)

	// 4. Symmetric band, spreadMin re-floored, minimum gap enforced.
	half := cfg.BucketHalfWidthBps[bucket]
	spreadMin := math.Max(center-half, cfg.MinCoreSpreadBps)
	spreadMax := center + half
	if spreadMax < spreadMin+cfg.MinGapBps {
		spreadMax = spreadMin + cfg.MinGapBps
	}

	// 5. Spreads to absolute rates, clamped to the market band.
	ref := mkt.ReferenceRate.InexactFloat64()
	rateMin := clamp(ref+spreadMin/100, cfg.RateMinPct, cfg.RateMaxPct)
	rateMax := clamp(ref+spreadMax/100, cfg.RateMinPct, cfg.RateMaxPct)
	rep := (rateMin + rateMax) / 2

	// 6. Fund-based products carry a product floor rate: lift the whole band.
	if req.Product.FundBased() && rep < cfg.FundFloorRatePct {
		delta := cfg.FundFloorRatePct - rep
		rep = cfg.FundFloorRatePct
		rateMin = clamp(rateMin+delta, cfg.RateMinPct, cfg.RateMaxPct)
		rateMax = clamp(rateMax+delta, cfg.RateMinPct, cfg.RateMaxPct)
	}

	// 7. Target-NIM enforcement: no bucket is priced below the bank's
	// minimum acceptable margin, even when the risk curve alone would.
	required := mkt.CostOfFunds.InexactFloat64() +
		provisionPct +
		mkt.OperatingExpense.InexactFloat64() -
		mkt.FeeYield.InexactFloat64() +
		mkt.TargetNIM.InexactFloat64()
	if rep < required {
		rep = clamp(required, cfg.RateMinPct, cfg.RateMaxPct)
		rateMin = clamp(rep-half/100, cfg.RateMinPct, cfg.RateMaxPct)
		rateMax = clamp(rep+half/100, cfg.RateMinPct, cfg.RateMaxPct)
	}

	// 8. The band must stay ordered with the minimum gap even when both
	// bounds clamp at a market bound: nudge rateMax up within the cap,
	// falling back to lowering rateMin.
	gap := cfg.MinGapBps / 100
	if rateMax-rateMin < gap {
		rateMax = math.Min(rateMin+gap, cfg.RateMaxPct)
		if rateMax-rateMin < gap {
			rateMin = rateMax - gap
		}
	}
	rep = clamp(rep, rateMin, rateMax)

	// 9. Displayed spreads are recomputed from the final clamped rates so
	// they always agree with the displayed rates.
	return Band{
		SpreadMinBps:       int64(math.Round((rateMin - ref) * 100)),
		SpreadMaxBps:       int64(math.Round((rateMax - ref) * 100)),
		RateMin:            decimal.NewFromFloat(rateMin).Round(rateScale),
		RateMax:            decimal.NewFromFloat(rateMax).Round(rateScale),
		RepresentativeRate: decimal.NewFromFloat(rep).Round(rateScale),
	}
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
