// Package pricing composes the four engine stages — factor resolution,
// composite risk, rate band construction, and cash-flow metrics — into the
// loan pricing engine. The engine is stateless: every invocation is a pure
// function of the request, the market parameters, and an immutable
// calibration Config injected at construction.
package pricing

import (
	"github.com/meridianbank/pricing-engine/internal/concentration"
	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/rateband"
	"github.com/meridianbank/pricing-engine/internal/riskfactor"
)

// Config is the complete calibration profile for one engine instance. The
// historical variants of this calculator differed almost entirely in these
// constants; representing them as one value object lets alternate profiles
// coexist without forking the engine.
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Factors riskfactor.Config `json:"factors"`
	Band    rateband.Config   `json:"band"`

	// ProvisionRateByStage maps delinquency stage (1–3) to the annual
	// expected-loss provision in percent. Stage 0 is treated as stage 1.
	ProvisionRateByStage map[int]float64 `json:"provision_rate_by_stage"`

	TenorMinMonths int `json:"tenor_min_months"`
	TenorMaxMonths int `json:"tenor_max_months"`

	// Optional spread adjusters. The pipeline order is fixed: rating,
	// new-customer premium, historical blend, concentration add-on. A nil
	// table, zero premium, zero historical spread, or nil shares disables
	// the corresponding adjuster.
	RatingAdjustmentsBps    map[string]float64           `json:"rating_adjustments_bps,omitempty"`
	NewCustomerPremiumBps   float64                      `json:"new_customer_premium_bps,omitempty"`
	HistoricalAvgSpreadBps  float64                      `json:"historical_avg_spread_bps,omitempty"`
	HistoricalBlendWeight   float64                      `json:"historical_blend_weight,omitempty"`
	PortfolioShares         map[model.Industry]float64   `json:"portfolio_shares,omitempty"`
	ConcentrationThresholds []concentration.Threshold    `json:"concentration_thresholds,omitempty"`

	// Optimal-utilization scan bounds (fractions of the limit).
	ScanMinUtilization float64 `json:"scan_min_utilization"`
	ScanMaxUtilization float64 `json:"scan_max_utilization"`
	ScanStep           float64 `json:"scan_step"`
}

// DefaultConfig returns the standard calibration profile with the rating and
// new-customer adjusters enabled.
func DefaultConfig() Config {
	return Config{
		Name:        "standard",
		Description: "standard corporate pricing calibration",
		Factors:     riskfactor.DefaultConfig(),
		Band:        rateband.DefaultConfig(),
		ProvisionRateByStage: map[int]float64{
			1: 0.25,
			2: 1.00,
			3: 3.00,
		},
		TenorMinMonths: 6,
		TenorMaxMonths: 360,

		RatingAdjustmentsBps:  rateband.DefaultRatingAdjustmentsBps(),
		NewCustomerPremiumBps: 15,
		HistoricalBlendWeight: 0.3,

		ScanMinUtilization: 0.30,
		ScanMaxUtilization: 0.95,
		ScanStep:           0.01,
	}
}

// ProvisionPct returns the annual provision rate (percent) for a delinquency
// stage; stage 0 means a performing, unstaged loan.
func (c Config) ProvisionPct(stage int) float64 {
	if stage <= 0 {
		stage = 1
	}
	return c.ProvisionRateByStage[stage]
}

// adjusters assembles the ordered pipeline from the enabled options.
func (c Config) adjusters(book *concentration.Book) []rateband.SpreadAdjuster {
	var pipeline []rateband.SpreadAdjuster
	if c.RatingAdjustmentsBps != nil {
		pipeline = append(pipeline, rateband.RatingAdjuster(c.RatingAdjustmentsBps))
	}
	if c.NewCustomerPremiumBps > 0 {
		pipeline = append(pipeline, rateband.NewCustomerAdjuster(c.NewCustomerPremiumBps))
	}
	if c.HistoricalAvgSpreadBps > 0 {
		pipeline = append(pipeline, rateband.HistoricalBlendAdjuster(c.HistoricalAvgSpreadBps, c.HistoricalBlendWeight))
	}
	if book != nil {
		thresholds := c.ConcentrationThresholds
		if thresholds == nil {
			thresholds = concentration.DefaultThresholds()
		}
		pipeline = append(pipeline, concentration.Adjuster(book, thresholds))
	}
	return pipeline
}
