package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/pricing-engine/internal/cashflow"
	"github.com/meridianbank/pricing-engine/internal/concentration"
	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/rateband"
	"github.com/meridianbank/pricing-engine/internal/riskfactor"
)

// Engine runs the four-stage pricing pipeline. An Engine is immutable after
// construction and safe for concurrent use; every Price call is independent.
type Engine struct {
	cfg       Config
	book      *concentration.Book
	adjusters []rateband.SpreadAdjuster
}

// NewEngine builds an engine for one calibration profile, assembling the
// spread adjuster pipeline from the profile's enabled options.
func NewEngine(cfg Config) *Engine {
	var book *concentration.Book
	if len(cfg.PortfolioShares) > 0 {
		book = concentration.NewBookFromShares(cfg.PortfolioShares)
	}
	return &Engine{
		cfg:       cfg,
		book:      book,
		adjusters: cfg.adjusters(book),
	}
}

// Config returns the engine's calibration profile.
func (e *Engine) Config() Config { return e.cfg }

// Price validates the request and prices every bucket in the fixed order
// Low, Medium, High. For revolving products the optimal-utilization scan
// result is attached to each bucket's result.
func (e *Engine) Price(req model.LoanRequest, mkt model.MarketParameters) ([]model.PricingResult, error) {
	if err := e.Validate(req); err != nil {
		return nil, err
	}

	results := make([]model.PricingResult, 0, len(model.Buckets()))
	for _, bucket := range model.Buckets() {
		res, err := e.priceBucket(req, mkt, bucket)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	if req.Product.Revolving() {
		pct, found := e.optimalUtilization(req, mkt)
		for i := range results {
			results[i].OptimalUtilizationPct = pct
			results[i].OptimalUtilizationFound = found
		}
	}
	return results, nil
}

// PriceBucket validates the request and prices a single bucket.
func (e *Engine) PriceBucket(req model.LoanRequest, mkt model.MarketParameters, bucket model.Bucket) (model.PricingResult, error) {
	if err := e.Validate(req); err != nil {
		return model.PricingResult{}, err
	}
	return e.priceBucket(req, mkt, bucket)
}

// priceBucket runs the pipeline for one already-validated request.
func (e *Engine) priceBucket(req model.LoanRequest, mkt model.MarketParameters, bucket model.Bucket) (model.PricingResult, error) {
	factors, err := riskfactor.Resolve(req, e.cfg.Factors)
	if err != nil {
		return model.PricingResult{}, err
	}
	risk := riskfactor.CompositeRisk(factors, bucket, e.cfg.Factors)
	provisionPct := e.cfg.ProvisionPct(req.Stage)

	band := rateband.Build(risk, bucket, req, factors.Industry, mkt, provisionPct, e.adjusters, e.cfg.Band)

	provision := decimal.NewFromFloat(provisionPct)
	var metrics cashflow.Metrics
	if req.Product.FundBased() {
		metrics = cashflow.FundMetrics(req.Principal, band.RepresentativeRate, req.TenorMonths, mkt, provision)
	} else {
		drawdown := e.cfg.Factors.EffectiveDrawdown(req)
		metrics = cashflow.UtilizationMetrics(req.Principal, drawdown, req.TenorMonths, band.RepresentativeRate, mkt, provision)
	}

	return model.PricingResult{
		Bucket:             bucket,
		RiskScore:          risk,
		SpreadMinBps:       band.SpreadMinBps,
		SpreadMaxBps:       band.SpreadMaxBps,
		RateMin:            band.RateMin,
		RateMax:            band.RateMax,
		RepresentativeRate: band.RepresentativeRate,
		EMI:                metrics.EMI,
		EMIApplicable:      metrics.EMIApplicable,
		AnnualNII:          metrics.AnnualNII,
		NIMPercent:         metrics.NIMPercent,
		BreakevenMonths:    metrics.BreakevenMonths,
		BreakevenReached:   metrics.BreakevenReached,
	}, nil
}

// BatchResult carries the outcome for one record of a batch upload. Exactly
// one of Results or Error is set.
type BatchResult struct {
	Index   int                   `json:"index"`
	Request model.LoanRequest     `json:"request"`
	Results []model.PricingResult `json:"results,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// PriceBatch prices a sequence of records independently and sequentially.
// Invalid records are flagged in place; they never abort the batch and are
// never silently defaulted.
func (e *Engine) PriceBatch(reqs []model.LoanRequest, mkt model.MarketParameters) []BatchResult {
	out := make([]BatchResult, 0, len(reqs))
	for i, req := range reqs {
		br := BatchResult{Index: i, Request: req}
		results, err := e.Price(req, mkt)
		if err != nil {
			br.Error = err.Error()
		} else {
			br.Results = results
		}
		out = append(out, br)
	}
	return out
}

// OptimalUtilization validates the request and runs the utilization scan.
// The boolean is false when no utilization in the scan range achieves the
// target margin — an expected outcome, not an error.
func (e *Engine) OptimalUtilization(req model.LoanRequest, mkt model.MarketParameters) (int, bool, error) {
	if err := e.Validate(req); err != nil {
		return 0, false, err
	}
	if req.Product.FundBased() {
		return 0, false, &model.FieldError{
			Field:  "product",
			Reason: "optimal utilization applies only to utilization-based products",
		}
	}
	pct, found := e.optimalUtilization(req, mkt)
	return pct, found, nil
}

// optimalUtilization scans drawdown from the configured minimum to maximum
// in fixed steps, re-running the full Medium-bucket pipeline at each step,
// and returns the smallest whole-number utilization percent whose realized
// margin meets the target NIM. A deterministic linear scan: no closed-form
// inverse of the pipeline is assumed.
func (e *Engine) optimalUtilization(req model.LoanRequest, mkt model.MarketParameters) (int, bool) {
	provisionPct := e.cfg.ProvisionPct(req.Stage)
	target := mkt.TargetNIM

	steps := int(math.Round((e.cfg.ScanMaxUtilization-e.cfg.ScanMinUtilization)/e.cfg.ScanStep)) + 1
	for i := 0; i < steps; i++ {
		u := e.cfg.ScanMinUtilization + float64(i)*e.cfg.ScanStep

		probe := req
		probe.UtilizationPercent = u * 100

		factors, err := riskfactor.Resolve(probe, e.cfg.Factors)
		if err != nil {
			return 0, false
		}
		risk := riskfactor.CompositeRisk(factors, model.BucketMedium, e.cfg.Factors)
		band := rateband.Build(risk, model.BucketMedium, probe, factors.Industry, mkt, provisionPct, e.adjusters, e.cfg.Band)

		margin := band.RepresentativeRate.
			Add(mkt.FeeYield).
			Sub(mkt.CostOfFunds).
			Sub(decimal.NewFromFloat(provisionPct)).
			Sub(mkt.OperatingExpense)
		if margin.GreaterThanOrEqual(target) {
			return int(math.Round(u * 100)), true
		}
	}
	return 0, false
}
