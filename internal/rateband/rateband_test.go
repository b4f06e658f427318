package rateband

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/pricing-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func stdMarket() model.MarketParameters {
	return model.MarketParameters{
		ReferenceRate:      d(4.10),
		CostOfFunds:        d(5.00),
		TargetNIM:          d(2.50),
		FeeYield:           d(0.50),
		OperatingExpense:   d(0.80),
		UpfrontCostPercent: d(0.50),
	}
}

func termRequest(score int) model.LoanRequest {
	return model.LoanRequest{
		Product:           model.ProductTermLoan,
		Industry:          model.IndustryManufacturing,
		BorrowerScore:     score,
		TenorMonths:       36,
		Principal:         decimal.NewFromInt(100000),
		CollateralPercent: 70,
	}
}

// --- Ordering invariants ---

func TestBuild_OrderingInvariants(t *testing.T) {
	cfg := DefaultConfig()
	mkt := stdMarket()

	for _, score := range []int{300, 500, 700, 900} {
		for _, bucket := range model.Buckets() {
			for _, risk := range []float64{0.40, 0.85, 1.50, 3.50} {
				band := Build(risk, bucket, termRequest(score), 1.00, mkt, 0.25, nil, cfg)

				if band.SpreadMinBps >= band.SpreadMaxBps {
					t.Errorf("score=%d bucket=%s risk=%f: spread band not ordered: [%d, %d]",
						score, bucket, risk, band.SpreadMinBps, band.SpreadMaxBps)
				}
				if band.RateMin.GreaterThan(band.RepresentativeRate) ||
					band.RepresentativeRate.GreaterThan(band.RateMax) {
					t.Errorf("score=%d bucket=%s risk=%f: rep rate %s outside [%s, %s]",
						score, bucket, risk, band.RepresentativeRate, band.RateMin, band.RateMax)
				}
				if band.RateMin.LessThan(d(cfg.RateMinPct).Sub(d(0.2))) ||
					band.RateMax.GreaterThan(d(cfg.RateMaxPct)) {
					t.Errorf("score=%d bucket=%s risk=%f: rates escape market bounds: [%s, %s]",
						score, bucket, risk, band.RateMin, band.RateMax)
				}
			}
		}
	}
}

func TestBuild_HigherRiskNeverCheaper(t *testing.T) {
	cfg := DefaultConfig()
	mkt := stdMarket()
	req := termRequest(700)

	prev := decimal.Zero
	for _, risk := range []float64{0.5, 1.0, 1.5, 2.0, 2.5, 3.0} {
		band := Build(risk, model.BucketMedium, req, 1.00, mkt, 0.25, nil, cfg)
		if band.RepresentativeRate.LessThan(prev) {
			t.Fatalf("rep rate decreased as risk rose: risk=%f rate=%s prev=%s",
				risk, band.RepresentativeRate, prev)
		}
		prev = band.RepresentativeRate
	}
}

// --- Floor tests ---

func TestBuild_TargetNIMEnforced(t *testing.T) {
	cfg := DefaultConfig()
	mkt := stdMarket()

	// Required rate: 5.00 + 0.25 + 0.80 - 0.50 + 2.50 = 8.05.
	band := Build(0.85, model.BucketMedium, termRequest(700), 1.00, mkt, 0.25, nil, cfg)
	required := d(8.05)
	if band.RepresentativeRate.Sub(required).Abs().GreaterThan(d(0.0001)) {
		t.Errorf("low-risk rep rate should be lifted to required %s, got %s",
			required, band.RepresentativeRate)
	}
}

func TestBuild_FundFloorRate(t *testing.T) {
	cfg := DefaultConfig()
	// Cheap funding so neither the NIM floor nor the market floor dominates.
	mkt := model.MarketParameters{
		ReferenceRate:    d(2.00),
		CostOfFunds:      d(2.00),
		TargetNIM:        d(0.50),
		FeeYield:         d(0.50),
		OperatingExpense: d(0.30),
	}

	band := Build(0.50, model.BucketMedium, termRequest(850), 0.95, mkt, 0.25, nil, cfg)
	if !band.RepresentativeRate.Equal(d(cfg.FundFloorRatePct)) {
		t.Errorf("fund-based rep rate should floor at %.2f, got %s",
			cfg.FundFloorRatePct, band.RepresentativeRate)
	}
}

func TestBuild_MarketCapBinds(t *testing.T) {
	cfg := DefaultConfig()
	mkt := stdMarket()
	mkt.CostOfFunds = d(9.00) // required rate 12.05 exceeds the 12.00 cap

	band := Build(0.85, model.BucketMedium, termRequest(700), 1.00, mkt, 0.25, nil, cfg)
	if !band.RepresentativeRate.Equal(d(cfg.RateMaxPct)) {
		t.Errorf("rep rate should clamp at cap %.2f, got %s", cfg.RateMaxPct, band.RepresentativeRate)
	}
	if band.RateMax.Sub(band.RateMin).LessThan(d(cfg.MinGapBps / 100)) {
		t.Errorf("band collapsed below minimum gap at the cap: [%s, %s]", band.RateMin, band.RateMax)
	}
}

func TestBuild_CoreSpreadFloor(t *testing.T) {
	cfg := DefaultConfig()
	mkt := stdMarket()

	// An adjuster that tries to price below the core floor is re-floored.
	crush := func(bps float64, _ AdjusterContext) float64 { return -500 }
	band := Build(2.0, model.BucketMedium, termRequest(700), 1.00, mkt, 0.25,
		[]SpreadAdjuster{crush}, cfg)
	ref := mkt.ReferenceRate.InexactFloat64()
	minRate := ref + cfg.MinCoreSpreadBps/100 - cfg.BucketHalfWidthBps[model.BucketMedium]/100
	if band.RateMin.LessThan(d(math.Max(minRate, cfg.RateMinPct)).Sub(d(0.0001))) {
		t.Errorf("crushed spread should re-floor, got rateMin %s", band.RateMin)
	}
}

// --- Risk label tests ---

func TestBorrowerRiskLabel(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		score int
		want  string
	}{
		{900, "Low"},
		{750, "Low"},
		{700, "Medium"},
		{650, "Medium"},
		{600, "Med-High"},
		{500, "Med-High"},
		{400, "High"},
		{300, "High"},
	}
	for _, tt := range tests {
		if got := cfg.BorrowerRiskLabel(tt.score); got != tt.want {
			t.Errorf("BorrowerRiskLabel(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

// --- Adjuster tests ---

func TestRatingAdjuster(t *testing.T) {
	adj := RatingAdjuster(DefaultRatingAdjustmentsBps())

	unrated := AdjusterContext{Request: model.LoanRequest{}}
	if got := adj(200, unrated); got != 200 {
		t.Errorf("unrated request should pass through, got %f", got)
	}

	aaa := AdjusterContext{Request: model.LoanRequest{SPRating: "AAA"}}
	if got := adj(200, aaa); got != 175 {
		t.Errorf("AAA should tighten by 25bps, got %f", got)
	}

	ccc := AdjusterContext{Request: model.LoanRequest{SPRating: "CCC"}}
	if got := adj(200, ccc); got != 275 {
		t.Errorf("CCC should widen by 75bps, got %f", got)
	}
}

func TestNewCustomerAdjuster(t *testing.T) {
	adj := NewCustomerAdjuster(15)

	existing := AdjusterContext{Request: model.LoanRequest{NewCustomer: false}}
	if got := adj(200, existing); got != 200 {
		t.Errorf("existing customer should pass through, got %f", got)
	}

	fresh := AdjusterContext{Request: model.LoanRequest{NewCustomer: true}}
	if got := adj(200, fresh); got != 215 {
		t.Errorf("new customer should pay +15bps, got %f", got)
	}
}

func TestHistoricalBlendAdjuster(t *testing.T) {
	adj := HistoricalBlendAdjuster(300, 0.3)
	// 0.7*200 + 0.3*300 = 230.
	if got := adj(200, AdjusterContext{}); math.Abs(got-230) > 1e-9 {
		t.Errorf("expected blend 230, got %f", got)
	}

	disabled := HistoricalBlendAdjuster(0, 0.3)
	if got := disabled(200, AdjusterContext{}); got != 200 {
		t.Errorf("zero historical spread should disable the blend, got %f", got)
	}
}
