package cashflow

import (
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

// --- EMI tests ---

func TestEMI_ZeroRateStraightLine(t *testing.T) {
	emi := EMI(decimal.NewFromInt(12000), decimal.Zero, 12)
	if !emi.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("zero-rate EMI should be straight-line 1000, got %s", emi)
	}
}

func TestEMI_ZeroTenor(t *testing.T) {
	emi := EMI(decimal.NewFromInt(12000), d(8), 0)
	if !emi.IsZero() {
		t.Errorf("zero tenor should give zero EMI, got %s", emi)
	}
}

func TestEMI_ExceedsStraightLine(t *testing.T) {
	principal := decimal.NewFromInt(100000)
	emi := EMI(principal, d(8.05), 36)

	straightLine := principal.Div(decimal.NewFromInt(36))
	if emi.LessThanOrEqual(straightLine) {
		t.Errorf("interest-bearing EMI %s should exceed straight-line %s", emi, straightLine)
	}
	// Total repaid must exceed principal but stay plausible.
	total := emi.Mul(decimal.NewFromInt(36))
	if total.LessThanOrEqual(principal) {
		t.Errorf("total repayment %s should exceed principal %s", total, principal)
	}
	if total.GreaterThan(principal.Mul(d(1.5))) {
		t.Errorf("total repayment %s implausibly high for 8%%/36mo", total)
	}
}

func TestEMI_DecreasesWithTenor(t *testing.T) {
	principal := decimal.NewFromInt(100000)
	short := EMI(principal, d(8), 24)
	long := EMI(principal, d(8), 60)
	if long.GreaterThanOrEqual(short) {
		t.Errorf("longer tenor should lower EMI: 24mo=%s 60mo=%s", short, long)
	}
}

// --- Fund metrics tests ---

func TestFundMetrics_PositiveMargin(t *testing.T) {
	m := FundMetrics(decimal.NewFromInt(100000), d(8.05), 36, stdMarket(), d(0.25))

	if !m.EMIApplicable {
		t.Error("fund-based metrics should carry an EMI")
	}
	if m.EMI.Sign() <= 0 {
		t.Errorf("EMI should be positive, got %s", m.EMI)
	}
	if m.AnnualNII.Sign() <= 0 {
		t.Errorf("NII should be positive at 8.05%% against 5%% funding, got %s", m.AnnualNII)
	}
	// Net margin on balance is 2.00% plus 0.50% fee on original principal:
	// NIM over average earning assets must be at least the target 2.50%.
	if m.NIMPercent.LessThan(d(2.49)) {
		t.Errorf("NIM %s below expected floor 2.50", m.NIMPercent)
	}
	if !m.BreakevenReached {
		t.Error("expected breakeven within tenor")
	}
	if m.BreakevenMonths < 1 || m.BreakevenMonths > 36 {
		t.Errorf("breakeven month out of range: %d", m.BreakevenMonths)
	}
}

func TestFundMetrics_ZeroMarginNeverBreaksEven(t *testing.T) {
	// Rate equals cost of funds with no fee: every month nets zero, so the
	// upfront cost is never recovered.
	mkt := model.MarketParameters{
		ReferenceRate:      d(5.00),
		CostOfFunds:        d(5.00),
		UpfrontCostPercent: d(0.50),
	}
	m := FundMetrics(decimal.NewFromInt(100000), d(5.00), 36, mkt, decimal.Zero)
	if m.BreakevenReached {
		t.Errorf("zero margin should never break even, got month %d", m.BreakevenMonths)
	}
}

func TestFundMetrics_ShortTenor(t *testing.T) {
	// Tenors under a year must not divide by twelve months they do not have.
	m := FundMetrics(decimal.NewFromInt(50000), d(9), 6, stdMarket(), d(0.25))
	if !m.EMIApplicable || m.EMI.Sign() <= 0 {
		t.Errorf("expected valid EMI for 6-month loan, got %s", m.EMI)
	}
}

func TestFundMetrics_InvalidInputs(t *testing.T) {
	m := FundMetrics(decimal.Zero, d(8), 36, stdMarket(), d(0.25))
	if m.BreakevenReached || m.AnnualNII.Sign() != 0 {
		t.Errorf("zero principal should yield empty metrics, got %+v", m)
	}
}

// --- Utilization metrics tests ---

func TestUtilizationMetrics_PositiveMargin(t *testing.T) {
	// Margin: 8.05 + 0.50 - 5.00 - 0.25 - 0.80 = 2.50.
	m := UtilizationMetrics(decimal.NewFromInt(500000), 0.70, 12, d(8.05), stdMarket(), d(0.25))

	if m.EMIApplicable {
		t.Error("revolving metrics should not carry an EMI")
	}
	if !m.NIMPercent.Equal(d(2.5)) {
		t.Errorf("expected flat NIM 2.50, got %s", m.NIMPercent)
	}
	// NII: 2.50% of 350000 exposure.
	if !m.AnnualNII.Equal(d(8750)) {
		t.Errorf("expected NII 8750, got %s", m.AnnualNII)
	}
	if !m.BreakevenReached {
		t.Error("expected breakeven within tenor")
	}
}

func TestUtilizationMetrics_NegativeMargin(t *testing.T) {
	m := UtilizationMetrics(decimal.NewFromInt(500000), 0.70, 12, d(4.00), stdMarket(), d(0.25))

	if m.AnnualNII.Sign() >= 0 {
		t.Errorf("underwater margin should give negative NII, got %s", m.AnnualNII)
	}
	if m.BreakevenReached {
		t.Error("negative margin must not report a breakeven month")
	}
}

func TestUtilizationMetrics_BreakevenBeyondTenor(t *testing.T) {
	// Thin margin against a heavy upfront cost: recovery takes longer than
	// the facility runs.
	mkt := stdMarket()
	mkt.UpfrontCostPercent = d(10)
	m := UtilizationMetrics(decimal.NewFromInt(500000), 0.70, 12, d(8.05), mkt, d(0.25))

	if m.BreakevenReached {
		t.Errorf("breakeven beyond tenor should report not reached, got month %d", m.BreakevenMonths)
	}
}

func TestUtilizationMetrics_ZeroUtilization(t *testing.T) {
	m := UtilizationMetrics(decimal.NewFromInt(500000), 0, 12, d(8.05), stdMarket(), d(0.25))
	if m.AnnualNII.Sign() != 0 {
		t.Errorf("zero drawdown should earn nothing, got %s", m.AnnualNII)
	}
	if m.BreakevenReached {
		t.Error("zero drawdown must not break even")
	}
}
