// Package cashflow derives the secondary financial metrics of a priced loan:
// EMI, annual net interest income, net interest margin, and the breakeven
// month at which cumulative net margin recovers the upfront origination cost.
//
// Fund-based products run a month-by-month amortization simulation;
// revolving products use a flat exposure-based margin. All monetary math is
// shopspring/decimal; only the EMI power term drops to float64. Every
// division guards its denominator, so no NaN or division error can escape —
// "not within tenor" is an ordinary sentinel result, never a failure.
package cashflow

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/pricing-engine/internal/model"
)

var (
	d12   = decimal.NewFromInt(12)
	d100  = decimal.NewFromInt(100)
	d1200 = decimal.NewFromInt(1200)

	// minAverageBalance floors the average earning assets denominator.
	minAverageBalance = decimal.NewFromFloat(0.01)
)

// moneyScale is the rounding applied to currency outputs.
const moneyScale int32 = 2

// Metrics is the cash-flow output for one bucket's representative rate.
type Metrics struct {
	EMI              decimal.Decimal
	EMIApplicable    bool
	AnnualNII        decimal.Decimal
	NIMPercent       decimal.Decimal
	BreakevenMonths  int
	BreakevenReached bool
}

// monthlyRates precomputes the per-month percentage fractions used by the
// amortization loop.
type monthlyRates struct {
	interest  decimal.Decimal // repRate / 1200
	fee       decimal.Decimal // feeYield / 1200, charged on original principal
	funding   decimal.Decimal // costOfFunds / 1200
	provision decimal.Decimal // provision / 1200
	opex      decimal.Decimal // operatingExpense / 1200
}

func newMonthlyRates(repRate decimal.Decimal, mkt model.MarketParameters, provisionPct decimal.Decimal) monthlyRates {
	return monthlyRates{
		interest:  repRate.Div(d1200),
		fee:       mkt.FeeYield.Div(d1200),
		funding:   mkt.CostOfFunds.Div(d1200),
		provision: provisionPct.Div(d1200),
		opex:      mkt.OperatingExpense.Div(d1200),
	}
}

// step computes one month's net margin and the reduced balance.
func (r monthlyRates) step(balance, principal, emi decimal.Decimal) (net, newBalance decimal.Decimal) {
	interest := balance.Mul(r.interest)
	net = interest.
		Add(principal.Mul(r.fee)).
		Sub(balance.Mul(r.funding)).
		Sub(balance.Mul(r.provision)).
		Sub(balance.Mul(r.opex))

	newBalance = balance.Sub(emi.Sub(interest))
	if newBalance.Sign() < 0 {
		newBalance = decimal.Zero
	}
	return net, newBalance
}

// EMI computes the equated monthly installment for an amortizing loan.
// A zero rate falls back to straight-line repayment.
func EMI(principal, repRate decimal.Decimal, tenorMonths int) decimal.Decimal {
	if tenorMonths <= 0 {
		return decimal.Zero
	}
	if repRate.Sign() <= 0 {
		return principal.Div(decimal.NewFromInt(int64(tenorMonths))).Round(moneyScale)
	}

	// P * i * (1+i)^n / ((1+i)^n - 1); the power term runs in float64.
	p := principal.InexactFloat64()
	i := repRate.InexactFloat64() / 1200
	pow := math.Pow(1+i, float64(tenorMonths))
	emi := p * i * pow / (pow - 1)
	return decimal.NewFromFloat(emi).Round(moneyScale)
}

// FundMetrics prices the amortizing path: EMI, first-year NII over the
// simulated average balance, and the full-tenor breakeven month.
func FundMetrics(
	principal, repRate decimal.Decimal,
	tenorMonths int,
	mkt model.MarketParameters,
	provisionPct decimal.Decimal,
) Metrics {
	m := Metrics{EMIApplicable: true}
	if tenorMonths <= 0 || principal.Sign() <= 0 {
		return m
	}

	emi := EMI(principal, repRate, tenorMonths)
	m.EMI = emi
	rates := newMonthlyRates(repRate, mkt, provisionPct)

	// First-year NII and average earning assets.
	months := tenorMonths
	if months > 12 {
		months = 12
	}
	balance := principal
	nii := decimal.Zero
	balanceSum := decimal.Zero
	for i := 0; i < months; i++ {
		balanceSum = balanceSum.Add(balance)
		var net decimal.Decimal
		net, balance = rates.step(balance, principal, emi)
		nii = nii.Add(net)
	}

	avgBalance := balanceSum.Div(decimal.NewFromInt(int64(months)))
	if avgBalance.LessThan(minAverageBalance) {
		avgBalance = minAverageBalance
	}
	m.AnnualNII = nii.Round(moneyScale)
	m.NIMPercent = d100.Mul(nii).Div(avgBalance).Round(4)

	// Breakeven: full-tenor simulation starting in the hole by the upfront
	// origination cost.
	cumulative := principal.Mul(mkt.UpfrontCostPercent).Div(d100).Neg()
	balance = principal
	for month := 1; month <= tenorMonths; month++ {
		var net decimal.Decimal
		net, balance = rates.step(balance, principal, emi)
		cumulative = cumulative.Add(net)
		if cumulative.Sign() >= 0 {
			m.BreakevenMonths = month
			m.BreakevenReached = true
			break
		}
	}
	return m
}

// UtilizationMetrics prices the revolving path: average exposure at the
// assumed drawdown, flat annual margin, and the breakeven month implied by
// the monthly NII run rate.
func UtilizationMetrics(
	limit decimal.Decimal,
	utilization float64,
	tenorMonths int,
	repRate decimal.Decimal,
	mkt model.MarketParameters,
	provisionPct decimal.Decimal,
) Metrics {
	exposure := limit.Mul(decimal.NewFromFloat(utilization))

	margin := repRate.
		Add(mkt.FeeYield).
		Sub(mkt.CostOfFunds).
		Sub(provisionPct).
		Sub(mkt.OperatingExpense)

	m := Metrics{
		AnnualNII:  margin.Div(d100).Mul(exposure).Round(moneyScale),
		NIMPercent: margin.Round(4),
	}

	// A non-positive margin never recovers the upfront cost.
	if margin.Sign() <= 0 {
		return m
	}
	monthlyNII := margin.Div(d100).Mul(exposure).Div(d12)
	if monthlyNII.Sign() <= 0 {
		return m
	}

	upfront := limit.Mul(mkt.UpfrontCostPercent).Div(d100)
	months := int(math.Ceil(upfront.Div(monthlyNII).InexactFloat64()))
	if months < 1 {
		months = 1
	}
	if months <= tenorMonths {
		m.BreakevenMonths = months
		m.BreakevenReached = true
	}
	return m
}
