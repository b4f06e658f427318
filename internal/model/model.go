// Package model defines the core domain types shared across the pricing
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Supported loan products.
const (
	ProductTermLoan       Product = "Term Loan"
	ProductAssetBacked    Product = "Asset Backed Loan"
	ProductWorkingCapital Product = "Working Capital"
	ProductTradeFinance   Product = "Trade Finance"
)

// Product identifies a loan product. Products fall into two pricing
// categories: fund-based (term-amortizing, collateral-priced) and
// utilization-based (revolving limits priced on assumed drawdown).
type Product string

var fundBased = map[Product]bool{
	ProductTermLoan:    true,
	ProductAssetBacked: true,
}

// FundBased reports whether the product is term-amortizing.
func (p Product) FundBased() bool { return fundBased[p] }

// Revolving reports whether the product is a utilization-based facility.
func (p Product) Revolving() bool { return !fundBased[p] }

// productAliases maps normalized input strings to canonical products.
// Batch uploads arrive with inconsistent casing and separators.
var productAliases = map[string]Product{
	"term loan":         ProductTermLoan,
	"term":              ProductTermLoan,
	"asset backed loan": ProductAssetBacked,
	"asset backed":      ProductAssetBacked,
	"abl":               ProductAssetBacked,
	"working capital":   ProductWorkingCapital,
	"wc":                ProductWorkingCapital,
	"trade finance":     ProductTradeFinance,
	"tf":                ProductTradeFinance,
}

// ParseProduct normalizes and validates a product name.
func ParseProduct(s string) (Product, error) {
	if p, ok := productAliases[normalize(s)]; ok {
		return p, nil
	}
	return "", &FieldError{Field: "product", Reason: "unknown product: " + s}
}

// Supported borrower industries.
const (
	IndustryManufacturing Industry = "Manufacturing"
	IndustryConstruction  Industry = "Construction"
	IndustryTrading       Industry = "Trading"
	IndustryServices      Industry = "Services"
	IndustryAgriculture   Industry = "Agriculture"
	IndustryRealEstate    Industry = "Real Estate"
)

// Industry identifies the borrower's industry sector.
type Industry string

var industryAliases = map[string]Industry{
	"manufacturing": IndustryManufacturing,
	"construction":  IndustryConstruction,
	"trading":       IndustryTrading,
	"services":      IndustryServices,
	"agriculture":   IndustryAgriculture,
	"real estate":   IndustryRealEstate,
	"realestate":    IndustryRealEstate,
}

// ParseIndustry normalizes and validates an industry name.
func ParseIndustry(s string) (Industry, error) {
	if i, ok := industryAliases[normalize(s)]; ok {
		return i, nil
	}
	return "", &FieldError{Field: "industry", Reason: "unknown industry: " + s}
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Bucket is a named risk-pricing tier. Each bucket applies a fixed multiplier
// to the base composite risk score, producing a family of quotes per loan.
type Bucket string

const (
	BucketLow    Bucket = "Low"
	BucketMedium Bucket = "Medium"
	BucketHigh   Bucket = "High"
)

// Buckets returns all buckets in the fixed pricing order.
func Buckets() []Bucket {
	return []Bucket{BucketLow, BucketMedium, BucketHigh}
}

// ParseBucket validates a bucket name.
func ParseBucket(s string) (Bucket, error) {
	switch normalize(s) {
	case "low":
		return BucketLow, nil
	case "medium":
		return BucketMedium, nil
	case "high":
		return BucketHigh, nil
	}
	return "", &FieldError{Field: "bucket", Reason: "unknown bucket: " + s}
}

// LoanRequest is the immutable input for one pricing invocation.
//
// CollateralPercent (loan-to-value) applies only to fund-based products.
// WorkingCapital/AnnualSales and UtilizationPercent apply only to revolving
// products. Stage is the delinquency stage (1–3); zero means stage 1.
type LoanRequest struct {
	Product            Product         `json:"product"`
	Industry           Industry        `json:"industry"`
	BorrowerScore      int             `json:"borrower_score"`
	TenorMonths        int             `json:"tenor_months"`
	Principal          decimal.Decimal `json:"principal"`
	CollateralPercent  float64         `json:"collateral_percent,omitempty"`
	WorkingCapital     decimal.Decimal `json:"working_capital,omitempty"`
	AnnualSales        decimal.Decimal `json:"annual_sales,omitempty"`
	UtilizationPercent float64         `json:"utilization_percent,omitempty"`
	Stage              int             `json:"stage,omitempty"`
	SPRating           string          `json:"sp_rating,omitempty"`
	NewCustomer        bool            `json:"new_customer,omitempty"`
}

// MarketParameters are the session-wide market inputs shared by every loan
// priced in a session. All fields are annual percentages except
// UpfrontCostPercent, which is a one-time percentage of principal.
type MarketParameters struct {
	ReferenceRate      decimal.Decimal `json:"reference_rate"`
	CostOfFunds        decimal.Decimal `json:"cost_of_funds"`
	TargetNIM          decimal.Decimal `json:"target_nim"`
	FeeYield           decimal.Decimal `json:"fee_yield"`
	OperatingExpense   decimal.Decimal `json:"operating_expense"`
	UpfrontCostPercent decimal.Decimal `json:"upfront_cost_percent"`
}

// RiskFactors are the resolved per-loan multipliers, each clamped to its
// calibrated range before composition.
type RiskFactors struct {
	Product                 float64 `json:"product_factor"`
	Industry                float64 `json:"industry_factor"`
	Borrower                float64 `json:"borrower_factor"`
	CollateralOrUtilization float64 `json:"collateral_or_utilization_factor"`
}

// PricingResult is the per-bucket output of one pricing invocation.
//
// EMI is meaningful only when EMIApplicable is true (fund-based products).
// BreakevenMonths is meaningful only when BreakevenReached is true; a false
// value is the "not within tenor" outcome, an expected result of the math
// rather than an error. OptimalUtilizationPct follows the same convention
// and is populated only for revolving products.
type PricingResult struct {
	Bucket                  Bucket          `json:"bucket"`
	RiskScore               float64         `json:"risk_score"`
	SpreadMinBps            int64           `json:"spread_min_bps"`
	SpreadMaxBps            int64           `json:"spread_max_bps"`
	RateMin                 decimal.Decimal `json:"rate_min"`
	RateMax                 decimal.Decimal `json:"rate_max"`
	RepresentativeRate      decimal.Decimal `json:"representative_rate"`
	EMI                     decimal.Decimal `json:"emi"`
	EMIApplicable           bool            `json:"emi_applicable"`
	AnnualNII               decimal.Decimal `json:"annual_nii"`
	NIMPercent              decimal.Decimal `json:"nim_percent"`
	BreakevenMonths         int             `json:"breakeven_months"`
	BreakevenReached        bool            `json:"breakeven_reached"`
	OptimalUtilizationPct   int             `json:"optimal_utilization_pct,omitempty"`
	OptimalUtilizationFound bool            `json:"optimal_utilization_found,omitempty"`
}
