package rateband

// DefaultRatingAdjustmentsBps is the standard S&P rating spread adjustment
// table. Investment-grade ratings tighten the spread; speculative grades
// widen it.
func DefaultRatingAdjustmentsBps() map[string]float64 {
	return map[string]float64{
		"AAA": -25,
		"AA":  -15,
		"A":   -5,
		"BBB": 0,
		"BB":  20,
		"B":   40,
		"CCC": 75,
	}
}

// RatingAdjuster returns an adjuster that applies the table entry for the
// request's external rating. Requests without a rating pass through
// unchanged; unknown ratings are rejected at validation, before the pipeline
// runs.
func RatingAdjuster(table map[string]float64) SpreadAdjuster {
	return func(bps float64, ctx AdjusterContext) float64 {
		if ctx.Request.SPRating == "" {
			return bps
		}
		return bps + table[ctx.Request.SPRating]
	}
}

// NewCustomerAdjuster returns an adjuster that adds a flat premium for
// borrowers with no repayment history at the bank.
func NewCustomerAdjuster(premiumBps float64) SpreadAdjuster {
	return func(bps float64, ctx AdjusterContext) float64 {
		if !ctx.Request.NewCustomer {
			return bps
		}
		return bps + premiumBps
	}
}

// HistoricalBlendAdjuster returns an adjuster that pulls the center spread
// toward the historical portfolio average with the given weight in [0, 1].
// A non-positive historical spread disables the blend.
func HistoricalBlendAdjuster(historicalBps, weight float64) SpreadAdjuster {
	return func(bps float64, _ AdjusterContext) float64 {
		if historicalBps <= 0 {
			return bps
		}
		return (1-weight)*bps + weight*historicalBps
	}
}
