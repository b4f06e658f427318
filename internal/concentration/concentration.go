// Package concentration tracks the bank's portfolio exposure per industry
// and converts concentration above configured share thresholds into pricing
// add-ons.
//
// A book heavy in one sector carries correlated default risk: loans that
// deepen an over-weighted industry are charged extra spread rather than
// rejected. Shares are computed from booked notionals, so the add-on is a
// deterministic function of the configured portfolio snapshot.
package concentration

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/rateband"
)

// Threshold is one concentration step: industry shares at or above MinShare
// carry AddonBps. Thresholds are ordered by descending MinShare; the first
// match applies.
type Threshold struct {
	MinShare float64 `json:"min_share"`
	AddonBps float64 `json:"addon_bps"`
}

// DefaultThresholds returns the standard concentration steps.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{MinShare: 0.40, AddonBps: 45},
		{MinShare: 0.25, AddonBps: 20},
	}
}

// AddonBps returns the add-on for an industry share under the given
// thresholds.
func AddonBps(share float64, thresholds []Threshold) float64 {
	for _, t := range thresholds {
		if share >= t.MinShare {
			return t.AddonBps
		}
	}
	return 0
}

// Book holds portfolio exposure by industry. Safe for concurrent use.
type Book struct {
	mu        sync.RWMutex
	exposures map[model.Industry]decimal.Decimal
	total     decimal.Decimal
}

// NewBook creates an empty exposure book.
func NewBook() *Book {
	return &Book{exposures: make(map[model.Industry]decimal.Decimal)}
}

// NewBookFromShares builds a book from relative shares (for configuration
// snapshots where only percentages are known). Shares need not sum to one;
// they are normalized by their sum.
func NewBookFromShares(shares map[model.Industry]float64) *Book {
	b := NewBook()
	for ind, s := range shares {
		if s > 0 {
			b.Add(ind, decimal.NewFromFloat(s))
		}
	}
	return b
}

// Add books notional exposure against an industry.
func (b *Book) Add(industry model.Industry, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exposures[industry] = b.exposures[industry].Add(amount)
	b.total = b.total.Add(amount)
}

// Share returns the industry's fraction of total booked exposure.
func (b *Book) Share(industry model.Industry) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.total.Sign() <= 0 {
		return 0
	}
	return b.exposures[industry].Div(b.total).InexactFloat64()
}

// Adjuster returns a spread adjuster charging the book's concentration
// add-on for the request's industry. A nil book disables the add-on.
func Adjuster(book *Book, thresholds []Threshold) rateband.SpreadAdjuster {
	return func(bps float64, ctx rateband.AdjusterContext) float64 {
		if book == nil {
			return bps
		}
		return bps + AddonBps(book.Share(ctx.Request.Industry), thresholds)
	}
}
