package pricing

import (
	"fmt"

	"github.com/meridianbank/pricing-engine/internal/model"
)

// Validate checks a request against the engine's domain bounds before any
// computation runs. It returns the first failing field as a
// *model.FieldError so the display layer can highlight the offending input;
// no partial result is ever produced for an invalid request.
//
// Zero annual sales on a revolving product is deliberately NOT an error:
// the factor resolution falls back to its calibrated constant instead of
// dividing. Negative sales are invalid.
func (e *Engine) Validate(req model.LoanRequest) error {
	if req.Product == "" {
		return &model.FieldError{Field: "product", Reason: "product is required"}
	}
	if req.Industry == "" {
		return &model.FieldError{Field: "industry", Reason: "industry is required"}
	}

	cfg := e.cfg
	if req.BorrowerScore < cfg.Factors.ScoreMin || req.BorrowerScore > cfg.Factors.ScoreMax {
		return &model.FieldError{
			Field: "borrower_score",
			Reason: fmt.Sprintf("score must be between %d and %d",
				cfg.Factors.ScoreMin, cfg.Factors.ScoreMax),
		}
	}
	if req.TenorMonths < cfg.TenorMinMonths || req.TenorMonths > cfg.TenorMaxMonths {
		return &model.FieldError{
			Field: "tenor_months",
			Reason: fmt.Sprintf("tenor must be between %d and %d months",
				cfg.TenorMinMonths, cfg.TenorMaxMonths),
		}
	}
	if req.Principal.Sign() <= 0 {
		return &model.FieldError{Field: "principal", Reason: "principal or limit must be positive"}
	}
	if req.Stage < 0 || req.Stage > 3 {
		return &model.FieldError{Field: "stage", Reason: "stage must be between 1 and 3"}
	}

	if req.Product.FundBased() {
		if req.CollateralPercent <= 0 {
			return &model.FieldError{
				Field:  "collateral_percent",
				Reason: "collateral percent must be > 0 for fund-based products",
			}
		}
		if req.CollateralPercent > 200 {
			return &model.FieldError{
				Field:  "collateral_percent",
				Reason: "collateral percent out of range",
			}
		}
	} else {
		if req.AnnualSales.Sign() < 0 {
			return &model.FieldError{Field: "annual_sales", Reason: "annual sales cannot be negative"}
		}
		if req.WorkingCapital.Sign() < 0 {
			return &model.FieldError{Field: "working_capital", Reason: "working capital cannot be negative"}
		}
		if req.UtilizationPercent < 0 || req.UtilizationPercent > 100 {
			return &model.FieldError{
				Field:  "utilization_percent",
				Reason: "utilization must be between 0 and 100",
			}
		}
	}

	if req.SPRating != "" && e.cfg.RatingAdjustmentsBps != nil {
		if _, ok := e.cfg.RatingAdjustmentsBps[req.SPRating]; !ok {
			return &model.FieldError{
				Field:  "sp_rating",
				Reason: "unknown rating: " + req.SPRating,
			}
		}
	}
	return nil
}
