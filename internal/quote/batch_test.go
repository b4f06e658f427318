package quote

import (
	"errors"
	"strings"
	"testing"

	"github.com/meridianbank/pricing-engine/internal/model"
)

func TestParseBatchCSV_HeaderMappedColumns(t *testing.T) {
	// Column order is free; only presence matters.
	csv := strings.Join([]string{
		"principal,industry,product,tenor_months,borrower_score,collateral_percent",
		"100000,Manufacturing,Term Loan,36,700,70",
	}, "\n")

	rows, err := parseBatchCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.err != nil {
		t.Fatalf("row should parse, got %v", row.err)
	}
	if row.req.Product != model.ProductTermLoan || row.req.BorrowerScore != 700 {
		t.Errorf("row parsed incorrectly: %+v", row.req)
	}
	if row.req.CollateralPercent != 70 {
		t.Errorf("expected collateral 70, got %f", row.req.CollateralPercent)
	}
}

func TestParseBatchCSV_MissingRequiredColumn(t *testing.T) {
	csv := "product,industry,borrower_score,tenor_months\nTerm Loan,Manufacturing,700,36"
	if _, err := parseBatchCSV(strings.NewReader(csv)); err == nil {
		t.Error("expected error for missing principal column")
	}
}

func TestParseBatchCSV_FlagsBadRowsInPlace(t *testing.T) {
	csv := strings.Join([]string{
		"product,industry,borrower_score,tenor_months,principal,collateral_percent,working_capital,annual_sales",
		"Term Loan,Manufacturing,700,36,100000,70,,",
		"Term Loan,Manufacturing,not-a-number,36,100000,70,,",
		"Working Capital,Trading,850,12,500000,,50000,2000000",
	}, "\n")

	rows, err := parseBatchCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].err != nil {
		t.Errorf("row 0 should parse, got %v", rows[0].err)
	}
	if rows[1].err == nil {
		t.Error("row 1 should be flagged for its score")
	}
	if rows[2].err != nil {
		t.Errorf("row 2 should parse, got %v", rows[2].err)
	}
	// Line numbers count from the header.
	if rows[0].line != 2 || rows[2].line != 4 {
		t.Errorf("unexpected line numbers: %d, %d", rows[0].line, rows[2].line)
	}
}

func TestParseBatchCSV_FundBasedNeedsCollateral(t *testing.T) {
	csv := strings.Join([]string{
		"product,industry,borrower_score,tenor_months,principal,collateral_percent",
		"Term Loan,Manufacturing,700,36,100000,",
	}, "\n")

	rows, err := parseBatchCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var fieldErr *model.FieldError
	if !errors.As(rows[0].err, &fieldErr) || fieldErr.Field != "collateral_percent" {
		t.Errorf("expected collateral_percent FieldError, got %v", rows[0].err)
	}
}

func TestParseBatchCSV_RevolvingNeedsSalesFields(t *testing.T) {
	csv := strings.Join([]string{
		"product,industry,borrower_score,tenor_months,principal,working_capital,annual_sales",
		"Working Capital,Trading,850,12,500000,,",
		"Working Capital,Trading,850,12,500000,0,0",
	}, "\n")

	rows, err := parseBatchCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].err == nil {
		t.Error("empty sales fields should be rejected")
	}
	// Explicit zeros are legal: the factor falls back to its constant.
	if rows[1].err != nil {
		t.Errorf("explicit zero sales should parse, got %v", rows[1].err)
	}
}

func TestParseBatchCSV_OptionalFields(t *testing.T) {
	csv := strings.Join([]string{
		"product,industry,borrower_score,tenor_months,principal,collateral_percent,stage,sp_rating,new_customer",
		"Term Loan,Manufacturing,700,36,100000,70,2,BBB,true",
	}, "\n")

	rows, err := parseBatchCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := rows[0].req
	if rows[0].err != nil {
		t.Fatalf("row should parse, got %v", rows[0].err)
	}
	if req.Stage != 2 || req.SPRating != "BBB" || !req.NewCustomer {
		t.Errorf("optional fields parsed incorrectly: %+v", req)
	}
}
