package quote

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/pricing-engine/internal/model"
)

// batchRow is one parsed upload row. Rows that fail parsing carry their
// error and are flagged in the batch response rather than aborting the
// upload.
type batchRow struct {
	line int
	req  model.LoanRequest
	err  error
}

// requiredColumns must appear in the upload header.
var requiredColumns = []string{"product", "industry", "borrower_score", "tenor_months", "principal"}

// parseBatchCSV reads a tabular upload into loan requests. The first record
// is a header naming the columns; order is free. A record missing a field
// required by its product category is rejected here — never defaulted to a
// misleading value.
func parseBatchCSV(r io.Reader) ([]batchRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("quote: cannot read upload header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("quote: upload is missing required column %q", name)
		}
	}

	var rows []batchRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rows = append(rows, batchRow{line: line, err: err})
			continue
		}
		req, err := rowToRequest(record, cols)
		rows = append(rows, batchRow{line: line, req: req, err: err})
	}
	return rows, nil
}

// rowToRequest converts one CSV record to a LoanRequest, enforcing the
// product-category field requirements.
func rowToRequest(record []string, cols map[string]int) (model.LoanRequest, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var req model.LoanRequest
	var err error

	if req.Product, err = model.ParseProduct(field("product")); err != nil {
		return req, err
	}
	if req.Industry, err = model.ParseIndustry(field("industry")); err != nil {
		return req, err
	}
	if req.BorrowerScore, err = intField(field, "borrower_score"); err != nil {
		return req, err
	}
	if req.TenorMonths, err = intField(field, "tenor_months"); err != nil {
		return req, err
	}
	if req.Principal, err = decimalField(field, "principal"); err != nil {
		return req, err
	}

	if req.Product.FundBased() {
		raw := field("collateral_percent")
		if raw == "" {
			return req, &model.FieldError{
				Field:  "collateral_percent",
				Reason: "required for fund-based products",
			}
		}
		if req.CollateralPercent, err = floatValue("collateral_percent", raw); err != nil {
			return req, err
		}
	} else {
		// Zero sales is legal (the factor falls back to its calibrated
		// constant); an absent column is not.
		if field("working_capital") == "" || field("annual_sales") == "" {
			return req, &model.FieldError{
				Field:  "working_capital",
				Reason: "working_capital and annual_sales are required for utilization-based products",
			}
		}
		if req.WorkingCapital, err = decimalField(field, "working_capital"); err != nil {
			return req, err
		}
		if req.AnnualSales, err = decimalField(field, "annual_sales"); err != nil {
			return req, err
		}
		if raw := field("utilization_percent"); raw != "" {
			if req.UtilizationPercent, err = floatValue("utilization_percent", raw); err != nil {
				return req, err
			}
		}
	}

	if raw := field("stage"); raw != "" {
		if req.Stage, err = intValue("stage", raw); err != nil {
			return req, err
		}
	}
	req.SPRating = field("sp_rating")
	if raw := field("new_customer"); raw != "" {
		req.NewCustomer, err = strconv.ParseBool(raw)
		if err != nil {
			return req, &model.FieldError{Field: "new_customer", Reason: "must be true or false"}
		}
	}
	return req, nil
}

func intField(field func(string) string, name string) (int, error) {
	return intValue(name, field(name))
}

func intValue(name, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &model.FieldError{Field: name, Reason: "must be an integer"}
	}
	return v, nil
}

func floatValue(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &model.FieldError{Field: name, Reason: "must be a number"}
	}
	return v, nil
}

func decimalField(field func(string) string, name string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(field(name))
	if err != nil {
		return decimal.Zero, &model.FieldError{Field: name, Reason: "must be a number"}
	}
	return v, nil
}
