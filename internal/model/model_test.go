package model

import (
	"errors"
	"testing"
)

func TestParseProduct_Aliases(t *testing.T) {
	tests := []struct {
		in   string
		want Product
	}{
		{"Term Loan", ProductTermLoan},
		{"term_loan", ProductTermLoan},
		{"TERM", ProductTermLoan},
		{"Asset Backed Loan", ProductAssetBacked},
		{"abl", ProductAssetBacked},
		{"  working capital  ", ProductWorkingCapital},
		{"WC", ProductWorkingCapital},
		{"trade-finance", ProductTradeFinance},
	}
	for _, tt := range tests {
		got, err := ParseProduct(tt.in)
		if err != nil {
			t.Errorf("ParseProduct(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProduct(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseProduct_Unknown(t *testing.T) {
	_, err := ParseProduct("Mortgage")
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fieldErr.Field != "product" {
		t.Errorf("expected field product, got %q", fieldErr.Field)
	}
}

func TestParseIndustry_Aliases(t *testing.T) {
	tests := []struct {
		in   string
		want Industry
	}{
		{"Manufacturing", IndustryManufacturing},
		{"REAL ESTATE", IndustryRealEstate},
		{"realestate", IndustryRealEstate},
		{"real_estate", IndustryRealEstate},
	}
	for _, tt := range tests {
		got, err := ParseIndustry(tt.in)
		if err != nil {
			t.Errorf("ParseIndustry(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseIndustry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseBucket(t *testing.T) {
	if b, err := ParseBucket("medium"); err != nil || b != BucketMedium {
		t.Errorf("ParseBucket(medium) = %q, %v", b, err)
	}
	if _, err := ParseBucket("extreme"); err == nil {
		t.Error("expected error for unknown bucket")
	}
}

func TestProductCategories(t *testing.T) {
	if !ProductTermLoan.FundBased() || !ProductAssetBacked.FundBased() {
		t.Error("term and asset-backed loans should be fund-based")
	}
	if !ProductWorkingCapital.Revolving() || !ProductTradeFinance.Revolving() {
		t.Error("working capital and trade finance should be revolving")
	}
	if ProductTermLoan.Revolving() {
		t.Error("a product cannot be in both categories")
	}
}

func TestBuckets_FixedOrder(t *testing.T) {
	got := Buckets()
	want := []Bucket{BucketLow, BucketMedium, BucketHigh}
	if len(got) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket %d = %q, want %q", i, got[i], want[i])
		}
	}
}
