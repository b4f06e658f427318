// Package quote provides the HTTP handlers wrapping the pricing engine:
// single-loan quotes, tabular batch uploads, market-parameter management,
// and calibration profile access.
//
// The handlers are a thin I/O shell — every number they return comes out of
// the stateless engine, and nothing about a priced loan is retained.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/pricing-engine/internal/metrics"
	"github.com/meridianbank/pricing-engine/internal/model"
	"github.com/meridianbank/pricing-engine/internal/pricing"
	"github.com/meridianbank/pricing-engine/internal/store"
)

// Service handles quote operations against a calibration store and a
// default engine. Engines for alternate profiles are built per request;
// they are cheap value assemblies.
type Service struct {
	store  store.Store
	engine *pricing.Engine
	hub    *Hub // optional WebSocket hub for configuration broadcasts
}

// NewService creates a quote service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, engine *pricing.Engine, hub *Hub) *Service {
	return &Service{store: st, engine: engine, hub: hub}
}

// DefaultMarketParameters returns the fallback market inputs used until a
// rate desk publishes real ones.
func DefaultMarketParameters() model.MarketParameters {
	return model.MarketParameters{
		ReferenceRate:      decimal.NewFromFloat(4.10),
		CostOfFunds:        decimal.NewFromFloat(5.00),
		TargetNIM:          decimal.NewFromFloat(2.50),
		FeeYield:           decimal.NewFromFloat(0.50),
		OperatingExpense:   decimal.NewFromFloat(0.80),
		UpfrontCostPercent: decimal.NewFromFloat(0.50),
	}
}

// --- Request/Response types ---

// QuoteRequest is the JSON body for POST /api/v1/quotes. Product and
// industry accept the same aliases as batch uploads.
type QuoteRequest struct {
	Product            string                  `json:"product"`
	Industry           string                  `json:"industry"`
	BorrowerScore      int                     `json:"borrower_score"`
	TenorMonths        int                     `json:"tenor_months"`
	Principal          decimal.Decimal         `json:"principal"`
	CollateralPercent  float64                 `json:"collateral_percent,omitempty"`
	WorkingCapital     decimal.Decimal         `json:"working_capital,omitempty"`
	AnnualSales        decimal.Decimal         `json:"annual_sales,omitempty"`
	UtilizationPercent float64                 `json:"utilization_percent,omitempty"`
	Stage              int                     `json:"stage,omitempty"`
	SPRating           string                  `json:"sp_rating,omitempty"`
	NewCustomer        bool                    `json:"new_customer,omitempty"`
	Bucket             string                  `json:"bucket,omitempty"`  // empty = all buckets
	Profile            string                  `json:"profile,omitempty"` // empty = default profile
	Market             *model.MarketParameters `json:"market,omitempty"`  // inline override
}

// QuoteResponse is the JSON body returned from POST /api/v1/quotes.
type QuoteResponse struct {
	QuoteID           string                  `json:"quote_id"`
	Product           model.Product           `json:"product"`
	Industry          model.Industry          `json:"industry"`
	BorrowerRiskLabel string                  `json:"borrower_risk_label"`
	Market            model.MarketParameters  `json:"market"`
	Results           []model.PricingResult   `json:"results"`
	PricedAt          time.Time               `json:"priced_at"`
}

// BatchResponse is the JSON body returned from POST /api/v1/quotes/batch.
type BatchResponse struct {
	Rows     []pricing.BatchResult  `json:"rows"`
	Priced   int                    `json:"priced"`
	Rejected int                    `json:"rejected"`
	Market   model.MarketParameters `json:"market"`
}

// --- HTTP Handlers ---

// PriceQuote handles POST /api/v1/quotes.
func (s *Service) PriceQuote(w http.ResponseWriter, r *http.Request) {
	var body QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req, err := body.toLoanRequest()
	if err != nil {
		writeValidationError(w, err)
		return
	}

	ctx := r.Context()
	engine, err := s.engineFor(ctx, body.Profile)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			writeError(w, "profile not found: "+body.Profile, http.StatusNotFound)
			return
		}
		writeError(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	mkt := s.marketFor(ctx, body.Market)

	start := time.Now()
	var results []model.PricingResult
	if body.Bucket != "" {
		bucket, err := model.ParseBucket(body.Bucket)
		if err != nil {
			writeValidationError(w, err)
			return
		}
		res, err := engine.PriceBucket(req, mkt, bucket)
		if err != nil {
			writeValidationError(w, err)
			return
		}
		results = []model.PricingResult{res}
	} else {
		results, err = engine.Price(req, mkt)
		if err != nil {
			writeValidationError(w, err)
			return
		}
	}

	metrics.QuotesTotal.WithLabelValues(string(req.Product)).Inc()
	metrics.QuoteLatency.WithLabelValues(string(req.Product)).Observe(time.Since(start).Seconds())
	for _, res := range results {
		if !res.BreakevenReached {
			metrics.BreakevenNotReached.Inc()
		}
	}

	resp := QuoteResponse{
		QuoteID:           uuid.New().String(),
		Product:           req.Product,
		Industry:          req.Industry,
		BorrowerRiskLabel: engine.Config().Band.BorrowerRiskLabel(req.BorrowerScore),
		Market:            mkt,
		Results:           results,
		PricedAt:          time.Now().UTC(),
	}

	slog.Info("quote priced",
		"quote_id", resp.QuoteID,
		"product", req.Product,
		"industry", req.Industry,
		"score", req.BorrowerScore,
		"buckets", len(results),
	)

	writeJSON(w, http.StatusOK, resp)
}

// PriceBatch handles POST /api/v1/quotes/batch. The body is a CSV upload
// with a header row; every row is priced independently and flagged in place
// on failure.
func (s *Service) PriceBatch(w http.ResponseWriter, r *http.Request) {
	rows, err := parseBatchCSV(r.Body)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	engine, err := s.engineFor(ctx, r.URL.Query().Get("profile"))
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			writeError(w, "profile not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	mkt := s.marketFor(ctx, nil)

	resp := BatchResponse{Market: mkt, Rows: make([]pricing.BatchResult, 0, len(rows))}
	for _, row := range rows {
		br := pricing.BatchResult{Index: row.line, Request: row.req}
		if row.err != nil {
			br.Error = row.err.Error()
		} else if results, err := engine.Price(row.req, mkt); err != nil {
			br.Error = err.Error()
		} else {
			br.Results = results
		}

		if br.Error != "" {
			resp.Rejected++
			metrics.BatchRows.WithLabelValues("rejected").Inc()
		} else {
			resp.Priced++
			metrics.BatchRows.WithLabelValues("priced").Inc()
		}
		resp.Rows = append(resp.Rows, br)
	}

	slog.Info("batch priced", "rows", len(resp.Rows), "priced", resp.Priced, "rejected", resp.Rejected)
	writeJSON(w, http.StatusOK, resp)
}

// GetMarket handles GET /api/v1/market.
func (s *Service) GetMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.marketFor(r.Context(), nil))
}

// UpdateMarket handles PUT /api/v1/market. The new parameters are persisted
// and broadcast so open pricing screens can re-quote.
func (s *Service) UpdateMarket(w http.ResponseWriter, r *http.Request) {
	var mkt model.MarketParameters
	if err := json.NewDecoder(r.Body).Decode(&mkt); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if mkt.ReferenceRate.Sign() <= 0 {
		writeError(w, "reference_rate must be positive", http.StatusBadRequest)
		return
	}
	if mkt.CostOfFunds.Sign() <= 0 {
		writeError(w, "cost_of_funds must be positive", http.StatusBadRequest)
		return
	}

	if err := s.store.SetMarketParameters(r.Context(), mkt); err != nil {
		writeError(w, "failed to persist market parameters", http.StatusInternalServerError)
		return
	}

	slog.Info("market parameters updated",
		"reference_rate", mkt.ReferenceRate.String(),
		"cost_of_funds", mkt.CostOfFunds.String(),
		"target_nim", mkt.TargetNIM.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(WSMessage{Type: "market_updated", Market: &mkt})
	}
	writeJSON(w, http.StatusOK, mkt)
}

// ListProfiles handles GET /api/v1/profiles.
func (s *Service) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, "failed to list profiles", http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []pricing.Config{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// GetProfile handles GET /api/v1/profiles/{name}.
func (s *Service) GetProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cfg, err := s.store.GetProfile(r.Context(), name)
	if err != nil {
		writeError(w, "profile not found: "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SaveProfile handles PUT /api/v1/profiles/{name}.
func (s *Service) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var cfg pricing.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cfg.Name = chi.URLParam(r, "name")
	if cfg.Name == "" {
		writeError(w, "profile name is required", http.StatusBadRequest)
		return
	}

	if err := s.store.SaveProfile(r.Context(), cfg); err != nil {
		writeError(w, "failed to save profile", http.StatusInternalServerError)
		return
	}

	slog.Info("profile saved", "name", cfg.Name)
	if s.hub != nil {
		s.hub.Broadcast(WSMessage{Type: "profile_updated", Profile: cfg.Name})
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Scenarios handles GET /api/v1/scenarios: the preset low/medium/high risk
// demo loans pricing screens offer as one-click examples.
func (s *Service) Scenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]model.LoanRequest{
		"Low Risk": {
			Product:        model.ProductWorkingCapital,
			Industry:       model.IndustryTrading,
			BorrowerScore:  850,
			TenorMonths:    12,
			Principal:      decimal.NewFromInt(500000),
			WorkingCapital: decimal.NewFromInt(50000),
			AnnualSales:    decimal.NewFromInt(2000000),
		},
		"Medium Risk": {
			Product:           model.ProductTermLoan,
			Industry:          model.IndustryManufacturing,
			BorrowerScore:     700,
			TenorMonths:       36,
			Principal:         decimal.NewFromInt(100000),
			CollateralPercent: 70,
		},
		"High Risk": {
			Product:           model.ProductAssetBacked,
			Industry:          model.IndustryConstruction,
			BorrowerScore:     400,
			TenorMonths:       60,
			Principal:         decimal.NewFromInt(250000),
			CollateralPercent: 85,
		},
	})
}

// --- Helpers ---

// toLoanRequest normalizes the wire request into the engine's input type.
func (q QuoteRequest) toLoanRequest() (model.LoanRequest, error) {
	product, err := model.ParseProduct(q.Product)
	if err != nil {
		return model.LoanRequest{}, err
	}
	industry, err := model.ParseIndustry(q.Industry)
	if err != nil {
		return model.LoanRequest{}, err
	}
	return model.LoanRequest{
		Product:            product,
		Industry:           industry,
		BorrowerScore:      q.BorrowerScore,
		TenorMonths:        q.TenorMonths,
		Principal:          q.Principal,
		CollateralPercent:  q.CollateralPercent,
		WorkingCapital:     q.WorkingCapital,
		AnnualSales:        q.AnnualSales,
		UtilizationPercent: q.UtilizationPercent,
		Stage:              q.Stage,
		SPRating:           q.SPRating,
		NewCustomer:        q.NewCustomer,
	}, nil
}

// engineFor returns the default engine or one built from a stored profile.
func (s *Service) engineFor(ctx context.Context, profile string) (*pricing.Engine, error) {
	if profile == "" || profile == s.engine.Config().Name {
		return s.engine, nil
	}
	cfg, err := s.store.GetProfile(ctx, profile)
	if err != nil {
		return nil, err
	}
	return pricing.NewEngine(*cfg), nil
}

// marketFor resolves the market parameters for a request: inline override,
// then the stored session parameters, then the defaults.
func (s *Service) marketFor(ctx context.Context, override *model.MarketParameters) model.MarketParameters {
	if override != nil {
		return *override
	}
	if mkt, err := s.store.GetMarketParameters(ctx); err == nil {
		return *mkt
	}
	return DefaultMarketParameters()
}

func writeValidationError(w http.ResponseWriter, err error) {
	var fieldErr *model.FieldError
	if errors.As(err, &fieldErr) {
		metrics.ValidationFailures.WithLabelValues(fieldErr.Field).Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fieldErr.Reason,
			"field": fieldErr.Field,
		})
		return
	}
	writeError(w, err.Error(), http.StatusUnprocessableEntity)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
