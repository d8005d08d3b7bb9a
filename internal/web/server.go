// Package web exposes the price engines over HTTP.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/assets"
	"github.com/vadiminshakov/kurs/internal/storage/manualprices"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

type currentPricer interface {
	FindPriceWithOracle(ctx context.Context, from, to domain.Asset, ignoreCache, skipOnchain, matchMainCurrency bool) (domain.Price, domain.CurrentPriceOracleID, bool, error)
}

type historicalPricer interface {
	QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error)
}

type manualPriceWriter interface {
	Add(p manualprices.PricePoint) error
}

type warningsReader interface {
	Warnings() []string
}

// Server serves price lookups, manual price submission and accumulated
// warnings as JSON.
type Server struct {
	Addr       string
	Resolver   assets.Resolver
	Current    currentPricer
	Historical historicalPricer
	Manual     manualPriceWriter
	Messages   warningsReader

	log *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(log *zap.Logger, addr string, resolver assets.Resolver, current currentPricer, historical historicalPricer, manual manualPriceWriter, messages warningsReader) *Server {
	return &Server{
		Addr:       addr,
		Resolver:   resolver,
		Current:    current,
		Historical: historical,
		Manual:     manual,
		Messages:   messages,
		log:        log,
	}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/price", s.handlePrice)
	mux.HandleFunc("/price/historical", s.handleHistoricalPrice)
	mux.HandleFunc("/prices/manual", s.handleManualPrice)
	mux.HandleFunc("/warnings", s.handleWarnings)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	// HTTP server on port 80 for ACME challenges.
	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	// shutdown both servers when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http (acme) server shutdown error", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("https server shutdown error", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http (acme) server error", zap.Error(err))
		}
	}()

	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type priceResponse struct {
	From             string `json:"from"`
	To               string `json:"to"`
	Price            string `json:"price"`
	Oracle           string `json:"oracle,omitempty"`
	UsedMainCurrency bool   `json:"used_main_currency,omitempty"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, to, ok := s.resolvePair(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	ignoreCache := q.Get("ignore_cache") == "true"
	skipOnchain := q.Get("skip_onchain") == "true"
	matchMain := q.Get("match_main_currency") == "true"

	price, oracleID, usedMain, err := s.Current.FindPriceWithOracle(r.Context(), from, to, ignoreCache, skipOnchain, matchMain)
	if err != nil {
		s.log.Error("price lookup failed",
			zap.String("from", from.Identifier), zap.String("to", to.Identifier), zap.Error(err))
		http.Error(w, "price lookup failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, priceResponse{
		From:             from.Identifier,
		To:               to.Identifier,
		Price:            price.String(),
		Oracle:           string(oracleID),
		UsedMainCurrency: usedMain,
	})
}

func (s *Server) handleHistoricalPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, to, ok := s.resolvePair(w, r)
	if !ok {
		return
	}

	ts, err := strconv.ParseInt(r.URL.Query().Get("at"), 10, 64)
	if err != nil {
		http.Error(w, "invalid 'at' unix timestamp", http.StatusBadRequest)
		return
	}
	at := time.Unix(ts, 0).UTC()

	price, err := s.Historical.QueryHistoricalPrice(r.Context(), from, to, at)
	if err != nil {
		var noPrice *domain.NoPriceForGivenTimestampError
		if errors.As(err, &noPrice) {
			http.Error(w, noPrice.Error(), http.StatusNotFound)
			return
		}
		s.log.Error("historical price lookup failed",
			zap.String("from", from.Identifier), zap.String("to", to.Identifier), zap.Error(err))
		http.Error(w, "historical price lookup failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, priceResponse{From: from.Identifier, To: to.Identifier, Price: price.String()})
}

type manualPriceRequest struct {
	From  string `json:"from"`
	Quote string `json:"quote"`
	Price string `json:"price"`
	At    int64  `json:"at,omitempty"`
}

func (s *Server) handleManualPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req manualPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.From == "" || req.Quote == "" {
		http.Error(w, "'from' and 'quote' are required", http.StatusBadRequest)
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		http.Error(w, "invalid 'price' decimal", http.StatusBadRequest)
		return
	}

	at := time.Now().UTC()
	if req.At != 0 {
		at = time.Unix(req.At, 0).UTC()
	}

	point := manualprices.PricePoint{From: req.From, Quote: req.Quote, Price: price, Timestamp: at}
	if err := s.Manual.Add(point); err != nil {
		s.log.Error("storing manual price failed",
			zap.String("from", req.From), zap.String("quote", req.Quote), zap.Error(err))
		http.Error(w, "storing manual price failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	warnings := s.Messages.Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, map[string][]string{"warnings": warnings})
}

func (s *Server) resolvePair(w http.ResponseWriter, r *http.Request) (domain.Asset, domain.Asset, bool) {
	q := r.URL.Query()
	fromID, toID := q.Get("from"), q.Get("to")
	if fromID == "" || toID == "" {
		http.Error(w, "'from' and 'to' query params are required", http.StatusBadRequest)
		return domain.Asset{}, domain.Asset{}, false
	}

	from, err := s.Resolver.Resolve(fromID)
	if err != nil {
		http.Error(w, fmt.Sprintf("unknown asset %s", fromID), http.StatusNotFound)
		return domain.Asset{}, domain.Asset{}, false
	}
	to, err := s.Resolver.Resolve(toID)
	if err != nil {
		http.Error(w, fmt.Sprintf("unknown asset %s", toID), http.StatusNotFound)
		return domain.Asset{}, domain.Asset{}, false
	}
	return from, to, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
