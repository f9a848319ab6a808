package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/chain"
	"github.com/you/swap-router/internal/config"
	imetrics "github.com/you/swap-router/internal/metrics"
	"github.com/you/swap-router/internal/prices"
	"github.com/you/swap-router/internal/quoting"
	"github.com/you/swap-router/internal/token"
)

// PriceSource is what the server needs from the price-feed layer.
type PriceSource interface {
	Fetch(ctx context.Context, addrs []common.Address) (prices.Table, error)
}

// Server exposes batch quoting over HTTP. The quoting core stays unaware of
// transport; this layer validates input, resolves token metadata and supplies
// a fresh gas price and USD table per request.
type Server struct {
	cfg      *config.Config
	adapters []core.Aggregator
	ec       *chain.Client
	prices   PriceSource
	log      *zap.Logger
	http     *http.Server
}

func New(cfg *config.Config, adapters []core.Aggregator, ec *chain.Client, src PriceSource, log *zap.Logger) *Server {
	s := &Server{cfg: cfg, adapters: adapters, ec: ec, prices: src, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/quote", s.handleQuote).Methods("POST")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	s.http = &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: r,
	}
	return s
}

func (s *Server) Start() error { return s.http.ListenAndServe() }

func (s *Server) Stop(ctx context.Context) error { return s.http.Shutdown(ctx) }

type quoteRequest struct {
	InputTokenAddress    string  `json:"inputTokenAddress"`
	OutputTokenAddress   string  `json:"outputTokenAddress"`
	AmountIn             string  `json:"amountIn"`
	SlippageLimitPercent float64 `json:"slippageLimitPercent"`
	UserAddress          string  `json:"userAddress,omitempty"`
}

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	req, errCode, errMsg := s.buildRequest(ctx, &body)
	if req == nil {
		s.writeError(w, http.StatusBadRequest, errCode, errMsg)
		return
	}

	table, err := s.prices.Fetch(ctx, []common.Address{req.In.Address, req.Out.Address})
	if err != nil {
		// ranking degrades to the raw-amount fallback without a table
		s.log.Warn("price table unavailable", zap.Error(err))
		table = prices.Table{}
	}

	snap, err := quoting.SelectBest(ctx, s.adapters, req, quoting.Prices(table), quoting.Options{
		GasCeiling: s.cfg.Chain.GasCeiling,
		Log:        s.log,
	})
	if err != nil {
		if errors.Is(err, quoting.ErrNoQuotes) {
			imetrics.QuotesServed.WithLabelValues("no_quotes").Inc()
			s.writeError(w, http.StatusNotFound, "no_quotes", "no quotes available for this pair")
			return
		}
		imetrics.QuotesServed.WithLabelValues("error").Inc()
		s.writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	imetrics.QuotesServed.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// buildRequest validates the payload and resolves currencies. A nil return
// means validation failed.
func (s *Server) buildRequest(ctx context.Context, body *quoteRequest) (*core.QuoteRequest, string, string) {
	if !common.IsHexAddress(body.InputTokenAddress) {
		return nil, "bad_request", "inputTokenAddress is not a valid address"
	}
	if !common.IsHexAddress(body.OutputTokenAddress) {
		return nil, "bad_request", "outputTokenAddress is not a valid address"
	}
	amountIn, ok := new(big.Int).SetString(body.AmountIn, 10)
	if !ok || amountIn.Sign() <= 0 {
		return nil, "bad_request", "amountIn must be a positive integer"
	}
	if body.SlippageLimitPercent < 0 || body.SlippageLimitPercent > 100 {
		return nil, "bad_request", "slippageLimitPercent must be within [0, 100]"
	}

	in, err := s.resolveCurrency(ctx, common.HexToAddress(body.InputTokenAddress))
	if err != nil {
		return nil, "unknown_token", "could not resolve input token: " + err.Error()
	}
	out, err := s.resolveCurrency(ctx, common.HexToAddress(body.OutputTokenAddress))
	if err != nil {
		return nil, "unknown_token", "could not resolve output token: " + err.Error()
	}

	req := &core.QuoteRequest{
		In:          in,
		Out:         out,
		AmountIn:    amountIn,
		SlippagePct: body.SlippageLimitPercent,
		Timeout:     s.cfg.QuoteTimeout(),
		EstimateGas: true,
	}
	if body.UserAddress != "" {
		if !common.IsHexAddress(body.UserAddress) {
			return nil, "bad_request", "userAddress is not a valid address"
		}
		addr := common.HexToAddress(body.UserAddress)
		req.UserAddress = &addr
	}

	if gp, err := s.ec.SuggestGasPrice(ctx); err == nil {
		req.GasPrice = gp
	} else {
		s.log.Warn("gas price unavailable", zap.Error(err))
	}
	return req, "", ""
}

func (s *Server) resolveCurrency(ctx context.Context, addr common.Address) (token.Currency, error) {
	if addr == token.NativeAddress {
		return token.Native(s.cfg.Chain.NativeSymbol, s.cfg.Chain.NativeName), nil
	}
	dec, err := s.ec.Decimals(ctx, addr)
	if err != nil {
		return token.Currency{}, err
	}
	return token.Currency{Address: addr, Decimals: dec}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Error: msg})
}
