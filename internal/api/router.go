// Package api serves a read-only HTTP view of the markets: resting orders, quotes,
// price discovery and the persisted trade log. Orders are never placed over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/hakimelghazi/orbital-market/internal/engine"
	"github.com/hakimelghazi/orbital-market/pricefeed"
)

// TradeLister reads back persisted transactions.
type TradeLister interface {
	ListTradesByOrder(ctx context.Context, orderID uuid.UUID) ([]engine.Transaction, error)
}

type server struct {
	ex     *engine.Exchange
	quotes *pricefeed.PriceCache
	trades TradeLister // nil without a database
}

func NewRouter(ex *engine.Exchange, quotes *pricefeed.PriceCache, trades TradeLister, log zerolog.Logger) http.Handler {
	s := &server{ex: ex, quotes: quotes, trades: trades}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(3 * time.Second))

	r.Get("/markets", s.listMarkets)
	r.Get("/markets/{market}/orders", s.listOrders)
	r.Get("/quotes", s.listQuotes)
	r.Get("/discovery/buy", s.discoverBuy)
	r.Get("/discovery/sell", s.discoverSell)
	r.Get("/trades", s.listTrades)
	return r
}

func writeProblem(w http.ResponseWriter, r *http.Request, code int, title, detail string) {
	reqID := middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-ID", reqID)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":      title,
		"status":     code,
		"detail":     detail,
		"instance":   r.URL.Path,
		"request_id": reqID,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", middleware.GetReqID(r.Context()))
	_ = json.NewEncoder(w).Encode(v)
}

type marketView struct {
	Name     string          `json:"name"`
	ID       uuid.UUID       `json:"id"`
	Position engine.Position `json:"position"`
}

type orderView struct {
	ID        uuid.UUID        `json:"id"`
	Side      engine.Side      `json:"side"`
	Commodity engine.Commodity `json:"commodity"`
	Trader    uuid.UUID        `json:"trader"`
	Location  uuid.UUID        `json:"location"`
	Amount    int64            `json:"amount"`
	Price     int64            `json:"price"`
}

func toOrderView(o engine.Order) orderView {
	return orderView{
		ID:        o.ID,
		Side:      o.Side,
		Commodity: o.Commodity,
		Trader:    o.Trader,
		Location:  o.Location,
		Amount:    o.Amount,
		Price:     o.Price,
	}
}

type quoteView struct {
	Market    string           `json:"market"`
	Location  uuid.UUID        `json:"location"`
	Commodity engine.Commodity `json:"commodity"`
	pricefeed.Quote
}

func (s *server) listMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.ex.Markets()
	out := make([]marketView, 0, len(markets))
	for _, m := range markets {
		out = append(out, marketView{Name: m.Name, ID: m.Location, Position: m.Position})
	}
	writeJSON(w, r, out)
}

// lookupMarket accepts a market id or name.
func (s *server) lookupMarket(ref string) (engine.Market, bool) {
	id, idErr := uuid.Parse(ref)
	for _, m := range s.ex.Markets() {
		if (idErr == nil && m.Location == id) || strings.EqualFold(m.Name, ref) {
			return m, true
		}
	}
	return engine.Market{}, false
}

func (s *server) listOrders(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookupMarket(chi.URLParam(r, "market"))
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "not_found", "market not found")
		return
	}
	eng, _ := s.ex.Engine(m.Location)
	orders, err := eng.Snapshot(r.Context())
	if err != nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "engine_error", err.Error())
		return
	}

	q := r.URL.Query()
	if v := q.Get("commodity"); v != "" {
		c, err := engine.ParseCommodity(v)
		if err != nil {
			writeProblem(w, r, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		orders = filterOrders(orders, func(o engine.Order) bool { return o.Commodity == c })
	}
	if v := q.Get("side"); v != "" {
		side, err := engine.ParseSide(v)
		if err != nil {
			writeProblem(w, r, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		orders = filterOrders(orders, func(o engine.Order) bool { return o.Side == side })
	}

	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	writeJSON(w, r, out)
}

func filterOrders(orders []engine.Order, keep func(engine.Order) bool) []engine.Order {
	out := orders[:0]
	for _, o := range orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (s *server) listQuotes(w http.ResponseWriter, r *http.Request) {
	all := s.quotes.All()
	out := make([]quoteView, 0, len(all))
	for _, m := range s.ex.Markets() {
		for _, c := range engine.Commodities() {
			q, ok := all[pricefeed.Key{Location: m.Location, Commodity: c}]
			if !ok {
				continue
			}
			out = append(out, quoteView{Market: m.Name, Location: m.Location, Commodity: c, Quote: q})
		}
	}
	writeJSON(w, r, out)
}

type discoveryQuery struct {
	commodity engine.Commodity
	position  engine.Position
	amount    int64
}

func parseDiscovery(r *http.Request, needAmount bool) (discoveryQuery, string) {
	q := r.URL.Query()
	var dq discoveryQuery
	c, err := engine.ParseCommodity(q.Get("commodity"))
	if err != nil {
		return dq, err.Error()
	}
	dq.commodity = c
	if dq.position.X, err = parseFloat(q.Get("x")); err != nil {
		return dq, "x must be a number"
	}
	if dq.position.Y, err = parseFloat(q.Get("y")); err != nil {
		return dq, "y must be a number"
	}
	if needAmount {
		dq.amount, err = strconv.ParseInt(q.Get("amount"), 10, 64)
		if err != nil || dq.amount <= 0 {
			return dq, "amount must be a positive integer"
		}
	}
	return dq, ""
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

type discoveryResponse struct {
	Market   string    `json:"market"`
	Location uuid.UUID `json:"location"`
}

func (s *server) discover(w http.ResponseWriter, r *http.Request, side engine.Side, pick func(discoveryQuery, []engine.Order) (uuid.UUID, bool)) {
	dq, problem := parseDiscovery(r, side == engine.SideBuy)
	if problem != "" {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", problem)
		return
	}
	orders, err := s.ex.Orders(r.Context())
	if err != nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "engine_error", err.Error())
		return
	}
	loc, ok := pick(dq, engine.Filter(orders, side, dq.commodity))
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "no_counterparty", "no resting orders for "+dq.commodity.String())
		return
	}
	m, _ := s.lookupMarket(loc.String())
	writeJSON(w, r, discoveryResponse{Market: m.Name, Location: loc})
}

// discoverBuy answers where to buy: the best resting sell order.
func (s *server) discoverBuy(w http.ResponseWriter, r *http.Request) {
	s.discover(w, r, engine.SideSell, func(dq discoveryQuery, sells []engine.Order) (uuid.UUID, bool) {
		return engine.BestLocationToBuy(dq.position, sells)
	})
}

// discoverSell answers where to sell: the best resting buy order for the amount.
func (s *server) discoverSell(w http.ResponseWriter, r *http.Request) {
	s.discover(w, r, engine.SideBuy, func(dq discoveryQuery, buys []engine.Order) (uuid.UUID, bool) {
		return engine.BestLocationToSell(dq.position, dq.amount, buys)
	})
}

func (s *server) listTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		writeProblem(w, r, http.StatusNotImplemented, "no_trade_store", "trade log is not persisted")
		return
	}
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", "order_id required")
		return
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", "invalid order_id")
		return
	}
	txs, err := s.trades.ListTradesByOrder(r.Context(), id)
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, r, txs)
}
