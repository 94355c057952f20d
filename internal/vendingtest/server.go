// Package vendingtest runs an in-memory vending backend over HTTP for tests.
// It follows the REST contract of the real service closely enough to drive the
// client and view model end to end, and records every call it receives.
package vendingtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"vending_client/internal/money"
	"vending_client/internal/vending"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Call struct {
	Method string
	Path   string
}

type failure struct {
	method string
	path   string
	status int
}

type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	products []vending.Product
	open     bool
	inserted decimal.Decimal
	selected []vending.SelectedProduct
	calls    []Call
	failures []failure
	hook     func(Call)
}

func NewServer(t testing.TB, products ...vending.Product) *Server {
	t.Helper()
	s := &Server{products: append([]vending.Product(nil), products...)}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Get("/api/products", s.listProducts)
	r.Route("/api/transaction", func(r chi.Router) {
		r.Post("/money", s.insertMoney)
		r.Get("/money/inserted", s.insertedMoney)
		r.Get("/products/selected", s.selectedProducts)
		r.Get("/products/select/{productID}", s.selectProduct)
		r.Get("/products/unselect/{productID}", s.unselectProduct)
		r.Post("/complete", s.complete)
		r.Post("/cancel", s.cancel)
	})

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

// NewProduct builds a catalog entry with a fresh id.
func NewProduct(name, price string, quantity int) vending.Product {
	return vending.Product{
		ID:       uuid.NewString(),
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
	}
}

func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// CallsTo counts recorded calls whose path matches exactly.
func (s *Server) CallsTo(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// FailNext makes the next request matching method and path answer with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status})
}

// OnRequest runs fn for every request before it is handled, outside the lock.
func (s *Server) OnRequest(fn func(Call)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// OpenTransaction seeds backend-side state as if another client had acted on
// the shared machine.
func (s *Server) OpenTransaction(inserted string, selectedIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.inserted = decimal.RequireFromString(inserted)
	s.selected = nil
	for _, id := range selectedIDs {
		if p, ok := s.findLocked(id); ok {
			s.selected = append(s.selected, snapshot(p))
		}
	}
}

// CloseTransaction drops the open transaction without returning anything,
// like a backend-side timeout.
func (s *Server) CloseTransaction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Server) Product(id string) (vending.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := Call{Method: r.Method, Path: r.URL.Path}
		s.mu.Lock()
		s.calls = append(s.calls, call)
		hook := s.hook
		status := s.takeFailureLocked(call)
		s.mu.Unlock()

		if hook != nil {
			hook(call)
		}
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) takeFailureLocked(call Call) int {
	for i, f := range s.failures {
		if f.method == call.Method && f.path == call.Path {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			return f.status
		}
	}
	return 0
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]productJSON, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, productJSON{ID: p.ID, Name: p.Name, Price: number(p.Price), Quantity: p.Quantity})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) insertMoney(w http.ResponseWriter, r *http.Request) {
	var req moneyJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(string(req.Value))
	if err != nil || !money.IsDenomination(amount) {
		http.Error(w, "unsupported denomination", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.open = true
	s.inserted = s.inserted.Add(amount)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) insertedMoney(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	open, inserted := s.open, s.inserted
	s.mu.Unlock()
	if !open {
		http.Error(w, "no active transaction", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, moneyJSON{Value: number(inserted)})
}

func (s *Server) selectedProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		http.Error(w, "no active transaction", http.StatusNotFound)
		return
	}
	out := selectedJSON(s.selected)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) selectProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		http.Error(w, "no active transaction", http.StatusNotFound)
		return
	}
	p, ok := s.findLocked(id)
	if !ok {
		http.Error(w, "unknown product", http.StatusNotFound)
		return
	}
	if p.Quantity <= s.countSelectedLocked(id) {
		http.Error(w, "out of stock", http.StatusConflict)
		return
	}
	if s.inserted.Sub(s.selectedCostLocked()).LessThan(p.Price) {
		http.Error(w, "insufficient balance", http.StatusConflict)
		return
	}
	s.selected = append(s.selected, snapshot(p))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) unselectProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		http.Error(w, "no active transaction", http.StatusNotFound)
		return
	}
	for i, p := range s.selected {
		if p.ID == id {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	http.Error(w, "product not selected", http.StatusConflict)
}

func (s *Server) complete(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		http.Error(w, "no active transaction", http.StatusNotFound)
		return
	}
	if len(s.selected) == 0 {
		http.Error(w, "no product selected", http.StatusConflict)
		return
	}
	cost := s.selectedCostLocked()
	if s.inserted.LessThan(cost) {
		http.Error(w, "insufficient balance", http.StatusConflict)
		return
	}
	for _, sel := range s.selected {
		for i := range s.products {
			if s.products[i].ID == sel.ID {
				s.products[i].Quantity--
			}
		}
	}
	order := orderJSON{
		SelectedProducts: selectedJSON(s.selected),
		ReturnedMoney:    change(s.inserted.Sub(cost)),
	}
	s.closeLocked()
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) cancel(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		http.Error(w, "no active transaction", http.StatusNotFound)
		return
	}
	order := orderJSON{
		SelectedProducts: selectedJSON(s.selected),
		ReturnedMoney:    change(s.inserted),
	}
	s.closeLocked()
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) closeLocked() {
	s.open = false
	s.inserted = decimal.Zero
	s.selected = nil
}

func (s *Server) findLocked(id string) (vending.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return vending.Product{}, false
}

func (s *Server) countSelectedLocked(id string) int {
	n := 0
	for _, p := range s.selected {
		if p.ID == id {
			n++
		}
	}
	return n
}

func (s *Server) selectedCostLocked() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.selected {
		total = total.Add(p.Price)
	}
	return total
}

// change breaks amount into the largest denominations first.
func change(amount decimal.Decimal) []moneyJSON {
	out := []moneyJSON{}
	remaining := amount
	for i := len(money.Denominations) - 1; i >= 0; i-- {
		d := money.Denominations[i]
		for remaining.GreaterThanOrEqual(d) {
			out = append(out, moneyJSON{Value: number(d)})
			remaining = remaining.Sub(d)
		}
	}
	return out
}

func snapshot(p vending.Product) vending.SelectedProduct {
	return vending.SelectedProduct{ID: p.ID, Name: p.Name, Price: p.Price}
}

type productJSON struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type selectedProductJSON struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

type moneyJSON struct {
	Value json.Number `json:"value"`
}

type orderJSON struct {
	SelectedProducts []selectedProductJSON `json:"selectedProducts"`
	ReturnedMoney    []moneyJSON           `json:"returnedMoney"`
}

func selectedJSON(selected []vending.SelectedProduct) []selectedProductJSON {
	out := make([]selectedProductJSON, 0, len(selected))
	for _, p := range selected {
		out = append(out, selectedProductJSON{ID: p.ID, Name: p.Name, Price: number(p.Price)})
	}
	return out
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
