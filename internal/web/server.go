// Package web serves the employee pages: the bill list, the receipt
// preview and the new bill form.
package web

import (
	"fmt"
	"net/http"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/store"
)

// UserStore hands out a bill.Store scoped to one employee
type UserStore interface {
	ForUser(email string) bill.Store
}

// Config holds the settings of the employee UI
type Config struct {
	User      bill.User
	Policy    bill.Policy
	BasicAuth store.BasicAuth

	// TrustUserHeader lets UserHeader replace User's email per request
	TrustUserHeader bool
}

// Server handles HTTP requests for the employee pages
type Server struct {
	stores      UserStore
	user        bill.User
	trustHeader bool
	policy      bill.Policy
	basicAuth   store.BasicAuth
	views       *views
	mux         *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(stores UserStore, cfg Config) (*Server, error) {
	return NewServerWithMux(stores, cfg, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(stores UserStore, cfg Config, mux *http.ServeMux) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	s := &Server{
		stores:      stores,
		user:        cfg.User,
		trustHeader: cfg.TrustUserHeader,
		policy:      cfg.Policy,
		basicAuth:   cfg.BasicAuth,
		views:       v,
		mux:         mux,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.basicAuth.Check(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Billed"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /bills/new", s.requireAuth(s.handleNewBillForm))
	s.mux.HandleFunc("POST /bills/new", s.requireAuth(s.handleSubmitBill))
	s.mux.HandleFunc("POST /bills/new/start", s.requireAuth(s.handleCreateNew))
	s.mux.HandleFunc("GET /bills/{id}/preview", s.requireAuth(s.handlePreview))
	s.mux.HandleFunc("GET /bills", s.requireAuth(s.handleBills))
	s.mux.HandleFunc("GET /{$}", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/bills", http.StatusFound)
	}))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// storeFor returns the store scoped to the request's user
func (s *Server) storeFor(sess staticSession) bill.Store {
	return s.stores.ForUser(sess.Email)
}
