package web

import (
	"errors"
	"net/http"

	"github.com/zombor/billed/internal/bill"
)

// UserHeader overrides the configured user's email for one request when
// Config.TrustUserHeader is set
const UserHeader = "X-Billed-User"

// ErrNoUser is returned when no employee email is configured
var ErrNoUser = errors.New("no connected user")

// staticSession is a read-only bill.Session over a fixed user
type staticSession bill.User

func (s staticSession) CurrentUser() (bill.User, error) {
	if s.Email == "" {
		return bill.User{}, ErrNoUser
	}
	return bill.User(s), nil
}

func (s *Server) sessionFor(r *http.Request) staticSession {
	u := s.user
	if email := r.Header.Get(UserHeader); s.trustHeader && email != "" {
		u.Email = email
	}
	return staticSession(u)
}

// redirector records the route a component navigated to so the handler
// can answer with a redirect once the component returns
type redirector struct {
	route string
}

func (n *redirector) Navigate(route string) {
	n.route = route
}

// paths maps navigation routes to UI URLs
var paths = map[string]string{
	bill.RouteBills:   "/bills",
	bill.RouteNewBill: "/bills/new",
}

// follow redirects to the recorded route. It reports false when the
// component did not navigate.
func (n *redirector) follow(w http.ResponseWriter, r *http.Request) bool {
	path, ok := paths[n.route]
	if !ok {
		return false
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
	return true
}
