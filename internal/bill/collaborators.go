package bill

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Routes understood by a Navigator
const (
	RouteBills   = "#employee/bills"
	RouteNewBill = "#employee/bill/new"
)

// Store is the remote collection-based store holding bills and receipt files
type Store interface {
	Collection(name string) Collection
}

// Collection defines the operations available on one store collection
type Collection interface {
	// List returns every record of the collection visible to the caller
	List(ctx context.Context) ([]Bill, error)

	// Update creates or replaces the record keyed by id
	Update(ctx context.Context, id string, b Bill) (Bill, error)

	// Create uploads a receipt file and reserves a record key for it
	Create(ctx context.Context, upload Upload) (Created, error)
}

// Upload is a file-bearing payload for Collection.Create
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	Email       string
}

// Created is the result of a successful upload
type Created struct {
	Key     string `json:"key"`
	FileURL string `json:"fileUrl"`
}

// Navigator switches the current view to a route
type Navigator interface {
	Navigate(route string)
}

// Session reads the current user
type Session interface {
	CurrentUser() (User, error)
}

// RemoteError is a failure reported by the remote store
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote store error %d", e.Code)
	}
	return fmt.Sprintf("remote store error %d: %s", e.Code, e.Message)
}

// NotFound reports whether err is a RemoteError with a 404 code
func NotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Code == http.StatusNotFound
}
