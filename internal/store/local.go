package store

import (
	"context"
	"net/http"

	"github.com/zombor/billed/internal/bill"
)

// Local serves bill.Store straight from a Service in the same process
type Local struct {
	service *Service
	email   string
}

// NewLocal creates a Local store over service
func NewLocal(service *Service) *Local {
	return &Local{service: service}
}

// ForUser returns a copy scoped to email's records
func (l *Local) ForUser(email string) bill.Store {
	return &Local{service: l.service, email: email}
}

// Collection implements bill.Store
func (l *Local) Collection(name string) bill.Collection {
	if name != bill.CollectionName {
		return missingCollection(name)
	}
	return &localCollection{local: l}
}

// remoteError maps a service error to the code the HTTP API would answer
func remoteError(err error) error {
	if err == nil {
		return nil
	}
	return &bill.RemoteError{Code: statusFor(err), Message: err.Error()}
}

type localCollection struct {
	local *Local
}

func (lc *localCollection) List(ctx context.Context) ([]bill.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bills, err := lc.local.service.List(lc.local.email)
	if err != nil {
		return nil, remoteError(err)
	}
	out := make([]bill.Bill, 0, len(bills))
	for _, b := range bills {
		out = append(out, *b)
	}
	return out, nil
}

func (lc *localCollection) Update(ctx context.Context, id string, b bill.Bill) (bill.Bill, error) {
	if err := ctx.Err(); err != nil {
		return bill.Bill{}, err
	}
	saved, err := lc.local.service.Update(id, b)
	if err != nil {
		return bill.Bill{}, remoteError(err)
	}
	return *saved, nil
}

func (lc *localCollection) Create(ctx context.Context, upload bill.Upload) (bill.Created, error) {
	if err := ctx.Err(); err != nil {
		return bill.Created{}, err
	}
	created, err := lc.local.service.Create(upload)
	return created, remoteError(err)
}

// missingCollection fails every call with a 404
type missingCollection string

func (m missingCollection) err() error {
	return &bill.RemoteError{Code: http.StatusNotFound, Message: "unknown collection " + string(m)}
}

func (m missingCollection) List(context.Context) ([]bill.Bill, error) {
	return nil, m.err()
}

func (m missingCollection) Update(context.Context, string, bill.Bill) (bill.Bill, error) {
	return bill.Bill{}, m.err()
}

func (m missingCollection) Create(context.Context, bill.Upload) (bill.Created, error) {
	return bill.Created{}, m.err()
}
