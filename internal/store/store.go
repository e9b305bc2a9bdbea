// Package store is a reference remote store for bills: bbolt records,
// filesystem receipt blobs and a collection API over HTTP.
package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a bill or receipt does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned when a payload is rejected
	ErrInvalid = errors.New("invalid payload")
)

// Receipt is an uploaded receipt file waiting for, or attached to, a bill
type Receipt struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FileName    string    `json:"file_name"`
	Path        string    `json:"path"` // key in Storage
	ContentType string    `json:"content_type"`
	FileURL     string    `json:"file_url"`
	CreatedAt   time.Time `json:"created_at"`
}
