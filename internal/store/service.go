package store

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/billed/internal/bill"
)

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service implements the bills collection
type Service struct {
	db          DB
	storage     Storage
	baseURL     string
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service generating uuid keys. baseURL is the public
// address file URLs are built from.
func NewService(db DB, storage Storage, baseURL string) *Service {
	return NewServiceWithDeps(db, storage, baseURL, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, baseURL string, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates the base name
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(spaces.ReplaceAllString(base, " "))
	base = strings.ReplaceAll(base, " ", "_")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// contentType falls back to the file extension when no type was sent
func contentType(filename, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// FileURL returns the address the receipt of bill id is served from
func (s *Service) FileURL(id string) string {
	return fmt.Sprintf("%s/api/%s/%s/file", s.baseURL, bill.CollectionName, id)
}

// Create stores an uploaded receipt and reserves its bill key
func (s *Service) Create(upload bill.Upload) (bill.Created, error) {
	if upload.FileName == "" || len(upload.Data) == 0 {
		return bill.Created{}, fmt.Errorf("empty file: %w", ErrInvalid)
	}

	id := s.idGenerator.Generate()

	path, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.FileName)), upload.Data)
	if err != nil {
		return bill.Created{}, fmt.Errorf("saving file: %w", err)
	}

	r := &Receipt{
		ID:          id,
		Email:       upload.Email,
		FileName:    filepath.Base(upload.FileName),
		Path:        path,
		ContentType: contentType(upload.FileName, upload.ContentType),
		FileURL:     s.FileURL(id),
		CreatedAt:   s.timeSource.Now(),
	}
	if err := s.db.SaveReceipt(r); err != nil {
		if delErr := s.storage.Delete(path); delErr != nil {
			slog.Warn("Failed to delete orphaned file", "path", path, "error", delErr)
		}
		return bill.Created{}, fmt.Errorf("saving receipt: %w", err)
	}

	return bill.Created{Key: id, FileURL: r.FileURL}, nil
}

// Update creates or replaces the bill keyed by id. A bill with an uploaded
// receipt always keeps that receipt's file reference.
func (s *Service) Update(id string, b bill.Bill) (*bill.Bill, error) {
	if id == "" {
		return nil, fmt.Errorf("missing id: %w", ErrInvalid)
	}
	switch b.Status {
	case "":
		b.Status = bill.StatusPending
	case bill.StatusPending, bill.StatusAccepted, bill.StatusRefused:
	default:
		return nil, fmt.Errorf("status %q: %w", b.Status, ErrInvalid)
	}

	b.ID = id

	r, err := s.db.GetReceipt(id)
	switch {
	case err == nil:
		b.FileURL = r.FileURL
		b.FileName = r.FileName
		if b.Email == "" {
			b.Email = r.Email
		}
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	if err := s.db.SaveBill(&b); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}
	return &b, nil
}

// Get retrieves a bill by ID
func (s *Service) Get(id string) (*bill.Bill, error) {
	b, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	return b, nil
}

// List returns the bills owned by email, or every bill when email is empty
func (s *Service) List(email string) ([]*bill.Bill, error) {
	bills, err := s.db.ListBills()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	if email == "" {
		return bills, nil
	}

	owned := make([]*bill.Bill, 0, len(bills))
	for _, b := range bills {
		if b.Email == email {
			owned = append(owned, b)
		}
	}
	return owned, nil
}

// File returns the receipt data and content type for bill id
func (s *Service) File(id string) ([]byte, string, error) {
	r, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(r.Path)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, r.ContentType, nil
}
