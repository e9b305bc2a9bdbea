package bill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrNoFile is returned by Submit when no accepted receipt file is staged
var ErrNoFile = errors.New("no receipt file selected")

var allowedExtensions = []string{"png", "jpg", "jpeg"}

// File is a receipt chosen by the employee
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Policy controls how Submit reacts to remote store failures
type Policy struct {
	// ContinueOnFailure logs upload and persist failures and navigates
	// to the bill list as if the submission succeeded
	ContinueOnFailure bool
}

// DefaultPolicy navigates back to the list even when the store fails
var DefaultPolicy = Policy{ContinueOnFailure: true}

// Composer collects and submits one new bill
type Composer struct {
	store     Store
	session   Session
	navigator Navigator
	policy    Policy

	mu       sync.Mutex
	file     *File
	fileName string
}

// NewComposer creates a Composer with DefaultPolicy
func NewComposer(store Store, session Session, navigator Navigator) *Composer {
	return NewComposerWithPolicy(store, session, navigator, DefaultPolicy)
}

// NewComposerWithPolicy creates a Composer with an explicit failure policy
func NewComposerWithPolicy(store Store, session Session, navigator Navigator, policy Policy) *Composer {
	return &Composer{
		store:     store,
		session:   session,
		navigator: navigator,
		policy:    policy,
	}
}

// AcceptedFile reports whether name has a png, jpg or jpeg extension
func AcceptedFile(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return slices.Contains(allowedExtensions, ext)
}

// SelectFile stages file for submission if its extension is accepted.
// A rejected file clears whatever was staged before.
func (c *Composer) SelectFile(file File) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !AcceptedFile(file.Name) {
		slog.Debug("Rejected receipt file", "filename", file.Name)
		c.file = nil
		c.fileName = ""
		return false
	}

	c.file = &file
	c.fileName = filepath.Base(file.Name)
	return true
}

// Staged returns the name of the staged file, or "" when none is staged
func (c *Composer) Staged() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fileName
}

// Submit validates form, uploads the staged file, persists the bill and
// navigates to the bill list
func (c *Composer) Submit(ctx context.Context, form Form) error {
	if err := form.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	file, fileName := c.file, c.fileName
	c.mu.Unlock()
	if file == nil {
		return ErrNoFile
	}

	user, err := c.session.CurrentUser()
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	bills := c.store.Collection(CollectionName)

	created, err := bills.Create(ctx, Upload{
		FileName:    fileName,
		ContentType: file.ContentType,
		Data:        file.Data,
		Email:       user.Email,
	})
	if err != nil {
		slog.Error("Failed to upload receipt", "filename", fileName, "email", user.Email, "error", err)
		return c.fail(fmt.Errorf("uploading receipt: %w", err))
	}

	b := form.bill()
	b.ID = created.Key
	b.Email = user.Email
	b.FileURL = created.FileURL
	b.FileName = fileName
	b.Status = StatusPending

	if _, err := bills.Update(ctx, created.Key, b); err != nil {
		slog.Error("Failed to save bill", "key", created.Key, "email", user.Email, "error", err)
		return c.fail(fmt.Errorf("saving bill: %w", err))
	}

	c.navigator.Navigate(RouteBills)
	return nil
}

func (c *Composer) fail(err error) error {
	if !c.policy.ContinueOnFailure {
		return err
	}
	c.navigator.Navigate(RouteBills)
	return nil
}
