package bill

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// PreviewCaption titles the receipt preview modal
const PreviewCaption = "Justificatif"

// Row is a bill shaped for display in the list
type Row struct {
	ID       string
	Type     string
	Name     string
	Date     string // formatted for display
	RawDate  string
	Amount   string
	Status   string // display label
	FileURL  string
	FileName string
}

// ErrorView replaces the list when bills cannot be loaded
type ErrorView struct {
	Code    int
	Message string
}

// Page is what the bill list renders: either rows or an error view
type Page struct {
	Rows  []Row
	Error *ErrorView
}

// Preview is the receipt modal for one bill
type Preview struct {
	Caption  string
	FileURL  string
	FileName string
	Alt      string
}

// Lister loads and presents the current user's bills
type Lister struct {
	store     Store
	navigator Navigator
}

// NewLister creates a new Lister
func NewLister(store Store, navigator Navigator) *Lister {
	return &Lister{
		store:     store,
		navigator: navigator,
	}
}

// Load returns display rows for every bill, most recent first
func (l *Lister) Load(ctx context.Context) ([]Row, error) {
	bills, err := l.store.Collection(CollectionName).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}

	SortByDate(bills)

	rows := make([]Row, 0, len(bills))
	for _, b := range bills {
		date, err := FormatDate(b.Date)
		if err != nil {
			slog.Warn("Unparseable bill date", "id", b.ID, "date", b.Date, "error", err)
			date = b.Date
		}
		rows = append(rows, Row{
			ID:       b.ID,
			Type:     b.Type,
			Name:     b.Name,
			Date:     date,
			RawDate:  b.Date,
			Amount:   b.Amount.String(),
			Status:   FormatStatus(b.Status),
			FileURL:  b.FileURL,
			FileName: b.FileName,
		})
	}
	return rows, nil
}

// Page loads the bills and falls back to an error view when the store fails
func (l *Lister) Page(ctx context.Context) Page {
	rows, err := l.Load(ctx)
	if err == nil {
		return Page{Rows: rows}
	}

	slog.Error("Failed to load bills", "error", err)
	if NotFound(err) {
		return Page{Error: &ErrorView{Code: http.StatusNotFound, Message: err.Error()}}
	}
	return Page{Error: &ErrorView{Code: http.StatusInternalServerError, Message: err.Error()}}
}

// Preview builds the receipt modal for b
func (l *Lister) Preview(b Bill) Preview {
	return Preview{
		Caption:  PreviewCaption,
		FileURL:  b.FileURL,
		FileName: b.FileName,
		Alt:      "Bill",
	}
}

// CreateNew opens the new bill form
func (l *Lister) CreateNew() {
	l.navigator.Navigate(RouteNewBill)
}

// SortByDate orders bills newest first. Equal dates keep their order and
// bills with unparseable dates go last.
func SortByDate(bills []Bill) {
	keys := make(map[string]time.Time, len(bills))
	for _, b := range bills {
		if t, err := time.Parse(dateLayout, b.Date); err == nil {
			keys[b.Date] = t
		}
	}
	sort.SliceStable(bills, func(i, j int) bool {
		ti, iok := keys[bills[i].Date]
		tj, jok := keys[bills[j].Date]
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
}
