package bill

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Status is the review state of a bill
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// CollectionName is the collection for bill records and receipt files in the remote store
const CollectionName = "bills"

// Categories lists the expense types an employee can choose from
var Categories = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// Bill is one expense claim with its receipt reference
type Bill struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"` // YYYY-MM-DD
	VAT        string          `json:"vat"`
	Pct        int             `json:"pct"`
	Commentary string          `json:"commentary"`
	FileURL    string          `json:"fileUrl"`
	FileName   string          `json:"fileName"`
	Status     Status          `json:"status"`
}

// MarshalJSON writes amount as a JSON number
func (b Bill) MarshalJSON() ([]byte, error) {
	type plain Bill
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain: plain(b), Amount: json.Number(b.Amount.String())})
}

// User is the authenticated employee
type User struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}
