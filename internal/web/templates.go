package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/zombor/billed/internal/bill"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"invalid": func(fields map[string]bool, name string) bool { return fields[name] },
}

// views holds one parsed template set per page
type views struct {
	bills   *template.Template
	newBill *template.Template
	errPage *template.Template
	preview *template.Template
}

func parsePage(files ...string) (*template.Template, error) {
	patterns := make([]string, 0, len(files))
	for _, f := range files {
		patterns = append(patterns, "templates/"+f)
	}
	t, err := template.New("").Funcs(funcs).ParseFS(templateFS, patterns...)
	if err != nil {
		return nil, fmt.Errorf("parsing %v: %w", files, err)
	}
	return t, nil
}

func loadViews() (*views, error) {
	var (
		v   views
		err error
	)
	if v.bills, err = parsePage("layout.html", "bills.html"); err != nil {
		return nil, err
	}
	if v.newBill, err = parsePage("layout.html", "newbill.html"); err != nil {
		return nil, err
	}
	if v.errPage, err = parsePage("layout.html", "error.html"); err != nil {
		return nil, err
	}
	if v.preview, err = parsePage("preview.html"); err != nil {
		return nil, err
	}
	return &v, nil
}

type listData struct {
	Active string
	Rows   []bill.Row
}

type errorData struct {
	Active  string
	Code    int
	Message string
}

type formData struct {
	Active     string
	Categories []string
	Form       bill.Form
	Invalid    map[string]bool
	Error      string
}

func (v *views) renderBills(w io.Writer, rows []bill.Row) error {
	return v.bills.ExecuteTemplate(w, "layout", listData{Active: "bills", Rows: rows})
}

func (v *views) renderError(w io.Writer, e bill.ErrorView) error {
	return v.errPage.ExecuteTemplate(w, "layout", errorData{Active: "bills", Code: e.Code, Message: e.Message})
}

func (v *views) renderForm(w io.Writer, data formData) error {
	data.Active = "new"
	data.Categories = bill.Categories
	return v.newBill.ExecuteTemplate(w, "layout", data)
}

func (v *views) renderPreview(w io.Writer, p bill.Preview) error {
	return v.preview.ExecuteTemplate(w, "preview", p)
}
