package web

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/billed/internal/bill"
)

// maxFormSize bounds the new bill form including its receipt
const maxFormSize = int64(10 << 20)

// render buffers a template so a failure can still answer 500
func render(w http.ResponseWriter, code int, fn func(io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		slog.Error("Error rendering page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

// noUser answers 401 with the error view when the request has no employee
func (s *Server) noUser(w http.ResponseWriter, sess staticSession) bool {
	if _, err := sess.CurrentUser(); err == nil {
		return false
	}
	view := bill.ErrorView{Code: http.StatusUnauthorized, Message: "Aucun utilisateur connecté"}
	render(w, view.Code, func(out io.Writer) error { return s.views.renderError(out, view) })
	return true
}

// handleBills renders the bill list or its error view
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(r)
	if s.noUser(w, sess) {
		return
	}
	lister := bill.NewLister(s.storeFor(sess), &redirector{})

	page := lister.Page(r.Context())
	if page.Error != nil {
		render(w, page.Error.Code, func(out io.Writer) error { return s.views.renderError(out, *page.Error) })
		return
	}
	render(w, http.StatusOK, func(out io.Writer) error { return s.views.renderBills(out, page.Rows) })
}

// handlePreview renders the receipt modal of one bill
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(r)
	if s.noUser(w, sess) {
		return
	}
	st := s.storeFor(sess)
	bills, err := st.Collection(bill.CollectionName).List(r.Context())
	if err != nil {
		slog.Error("Error listing bills for preview", "error", err)
		code := http.StatusInternalServerError
		if bill.NotFound(err) {
			code = http.StatusNotFound
		}
		http.Error(w, "Bill not found", code)
		return
	}

	id := r.PathValue("id")
	for _, b := range bills {
		if b.ID == id {
			p := bill.NewLister(st, &redirector{}).Preview(b)
			render(w, http.StatusOK, func(out io.Writer) error { return s.views.renderPreview(out, p) })
			return
		}
	}
	http.Error(w, "Bill not found", http.StatusNotFound)
}

// handleCreateNew follows the "new bill" button to the composer
func (s *Server) handleCreateNew(w http.ResponseWriter, r *http.Request) {
	nav := &redirector{}
	bill.NewLister(s.storeFor(s.sessionFor(r)), nav).CreateNew()
	if !nav.follow(w, r) {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleNewBillForm renders the empty composer form
func (s *Server) handleNewBillForm(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, func(out io.Writer) error { return s.views.renderForm(out, formData{}) })
}

// handleSubmitBill stages the receipt and submits the composer form
func (s *Server) handleSubmitBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		render(w, http.StatusBadRequest, func(out io.Writer) error {
			return s.views.renderForm(out, formData{Error: "Formulaire invalide"})
		})
		return
	}

	form := bill.Form{
		Type:       r.FormValue("expense-type"),
		Name:       r.FormValue("expense-name"),
		Date:       r.FormValue("datepicker"),
		Amount:     r.FormValue("amount"),
		VAT:        r.FormValue("vat"),
		Pct:        r.FormValue("pct"),
		Commentary: r.FormValue("commentary"),
	}

	sess := s.sessionFor(r)
	nav := &redirector{}
	composer := bill.NewComposerWithPolicy(s.storeFor(sess), sess, nav, s.policy)

	if f, header, err := r.FormFile("file"); err == nil {
		data, readErr := io.ReadAll(f)
		f.Close()
		if readErr != nil {
			slog.Error("Error reading file data", "error", readErr, "filename", header.Filename)
		} else {
			composer.SelectFile(bill.File{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	err := composer.Submit(r.Context(), form)
	if err == nil {
		if !nav.follow(w, r) {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	data := formData{Form: form, Invalid: map[string]bool{}}
	code := http.StatusBadRequest

	var verr *bill.ValidationError
	switch {
	case errors.As(err, &verr):
		for _, f := range verr.Fields {
			data.Invalid[f.Field] = true
		}
	case errors.Is(err, bill.ErrNoFile):
		data.Invalid["file"] = true
	case errors.Is(err, ErrNoUser):
		code = http.StatusUnauthorized
		data.Error = "Aucun utilisateur connecté"
	default:
		code = http.StatusBadGateway
		data.Error = "L'envoi de la note de frais a échoué"
	}
	render(w, code, func(out io.Writer) error { return s.views.renderForm(out, data) })
}
