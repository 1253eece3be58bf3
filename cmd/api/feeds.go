package main

import (
	"net/http"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/go-chi/chi/v5"
)

// getLedgerFeedHandler() serves one collection of the loaded bank ledger in
// the transaction feed wire format, e.g. {"expenses": [...]}. Without a
// configured ledger every feed path is a 404.
func (app *application) getLedgerFeedHandler(w http.ResponseWriter, r *http.Request) {
	if app.ledger == nil {
		app.notFoundResponse(w, r)
		return
	}
	kind := data.TransactionKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		app.notFoundResponse(w, r)
		return
	}
	records := app.ledger.Collection(kind)
	if records == nil {
		records = []data.RawTransaction{}
	}
	err := app.writeJSON(w, http.StatusOK, envelope{string(kind): records}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
