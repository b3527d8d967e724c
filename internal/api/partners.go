package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/store"
)

// PartnersHandler lists partner businesses.
type PartnersHandler struct {
	DB *sql.DB
}

// List handles GET /api/partners.
func (h *PartnersHandler) List(w http.ResponseWriter, r *http.Request) {
	partners, err := store.ListPartners(r.Context(), h.DB, r.URL.Query().Get("location"))
	if err != nil {
		storeError(w, err, "failed to list partners")
		return
	}
	if partners == nil {
		partners = []model.Partner{}
	}
	jsonResponse(w, http.StatusOK, partners)
}
