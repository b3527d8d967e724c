package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/imaging"
	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/store"
)

// ItemsHandler handles listing endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

// itemRequest accepts "qty" as an alias of "quantity".
type itemRequest struct {
	model.Item
	Qty *int `json:"qty,omitempty"`
}

func (req *itemRequest) item() *model.Item {
	it := req.Item
	if req.Qty != nil {
		it.Quantity = *req.Qty
	}
	return &it
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{
		Condition: q.Get("condition"),
		Category:  q.Get("category"),
		Location:  q.Get("location"),
	}
	if v := q.Get("partnerId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid partnerId")
			return
		}
		f.PartnerID = id
	}
	for param, dst := range map[string]**decimal.Decimal{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		if v := q.Get(param); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				jsonError(w, http.StatusBadRequest, "invalid "+param)
				return
			}
			*dst = &d
		}
	}

	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, err, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items. Partners list under their own account and
// location; admins may name the partner.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	it := req.item()

	if claims.Role == model.RolePartner || it.PartnerID == 0 {
		it.PartnerID = claims.UserID
	}
	if it.Location == "" {
		loc, err := store.PartnerLocation(r.Context(), h.DB, it.PartnerID)
		if err != nil {
			storeError(w, err, "failed to look up partner")
			return
		}
		it.Location = loc
	}
	if err := model.ValidateItem(it); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, it)
	if err != nil {
		storeError(w, err, "failed to create item")
		return
	}

	slog.Info("item created", "user", claims.Email, "item", item.ID, "name", item.Name)
	jsonResponse(w, http.StatusCreated, item)
}

// owned loads an item the caller may modify, writing the error response otherwise.
func (h *ItemsHandler) owned(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get item")
		return nil, false
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}

	claims := GetClaims(r.Context())
	if claims.Role != model.RoleAdmin && item.PartnerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "not your item")
		return nil, false
	}
	return item, true
}

// Update handles PUT /api/items/{id}. Absent fields keep their values.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.owned(w, r)
	if !ok {
		return
	}

	req := itemRequest{Item: *item}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	it := req.item()
	it.ID = item.ID
	it.PartnerID = item.PartnerID

	if err := model.ValidateItem(it); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.UpdateItem(r.Context(), h.DB, it); err != nil {
		storeError(w, err, "failed to update item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		storeError(w, err, "failed to get item")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		storeError(w, err, "failed to delete item")
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Email, "item", item.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image. The body is the raw photo.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.owned(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize)
	defer r.Body.Close()

	photo, err := imaging.PrepareListingPhoto(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig), errors.Is(err, imaging.ErrTooLarge):
			jsonError(w, http.StatusRequestEntityTooLarge, "image too large")
		default:
			jsonError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, photo.Data, photo.MIME); err != nil {
		storeError(w, err, "failed to save image")
		return
	}

	updated, _ := store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
