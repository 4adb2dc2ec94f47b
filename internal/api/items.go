package api

import (
	"database/sql"
	"net/http"

	"github.com/decoryard/decoryard/internal/imaging"
	"github.com/decoryard/decoryard/internal/model"
	"github.com/decoryard/decoryard/internal/store"
)

// ItemsHandler handles catalog item endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type createItemRequest struct {
	ShortName  string  `json:"short_name"`
	Class      string  `json:"class"`
	ClassType  string  `json:"class_type"`
	FemaleEnds int     `json:"female_ends"`
	MaleEnds   int     `json:"male_ends"`
	PowerInlet bool    `json:"power_inlet"`
	Watts      int     `json:"watts"`
	Amps       float64 `json:"amps"`
	Notes      string  `json:"notes"`
}

type updateItemRequest struct {
	ShortName  string  `json:"short_name"`
	FemaleEnds int     `json:"female_ends"`
	MaleEnds   int     `json:"male_ends"`
	PowerInlet bool    `json:"power_inlet"`
	Watts      int     `json:"watts"`
	Amps       float64 `json:"amps"`
	Notes      string  `json:"notes"`
	Status     string  `json:"status"`
}

// List handles GET /items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	class := r.URL.Query().Get("class")
	items, err := store.ListItems(r.Context(), h.DB, status, class)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonData(w, http.StatusOK, items)
}

// Create handles POST /items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShortName == "" {
		jsonError(w, http.StatusBadRequest, "short_name required")
		return
	}

	class, classType, err := store.NormalizeClassType(req.Class, req.ClassType)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, &model.Item{
		ShortName:  req.ShortName,
		Class:      class,
		ClassType:  classType,
		FemaleEnds: req.FemaleEnds,
		MaleEnds:   req.MaleEnds,
		PowerInlet: req.PowerInlet,
		Watts:      req.Watts,
		Amps:       req.Amps,
		Notes:      req.Notes,
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	jsonData(w, http.StatusCreated, item)
}

// Get handles GET /items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonData(w, http.StatusOK, item)
}

// Update handles PUT /items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShortName == "" {
		jsonError(w, http.StatusBadRequest, "short_name required")
		return
	}
	if req.Status == "" {
		req.Status = model.ItemStatusActive
	}
	if req.Status != model.ItemStatusActive && req.Status != model.ItemStatusDamaged && req.Status != model.ItemStatusRetired {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	item.ShortName = req.ShortName
	item.FemaleEnds = req.FemaleEnds
	item.MaleEnds = req.MaleEnds
	item.PowerInlet = req.PowerInlet
	item.Watts = req.Watts
	item.Amps = req.Amps
	item.Notes = req.Notes
	item.Status = req.Status

	if err := store.UpdateItem(r.Context(), h.DB, item); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, _ := store.GetItem(r.Context(), h.DB, id)
	jsonData(w, http.StatusOK, updated)
}

// UploadImage handles PUT /items/{id}/image. The body is the raw image;
// it is sniffed, downscaled, and re-encoded before storage.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)
	result, err := imaging.Process(r.Body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, result.Data, result.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}
	jsonData(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetItemImage(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
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
