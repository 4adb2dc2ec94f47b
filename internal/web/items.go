package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/decoryard/decoryard/internal/client"
	"github.com/decoryard/decoryard/internal/model"
)

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	status := r.URL.Query().Get("status")
	class := r.URL.Query().Get("class")

	items, err := s.API.ListItems(r.Context(), status, class)
	if err != nil {
		slog.Error("failed to list items", "error", err)
	}

	s.Templates.Render(w, "items.html", &struct {
		PageData
		Items        []model.Item
		FilterStatus string
		FilterClass  string
	}{
		PageData:     PageData{Title: "Items", User: claims, Flash: popFlash(w, r)},
		Items:        items,
		FilterStatus: status,
		FilterClass:  class,
	})
}

// ItemCreateSubmit handles POST /items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	femaleEnds, _ := strconv.Atoi(r.FormValue("female_ends"))
	maleEnds, _ := strconv.Atoi(r.FormValue("male_ends"))
	watts, _ := strconv.Atoi(r.FormValue("watts"))
	amps, _ := strconv.ParseFloat(r.FormValue("amps"), 64)

	item := &model.Item{
		ShortName:  r.FormValue("short_name"),
		Class:      r.FormValue("class"),
		ClassType:  r.FormValue("class_type"),
		FemaleEnds: femaleEnds,
		MaleEnds:   maleEnds,
		PowerInlet: r.FormValue("power_inlet") == "on",
		Watts:      watts,
		Amps:       amps,
		Notes:      r.FormValue("notes"),
	}
	if item.ShortName == "" {
		setFlash(w, "error", "Name is required.")
		http.Redirect(w, r, "/items", http.StatusSeeOther)
		return
	}

	created, err := s.API.CreateItem(r.Context(), item)
	if err != nil {
		setFlash(w, "error", err.Error())
		http.Redirect(w, r, "/items", http.StatusSeeOther)
		return
	}

	setFlash(w, "success", "Item registered.")
	http.Redirect(w, r, "/items/"+created.ID, http.StatusSeeOther)
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	item, err := s.API.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to get item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Templates.Render(w, "item_detail.html", &struct {
		PageData
		Item *model.Item
	}{
		PageData: PageData{Title: item.ShortName, User: claims, Flash: popFlash(w, r)},
		Item:     item,
	})
}

// ItemUpdateSubmit handles POST /items/{id}.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	femaleEnds, _ := strconv.Atoi(r.FormValue("female_ends"))
	maleEnds, _ := strconv.Atoi(r.FormValue("male_ends"))
	watts, _ := strconv.Atoi(r.FormValue("watts"))
	amps, _ := strconv.ParseFloat(r.FormValue("amps"), 64)

	_, err := s.API.UpdateItem(r.Context(), &model.Item{
		ID:         id,
		ShortName:  r.FormValue("short_name"),
		FemaleEnds: femaleEnds,
		MaleEnds:   maleEnds,
		PowerInlet: r.FormValue("power_inlet") == "on",
		Watts:      watts,
		Amps:       amps,
		Notes:      r.FormValue("notes"),
		Status:     r.FormValue("status"),
	})
	if err != nil {
		setFlash(w, "error", err.Error())
	} else {
		setFlash(w, "success", "Item saved.")
	}
	http.Redirect(w, r, "/items/"+id, http.StatusSeeOther)
}

// ItemPhotoSubmit handles POST /items/{id}/photo (multipart upload).
func (s *Server) ItemPhotoSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		setFlash(w, "error", "Invalid upload.")
		http.Redirect(w, r, "/items/"+id, http.StatusSeeOther)
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		setFlash(w, "error", "Choose a photo to upload.")
		http.Redirect(w, r, "/items/"+id, http.StatusSeeOther)
		return
	}
	defer file.Close()

	if err := s.API.UploadItemPhoto(r.Context(), id, file); err != nil {
		setFlash(w, "error", err.Error())
	} else {
		setFlash(w, "success", "Photo uploaded.")
	}
	http.Redirect(w, r, "/items/"+id, http.StatusSeeOther)
}

// ItemPhotoGet handles GET /items/{id}/photo.
func (s *Server) ItemPhotoGet(w http.ResponseWriter, r *http.Request) {
	data, mime, err := s.API.ItemPhoto(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to get photo", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write photo response", "error", err)
	}
}

// GalleryPage handles GET /gallery: the grid of items that have photos.
func (s *Server) GalleryPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	items, err := s.API.ListItems(r.Context(), "", "")
	if err != nil {
		slog.Error("failed to list items for gallery", "error", err)
	}

	withPhotos := []model.Item{}
	for _, item := range items {
		if item.ImageMime != "" {
			withPhotos = append(withPhotos, item)
		}
	}

	s.Templates.Render(w, "gallery.html", &struct {
		PageData
		Items []model.Item
	}{
		PageData: PageData{Title: "Gallery", User: claims, Flash: popFlash(w, r)},
		Items:    withPhotos,
	})
}
