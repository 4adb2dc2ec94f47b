package web

import (
	"log/slog"
	"net/http"

	"github.com/decoryard/decoryard/internal/model"
)

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	items, err := s.API.ListItems(r.Context(), "", "")
	if err != nil {
		slog.Error("failed to list items for dashboard", "error", err)
	}

	active, err := s.Controller.LoadInProgress(r.Context())
	if err != nil {
		slog.Error("failed to list deployments for dashboard", "error", err)
	}

	counts := struct {
		Total   int
		Active  int
		Damaged int
		Retired int
	}{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case model.ItemStatusActive:
			counts.Active++
		case model.ItemStatusDamaged:
			counts.Damaged++
		case model.ItemStatusRetired:
			counts.Retired++
		}
	}

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		Counts      any
		Deployments []model.Deployment
	}{
		PageData:    PageData{Title: "Dashboard", User: claims, Flash: popFlash(w, r)},
		Counts:      counts,
		Deployments: active,
	})
}
