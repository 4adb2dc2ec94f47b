package web

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/decoryard/decoryard/internal/model"
)

// ClassStats aggregates the catalog per class type.
type ClassStats struct {
	Class      string
	ClassType  string
	Count      int
	TotalWatts int
	TotalAmps  float64
}

// StatisticsPage handles GET /statistics: per-type counts and power totals
// across the active catalog.
func (s *Server) StatisticsPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	items, err := s.API.ListItems(r.Context(), "", "")
	if err != nil {
		slog.Error("failed to list items for statistics", "error", err)
	}

	byType := make(map[string]*ClassStats)
	var totalWatts int
	var totalAmps float64
	for _, item := range items {
		if item.Status == model.ItemStatusRetired {
			continue
		}
		key := item.Class + "/" + item.ClassType
		st, ok := byType[key]
		if !ok {
			st = &ClassStats{Class: item.Class, ClassType: item.ClassType}
			byType[key] = st
		}
		st.Count++
		st.TotalWatts += item.Watts
		st.TotalAmps += item.Amps
		totalWatts += item.Watts
		totalAmps += item.Amps
	}

	stats := make([]ClassStats, 0, len(byType))
	for _, st := range byType {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Class != stats[j].Class {
			return stats[i].Class < stats[j].Class
		}
		return stats[i].ClassType < stats[j].ClassType
	})

	s.Templates.Render(w, "statistics.html", &struct {
		PageData
		Stats      []ClassStats
		TotalWatts int
		TotalAmps  float64
	}{
		PageData:   PageData{Title: "Statistics", User: claims, Flash: popFlash(w, r)},
		Stats:      stats,
		TotalWatts: totalWatts,
		TotalAmps:  totalAmps,
	})
}
