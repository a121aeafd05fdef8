package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/reconcile"
	"github.com/agroscan/agroscan/pkg/regions"
	"github.com/agroscan/agroscan/pkg/report"
	"github.com/agroscan/agroscan/pkg/settings"
	"github.com/agroscan/agroscan/pkg/stats"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/agroscan/agroscan/pkg/weather"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Debugf("Could not write response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type statsResponse struct {
	stats.AggregateStats
	Percent map[stats.Bucket]float64 `json:"percent"`
}

func newStatsResponse(a stats.AggregateStats) statsResponse {
	return statsResponse{
		AggregateStats: a,
		Percent: map[stats.Bucket]float64{
			stats.Healthy:  a.Percent(stats.Healthy),
			stats.Warning:  a.Percent(stats.Warning),
			stats.Critical: a.Percent(stats.Critical),
		},
	}
}

type historyResponse struct {
	Records   []storage.ScanRecord `json:"records"`
	Stats     statsResponse        `json:"stats"`
	FromCache bool                 `json:"fromCache"`
	Warning   string               `json:"warning,omitempty"`
	Removed   *bool                `json:"removed,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	a, _ := s.History.Stats(r.Context())
	writeJSON(w, http.StatusOK, newStatsResponse(a))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	a, records := s.History.Stats(r.Context())
	writeJSON(w, http.StatusOK, historyResponse{Records: records, Stats: newStatsResponse(a)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.History.Refresh(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	body := historyResponse{Records: res.Records, Stats: newStatsResponse(res.Stats), FromCache: res.FromCache}
	if res.RemoteErr != nil {
		body.Warning = res.RemoteErr.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := s.History.Delete(r.Context(), id)
	if res == nil {
		msg := "delete failed"
		if err != nil {
			msg = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msg})
		return
	}
	removed := res.Removed
	body := historyResponse{Records: res.Records, Stats: newStatsResponse(res.Stats), Removed: &removed}

	switch {
	case errors.Is(err, reconcile.ErrRemoteDelete):
		// the local copy is already gone; say so alongside the failure
		body.Warning = err.Error()
		writeJSON(w, http.StatusBadGateway, body)
	case errors.Is(err, storage.ErrStorageUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) loadReports(r *http.Request) []storage.ScanRecord {
	records, err := s.Reports.Load(r.Context(), storage.ReportsKey)
	if err != nil {
		utils.Log.Warnf("Reports unavailable: %v", err)
		return []storage.ScanRecord{}
	}
	return records
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loadReports(r))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	removed, err := s.Reports.Remove(r.Context(), storage.ReportsKey, r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records := s.loadReports(r)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(time.Now())+`"`)
	if err := report.WriteCSV(w, records); err != nil {
		utils.Log.Warnf("CSV export failed: %v", err)
	}
}

type settingsResponse struct {
	settings.Snapshot
	Palette settings.Palette `json:"palette"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.Settings == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "settings not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Snapshot: s.Settings.Snapshot(), Palette: s.Settings.Palette()})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	reg := regions.Default()
	if name := r.URL.Query().Get("region"); name != "" {
		found, ok := regions.Lookup(name)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown region " + name})
			return
		}
		reg = found
	}
	if s.Weather == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "weather not configured"})
		return
	}
	cur, src := s.Weather.Current(r.Context(), reg.Name)
	writeJSON(w, http.StatusOK, struct {
		Weather interface{}    `json:"weather"`
		Source  weather.Source `json:"source"`
	}{cur, src})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(regions.FeatureCollection()); err != nil {
		utils.Log.Debugf("Could not write regions: %v", err)
	}
}
