package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/basketfreq/internal/chart"
	"github.com/JonMunkholm/basketfreq/internal/extract"
	"github.com/JonMunkholm/basketfreq/internal/frequency"
	"github.com/JonMunkholm/basketfreq/internal/history"
	"github.com/JonMunkholm/basketfreq/internal/logging"
	"github.com/JonMunkholm/basketfreq/internal/web/templates"
)

const downloadPath = "/download"

// handleDashboard renders the page for a fresh analysis.
// Pipeline errors and an empty result are shown inside the page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := templates.DashboardData{
		Dataset: s.service.DatasetPath(),
		TopN:    s.service.TopN(),
	}
	status := http.StatusOK

	a, err := s.service.Analyze(ctx)
	switch {
	case err != nil:
		if isHTMX(r) {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		status = statusFor(err)
		data.Alert = alertFor(err)
		logging.FromContext(ctx).Warn("dashboard rendered with error", "error", err, "code", data.Alert.Code)

	case a.Empty():
		data.Warning = a.Warning()

	default:
		c, err := chart.Build(a.Top(), s.chartOptions())
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		data.Strategy = a.Extraction.Strategy
		data.Columns = a.Extraction.Columns
		data.Rows = a.Rows
		data.Occurrences = a.Frequencies.Total
		data.Entries = a.Frequencies.Entries
		data.Chart = c
		data.DownloadURL = downloadPath
	}

	var page bytes.Buffer
	if err := templates.Dashboard(data).Render(ctx, &page); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = page.WriteTo(w)
}

// handleChart serves the top-N bar chart as a standalone SVG.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Analyze(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	c, err := chart.Build(a.Top(), s.chartOptions())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	if err := templates.ChartDocument(c).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("chart render failed", "error", err)
	}
}

// handleDownload streams the full frequency table as a CSV attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Analyze(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if a.Empty() {
		s.respondError(w, r, frequency.ErrEmpty, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", frequency.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, s.cfg.Dataset.ExportFileName))
	if err := a.WriteCSV(w); err != nil {
		logging.FromContext(r.Context()).Error("csv export failed", "run_id", a.RunID, "error", err)
	}
}

// FrequenciesResponse is the body of GET /api/frequencies.
type FrequenciesResponse struct {
	RunID        string            `json:"run_id"`
	Dataset      string            `json:"dataset"`
	Strategy     string            `json:"strategy"`
	Columns      []string          `json:"columns"`
	Rows         int               `json:"rows"`
	Transactions int               `json:"transactions"`
	Total        int               `json:"total"`
	Products     int               `json:"products"`
	Entries      []frequency.Entry `json:"entries"`
	Warning      string            `json:"warning,omitempty"`
}

// handleFrequencies returns the frequency table as JSON.
// ?top=N limits the entries; without it the whole table is returned.
func (s *Server) handleFrequencies(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Analyze(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	entries := a.Frequencies.Entries
	if top := parseIntParam(r, "top", 0); top > 0 {
		entries = a.Frequencies.Top(top)
	}
	if entries == nil {
		entries = []frequency.Entry{}
	}

	writeJSON(w, r, http.StatusOK, FrequenciesResponse{
		RunID:        a.RunID,
		Dataset:      a.Dataset,
		Strategy:     a.Extraction.Strategy,
		Columns:      a.Extraction.Columns,
		Rows:         a.Rows,
		Transactions: a.Extraction.Transactions,
		Total:        a.Frequencies.Total,
		Products:     a.Frequencies.Len(),
		Entries:      entries,
		Warning:      a.Warning(),
	})
}

// handleStrategies lists the item column strategies in detection order.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string][]string{"strategies": extract.Strategies()})
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Enabled bool          `json:"enabled"`
	Runs    []history.Run `json:"runs"`
}

// handleHistory returns the most recent recorded runs.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", s.cfg.History.Limit)

	runs, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}

	writeJSON(w, r, http.StatusOK, HistoryResponse{
		Enabled: s.service.HistoryEnabled(),
		Runs:    runs,
	})
}

// handleRunEntries returns the charted entries recorded for one run.
func (s *Server) handleRunEntries(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	entries, err := s.service.RunEntries(r.Context(), runID)
	if err != nil {
		status := http.StatusServiceUnavailable
		if statusFor(err) == http.StatusNotFound {
			status = http.StatusNotFound
		}
		s.respondError(w, r, err, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"run_id":  runID,
		"entries": entries,
	})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
