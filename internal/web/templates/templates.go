// Package templates holds the dashboard's templ components.
//
// Components live in the .templ files; the *_templ.go files next to them are
// generated with `templ generate` and committed. This file carries the view
// models and the small formatting helpers the components call.
package templates

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/basketfreq/internal/chart"
	"github.com/JonMunkholm/basketfreq/internal/frequency"
)

// PageTitle is the dashboard's heading and document title.
const PageTitle = "📊 Analisi della Frequenza Relativa dei Prodotti"

// SidebarInfo is the text of the informational sidebar.
const SidebarInfo = "Questa applicazione analizza un dataset di generi alimentari per calcolare e visualizzare " +
	"la frequenza relativa di acquisto di ciascun prodotto. " +
	"I risultati sono presentati in una tabella e in un grafico a barre per i prodotti più frequenti."

// Alert is a user-facing error shown instead of the results.
type Alert struct {
	Message string
	Action  string
	Code    string
}

// DashboardData is everything the dashboard page shows for one analysis.
type DashboardData struct {
	Dataset string

	// Alert, when set, replaces the results.
	Alert *Alert

	// Warning, when set and Alert is nil, replaces the results.
	Warning string

	Strategy    string
	Columns     []string
	Rows        int
	Occurrences int

	// Entries is the full frequency table in display order.
	Entries []frequency.Entry

	// Chart is the laid out top-N bar chart.
	Chart *chart.Chart
	TopN  int

	DownloadURL string
}

// TopHeading is the chart section heading for n products.
func TopHeading(n int) string {
	return fmt.Sprintf("Visualizzazione della Frequenza Relativa (Top %d Prodotti)", n)
}

func chartCaption(n int) string {
	return fmt.Sprintf("Questo grafico a barre mostra i %d prodotti più frequenti.", n)
}

// runSummary follows the item column names in the meta line.
func runSummary(d DashboardData) string {
	return fmt.Sprintf(" (%s) · %d righe · %d occorrenze", d.Strategy, d.Rows, d.Occurrences)
}

// SVG drawing constants.
const (
	xmlProlog = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

	axisColor = "#31333f"
	gridColor = "#e6e9ef"
)

// num formats SVG coordinates with two decimals.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func viewBox(c *chart.Chart) string {
	return "0 0 " + num(c.Width) + " " + num(c.Height)
}

// rotate is an SVG rotate transform around (x, y).
func rotate(angle, x, y float64) string {
	return "rotate(" + num(angle) + " " + num(x) + " " + num(y) + ")"
}

// yLabelY is the vertical centre of the plot, where the y-axis title sits.
func yLabelY(c *chart.Chart) float64 {
	return c.PlotTop + c.PlotHeight/2
}
