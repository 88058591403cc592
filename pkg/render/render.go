// Package render builds the standalone Leaflet HTML document showing the sensor points.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/Sternrassler/inpost-airmap/pkg/points"
)

// ContentType is the media type of rendered documents.
const ContentType = "text/html"

// titleLayout matches "HH:MM DD.MM.YYYY".
const titleLayout = "15:04 02.01.2006"

//go:embed map.html.tmpl
var mapTemplate string

// Renderer turns points into a map document.
type Renderer interface {
	Render(pts []points.Point, title string) ([]byte, error)
}

// NoticeRenderer is a Renderer that can also embed a completion notice shown on load.
type NoticeRenderer interface {
	Renderer
	RenderWithNotice(pts []points.Point, title, notice string) ([]byte, error)
}

// Config holds map presentation settings.
type Config struct {
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	Radius      float64 // circle radius in metres
	FillOpacity float64
	TileURL     string
	Attribution string
	LeafletCSS  string
	LeafletJS   string
}

// DefaultConfig returns a map centred on Poland.
func DefaultConfig() Config {
	return Config{
		CenterLat:   52,
		CenterLon:   19,
		Zoom:        7,
		Radius:      750,
		FillOpacity: 0.6,
		TileURL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		LeafletCSS:  "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css",
		LeafletJS:   "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js",
	}
}

// LeafletRenderer renders points as coloured circles on a Leaflet map.
type LeafletRenderer struct {
	config Config
	tmpl   *template.Template
}

// NewLeafletRenderer creates a renderer; zero-valued settings take defaults.
func NewLeafletRenderer(cfg Config) (*LeafletRenderer, error) {
	defaults := DefaultConfig()
	if cfg.Zoom <= 0 {
		cfg.Zoom = defaults.Zoom
	}
	if cfg.Radius <= 0 {
		cfg.Radius = defaults.Radius
	}
	if cfg.FillOpacity <= 0 || cfg.FillOpacity > 1 {
		cfg.FillOpacity = defaults.FillOpacity
	}
	if cfg.TileURL == "" {
		cfg.TileURL = defaults.TileURL
	}
	if cfg.Attribution == "" {
		cfg.Attribution = defaults.Attribution
	}
	if cfg.LeafletCSS == "" {
		cfg.LeafletCSS = defaults.LeafletCSS
	}
	if cfg.LeafletJS == "" {
		cfg.LeafletJS = defaults.LeafletJS
	}

	tmpl, err := template.New("map").Parse(mapTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse map template: %w", err)
	}

	return &LeafletRenderer{config: cfg, tmpl: tmpl}, nil
}

// Render implements Renderer.
func (r *LeafletRenderer) Render(pts []points.Point, title string) ([]byte, error) {
	return r.RenderWithNotice(pts, title, "")
}

// RenderWithNotice implements NoticeRenderer.
func (r *LeafletRenderer) RenderWithNotice(pts []points.Point, title, notice string) ([]byte, error) {
	if pts == nil {
		pts = []points.Point{}
	}

	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, struct {
		Config Config
		Title  string
		Notice string
		Points []points.Point
	}{
		Config: r.config,
		Title:  title,
		Notice: notice,
		Points: pts,
	})
	if err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}

	return buf.Bytes(), nil
}

// Title returns the banner text for a map generated at the given time.
func Title(generatedAt time.Time) string {
	return "Dane pobrano o godzinie " + generatedAt.Format(titleLayout)
}

// CompletionNotice returns the message shown when the page finishes loading.
func CompletionNotice(pointsAdded int, elapsed time.Duration) string {
	return fmt.Sprintf("Processing complete! Added %d points to the map in %.2f seconds.",
		pointsAdded, elapsed.Seconds())
}
