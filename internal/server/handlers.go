// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shandutta/homematch-v2-sub002/internal/metrics"
	"github.com/shandutta/homematch-v2-sub002/internal/region"
	"github.com/shandutta/homematch-v2-sub002/internal/selection"

	"github.com/paulmach/orb"
)

const etagCap = 64

// datasetInfo is one element of the /api/datasets response.
type datasetInfo struct {
	Levels      map[string]int `json:"levels"`
	Name        string         `json:"name"`
	Attribution string         `json:"attribution,omitempty"`
}

// selectRequest is the /api/select request body. Exactly one shape
// should be set.
type selectRequest struct {
	Point *orb.Point  `json:"point,omitempty"`
	Ring  []orb.Point `json:"ring,omitempty"`
	Rect  []orb.Point `json:"rect,omitempty"`
}

// selectResponse lists the IDs of the matched regions.
type selectResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

// HandleDatasetsList serves the JSON list of served datasets with
// their levels and region counts.
func (s *ServerContext) HandleDatasetsList(w http.ResponseWriter, r *http.Request) {
	list := make([]datasetInfo, 0, len(s.Names))
	for _, name := range s.Names {
		d := s.Datasets[name]

		levels := make(map[string]int, len(d.Levels))
		for level, lvl := range d.Levels {
			levels[level] = len(lvl.Regions)
		}

		list = append(list, datasetInfo{
			Levels:      levels,
			Name:        name,
			Attribution: d.Attribution,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(list)
}

// HandleRegions serves a resolved partition level as GeoJSON.
func (s *ServerContext) HandleRegions(w http.ResponseWriter, r *http.Request) {
	// Path: /api/regions/{dataset}/{level}.geojson
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || !strings.HasSuffix(parts[3], ".geojson") {
		http.NotFound(w, r)
		return
	}

	_, lvl := s.level(parts[2], strings.TrimSuffix(parts[3], ".geojson"))
	if lvl == nil {
		http.NotFound(w, r)
		return
	}

	if match := r.Header.Get("If-None-Match"); match == lvl.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("ETag", lvl.ETag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(lvl.GeoJSON)
}

// HandleSelect answers selection queries against a partition level.
// The body carries a ring, a rectangle or a point; the response lists
// the IDs of the matched regions. A degenerate ring is a valid query
// with an empty result.
func (s *ServerContext) HandleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path: /api/select/{dataset}/{level}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 {
		http.NotFound(w, r)
		return
	}

	name, lvl := s.level(parts[2], parts[3])
	if lvl == nil {
		http.NotFound(w, r)
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	var (
		matched []*region.Region
		shape   string
	)

	switch {
	case req.Point != nil:
		shape = "point"
		if hit := lvl.Index.MatchPoint(*req.Point); hit != nil {
			matched = append(matched, hit)
		}
	case len(req.Rect) > 0:
		if len(req.Rect) != 2 {
			http.Error(w, "rect needs exactly two corners", http.StatusBadRequest)
			return
		}

		shape = "rect"
		matched = lvl.Index.MatchRing(selection.RectRing(req.Rect[0], req.Rect[1]))
	case len(req.Ring) > 0:
		shape = "ring"
		matched = lvl.Index.MatchRing(orb.Ring(req.Ring))
	default:
		http.Error(w, "body needs one of ring, rect or point", http.StatusBadRequest)
		return
	}

	metrics.SelectsTotal.WithLabelValues(name, parts[3], shape).Inc()

	resp := selectResponse{IDs: make([]string, 0, len(matched))}
	for _, m := range matched {
		resp.IDs = append(resp.IDs, m.ID)
	}
	resp.Count = len(resp.IDs)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleDiagnostics serves the per-level pipeline reports of one
// dataset.
func (s *ServerContext) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	// Path: /api/diagnostics/{dataset}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}

	name, ok := s.NameResolver[parts[2]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	d := s.Datasets[name]
	reports := make(map[string]region.Report, len(d.Levels))
	for level, lvl := range d.Levels {
		reports[level] = lvl.Report
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reports)
}

// HandleOverlay serves a rendered overlay image from the data dir.
func (s *ServerContext) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	// Path: /overlays/{dataset}/{level}.webp
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || !strings.HasSuffix(parts[2], ".webp") {
		http.NotFound(w, r)
		return
	}

	level := strings.TrimSuffix(parts[2], ".webp")

	// allow only loaded levels to prevent path probing
	name, lvl := s.level(parts[1], level)
	if lvl == nil {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.Config.DataDir, name, "overlay-"+level+".webp")
	if !s.serveFile(w, r, path, "image/webp") {
		http.NotFound(w, r)
	}
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/favicon.svg" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}
