package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shandutta/homematch-v2-sub002/internal/config"
	"github.com/shandutta/homematch-v2-sub002/internal/region"

	"github.com/paulmach/orb"
)

func squareRing(x, y, size float64) orb.Ring {
	return orb.Ring{
		{x, y},
		{x + size, y},
		{x + size, y + size},
		{x, y + size},
		{x, y},
	}
}

func fineRegion(id string, x, y, size float64) *region.Region {
	r := &region.Region{ID: id, Name: strings.ToUpper(id), City: "Fort Worth", State: "TX"}
	r.SetGeometry(orb.MultiPolygon{{squareRing(x, y, size)}})

	return r
}

// testContext seeds a data dir with one dataset: two overlapping
// neighborhoods plus the city they group into.
func testContext(t *testing.T) *ServerContext {
	t.Helper()

	dataDir := t.TempDir()
	baseDir := filepath.Join(dataDir, "demo")

	fine := []*region.Region{
		fineRegion("a", 0, 0, 2),
		fineRegion("b", 1, 0, 2),
	}
	coarse := region.Group(fine, region.CityKey)

	if err := region.WriteFile(filepath.Join(baseDir, "neighborhoods.geojson"), fine); err != nil {
		t.Fatalf("write fine level: %v", err)
	}
	if err := region.WriteFile(filepath.Join(baseDir, "cities.geojson"), coarse); err != nil {
		t.Fatalf("write coarse level: %v", err)
	}

	stats := map[string]region.NormalizeStats{
		region.LevelNeighborhoods: {Input: 3, Parsed: 2, Skipped: 1},
		region.LevelCities:        {Input: 2, Parsed: 1},
	}
	if err := region.WriteStats(filepath.Join(baseDir, "stats.json"), stats); err != nil {
		t.Fatalf("write stats: %v", err)
	}

	cfg := &config.Config{
		Attribution: "Test data",
		DataDir:     dataDir,
		Datasets: []config.Dataset{
			{Name: "demo", Aliases: []string{"d"}},
		},
	}

	ctx, err := NewServerContext(cfg)
	if err != nil {
		t.Fatalf("NewServerContext: %v", err)
	}

	return ctx
}

func TestNewServerContext(t *testing.T) {
	ctx := testContext(t)

	if len(ctx.Names) != 1 || ctx.Names[0] != "demo" {
		t.Fatalf("unexpected dataset names: %v", ctx.Names)
	}
	if ctx.NameResolver["d"] != "demo" {
		t.Errorf("expected alias to resolve, got %q", ctx.NameResolver["d"])
	}

	d := ctx.Datasets["demo"]
	if len(d.Levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(d.Levels))
	}
	if d.Attribution != "Test data" {
		t.Errorf("expected global attribution fallback, got %q", d.Attribution)
	}

	lvl := d.Levels[region.LevelNeighborhoods]
	if len(lvl.Regions) != 2 {
		t.Errorf("expected both neighborhoods to survive, got %d", len(lvl.Regions))
	}
	if lvl.ETag == "" {
		t.Error("expected a non-empty ETag")
	}
	if lvl.Report.Normalize.Input != 3 || lvl.Report.Normalize.Skipped != 1 {
		t.Errorf("expected loader stats in report, got %+v", lvl.Report.Normalize)
	}
	if lvl.Report.Resolve.Survived != 2 || lvl.Report.Resolve.Dropped != 0 {
		t.Errorf("unexpected resolve stats: %+v", lvl.Report.Resolve)
	}
	// 4 plus 4 raw, the tie-break trims b down to 2.
	if lvl.Report.Resolve.RawArea != 8 || lvl.Report.Resolve.ResolvedArea != 6 {
		t.Errorf("unexpected areas: %+v", lvl.Report.Resolve)
	}
}

func TestNewServerContextEmptyDataDir(t *testing.T) {
	cfg := &config.Config{
		DataDir:  t.TempDir(),
		Datasets: []config.Dataset{{Name: "demo"}},
	}

	if _, err := NewServerContext(cfg); err == nil {
		t.Error("expected error when no dataset has cached levels")
	}
}

func TestHandleRegions(t *testing.T) {
	ctx := testContext(t)

	get := func(path, etag string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		rec := httptest.NewRecorder()
		ctx.HandleRegions(rec, req)

		return rec
	}

	rec := get("/api/regions/demo/neighborhoods.geojson", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(fc.Features))
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag header")
	}
	if rec := get("/api/regions/demo/neighborhoods.geojson", etag); rec.Code != http.StatusNotModified {
		t.Errorf("expected 304 for matching ETag, got %d", rec.Code)
	}

	if rec := get("/api/regions/d/cities.geojson", ""); rec.Code != http.StatusOK {
		t.Errorf("expected alias to serve, got %d", rec.Code)
	}
	if rec := get("/api/regions/nope/neighborhoods.geojson", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown dataset, got %d", rec.Code)
	}
	if rec := get("/api/regions/demo/blocks.geojson", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown level, got %d", rec.Code)
	}
	if rec := get("/api/regions/demo/neighborhoods", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without .geojson suffix, got %d", rec.Code)
	}
}

func TestHandleSelect(t *testing.T) {
	ctx := testContext(t)

	post := func(path, body string) (*httptest.ResponseRecorder, selectResponse) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		ctx.HandleSelect(rec, req)

		var resp selectResponse
		if rec.Code == http.StatusOK {
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("parse response: %v", err)
			}
		}

		return rec, resp
	}

	t.Run("ring spanning both regions", func(t *testing.T) {
		rec, resp := post("/api/select/demo/neighborhoods",
			`{"ring": [[0.5,1],[2.5,1],[2.5,1.2],[0.5,1.2]]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp.Count != 2 || len(resp.IDs) != 2 || resp.IDs[0] != "a" || resp.IDs[1] != "b" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("rect", func(t *testing.T) {
		rec, resp := post("/api/select/demo/neighborhoods",
			`{"rect": [[0.5,0.5],[2.5,1.5]]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp.Count != 2 {
			t.Errorf("expected both regions, got %+v", resp)
		}
	})

	t.Run("point claimed by overlap winner", func(t *testing.T) {
		// Both raw squares cover (1.5, 1); the resolver granted it to a.
		rec, resp := post("/api/select/demo/neighborhoods", `{"point": [1.5,1]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp.Count != 1 || resp.IDs[0] != "a" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("point outside", func(t *testing.T) {
		rec, resp := post("/api/select/demo/neighborhoods", `{"point": [50,50]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp.Count != 0 || len(resp.IDs) != 0 {
			t.Errorf("expected empty result, got %+v", resp)
		}
	})

	t.Run("degenerate ring is empty not an error", func(t *testing.T) {
		rec, resp := post("/api/select/demo/neighborhoods", `{"ring": [[0,0],[1,1]]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp.Count != 0 {
			t.Errorf("expected empty result, got %+v", resp)
		}
	})

	t.Run("cities level", func(t *testing.T) {
		rec, resp := post("/api/select/demo/cities", `{"point": [1.5,1]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resp.Count != 1 || resp.IDs[0] != "fort worth|tx" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if rec, _ := post("/api/select/demo/neighborhoods", `{not json`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for malformed body, got %d", rec.Code)
		}
		if rec, _ := post("/api/select/demo/neighborhoods", `{}`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for empty body, got %d", rec.Code)
		}
		if rec, _ := post("/api/select/demo/neighborhoods", `{"rect": [[1,1]]}`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for one-corner rect, got %d", rec.Code)
		}
		if rec, _ := post("/api/select/nope/neighborhoods", `{"point": [1,1]}`); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown dataset, got %d", rec.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/select/demo/neighborhoods", nil)
		rec := httptest.NewRecorder()
		ctx.HandleSelect(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for GET, got %d", rec.Code)
		}
	})
}

func TestHandleDiagnostics(t *testing.T) {
	ctx := testContext(t)

	req := httptest.NewRequest(http.MethodGet, "/api/diagnostics/demo", nil)
	rec := httptest.NewRecorder()
	ctx.HandleDiagnostics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var reports map[string]region.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected reports for both levels, got %d", len(reports))
	}
	if reports[region.LevelNeighborhoods].Normalize.Input != 3 {
		t.Errorf("unexpected normalize stats: %+v", reports[region.LevelNeighborhoods].Normalize)
	}
	if reports[region.LevelCities].Resolve.Survived != 1 {
		t.Errorf("unexpected city resolve stats: %+v", reports[region.LevelCities].Resolve)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/diagnostics/nope", nil)
	rec = httptest.NewRecorder()
	ctx.HandleDiagnostics(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown dataset, got %d", rec.Code)
	}
}

func TestHandleDatasetsList(t *testing.T) {
	ctx := testContext(t)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	ctx.HandleDatasetsList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var list []struct {
		Levels      map[string]int `json:"levels"`
		Name        string         `json:"name"`
		Attribution string         `json:"attribution"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if len(list) != 1 || list[0].Name != "demo" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].Levels[region.LevelNeighborhoods] != 2 || list[0].Levels[region.LevelCities] != 1 {
		t.Errorf("unexpected level counts: %+v", list[0].Levels)
	}
	if list[0].Attribution != "Test data" {
		t.Errorf("unexpected attribution: %q", list[0].Attribution)
	}
}

func TestHandleIndex(t *testing.T) {
	ctx := testContext(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	ctx.HandleIndex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}

	etag := rec.Header().Get("ETag")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	ctx.HandleIndex(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("expected 304 for matching ETag, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/some/file.txt", nil)
	rec = httptest.NewRecorder()
	ctx.HandleIndex(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for stray file path, got %d", rec.Code)
	}
}

func TestHandleFavicon(t *testing.T) {
	ctx := testContext(t)

	req := httptest.NewRequest(http.MethodGet, "/favicon.svg", nil)
	rec := httptest.NewRecorder()
	ctx.HandleFavicon(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestHandleOverlay(t *testing.T) {
	ctx := testContext(t)

	get := func(path, etag string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		rec := httptest.NewRecorder()
		ctx.HandleOverlay(rec, req)

		return rec
	}

	if rec := get("/overlays/demo/neighborhoods.webp", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before rendering, got %d", rec.Code)
	}

	path := filepath.Join(ctx.Config.DataDir, "demo", "overlay-neighborhoods.webp")
	if err := os.WriteFile(path, []byte("not really webp"), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	rec := get("/overlays/demo/neighborhoods.webp", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/webp" {
		t.Errorf("unexpected content type %q", ct)
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag header")
	}
	if rec := get("/overlays/demo/neighborhoods.webp", etag); rec.Code != http.StatusNotModified {
		t.Errorf("expected 304 for matching ETag, got %d", rec.Code)
	}

	if rec := get("/overlays/demo/blocks.webp", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown level, got %d", rec.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "index"},
		{"/favicon.svg", "favicon"},
		{"/metrics", "metrics"},
		{"/api/datasets", "datasets"},
		{"/api/regions/demo/neighborhoods.geojson", "regions"},
		{"/api/select/demo/cities", "select"},
		{"/api/diagnostics/demo", "diagnostics"},
		{"/overlays/demo/cities.webp", "overlays"},
		{"/robots.txt", "other"},
	}

	for _, tt := range tests {
		if got := routeLabel(tt.path); got != tt.want {
			t.Errorf("routeLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected wrapped status to pass through, got %d", rec.Code)
	}
}
