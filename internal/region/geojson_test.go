package region

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestGeoJSONRoundTrip(t *testing.T) {
	holed := &Region{ID: "h1", Name: "Holed", City: "Fort Worth", State: "TX"}
	holed.SetGeometry(orb.MultiPolygon{{squareRing(0, 0, 4), squareRing(1, 1, 1)}})

	plain := cityRegion("p1", "Dallas", "TX", 10, 10, 2)

	path := filepath.Join(t.TempDir(), "regions", "test.geojson")
	if err := WriteFile(path, []*Region{holed, plain}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(loaded))
	}

	got := loaded[0]
	if got.ID != "h1" || got.Name != "Holed" || got.City != "Fort Worth" || got.State != "TX" {
		t.Errorf("expected properties to survive, got %+v", got)
	}
	if got.Area != 15 {
		t.Errorf("expected recomputed area 15, got %v", got.Area)
	}
	if got.Bound == nil {
		t.Error("expected recomputed bound, got nil")
	}
	if rings := len(got.Geometry[0]); rings != 2 {
		t.Errorf("expected hole to survive the round trip, got %d rings", rings)
	}

	if loaded[1].ID != "p1" || loaded[1].Area != 4 {
		t.Errorf("expected p1 with area 4, got %s with %v", loaded[1].ID, loaded[1].Area)
	}
}

func TestReadFileErrors(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.geojson")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.geojson")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(bad); err == nil {
		t.Error("expected error for malformed file")
	} else if !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestFromFeatureCollectionSkipsNonPolygons(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))

	poly := geojson.NewFeature(orb.Polygon{squareRing(0, 0, 1)})
	poly.Properties["id"] = "only"
	fc.Append(poly)

	regions := FromFeatureCollection(fc)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if regions[0].ID != "only" {
		t.Errorf("expected id only, got %q", regions[0].ID)
	}
	if len(regions[0].Geometry) != 1 {
		t.Errorf("expected polygon promoted to multipolygon, got %d polygons", len(regions[0].Geometry))
	}
}
