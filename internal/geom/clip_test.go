package geom

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestUnion(t *testing.T) {
	t.Run("overlapping squares merge", func(t *testing.T) {
		u, err := Union(squareMP(0, 0, 2), squareMP(1, 1, 2))
		if err != nil {
			t.Fatalf("union failed: %v", err)
		}
		if len(u) != 1 {
			t.Fatalf("expected 1 polygon, got %d", len(u))
		}
		if got := Area(u); !almostEqual(got, 7) {
			t.Errorf("expected area 7, got %v", got)
		}
	})

	t.Run("disjoint squares stay separate", func(t *testing.T) {
		u, err := Union(squareMP(0, 0, 1), squareMP(5, 5, 1))
		if err != nil {
			t.Fatalf("union failed: %v", err)
		}
		if len(u) != 2 {
			t.Fatalf("expected 2 polygons, got %d", len(u))
		}
		if got := Area(u); !almostEqual(got, 2) {
			t.Errorf("expected area 2, got %v", got)
		}
	})

	t.Run("empty sides pass through", func(t *testing.T) {
		b := squareMP(0, 0, 1)

		u, err := Union(nil, b)
		if err != nil {
			t.Fatalf("union failed: %v", err)
		}
		if got := Area(u); !almostEqual(got, 1) {
			t.Errorf("expected area 1, got %v", got)
		}

		u, err = Union(b, nil)
		if err != nil {
			t.Fatalf("union failed: %v", err)
		}
		if got := Area(u); !almostEqual(got, 1) {
			t.Errorf("expected area 1, got %v", got)
		}
	})
}

func TestUnionAll(t *testing.T) {
	u, err := UnionAll(squareMP(0, 0, 2), squareMP(1, 1, 2), squareMP(10, 10, 1))
	if err != nil {
		t.Fatalf("union failed: %v", err)
	}
	if len(u) != 2 {
		t.Fatalf("expected 2 polygons, got %d", len(u))
	}
	if got := Area(u); !almostEqual(got, 8) {
		t.Errorf("expected area 8, got %v", got)
	}

	empty, err := UnionAll()
	if err != nil {
		t.Fatalf("union failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty result, got %v", empty)
	}
}

func TestDifference(t *testing.T) {
	t.Run("overlap leaves L shape", func(t *testing.T) {
		d, err := Difference(squareMP(0, 0, 2), squareMP(1, 1, 2))
		if err != nil {
			t.Fatalf("difference failed: %v", err)
		}
		if got := Area(d); !almostEqual(got, 3) {
			t.Errorf("expected area 3, got %v", got)
		}
	})

	t.Run("full cover leaves nothing", func(t *testing.T) {
		d, err := Difference(squareMP(1, 1, 1), squareMP(0, 0, 3))
		if err != nil {
			t.Fatalf("difference failed: %v", err)
		}
		if len(d) != 0 {
			t.Errorf("expected empty result, got area %v", Area(d))
		}
	})

	t.Run("inner subtrahend punches hole", func(t *testing.T) {
		d, err := Difference(squareMP(0, 0, 4), squareMP(1.5, 1.5, 1))
		if err != nil {
			t.Fatalf("difference failed: %v", err)
		}
		if len(d) != 1 {
			t.Fatalf("expected 1 polygon, got %d", len(d))
		}
		if len(d[0]) != 2 {
			t.Fatalf("expected outer ring plus hole, got %d rings", len(d[0]))
		}
		if got := Area(d); !almostEqual(got, 15) {
			t.Errorf("expected area 15, got %v", got)
		}
	})

	t.Run("empty subtrahend leaves minuend", func(t *testing.T) {
		a := squareMP(0, 0, 2)
		d, err := Difference(a, nil)
		if err != nil {
			t.Fatalf("difference failed: %v", err)
		}
		if got := Area(d); !almostEqual(got, 4) {
			t.Errorf("expected area 4, got %v", got)
		}
	})
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b orb.MultiPolygon
		want bool
	}{
		{"overlapping squares", squareMP(0, 0, 2), squareMP(1, 1, 2), true},
		{"identical squares", squareMP(0, 0, 1), squareMP(0, 0, 1), true},
		{"disjoint squares", squareMP(0, 0, 1), squareMP(3, 3, 1), false},
		{"shared edge only", squareMP(0, 0, 1), squareMP(1, 0, 1), false},
		{"shared corner only", squareMP(0, 0, 1), squareMP(1, 1, 1), false},
		{"empty side", nil, squareMP(0, 0, 1), false},
		{
			"bounding boxes overlap but areas do not",
			orb.MultiPolygon{{{{0, 0}, {3, 0}, {0, 3}, {0, 0}}}},
			squareMP(2.5, 2.5, 1),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Intersects(tt.a, tt.b)
			if err != nil {
				t.Fatalf("intersects failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("square inside hole does not intersect", func(t *testing.T) {
		holed, err := Difference(squareMP(0, 0, 4), squareMP(1, 1, 2))
		if err != nil {
			t.Fatalf("difference failed: %v", err)
		}

		got, err := Intersects(holed, squareMP(1.5, 1.5, 1))
		if err != nil {
			t.Fatalf("intersects failed: %v", err)
		}
		if got {
			t.Error("expected no intersection with area inside the hole")
		}
	})
}
