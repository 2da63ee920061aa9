// Package overlay renders a resolved partition level to a raster
// image for visual inspection of the region boundaries.
package overlay

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"

	"github.com/shandutta/homematch-v2-sub002/internal/region"

	"github.com/chai2010/webp"
	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/paulmach/orb"
	xdraw "golang.org/x/image/draw"
)

const supersample = 2

// Render draws the regions onto a canvas of the given pixel width,
// height following the aspect ratio of the joint bounding box. Every
// region is filled with a stable color derived from its ID and
// stroked; holes stay transparent.
func Render(regions []*region.Region, width int) (image.Image, error) {
	bound := jointBound(regions)
	if bound == nil {
		return nil, errors.New("no regions to render")
	}

	spanX := bound.Max[0] - bound.Min[0]
	spanY := bound.Max[1] - bound.Min[1]
	if spanX <= 0 || spanY <= 0 {
		return nil, errors.New("degenerate bounding box")
	}

	height := int(math.Round(float64(width) * spanY / spanX))
	if height < 1 {
		height = 1
	}

	// Draw supersampled, then downscale for clean edges.
	big := image.NewRGBA(image.Rect(0, 0, width*supersample, height*supersample))
	gc := draw2dimg.NewGraphicContext(big)
	gc.SetFillRule(draw2d.FillRuleEvenOdd)
	gc.SetLineWidth(supersample)

	dx := float64(width*supersample) / spanX
	dy := float64(height*supersample) / spanY
	stroke := color.RGBA{R: 31, G: 41, B: 55, A: 255}

	for _, r := range regions {
		gc.SetFillColor(colorFor(r.ID))
		gc.SetStrokeColor(stroke)

		for _, poly := range r.Geometry {
			path := &draw2d.Path{}
			for _, ring := range poly {
				for j, p := range ring {
					x := (p[0] - bound.Min[0]) * dx
					y := (bound.Max[1] - p[1]) * dy
					if j == 0 {
						path.MoveTo(x, y)
					} else {
						path.LineTo(x, y)
					}
				}
				path.Close()
			}
			gc.FillStroke(path)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), big, big.Bounds(), draw.Over, nil)

	return dst, nil
}

// WriteFile renders the regions and writes the overlay as lossy WebP,
// creating the directory first.
func WriteFile(path string, regions []*region.Region, width int) error {
	img, err := Render(regions, width)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := webp.Encode(f, img, &webp.Options{Lossless: false, Quality: 85}); err != nil {
		return fmt.Errorf("encode webp: %w", err)
	}

	return nil
}

func jointBound(regions []*region.Region) *orb.Bound {
	var out *orb.Bound
	for _, r := range regions {
		if r.Bound == nil {
			continue
		}
		if out == nil {
			b := *r.Bound
			out = &b
			continue
		}

		u := out.Union(*r.Bound)
		out = &u
	}

	return out
}

// colorFor derives a stable palette color from the region ID. The web
// viewer applies the same hash, so both agree on region colors.
func colorFor(id string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))

	return hslToRGB(float64(h.Sum32()%360), 0.65, 0.55)
}

func hslToRGB(h, s, l float64) color.RGBA {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}
