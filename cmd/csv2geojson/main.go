// csv2geojson converts CSV rows of named bounding boxes into a GeoJSON
// FeatureCollection the loader can consume, handy for building fixture
// datasets by hand.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shandutta/homematch-v2-sub002/internal/geom"
	"github.com/shandutta/homematch-v2-sub002/internal/selection"

	"github.com/jessevdk/go-flags"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Options struct {
	Input  string `short:"i" long:"in"     description:"Input CSV path (id,name,city,state,min_lng,min_lat,max_lng,max_lat). Reads from stdin if empty"`
	Output string `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Header bool   `short:"H" long:"header" description:"Skip the first row as a header"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var input io.Reader = os.Stdin
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		input = f
	}

	r := csv.NewReader(input)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	fc := geojson.NewFeatureCollection()

	count := 0
	for row := 0; ; row++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading CSV: %v\n", err)
			os.Exit(1)
		}

		if row == 0 && opts.Header {
			continue
		}
		if len(record) != 8 {
			fmt.Fprintf(os.Stderr, "Skipping row %d: expected 8 fields, got %d\n", row+1, len(record))
			continue
		}

		coords := make([]float64, 4)
		bad := false
		for i, raw := range record[4:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Skipping %s due to invalid coords: %s\n", record[0], raw)
				bad = true
				break
			}
			coords[i] = v
		}
		if bad {
			continue
		}

		ring := selection.RectRing(
			orb.Point{coords[0], coords[1]},
			orb.Point{coords[2], coords[3]},
		)

		feature := geojson.NewFeature(orb.Polygon{geom.CloseRing(ring)})
		feature.Properties["id"] = record[0]
		feature.Properties["name"] = record[1]
		feature.Properties["city"] = record[2]
		feature.Properties["state"] = record[3]

		fc.Append(feature)
		count++
	}

	outputData, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d boxes to %s\n", count, opts.Output)
	} else {
		fmt.Println(string(outputData))
	}
}
