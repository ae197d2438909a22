// tileprobe is a CLI utility for inspecting tile sources: read a single
// tile from a layer and report what came back.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openglobe3d/strata/internal/config"
	"github.com/openglobe3d/strata/internal/gis"
	"github.com/openglobe3d/strata/internal/layer"
	"github.com/openglobe3d/strata/pkg/geo"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "image":
		cmdImage(args)
	case "elevation", "elev":
		cmdElevation(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tileprobe - tile source inspection utility

Usage:
  tileprobe <command> [options] <source> <level/x/y>

Commands:
  image      Read an image tile and report its size (optionally save it)
  elevation  Read an elevation tile and report its height range

Sources:
  gradient                  procedural test layer
  tms:<url-template>        TMS/XYZ endpoint with {z} {x} {y}
  mbtiles:<file>            MBTiles database (imagery)
  dem:<file>                MBTiles database (terrain-rgb elevation)

Examples:
  tileprobe image gradient 2/1/1
  tileprobe image -o tile.png tms:https://tile.example.com/{z}/{x}/{y}.png 5/17/11
  tileprobe elevation dem:./terrain.mbtiles 8/42/101`)
}

func cmdImage(args []string) {
	fs := flag.NewFlagSet("image", flag.ExitOnError)
	output := fs.String("o", "", "write the tile as PNG to this file")
	fs.Parse(args)

	l, key := openSource(fs.Args())
	defer l.Close()

	img, ok := l.(gis.ImageLayer)
	if !ok {
		fatalf("source %q does not serve imagery", l.Name())
	}

	start := time.Now()
	tile, status := img.CreateImage(key, gis.NewIO(nil))
	took := time.Since(start)
	if !status.Ok() {
		fatalf("read %s: %s", key, status)
	}

	b := tile.Image.Bounds()
	fmt.Printf("Tile:    %s\n", key)
	fmt.Printf("Size:    %dx%d\n", b.Dx(), b.Dy())
	fmt.Printf("Extent:  %.6f,%.6f .. %.6f,%.6f\n",
		tile.Extent.Min[0], tile.Extent.Min[1], tile.Extent.Max[0], tile.Extent.Max[1])
	fmt.Printf("Took:    %v\n", took)

	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatalf("create %s: %v", *output, err)
		}
		defer f.Close()
		if err := png.Encode(f, tile.Image); err != nil {
			fatalf("encode %s: %v", *output, err)
		}
		fmt.Printf("Written: %s\n", *output)
	}
}

func cmdElevation(args []string) {
	fs := flag.NewFlagSet("elevation", flag.ExitOnError)
	fs.Parse(args)

	l, key := openSource(fs.Args())
	defer l.Close()

	elev, ok := l.(gis.ElevationLayer)
	if !ok {
		fatalf("source %q does not serve elevation", l.Name())
	}

	start := time.Now()
	hf, status := elev.CreateHeightfield(key, gis.NewIO(nil))
	took := time.Since(start)
	if !status.Ok() {
		fatalf("read %s: %s", key, status)
	}

	min, max := hf.MinMax()
	fmt.Printf("Tile:    %s\n", key)
	fmt.Printf("Grid:    %dx%d samples\n", hf.Width, hf.Height)
	fmt.Printf("Heights: %.2f .. %.2f\n", min, max)
	fmt.Printf("Center:  %.2f\n", hf.HeightAtUV(0.5, 0.5))
	fmt.Printf("Took:    %v\n", took)
}

// openSource parses "<source> <level/x/y>" and opens the layer.
func openSource(args []string) (gis.Layer, geo.TileKey) {
	if len(args) < 2 {
		printUsage()
		os.Exit(1)
	}

	src := config.SourceConfig{Name: "probe"}
	spec := args[0]
	switch {
	case spec == "gradient":
		src.Kind = "gradient"
	case strings.HasPrefix(spec, "tms:"):
		src.Kind = "tms"
		src.URL = strings.TrimPrefix(spec, "tms:")
	case strings.HasPrefix(spec, "mbtiles:"):
		src.Kind = "mbtiles"
		src.Path = strings.TrimPrefix(spec, "mbtiles:")
	case strings.HasPrefix(spec, "dem:"):
		src.Kind = "mbtiles-elevation"
		src.Path = strings.TrimPrefix(spec, "dem:")
	default:
		fatalf("unrecognized source %q", spec)
	}

	cfg := config.Default()
	l, err := layer.FromConfig(src, cfg.Network, cfg.Terrain)
	if err != nil {
		fatalf("source: %v", err)
	}
	if status := l.Open(); !status.Ok() {
		fatalf("open %s: %s", l.Name(), status)
	}

	key, err := parseKey(args[1], geo.GlobalGeodetic())
	if err != nil {
		fatalf("tile key: %v", err)
	}
	return l, key
}

// parseKey parses "level/x/y".
func parseKey(s string, profile *geo.Profile) (geo.TileKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return geo.TileKey{}, fmt.Errorf("want level/x/y, got %q", s)
	}
	var v [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return geo.TileKey{}, fmt.Errorf("bad component %q: %w", p, err)
		}
		v[i] = n
	}
	key := geo.TileKey{
		Level:   uint32(v[0]),
		X:       uint32(v[1]),
		Y:       uint32(v[2]),
		Profile: profile,
	}
	if !key.Valid() {
		return geo.TileKey{}, fmt.Errorf("%s is outside the %s grid", key, profile.Name)
	}
	return key, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
