package main

import (
	"flag"
	"fmt"
	"image"
	"os"

	"asset-bundler/internal/hull"
	"asset-bundler/internal/texture"
)

func main() {
	planes := flag.Int("planes", hull.Planes8, "Number of supporting planes (8 or 16 are typical)")
	threshold := flag.Int("threshold", 0, "Alpha values above this count as solid (0-255)")
	tileW := flag.Int("tile-width", 0, "Fit one hull per tile of this width (default: whole image)")
	tileH := flag.Int("tile-height", 0, "Tile height (default: tile width)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hullfit [flags] <image>")
		os.Exit(2)
	}
	if *threshold < 0 || *threshold > 255 {
		fmt.Fprintln(os.Stderr, "Error: -threshold must be 0-255")
		os.Exit(2)
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	img, err := texture.Decode(path, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	b := img.Bounds()
	tw, th := *tileW, *tileH
	if tw <= 0 {
		tw, th = b.Dx(), b.Dy()
	} else if th <= 0 {
		th = tw
	}
	fmt.Printf("%s: %dx%d, %d planes, tiles %dx%d\n", path, b.Dx(), b.Dy(), *planes, tw, th)

	tile := 0
	for y := 0; y+th <= b.Dy(); y += th {
		for x := 0; x+tw <= b.Dx(); x += tw {
			tile++
			pts, err := hull.FitImage(img, image.Rect(x, y, x+tw, y+th), uint8(*threshold), *planes)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("tile %d (%d,%d): %d points", tile, x, y, len(pts))
			for _, p := range pts {
				fmt.Printf(" (%d,%d)", p.X, p.Y)
			}
			fmt.Println()
		}
	}
}
