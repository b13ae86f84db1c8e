package watermark

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Region is a watermark rectangle in pixels, origin at the top-left corner
type Region struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultRegions are masked when no regions are configured
var DefaultRegions = []Region{
	{X: 10, Y: 10, Width: 100, Height: 50},
	{X: 200, Y: 50, Width: 150, Height: 80},
}

// DefaultInpaintRadius is the neighbourhood radius passed to the inpainter
const DefaultInpaintRadius = 7

// Rect returns the region as an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// String formats the region as "x,y,w,h"
func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// ParseRegion parses "x,y,w,h". Width and height must be positive.
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("invalid region %q: expected x,y,width,height", s)
	}

	values := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Region{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		values[i] = v
	}

	r := Region{X: values[0], Y: values[1], Width: values[2], Height: values[3]}
	if r.Width <= 0 || r.Height <= 0 {
		return Region{}, fmt.Errorf("invalid region %q: width and height must be positive", s)
	}
	return r, nil
}

// Regions is a list of regions decodable from "x,y,w,h;x,y,w,h"
type Regions []Region

// Decode implements envconfig.Decoder
func (rs *Regions) Decode(value string) error {
	parsed, err := ParseRegions(value)
	if err != nil {
		return err
	}
	*rs = parsed
	return nil
}

// ParseRegions parses a semicolon separated region list. Empty input yields
// an empty, non-nil list, which disables the mask.
func ParseRegions(value string) (Regions, error) {
	regions := Regions{}
	for _, item := range strings.Split(value, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		r, err := ParseRegion(item)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// MaskRects clips each region to a frame of the given size. Regions that
// fall entirely outside the frame are dropped.
func MaskRects(regions []Region, width, height int) []image.Rectangle {
	frame := image.Rect(0, 0, width, height)
	rects := make([]image.Rectangle, 0, len(regions))
	for _, r := range regions {
		clipped := r.Rect().Intersect(frame)
		if clipped.Empty() {
			continue
		}
		rects = append(rects, clipped)
	}
	return rects
}
