// Package image loads grayscale page images and converts them into
// intensity grids.
package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"cell-tracker/internal/grid"
	"cell-tracker/pkg/roierr"

	"golang.org/x/image/tiff"
)

// Page is one image of a stack.
type Page struct {
	Path  string
	Index int
	Image image.Image
	// DPI is the resolution recorded in a TIFF file, or 0 when unknown.
	DPI float64
}

// Load reads a single page. TIFF files are decoded with the TIFF decoder
// directly; other formats go through image.Decode.
func Load(path string) (*Page, error) {
	if !IsSupportedFormat(path) {
		return nil, fmt.Errorf("unsupported image format %q: %w", filepath.Ext(path), roierr.ErrArgument)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	page := &Page{Path: path}
	if isTIFF(path) {
		page.Image, err = tiff.Decode(bytes.NewReader(data))
		if err == nil {
			page.DPI, _ = tiffDPI(data)
		}
	} else {
		page.Image, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return page, nil
}

// LoadStack loads pages in order, numbering them from 0.
func LoadStack(paths []string) ([]*Page, error) {
	pages := make([]*Page, 0, len(paths))
	for i, path := range paths {
		p, err := Load(path)
		if err != nil {
			return nil, err
		}
		p.Index = i
		pages = append(pages, p)
	}
	return pages, nil
}

// Width returns the image width in pixels.
func (p *Page) Width() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (p *Page) Height() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dy()
}

// Grid returns a fresh intensity grid for the page with no owners.
func (p *Page) Grid() (*grid.Grid, error) {
	if p.Image == nil {
		return nil, fmt.Errorf("page %d has no image: %w", p.Index, roierr.ErrState)
	}
	return ToGrid(p.Image)
}

// ToGrid converts img to 8-bit luminance. 16-bit samples keep their high byte.
func ToGrid(img image.Image) (*grid.Grid, error) {
	return grid.FromGray(toGray(img))
}

// Gray returns the page as an 8-bit grayscale image anchored at the origin.
func (p *Page) Gray() *image.Gray {
	return toGray(p.Image)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Rect, img, b.Min, draw.Src)
	return g
}

func isTIFF(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	unitCentimeter = 3
)

// tiffDPI reads the resolution tags of the first image directory.
func tiffDPI(data []byte) (float64, error) {
	if len(data) < 8 {
		return 0, errors.New("short TIFF header")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, errors.New("not a TIFF file")
	}

	ifd := int(order.Uint32(data[4:8]))
	if ifd+2 > len(data) {
		return 0, errors.New("directory offset out of range")
	}
	entries := int(order.Uint16(data[ifd : ifd+2]))

	rational := func(off int) float64 {
		if off+8 > len(data) {
			return 0
		}
		num, den := order.Uint32(data[off:off+4]), order.Uint32(data[off+4:off+8])
		if den == 0 {
			return 0
		}
		return float64(num) / float64(den)
	}

	var xRes, yRes float64
	unit := uint16(2)
	for i := 0; i < entries; i++ {
		e := ifd + 2 + 12*i
		if e+12 > len(data) {
			break
		}
		tag, typ := order.Uint16(data[e:e+2]), order.Uint16(data[e+2:e+4])
		switch {
		case tag == tagXResolution && typ == typeRational:
			xRes = rational(int(order.Uint32(data[e+8 : e+12])))
		case tag == tagYResolution && typ == typeRational:
			yRes = rational(int(order.Uint32(data[e+8 : e+12])))
		case tag == tagResolutionUnit && typ == typeShort:
			unit = order.Uint16(data[e+8 : e+10])
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, errors.New("no resolution tags")
	}
	if unit == unitCentimeter {
		dpi *= 2.54
	}
	return dpi, nil
}

// SupportedFormats returns the file extensions Load accepts.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
