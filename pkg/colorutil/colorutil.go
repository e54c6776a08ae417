// Package colorutil provides the overlay colour palette.
package colorutil

import "image/color"

// Overlay colors.
var (
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Azure  = color.RGBA{R: 0, G: 128, B: 255, A: 255}
)

// BGR returns c's channels in OpenCV byte order.
func BGR(c color.RGBA) [3]uint8 {
	return [3]uint8{c.B, c.G, c.R}
}
