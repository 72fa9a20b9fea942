package canvas

import (
	"image"
	"image/color"
	"strings"
)

// 3x5 bitmap font used for in-canvas labels. Rendering text through Fyne
// canvas objects would force one CanvasObject per box; drawing glyphs
// straight into the raster keeps the whole frame a single image.
var digitPatterns = map[rune][5][3]bool{
	'0': {{true, true, true}, {true, false, true}, {true, false, true}, {true, false, true}, {true, true, true}},
	'1': {{false, true, false}, {true, true, false}, {false, true, false}, {false, true, false}, {true, true, true}},
	'2': {{true, true, true}, {false, false, true}, {true, true, true}, {true, false, false}, {true, true, true}},
	'3': {{true, true, true}, {false, false, true}, {false, true, true}, {false, false, true}, {true, true, true}},
	'4': {{true, false, true}, {true, false, true}, {true, true, true}, {false, false, true}, {false, false, true}},
	'5': {{true, true, true}, {true, false, false}, {true, true, true}, {false, false, true}, {true, true, true}},
	'6': {{true, true, true}, {true, false, false}, {true, true, true}, {true, false, true}, {true, true, true}},
	'7': {{true, true, true}, {false, false, true}, {false, true, false}, {false, true, false}, {false, true, false}},
	'8': {{true, true, true}, {true, false, true}, {true, true, true}, {true, false, true}, {true, true, true}},
	'9': {{true, true, true}, {true, false, true}, {true, true, true}, {false, false, true}, {true, true, true}},
}

var letterPatterns = map[rune][5][3]bool{
	'A': {{false, true, false}, {true, false, true}, {true, true, true}, {true, false, true}, {true, false, true}},
	'B': {{true, true, false}, {true, false, true}, {true, true, false}, {true, false, true}, {true, true, false}},
	'C': {{false, true, true}, {true, false, false}, {true, false, false}, {true, false, false}, {false, true, true}},
	'D': {{true, true, false}, {true, false, true}, {true, false, true}, {true, false, true}, {true, true, false}},
	'E': {{true, true, true}, {true, false, false}, {true, true, false}, {true, false, false}, {true, true, true}},
	'F': {{true, true, true}, {true, false, false}, {true, true, false}, {true, false, false}, {true, false, false}},
	'G': {{false, true, true}, {true, false, false}, {true, false, true}, {true, false, true}, {false, true, true}},
	'H': {{true, false, true}, {true, false, true}, {true, true, true}, {true, false, true}, {true, false, true}},
	'I': {{true, true, true}, {false, true, false}, {false, true, false}, {false, true, false}, {true, true, true}},
	'J': {{false, false, true}, {false, false, true}, {false, false, true}, {true, false, true}, {false, true, false}},
	'K': {{true, false, true}, {true, true, false}, {true, false, false}, {true, true, false}, {true, false, true}},
	'L': {{true, false, false}, {true, false, false}, {true, false, false}, {true, false, false}, {true, true, true}},
	'M': {{true, false, true}, {true, true, true}, {true, false, true}, {true, false, true}, {true, false, true}},
	'N': {{true, false, true}, {true, true, true}, {true, true, true}, {true, false, true}, {true, false, true}},
	'O': {{false, true, false}, {true, false, true}, {true, false, true}, {true, false, true}, {false, true, false}},
	'P': {{true, true, false}, {true, false, true}, {true, true, false}, {true, false, false}, {true, false, false}},
	'Q': {{false, true, false}, {true, false, true}, {true, false, true}, {true, true, false}, {false, true, true}},
	'R': {{true, true, false}, {true, false, true}, {true, true, false}, {true, true, false}, {true, false, true}},
	'S': {{false, true, true}, {true, false, false}, {false, true, false}, {false, false, true}, {true, true, false}},
	'T': {{true, true, true}, {false, true, false}, {false, true, false}, {false, true, false}, {false, true, false}},
	'U': {{true, false, true}, {true, false, true}, {true, false, true}, {true, false, true}, {true, true, true}},
	'V': {{true, false, true}, {true, false, true}, {true, false, true}, {false, true, false}, {false, true, false}},
	'W': {{true, false, true}, {true, false, true}, {true, false, true}, {true, true, true}, {true, false, true}},
	'X': {{true, false, true}, {true, false, true}, {false, true, false}, {true, false, true}, {true, false, true}},
	'Y': {{true, false, true}, {true, false, true}, {false, true, false}, {false, true, false}, {false, true, false}},
	'Z': {{true, true, true}, {false, false, true}, {false, true, false}, {true, false, false}, {true, true, true}},
	'-': {{false, false, false}, {false, false, false}, {true, true, true}, {false, false, false}, {false, false, false}},
	'_': {{false, false, false}, {false, false, false}, {false, false, false}, {false, false, false}, {true, true, true}},
	' ': {{false, false, false}, {false, false, false}, {false, false, false}, {false, false, false}, {false, false, false}},
}

func getCharPattern(ch rune) ([5][3]bool, bool) {
	if p, ok := digitPatterns[ch]; ok {
		return p, true
	}
	if p, ok := letterPatterns[ch]; ok {
		return p, true
	}
	return [5][3]bool{}, false
}

// setPixel writes a pixel with bounds checking.
func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return
	}
	img.SetRGBA(x, y, c)
}

// blendPixel alpha-blends c over the existing pixel.
func blendPixel(img *image.RGBA, x, y int, c color.RGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if c.A == 255 {
		img.SetRGBA(x, y, c)
		return
	}
	dst := img.RGBAAt(x, y)
	a := uint32(c.A)
	ia := 255 - a
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((uint32(c.R)*a + uint32(dst.R)*ia) / 255),
		G: uint8((uint32(c.G)*a + uint32(dst.G)*ia) / 255),
		B: uint8((uint32(c.B)*a + uint32(dst.B)*ia) / 255),
		A: 255,
	})
}

// drawLine draws a straight line using Bresenham's algorithm with the given
// thickness in pixels.
func drawLine(img *image.RGBA, x0, y0, x1, y1, thickness int, c color.RGBA) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy

	half := thickness / 2
	for {
		for ty := -half; ty <= half; ty++ {
			for tx := -half; tx <= half; tx++ {
				setPixel(img, x0+tx, y0+ty, c)
			}
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// drawRectOutline draws the four edges of a rectangle.
func drawRectOutline(img *image.RGBA, x0, y0, x1, y1, thickness int, c color.RGBA) {
	drawLine(img, x0, y0, x1, y0, thickness, c)
	drawLine(img, x1, y0, x1, y1, thickness, c)
	drawLine(img, x1, y1, x0, y1, thickness, c)
	drawLine(img, x0, y1, x0, y0, thickness, c)
}

// drawDashedRect draws a rectangle outline with alternating dashes, used for
// the rubber-band rectangle while drawing a new box.
func drawDashedRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	const dash = 6
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for x := x0; x <= x1; x++ {
		if (x/dash)%2 == 0 {
			setPixel(img, x, y0, c)
			setPixel(img, x, y1, c)
		}
	}
	for y := y0; y <= y1; y++ {
		if (y/dash)%2 == 0 {
			setPixel(img, x0, y, c)
			setPixel(img, x1, y, c)
		}
	}
}

// fillRect fills a rectangle, alpha-blending over what is already there.
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			blendPixel(img, x, y, c)
		}
	}
}

// drawHandle draws a filled square resize handle centered on (cx, cy).
func drawHandle(img *image.RGBA, cx, cy, size int, fill, border color.RGBA) {
	half := size / 2
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			setPixel(img, x, y, fill)
		}
	}
	drawRectOutline(img, cx-half, cy-half, cx+half, cy+half, 1, border)
}

// drawText renders a label string with the bitmap font at the given integer
// scale. Characters without a glyph are skipped. Returns the rendered width.
func drawText(img *image.RGBA, x, y int, text string, scale int, c color.RGBA) int {
	if scale < 1 {
		scale = 1
	}
	advance := 4 * scale
	cx := x
	for _, ch := range strings.ToUpper(text) {
		pattern, ok := getCharPattern(ch)
		if !ok {
			cx += advance
			continue
		}
		for row := 0; row < 5; row++ {
			for col := 0; col < 3; col++ {
				if !pattern[row][col] {
					continue
				}
				for sy := 0; sy < scale; sy++ {
					for sx := 0; sx < scale; sx++ {
						setPixel(img, cx+col*scale+sx, y+row*scale+sy, c)
					}
				}
			}
		}
		cx += advance
	}
	return cx - x
}

// textWidth returns the pixel width drawText would produce.
func textWidth(text string, scale int) int {
	if scale < 1 {
		scale = 1
	}
	return len(text) * 4 * scale
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
