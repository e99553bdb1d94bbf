package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(dst *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := dst.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	// Far off-canvas segments would make the walk unbounded in practice.
	if max(dx, dy) > 1<<16 {
		return
	}

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					dst.SetRGBA(px, py, col)
				}
			}
		}
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawDashedVLine draws a vertical dashed line across the image.
func drawDashedVLine(dst *image.RGBA, x int, col color.RGBA, dash int) {
	b := dst.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if (y/dash)%2 == 0 {
			dst.SetRGBA(x, y, col)
		}
	}
}

// drawCircle draws a filled circle, or a ring of the given width.
func drawCircle(dst *image.RGBA, cx, cy, r float64, col color.RGBA, filled bool, width float64) {
	bounds := dst.Bounds()
	minX, maxX := int(cx-r-1), int(cx+r+1)
	minY, maxY := int(cy-r-1), int(cy+r+1)
	r2 := r * r
	inner := r - width
	inner2 := inner * inner
	if inner < 0 {
		inner2 = 0
	}

	for y := minY; y <= maxY; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx := float64(x) - cx
			dy := float64(y) - cy
			d2 := dx*dx + dy*dy
			if d2 <= r2 && (filled || d2 >= inner2) {
				dst.SetRGBA(x, y, col)
			}
		}
	}
}

// drawText draws s with its baseline-left at (x, y).
func drawText(dst *image.RGBA, s string, x, y int, col color.RGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// textWidth returns the advance of s in pixels.
func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// drawLabel draws s on a filled box so it stays readable over the plot.
func drawLabel(dst *image.RGBA, s string, x, y int, fg, bg color.RGBA) {
	w := textWidth(s)
	box := image.Rect(x-2, y-11, x+w+2, y+3).Intersect(dst.Bounds())
	for py := box.Min.Y; py < box.Max.Y; py++ {
		for px := box.Min.X; px < box.Max.X; px++ {
			dst.SetRGBA(px, py, bg)
		}
	}
	drawText(dst, s, x, y, fg)
}
