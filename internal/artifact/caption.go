package artifact

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	glyphWidth  = 7
	glyphHeight = 13
	bannerPad   = 4
)

var (
	passColor    = color.RGBA{R: 0, G: 128, B: 0, A: 200}
	failColor    = color.RGBA{R: 200, G: 0, B: 0, A: 200}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// Caption draws text on a banner along the top edge of img, green for a
// passing step and red otherwise. Text wider than the image is cut off.
func Caption(img image.Image, text string, passed bool) image.Image {
	rgba := toRGBA(img)
	b := rgba.Bounds()

	banner := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+glyphHeight+2*bannerPad)
	fill := failColor
	if passed {
		fill = passColor
	}
	draw.Draw(rgba, banner.Intersect(b), image.NewUniform(fill), image.Point{}, draw.Over)

	if fit := (b.Dx() - 2*bannerPad) / glyphWidth; fit > 0 && len(text) > fit {
		text = text[:fit]
	}
	// basicfont draws from the baseline
	drawTextWithOutline(rgba, text, b.Min.X+bannerPad, b.Min.Y+bannerPad+glyphHeight-2)
	return rgba
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

func drawTextWithOutline(img *image.RGBA, text string, x, y int) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d := &font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(outlineColor),
				Face: basicfont.Face7x13,
				Dot:  fixed.P(x+dx, y+dy),
			}
			d.DrawString(text)
		}
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
