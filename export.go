package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const pngExportColumns = 160

var sideColors = map[Side]color.RGBA{
	SideAffirmative: {R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff},
	SideNegative:    {R: 0xd0, G: 0x30, B: 0x30, A: 0xff},
}

// ExportSectionPNG draws one section, blocks and links, into a PNG file.
// The section is laid out off screen, so it need not be the visible one.
func ExportSectionPNG(fs *Flowsheet, side Side, settings Settings, filename string) error {
	layout := NewLayout(fs.Sheet(), 0)
	layout.padding = settings.BlockPadding()
	layout.side = side
	layout.Resize(pngExportColumns, math.MaxInt32/2)
	if len(layout.Blocks()) == 0 {
		return fmt.Errorf("nothing to export")
	}

	layer := NewLayer(side)
	layer.Origin = layout.LayerOrigin(side)
	renderer := NewLinkRenderer(fs.Renderer().Mode)
	drawEdges(renderer, layer, side, fs.Connections().Edges(side), layout)

	imageWidth := int(float64(layout.contentW) * cellWidth)
	imageHeight := int(float64(layout.contentH+1) * cellHeight)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(color.White)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %v", err)
	}
	face := truetype.NewFace(ttfFont, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	dc.SetFontFace(face)

	dc.SetColor(color.Black)
	for _, c := range layout.Columns() {
		dc.DrawString(c.Title, float64(c.X)*cellWidth, cellHeight*0.75)
	}

	// Links first so blocks are drawn over their ends.
	for _, link := range layer.Links() {
		drawLinkPNG(dc, link, layer.Origin)
	}
	for _, b := range layout.Blocks() {
		drawBlockPNG(dc, layout.boxRect(b), b.Lines)
	}
	return dc.SavePNG(filename)
}

func drawLinkPNG(dc *gg.Context, link *Link, origin Point) {
	if len(link.Points) < 2 {
		return
	}
	dc.SetColor(sideColors[link.Side])
	dc.SetLineWidth(link.Width)
	start := ToClient(link.Points[0], origin)
	dc.MoveTo(start.X, start.Y)
	for _, p := range link.Points[1:] {
		c := ToClient(p, origin)
		dc.LineTo(c.X, c.Y)
	}
	dc.Stroke()

	n := len(link.Points)
	drawArrowPNG(dc, ToClient(link.Points[n-2], origin), ToClient(link.Points[n-1], origin))
}

func drawArrowPNG(dc *gg.Context, from, to Point) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Sqrt(dx*dx + dy*dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length

	arrowSize := 8.0
	arrowAngle := 0.5

	dc.MoveTo(to.X, to.Y)
	dc.LineTo(to.X-arrowSize*dx+arrowSize*dy*arrowAngle, to.Y-arrowSize*dy-arrowSize*dx*arrowAngle)
	dc.LineTo(to.X-arrowSize*dx-arrowSize*dy*arrowAngle, to.Y-arrowSize*dy+arrowSize*dx*arrowAngle)
	dc.ClosePath()
	dc.Fill()
}

func drawBlockPNG(dc *gg.Context, r Rect, lines []string) {
	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(r.X+1, r.Y+1, r.W-2, r.H-2, 4)
	dc.Fill()
	dc.SetLineWidth(1.0)
	dc.SetColor(color.Gray{Y: 0x80})
	dc.DrawRoundedRectangle(r.X+1, r.Y+1, r.W-2, r.H-2, 4)
	dc.Stroke()

	dc.SetColor(color.Black)
	for i, line := range lines {
		dc.DrawString(line, r.X+cellWidth, r.Y+cellHeight*(float64(i)+1.75))
	}
}
