// Package compositor renders output frames: the zoomed source frame on a
// black canvas with the active caption burned in on top.
package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"captionburn/models"
)

const (
	// Background box padding around the measured text, in output pixels.
	DefaultPaddingX = 12
	DefaultPaddingY = 4

	lineHeightFactor = 1.2
)

// Config describes one export's rendering parameters.
type Config struct {
	Geometry models.Geometry
	Style    models.ScaledStyle
	Zoom     float64
	Fonts    *FontCache // nil uses DefaultFonts
	PaddingX int        // 0 uses DefaultPaddingX
	PaddingY int        // 0 uses DefaultPaddingY
}

// Compositor renders frames for a single export. It keeps scratch buffers
// between frames and must not be shared across goroutines.
type Compositor struct {
	geom   models.Geometry
	zoom   float64
	face   font.Face
	ascent fixed.Int26_6
	descnt fixed.Int26_6

	maxWidth   fixed.Int26_6
	lineHeight float64
	baseline   float64
	padX, padY int

	fill       *image.Uniform
	outline    *image.Uniform
	background *image.Uniform
	kernel     []kernelTap
	margin     int

	black  *image.Uniform
	hidden bool

	// last wrapped caption, keyed by text
	lastText  string
	lastLines []string

	maskBuf    []uint8
	dilatedBuf []uint8
}

// New validates the config and prepares the font face.
func New(cfg Config) (*Compositor, error) {
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(cfg.Zoom) || math.IsInf(cfg.Zoom, 0) || cfg.Zoom < 1 {
		return nil, fmt.Errorf("zoom must be at least 1, got %v", cfg.Zoom)
	}
	if err := cfg.Style.Validate(); err != nil {
		return nil, fmt.Errorf("invalid style: %w", err)
	}

	fonts := cfg.Fonts
	if fonts == nil {
		fonts = DefaultFonts
	}
	face, err := fonts.Face(cfg.Style.FontFamily, cfg.Style.FontFile, cfg.Style.FontSize)
	if err != nil {
		return nil, err
	}

	padX, padY := cfg.PaddingX, cfg.PaddingY
	if padX == 0 {
		padX = DefaultPaddingX
	}
	if padY == 0 {
		padY = DefaultPaddingY
	}

	st := cfg.Style
	metrics := face.Metrics()
	c := &Compositor{
		geom:       cfg.Geometry,
		zoom:       cfg.Zoom,
		face:       face,
		ascent:     metrics.Ascent,
		descnt:     metrics.Descent,
		maxWidth:   fixed.Int26_6(float64(cfg.Geometry.Width) * wrapRatio * 64),
		lineHeight: st.FontSize * lineHeightFactor,
		baseline:   float64(cfg.Geometry.Height) * (1 - st.BottomOffsetPercent/100),
		padX:       padX,
		padY:       padY,
		fill:       image.NewUniform(st.Color.WithOpacity(st.Opacity).NRGBA()),
		black:      image.NewUniform(color.RGBA{A: 0xff}),
		hidden:     st.Opacity == 0,
	}

	if st.OutlineWidth > 0 && !st.OutlineColor.WithOpacity(st.Opacity).IsTransparent() {
		radius := st.OutlineWidth / 2
		c.outline = image.NewUniform(st.OutlineColor.WithOpacity(st.Opacity).NRGBA())
		c.kernel = diskKernel(radius)
		c.margin = int(math.Ceil(radius)) + 1
	}
	if bg := st.BackgroundColor.WithOpacity(st.Opacity); !bg.IsTransparent() {
		c.background = image.NewUniform(bg.NRGBA())
	}

	return c, nil
}

// Geometry returns the output raster size.
func (c *Compositor) Geometry() models.Geometry {
	return c.geom
}

// Render composites into a newly allocated raster.
func (c *Compositor) Render(src image.Image, caption *models.Caption) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, c.geom.Width, c.geom.Height))
	c.renderInto(dst, src, caption)
	return dst
}

// RenderInto composites into dst, which must match the output geometry.
// A nil src leaves the canvas black; a nil caption draws no overlay.
func (c *Compositor) RenderInto(dst *image.RGBA, src image.Image, caption *models.Caption) error {
	if dst.Rect.Dx() != c.geom.Width || dst.Rect.Dy() != c.geom.Height {
		return fmt.Errorf("destination %dx%d does not match geometry %s", dst.Rect.Dx(), dst.Rect.Dy(), c.geom)
	}
	c.renderInto(dst, src, caption)
	return nil
}

// renderInto assumes dst has the output geometry.
func (c *Compositor) renderInto(dst *image.RGBA, src image.Image, caption *models.Caption) {
	draw.Draw(dst, dst.Rect, c.black, image.Point{}, draw.Src)

	if src != nil && !src.Bounds().Empty() {
		c.drawFrame(dst, src)
	}
	if caption != nil && !c.hidden {
		c.drawCaption(dst, caption.Text)
	}
}

// drawFrame stretches src over the canvas and magnifies it by the zoom
// factor about the canvas centre.
func (c *Compositor) drawFrame(dst *image.RGBA, src image.Image) {
	sb := src.Bounds()
	w, h := float64(c.geom.Width), float64(c.geom.Height)

	if c.zoom == 1 && sb.Dx() == c.geom.Width && sb.Dy() == c.geom.Height {
		draw.Draw(dst, dst.Rect, src, sb.Min, draw.Over)
		return
	}

	kx := w / float64(sb.Dx())
	ky := h / float64(sb.Dy())
	z := c.zoom
	s2d := f64.Aff3{
		z * kx, 0, (1-z)*w/2 - z*kx*float64(sb.Min.X),
		0, z * ky, (1-z)*h/2 - z*ky*float64(sb.Min.Y),
	}
	xdraw.ApproxBiLinear.Transform(dst, s2d, src, sb, xdraw.Over, nil)
}

func (c *Compositor) wrap(text string) []string {
	if text == c.lastText && c.lastLines != nil {
		return c.lastLines
	}
	lines := wrapText(text, c.maxWidth, faceMeasure(c.face))
	c.lastText, c.lastLines = text, lines
	return lines
}

// drawCaption lays lines out bottom-up from the baseline and paints each one
// as background box, then outline, then fill.
func (c *Compositor) drawCaption(dst *image.RGBA, text string) {
	lines := c.wrap(text)
	if len(lines) == 0 {
		return
	}

	n := len(lines)
	for i, line := range lines {
		y := c.baseline - float64(n-1-i)*c.lineHeight
		if line == "" {
			continue
		}
		c.drawLine(dst, line, fixed.Int26_6(math.Round(y*64)))
	}
}

func (c *Compositor) drawLine(dst *image.RGBA, line string, baseline fixed.Int26_6) {
	width := font.MeasureString(c.face, line)
	x := (fixed.I(c.geom.Width) - width) / 2

	if c.background != nil {
		box := image.Rect(
			x.Floor()-c.padX,
			(baseline - c.ascent).Floor()-c.padY,
			(x + width).Ceil()+c.padX,
			(baseline + c.descnt).Ceil()+c.padY,
		)
		draw.Draw(dst, box.Intersect(dst.Rect), c.background, image.Point{}, draw.Over)
	}

	region := image.Rect(
		x.Floor()-c.margin,
		(baseline - c.ascent).Floor()-c.margin,
		(x + width).Ceil()+c.margin,
		(baseline + c.descnt).Ceil()+c.margin,
	)
	if region.Intersect(dst.Rect).Empty() {
		return
	}

	mask := c.scratch(&c.maskBuf, region)
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: c.face,
		Dot:  fixed.Point26_6{X: x, Y: baseline},
	}
	d.DrawString(line)

	if c.outline != nil {
		dilated := c.scratch(&c.dilatedBuf, region)
		dilate(dilated, mask, c.kernel)
		draw.DrawMask(dst, region, c.outline, image.Point{}, dilated, region.Min, draw.Over)
	}
	draw.DrawMask(dst, region, c.fill, image.Point{}, mask, region.Min, draw.Over)
}

// scratch returns a zeroed alpha mask over r backed by a reusable buffer.
func (c *Compositor) scratch(buf *[]uint8, r image.Rectangle) *image.Alpha {
	size := r.Dx() * r.Dy()
	if cap(*buf) < size {
		*buf = make([]uint8, size)
	}
	pix := (*buf)[:size]
	for i := range pix {
		pix[i] = 0
	}
	return &image.Alpha{Pix: pix, Stride: r.Dx(), Rect: r}
}

// Close releases the font face.
func (c *Compositor) Close() error {
	if c.face != nil {
		return c.face.Close()
	}
	return nil
}
