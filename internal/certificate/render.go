package certificate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // template backgrounds may be JPEG
	_ "image/png"  // template backgrounds are usually PNG
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Canvas geometry in pixels.
const (
	CanvasWidth  = 1056
	CanvasHeight = 816

	nameTop   = 430
	topicX    = 250
	topicTop  = 680
	nameSize  = 40
	topicSize = 20
	fontDPI   = 96
)

// medalRect is where the medal artwork is scaled into.
var medalRect = image.Rect(460, 240, 460+120, 240+120)

var (
	inkColor    = color.Black
	paperColor  = color.RGBA{R: 0xfd, G: 0xf6, B: 0xe3, A: 0xff}
	borderColor = color.RGBA{R: 0xb5, G: 0x89, B: 0x00, A: 0xff}
)

// Renderer draws certificates onto a fixed background. Parsed fonts are
// shared; faces are created per render because a font.Face is not safe for
// concurrent use.
type Renderer struct {
	background image.Image
	nameFont   *opentype.Font
	topicFont  *opentype.Font
}

// NewRenderer loads the background template at templatePath. An empty path
// uses a generated plain background.
func NewRenderer(templatePath string) (*Renderer, error) {
	background, err := loadBackground(templatePath)
	if err != nil {
		return nil, err
	}
	nameFont, err := opentype.Parse(gobolditalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse name font: %w", err)
	}
	topicFont, err := opentype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse topic font: %w", err)
	}
	return &Renderer{background: background, nameFont: nameFont, topicFont: topicFont}, nil
}

func loadBackground(path string) (image.Image, error) {
	if path == "" {
		return plainBackground(), nil
	}
	f, err := os.Open(path) // #nosec G304 -- operator-configured template path.
	if err != nil {
		return nil, fmt.Errorf("open certificate template: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode certificate template: %w", err)
	}
	return img, nil
}

func plainBackground() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(borderColor), image.Point{}, draw.Src)
	draw.Draw(img, img.Bounds().Inset(12), image.NewUniform(paperColor), image.Point{}, draw.Src)
	draw.Draw(img, img.Bounds().Inset(24), image.NewUniform(borderColor), image.Point{}, draw.Src)
	draw.Draw(img, img.Bounds().Inset(28), image.NewUniform(paperColor), image.Point{}, draw.Src)
	return img
}

// Render draws name, topic and medal onto a copy of the background.
func (r *Renderer) Render(name, topic string, medal image.Image) (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	bg := r.background.Bounds()
	if bg.Size() == canvas.Bounds().Size() {
		draw.Draw(canvas, canvas.Bounds(), r.background, bg.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), r.background, bg, xdraw.Src, nil)
	}

	if err := r.drawText(canvas, r.nameFont, nameSize, name, CanvasWidth/2, nameTop); err != nil {
		return nil, fmt.Errorf("draw name: %w", err)
	}
	if err := r.drawText(canvas, r.topicFont, topicSize, topic, topicX, topicTop); err != nil {
		return nil, fmt.Errorf("draw topic: %w", err)
	}
	if medal != nil {
		xdraw.CatmullRom.Scale(canvas, medalRect, medal, medal.Bounds(), xdraw.Over, nil)
	}
	return canvas, nil
}

// drawText draws text horizontally centered on cx with its top edge at top.
func (r *Renderer) drawText(dst draw.Image, f *opentype.Font, size float64, text string, cx, top int) error {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: fontDPI, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("new face: %w", err)
	}
	defer face.Close() //nolint:errcheck // opentype faces never fail to close

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(inkColor), Face: face}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(cx) - width/2,
		Y: fixed.I(top) + face.Metrics().Ascent,
	}
	d.DrawString(text)
	return nil
}
