package artifact

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultTargetWidth is the width previews are scaled to.
	DefaultTargetWidth = 500
	// DefaultJPEGQuality is the encoder quality used for previews.
	DefaultJPEGQuality = 70

	// DataURIPrefix starts every rendered preview.
	DataURIPrefix = "data:image/jpeg;base64,"
)

// ErrNotImage is returned when an artifact cannot be decoded as an image.
var ErrNotImage = errors.New("artifact is not a decodable image")

// Renderer turns stored image bytes into a JPEG data URI.
type Renderer struct {
	Width   int
	Quality int
}

// NewRenderer returns a Renderer, replacing non-positive settings with the
// defaults.
func NewRenderer(width, quality int) Renderer {
	if width <= 0 {
		width = DefaultTargetWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return Renderer{Width: width, Quality: quality}
}

// Render decodes data, drops alpha, scales to the target width and returns
// the JPEG as a data URI.
func (r Renderer) Render(data []byte) (string, error) {
	jpg, err := r.Transcode(data)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(jpg), nil
}

// Transcode is Render without the base64 step.
func (r Renderer) Transcode(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrNotImage, b)
	}

	rgb := dropAlpha(src)
	width := r.Width
	height := ScaledHeight(b.Dx(), b.Dy(), width)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), rgb, rgb.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: r.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// ScaledHeight keeps the aspect ratio of a w×h image scaled to width.
func ScaledHeight(w, h, width int) int {
	height := int(math.Round(float64(h) * float64(width) / float64(w)))
	if height < 1 {
		return 1
	}
	return height
}

// dropAlpha keeps the color channels of every pixel and makes it opaque.
func dropAlpha(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}
