// Package imaging normalises uploaded catalog photos before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

var (
	// ErrNotImage is returned when the data is not an image at all.
	ErrNotImage = errors.New("not an image")
	// ErrUnsupported is returned for images Process cannot re-encode.
	// Callers may store those unchanged.
	ErrUnsupported = errors.New("unsupported image format")
)

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Options control how an upload is re-encoded.
type Options struct {
	// MaxDimension bounds the longer side of the output.
	MaxDimension int
	// JPEGQuality is the compression quality for JPEG output.
	JPEGQuality int
	// KeepTransparency keeps PNGs with an alpha channel as PNG.
	// Otherwise transparent areas are flattened onto white.
	KeepTransparency bool
}

// DefaultOptions suit product photos shown in the admin grid and on the site.
var DefaultOptions = Options{
	MaxDimension:     1600,
	JPEGQuality:      85,
	KeepTransparency: true,
}

// Result is a processed image ready for upload.
type Result struct {
	Data   []byte
	MIME   string
	Ext    string
	Width  int
	Height int
}

// Process sniffs the upload (client headers are not trusted), downscales it
// to fit opts.MaxDimension and re-encodes it. Output is JPEG, except for
// transparent PNGs when opts.KeepTransparency is set.
func Process(r io.Reader, opts Options) (*Result, error) {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultOptions.MaxDimension
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultOptions.JPEGQuality
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	detected := Sniff(data)
	if !strings.HasPrefix(detected, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, detected)
	}
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s (only JPEG and PNG are re-encoded)", ErrUnsupported, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, opts.MaxDimension)
	bounds := img.Bounds()

	var buf bytes.Buffer
	result := &Result{Width: bounds.Dx(), Height: bounds.Dy()}

	if detected == "image/png" && opts.KeepTransparency && hasAlpha(img) {
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding PNG: %w", err)
		}
		result.MIME, result.Ext = "image/png", "png"
	} else {
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
			return nil, fmt.Errorf("encoding JPEG: %w", err)
		}
		result.MIME, result.Ext = "image/jpeg", "jpg"
	}

	result.Data = buf.Bytes()
	return result, nil
}

// Sniff returns the MIME type detected from the data itself.
func Sniff(data []byte) string {
	return http.DetectContentType(data)
}

// downscale resizes the image so neither dimension exceeds maxDim, keeping
// the aspect ratio. Images already within bounds are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// hasAlpha reports whether any pixel is not fully opaque.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// flatten composites img over a white background.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
