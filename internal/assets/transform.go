// Package assets turns remote catalog images into local thumbnails and
// textures: decoding, resizing, re-encoding and atomic placement on disk.
package assets

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// File extensions of written thumbnails and textures.
const (
	ImageExt   = ".jpg"
	TextureExt = ".png"
)

// ErrEmptyImage is returned when a decoded image has no pixels.
var ErrEmptyImage = errors.New("assets: empty image")

// Transformer re-encodes source images. The zero value is not usable; use
// NewTransformer.
type Transformer struct {
	size    int
	quality int
}

// NewTransformer returns a Transformer producing size x size thumbnails at
// the given JPEG quality. Out-of-range values are clamped.
func NewTransformer(size, quality int) *Transformer {
	if size < 1 {
		size = 256
	}
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &Transformer{size: size, quality: quality}
}

// Size is the thumbnail edge in pixels.
func (t *Transformer) Size() int { return t.size }

// Thumbnail decodes src, scales it to cover a size x size square (center
// crop), encodes it to dst and returns the scaled image.
func (t *Transformer) Thumbnail(dst io.Writer, src io.Reader) (image.Image, error) {
	img, err := decode(src)
	if err != nil {
		return nil, err
	}
	out := coverSquare(img, t.size)
	if err := t.encode(dst, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reencode decodes src and writes it to dst as lossless PNG at its original
// size. The alpha channel is kept.
func (t *Transformer) Reencode(dst io.Writer, src io.Reader) error {
	img, err := decode(src)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(dst, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (t *Transformer) encode(dst io.Writer, img image.Image) error {
	if err := jpeg.Encode(dst, flatten(img), &jpeg.Options{Quality: t.quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

func decode(src io.Reader) (image.Image, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// coverSquare crops the largest centered square of img and scales it to
// size x size.
func coverSquare(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Over, nil)
	return dst
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
