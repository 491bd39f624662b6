package assets

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
)

// blurHashSize is the edge of the thumbnail BlurHash is computed from.
const blurHashSize = 32

// BlurHash returns a 4x3 component placeholder hash of img.
func BlurHash(img image.Image) (string, error) {
	small := img
	if b := img.Bounds(); b.Dx() > blurHashSize || b.Dy() > blurHashSize {
		dst := image.NewRGBA(image.Rect(0, 0, blurHashSize, blurHashSize))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		small = dst
	}
	hash, err := blurhash.Encode(4, 3, small)
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}
