package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// checker is the image used when no input is given.
func checker(w, h, cell int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			if (x/cell+y/cell)%2 == 0 {
				copy(img.Pix[i:], []uint8{0xff, 0x66, 0x66, 0xff})
			} else {
				copy(img.Pix[i:], []uint8{0x66, 0xff, 0x66, 0xff})
			}
		}
	}
	return img
}

// meanAbsDiff compares two images of the same size channel by channel in
// 8-bit units.
func meanAbsDiff(a, b image.Image) (float64, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0, fmt.Errorf("size mismatch: %v vs %v", ab.Size(), bb.Size())
	}
	var sum float64
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			for _, d := range [][2]uint32{{r1, r2}, {g1, g2}, {b1, b2}, {a1, a2}} {
				diff := float64(d[0]>>8) - float64(d[1]>>8)
				if diff < 0 {
					diff = -diff
				}
				sum += diff
			}
		}
	}
	n := ab.Dx() * ab.Dy() * 4
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}
