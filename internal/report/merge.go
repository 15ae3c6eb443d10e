package report

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

var ErrNoImages = errors.New("no images to merge")

// MergeVertical stacks the images top to bottom on a white canvas of the given width.
// Each image is centered horizontally; the canvas height is the sum of image heights.
func MergeVertical(paths []string, width int) (*image.NRGBA, error) {
	if len(paths) == 0 {
		return nil, ErrNoImages
	}
	if width <= 0 {
		return nil, fmt.Errorf("canvas width must be positive, got %d", width)
	}

	images := make([]image.Image, 0, len(paths))
	height := 0
	for _, path := range paths {
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open image %s: %w", path, err)
		}
		images = append(images, img)
		height += img.Bounds().Dy()
	}

	canvas := imaging.New(width, height, color.White)
	y := 0
	for _, img := range images {
		x := (width - img.Bounds().Dx()) / 2
		canvas = imaging.Paste(canvas, img, image.Pt(x, y))
		y += img.Bounds().Dy()
	}

	return canvas, nil
}

// MergeToFile merges the images and saves the result as PNG at output
func MergeToFile(paths []string, width int, output string) error {
	canvas, err := MergeVertical(paths, width)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", output, err)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := imaging.Encode(f, canvas, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode %s: %w", output, err)
	}

	return f.Close()
}
