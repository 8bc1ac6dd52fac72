// Package imageprocessor holds the pure image operations behind the
// upload pipeline: decode once, aspect-preserving downscale, and
// cover-cropped thumbnail derivation.
package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// Preset is one fixed thumbnail output size.
type Preset struct {
	Name   string
	Width  int
	Height int
}

// The three thumbnail presets derived from every processed image.
var (
	PresetThumb  = Preset{Name: "thumb", Width: 150, Height: 150}
	PresetSmall  = Preset{Name: "small", Width: 300, Height: 300}
	PresetMedium = Preset{Name: "medium", Width: 600, Height: 600}

	Presets = []Preset{PresetThumb, PresetSmall, PresetMedium}
)

// ThumbnailQuality is the fixed JPEG quality for thumbnail variants.
const ThumbnailQuality = 80

// Processor re-encodes primaries at a configured quality.
type Processor struct {
	quality int
}

// NewProcessor creates a processor. quality is JPEG quality 1-100.
func NewProcessor(quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Processor{quality: quality}
}

// Decode reads an image and reports its format ("jpeg", "png", "gif").
func Decode(reader io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Normalize downscales img to fit within maxWidth×maxHeight, preserving
// aspect ratio and never upscaling, and re-encodes at the processor's
// quality. When the image already fits, resized is false and data is nil:
// the stored primary stays byte-identical to the upload.
func (p *Processor) Normalize(img image.Image, format string, maxWidth, maxHeight int) (data []byte, width, height int, resized bool, err error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxWidth && h <= maxHeight {
		return nil, w, h, false, nil
	}

	newW, newH := fitWithin(w, h, maxWidth, maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

	encoded, err := encode(dst, format, p.quality)
	if err != nil {
		return nil, 0, 0, false, err
	}
	return encoded, newW, newH, true, nil
}

// Thumbnail derives a cover-cropped variant: the source is scaled to fill
// the preset box completely, cropping overflow, never letterboxing. Each
// call is a pure function of (decoded image, preset); nothing is shared
// between thumbnail derivations.
func Thumbnail(img image.Image, format string, preset Preset) ([]byte, error) {
	src := coverRect(img.Bounds(), preset.Width, preset.Height)

	dst := image.NewRGBA(image.Rect(0, 0, preset.Width, preset.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)

	return encode(dst, format, ThumbnailQuality)
}

// Dimensions returns the pixel size of an encoded image without a full
// decode.
func Dimensions(reader io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// fitWithin computes the largest size within maxW×maxH keeping aspect.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	ratio := float64(w) / float64(h)

	newW, newH := maxW, maxH
	if float64(maxW)/float64(maxH) > ratio {
		newW = int(float64(maxH) * ratio)
	} else {
		newH = int(float64(maxW) / ratio)
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return newW, newH
}

// coverRect picks the centered sub-rectangle of src with the target's
// aspect ratio.
func coverRect(src image.Rectangle, targetW, targetH int) image.Rectangle {
	w, h := src.Dx(), src.Dy()

	cropW, cropH := w, h
	if float64(w)/float64(h) > float64(targetW)/float64(targetH) {
		cropW = h * targetW / targetH
	} else {
		cropH = w * targetH / targetW
	}

	x0 := src.Min.X + (w-cropW)/2
	y0 := src.Min.Y + (h-cropH)/2
	return image.Rect(x0, y0, x0+cropW, y0+cropH)
}

// encode writes img in its source format, so the stored bytes keep
// matching the record's content type and extension. GIF output is a
// single static frame; animated output is out of scope.
func encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("failed to encode GIF: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}
	return buf.Bytes(), nil
}
