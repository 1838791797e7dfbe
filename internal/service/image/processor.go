package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxWidth     = 2048
	defaultMaxSizeBytes = 10 * 1024 * 1024
	defaultQuality      = 90
	defaultMaxPixels    = 40_000_000
	minWidth            = 320
)

var ErrUnsupportedImage = errors.New("unsupported image")

type ProcessedImage struct {
	Data      []byte
	Width     int
	Height    int
	SizeBytes int
	MimeType  string
}

// DataURL возвращает изображение в виде data URL.
func (p ProcessedImage) DataURL() string { return EncodeDataURL(p.MimeType, p.Data) }

// Processor проверяет загруженное фото и при необходимости уменьшает его.
type Processor struct {
	maxWidth    int
	maxSizeByte int
	quality     int
	maxPixels   int64
}

// NewProcessor создаёт процессор. maxPixels ограничивает ширину*высоту до полного декодирования.
func NewProcessor(maxWidth int, maxSizeBytes int, quality int, maxPixels int64) *Processor {
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}
	if maxSizeBytes <= 0 {
		maxSizeBytes = defaultMaxSizeBytes
	}
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	return &Processor{
		maxWidth:    maxWidth,
		maxSizeByte: maxSizeBytes,
		quality:     quality,
		maxPixels:   maxPixels,
	}
}

// Process принимает сырые байты файла. Фото в пределах лимитов отдаётся без перекодирования,
// остальные уменьшаются и сохраняются в JPEG.
func (p *Processor) Process(data []byte) (ProcessedImage, error) {
	if len(data) == 0 {
		return ProcessedImage{}, fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ProcessedImage{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return ProcessedImage{}, fmt.Errorf("%w: invalid image size %dx%d", ErrUnsupportedImage, cfg.Width, cfg.Height)
	}
	// размеры берутся из заголовка, маленький файл может объявить гигантский кадр
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return ProcessedImage{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height, p.maxPixels)
	}

	if cfg.Width <= p.maxWidth && len(data) <= p.maxSizeByte {
		return ProcessedImage{
			Data:      data,
			Width:     cfg.Width,
			Height:    cfg.Height,
			SizeBytes: len(data),
			MimeType:  "image/" + format,
		}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ProcessedImage{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	origWidth, origHeight := cfg.Width, cfg.Height

	resizedWidth := min(origWidth, p.maxWidth)
	resizedHeight := max(1, origHeight*resizedWidth/origWidth)

	var encoded []byte
	for {
		encoded, err = encodeJPEG(resize(img, resizedWidth, resizedHeight), p.quality)
		if err != nil {
			return ProcessedImage{}, err
		}

		if len(encoded) <= p.maxSizeByte {
			break
		}

		if resizedWidth <= minWidth {
			return ProcessedImage{}, fmt.Errorf("image exceeds max size %d bytes even after downscale", p.maxSizeByte)
		}

		resizedWidth = max(1, int(float64(resizedWidth)*0.9))
		resizedHeight = max(1, origHeight*resizedWidth/origWidth)
	}

	return ProcessedImage{
		Data:      encoded,
		Width:     resizedWidth,
		Height:    resizedHeight,
		SizeBytes: len(encoded),
		MimeType:  "image/jpeg",
	}, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resize(src image.Image, width int, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(1, width), max(1, height)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
