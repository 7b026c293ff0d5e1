package normalizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	apperrors "go-ingredient-analyzer/internal/errors"
	"go-ingredient-analyzer/internal/logger"
)

const (
	DefaultMaxDimension = 1024
	DefaultMaxFileSize  = 10 * 1024 * 1024 // 10MiB
	DefaultMaxPixels    = 50_000_000
	DefaultJPEGQuality  = 90

	// OutputMediaType is the media type of every normalized payload.
	OutputMediaType = "image/jpeg"
)

// File is an uploaded image as received from the client.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Reader    io.Reader
}

// Payload is the bounded, re-encoded image ready to be embedded in a JSON body.
type Payload struct {
	MediaType string
	Data      []byte
	Width     int
	Height    int
}

// DataURI renders the payload as a self-describing embedded image.
func (p *Payload) DataURI() string {
	return "data:" + p.MediaType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Options configures normalization bounds. Zero values take the defaults.
type Options struct {
	MaxDimension int
	MaxFileSize  int64
	// MaxPixels bounds width*height as read from the image header.
	MaxPixels   int64
	JPEGQuality int
}

// ImageNormalizer validates uploads and re-encodes them to a bounded JPEG.
type ImageNormalizer interface {
	Normalize(ctx context.Context, file File) (*Payload, error)
}

type imageNormalizer struct {
	maxDimension int
	maxFileSize  int64
	maxPixels    int64
	quality      int
}

// NewImageNormalizer creates a normalizer with the given bounds
func NewImageNormalizer(opts Options) ImageNormalizer {
	n := &imageNormalizer{
		maxDimension: opts.MaxDimension,
		maxFileSize:  opts.MaxFileSize,
		maxPixels:    opts.MaxPixels,
		quality:      opts.JPEGQuality,
	}
	if n.maxDimension <= 0 {
		n.maxDimension = DefaultMaxDimension
	}
	if n.maxFileSize <= 0 {
		n.maxFileSize = DefaultMaxFileSize
	}
	if n.maxPixels <= 0 {
		n.maxPixels = DefaultMaxPixels
	}
	if n.quality <= 0 || n.quality > 100 {
		n.quality = DefaultJPEGQuality
	}
	return n
}

func (n *imageNormalizer) Normalize(ctx context.Context, file File) (*Payload, error) {
	if file.Reader == nil {
		return nil, apperrors.NewValidationError("No image file was provided", nil)
	}

	declared := normalizeMediaType(file.MediaType)
	if declared != "" && declared != "application/octet-stream" && !isImageType(declared) {
		return nil, apperrors.NewUnsupportedTypeError(
			"Please upload an image file (JPG, PNG and similar formats are supported)", nil).
			WithDetails("declared media type %q", file.MediaType)
	}
	if file.Size > n.maxFileSize {
		return nil, n.tooLarge(file.Size)
	}

	raw, err := n.readBounded(file.Reader)
	if err != nil {
		return nil, err
	}

	if !isImageType(declared) {
		sniffed := mimetype.Detect(raw)
		if !isImageType(sniffed.String()) {
			return nil, apperrors.NewUnsupportedTypeError(
				"Please upload an image file (JPG, PNG and similar formats are supported)", nil).
				WithDetails("detected media type %q", sniffed.String())
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewProcessingError("Image processing was cancelled", err)
	}

	if err := n.checkPixels(raw); err != nil {
		return nil, err
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.NewProcessingError("Image processing failed, please try again", err)
	}

	if format == "jpeg" {
		if orientation := readOrientation(raw); orientation != 1 {
			src = applyOrientation(src, orientation)
		}
	}

	bounds := src.Bounds()
	width, height := TargetSize(bounds.Dx(), bounds.Dy(), n.maxDimension)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	// Opaque white background so transparent sources do not turn black in JPEG.
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: n.quality}); err != nil {
		return nil, apperrors.NewProcessingError("Image processing failed, please try again", err)
	}

	logger.WithFields(logrus.Fields{
		"file":            file.Name,
		"source_format":   format,
		"source_bytes":    len(raw),
		"source_width":    bounds.Dx(),
		"source_height":   bounds.Dy(),
		"width":           width,
		"height":          height,
		"normalized_size": buf.Len(),
	}).Debug("Image normalized")

	return &Payload{
		MediaType: OutputMediaType,
		Data:      buf.Bytes(),
		Width:     width,
		Height:    height,
	}, nil
}

// readBounded reads at most maxFileSize bytes and fails if the stream is longer,
// since a declared size cannot be trusted.
func (n *imageNormalizer) readBounded(r io.Reader) ([]byte, error) {
	limited := &io.LimitedReader{R: r, N: n.maxFileSize + 1}
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, apperrors.NewProcessingError("Image processing failed, please try again", err)
	}
	if int64(len(raw)) > n.maxFileSize {
		return nil, n.tooLarge(int64(len(raw)))
	}
	if len(raw) == 0 {
		return nil, apperrors.NewValidationError("The uploaded image is empty", nil)
	}
	return raw, nil
}

// checkPixels reads only the image header and rejects sources whose decoded
// buffer would exceed the pixel budget.
func (n *imageNormalizer) checkPixels(raw []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return apperrors.NewProcessingError("Image processing failed, please try again", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return apperrors.NewProcessingError("Image processing failed, please try again", nil).
			WithDetails("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > n.maxPixels {
		return apperrors.NewTooLargeError("Image dimensions are too large", nil).
			WithDetails("%dx%d exceeds limit of %d pixels", cfg.Width, cfg.Height, n.maxPixels)
	}
	return nil
}

func (n *imageNormalizer) tooLarge(size int64) *apperrors.AppError {
	return apperrors.NewTooLargeError(
		fmt.Sprintf("Image size must not exceed %dMB", n.maxFileSize/(1024*1024)), nil).
		WithDetails("file size %d bytes exceeds limit of %d bytes", size, n.maxFileSize)
}

// TargetSize clamps the longer edge to maxDimension and scales the shorter edge
// proportionally. Dimensions already within bounds are returned unchanged.
func TargetSize(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width > height {
		h := int(math.Round(float64(height) * float64(maxDimension) / float64(width)))
		return maxDimension, max(h, 1)
	}
	w := int(math.Round(float64(width) * float64(maxDimension) / float64(height)))
	return max(w, 1), maxDimension
}

func normalizeMediaType(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

func isImageType(mediaType string) bool {
	return strings.HasPrefix(normalizeMediaType(mediaType), "image/")
}
