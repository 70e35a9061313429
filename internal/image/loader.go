// Package image provides utilities for loading, validating and decoding
// uploaded images.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/edwvee/exiffix"
	_ "golang.org/x/image/bmp"  // Register BMP format
	_ "golang.org/x/image/tiff" // Register TIFF format
	_ "golang.org/x/image/webp" // Register WebP format

	"github.com/jmylchreest/picpalette/internal/geometry"
)

// MaxFileSize is the default upload ceiling (10 MiB).
const MaxFileSize int64 = 10 * 1024 * 1024

// sniffLen is how many bytes http.DetectContentType looks at.
const sniffLen = 512

var (
	// ErrInvalidInput is returned for uploads that are not images or are too large.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDecodeFailure is returned when the bytes cannot be decoded to a bitmap.
	ErrDecodeFailure = errors.New("failed to decode image")
)

// Upload is a candidate image waiting to be validated and read.
type Upload struct {
	Name string
	MIME string
	Size int64

	open func() (io.ReadCloser, error)
}

// FromPath describes the file at path. The MIME type is sniffed from the
// first bytes of the file, falling back to the extension.
func FromPath(path string) (*Upload, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: image path cannot be empty", ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: image file not found: %s", ErrInvalidInput, path)
		}
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: path is a directory, not a file: %s", ErrInvalidInput, path)
	}

	open := func() (io.ReadCloser, error) {
		return os.Open(path) // #nosec G304 - User-specified image path, intended to be read
	}

	head, err := readHead(open)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return &Upload{
		Name: filepath.Base(path),
		MIME: DetectMIME(path, head),
		Size: info.Size(),
		open: open,
	}, nil
}

// FromBytes wraps in-memory data. An empty mimeType is sniffed.
func FromBytes(name, mimeType string, data []byte) *Upload {
	if mimeType == "" {
		mimeType = DetectMIME(name, data)
	}

	return &Upload{
		Name: name,
		MIME: mimeType,
		Size: int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Validate rejects non-image MIME types and uploads larger than maxSize.
// A non-positive maxSize means MaxFileSize.
func (u *Upload) Validate(maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}

	if !strings.HasPrefix(u.MIME, "image/") {
		return fmt.Errorf("%w: %s is not an image (%s)", ErrInvalidInput, u.Name, u.MIME)
	}

	if u.Size > maxSize {
		return fmt.Errorf("%w: %s is %s, limit is %s", ErrInvalidInput, u.Name, humanSize(u.Size), humanSize(maxSize))
	}

	return nil
}

// Read loads the whole upload into memory.
func (u *Upload) Read() ([]byte, error) {
	rc, err := u.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", u.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u.Name, err)
	}
	return data, nil
}

// Decode decodes data into a bitmap with EXIF orientation applied.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := exiffix.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", fmt.Errorf("%w: image has no pixels", ErrDecodeFailure)
	}

	return img, format, nil
}

// Load reads, validates and decodes the file at path in one call.
func Load(path string, maxSize int64) (image.Image, error) {
	upload, err := FromPath(path)
	if err != nil {
		return nil, err
	}
	if err := upload.Validate(maxSize); err != nil {
		return nil, err
	}

	data, err := upload.Read()
	if err != nil {
		return nil, err
	}

	img, _, err := Decode(data)
	return img, err
}

// Dimensions returns the natural size of img.
func Dimensions(img image.Image) geometry.Size {
	b := img.Bounds()
	return geometry.Size{W: b.Dx(), H: b.Dy()}
}

// DetectMIME sniffs head and falls back to the extension of name when the
// content is not recognised.
func DetectMIME(name string, head []byte) string {
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	sniffed := http.DetectContentType(head)
	if sniffed != "application/octet-stream" {
		return stripParams(sniffed)
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return stripParams(byExt)
	}
	return sniffed
}

func readHead(open func() (io.ReadCloser, error)) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func stripParams(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		return strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
