package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"gocv.io/x/gocv"
)

var (
	// ErrDecode matches every *DecodeError
	ErrDecode = errors.New("cannot decode image")

	// ErrDegenerateImage is returned for images too small to compare
	ErrDegenerateImage = errors.New("degenerate image")
)

// DecodeError reports bytes that are not a valid image
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func newDecodeError(name string, err error) error {
	return &DecodeError{Name: name, Err: err}
}

// CheckDimensions rejects images with a zero-length side
func CheckDimensions(name string, img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: %s has no pixels", ErrDegenerateImage, name)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: %s is %dx%d", ErrDegenerateImage, name, b.Dx(), b.Dy())
	}
	return nil
}

// MinComparableSide is the smallest width or height the SSIM window fits
const MinComparableSide = ssimWindow

// CheckComparable rejects images that cannot produce a similarity score
// against any other image
func CheckComparable(name string, img image.Image) error {
	if err := CheckDimensions(name, img); err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() < MinComparableSide || b.Dy() < MinComparableSide {
		return fmt.Errorf("%w: %s is %dx%d, need at least %dx%d", ErrDegenerateImage,
			name, b.Dx(), b.Dy(), MinComparableSide, MinComparableSide)
	}
	return nil
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(name string) bool {
	format := GetFileFormat(name)
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return true
		}
	}
	return false
}

// StandardImageLoader decodes the formats Go has codecs for
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatGIF,
				FormatBMP,
				FormatTIFF,
				FormatWEBP,
			},
		},
	}
}

// LoadImage decodes a standard image format
func (l *StandardImageLoader) LoadImage(name string, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newDecodeError(name, err)
	}
	return img, nil
}

// OpenCVImageLoader decodes through OpenCV for formats without a Go codec
type OpenCVImageLoader struct {
	BaseImageLoader
}

// NewOpenCVImageLoader creates a loader backed by gocv
func NewOpenCVImageLoader() *OpenCVImageLoader {
	return &OpenCVImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJP2,
				FormatPNM,
				FormatEXR,
				FormatHDR,
				FormatRAS,
			},
		},
	}
}

// LoadImage decodes the bytes as a 3-channel image and converts it to RGBA
func (l *OpenCVImageLoader) LoadImage(name string, data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, newDecodeError(name, errors.New("empty buffer"))
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, newDecodeError(name, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, newDecodeError(name, errors.New("opencv returned an empty matrix"))
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, newDecodeError(name, err)
	}
	return img, nil
}
