package imageprocessor

import (
	"path/filepath"
	"sort"
	"strings"
)

// FormatType represents a known image format type
type FormatType string

// Known image format constants
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatGIF     FormatType = "gif"
	FormatBMP     FormatType = "bmp"
	FormatTIFF    FormatType = "tiff"
	FormatWEBP    FormatType = "webp"
	FormatJP2     FormatType = "jp2"
	FormatPNM     FormatType = "pnm"
	FormatEXR     FormatType = "exr"
	FormatHDR     FormatType = "hdr"
	FormatRAS     FormatType = "ras"
)

// Map of extensions to format types
var formatExtensions = map[string]FormatType{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".jpe":  FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".webp": FormatWEBP,

	// Only OpenCV can decode these
	".jp2": FormatJP2,
	".pbm": FormatPNM,
	".pgm": FormatPNM,
	".ppm": FormatPNM,
	".pnm": FormatPNM,
	".exr": FormatEXR,
	".hdr": FormatHDR,
	".pic": FormatHDR,
	".sr":  FormatRAS,
	".ras": FormatRAS,
}

// IsImageFile checks if a file is a supported image based on extension
func IsImageFile(name string) bool {
	return GetFileFormat(name) != FormatUnknown
}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(name string) FormatType {
	ext := strings.ToLower(filepath.Ext(name))
	format, exists := formatExtensions[ext]
	if !exists {
		return FormatUnknown
	}
	return format
}

// IsNativeFormat reports whether the Go codecs handle the format
func IsNativeFormat(format FormatType) bool {
	switch format {
	case FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF, FormatWEBP:
		return true
	default:
		return false
	}
}

// GetSupportedExtensions returns all supported image file extensions, sorted
func GetSupportedExtensions() []string {
	extensions := make([]string, 0, len(formatExtensions))
	for ext := range formatExtensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// ContentType returns the MIME type for a file name's format
func ContentType(name string) string {
	switch GetFileFormat(name) {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatWEBP:
		return "image/webp"
	case FormatJP2:
		return "image/jp2"
	default:
		return "application/octet-stream"
	}
}
