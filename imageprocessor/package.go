// Package imageprocessor decodes catalog and probe images, brings image pairs
// to a common size and scores them with a windowed structural similarity index.
package imageprocessor

import "image"

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the named file
	CanLoad(name string) bool

	// LoadImage decodes the image bytes
	LoadImage(name string, data []byte) (image.Image, error)
}
