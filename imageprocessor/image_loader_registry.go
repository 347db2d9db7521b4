package imageprocessor

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"lostfound/logging"
)

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders        map[string]ImageLoader
	defaultLoader  ImageLoader
	fallbackLoader ImageLoader
	mutex          sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the Go codecs and the
// OpenCV fallback registered
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	openCVLoader := NewOpenCVImageLoader()

	for ext, format := range formatExtensions {
		if IsNativeFormat(format) {
			registry.RegisterLoader(ext, standardLoader)
		} else {
			registry.RegisterLoader(ext, openCVLoader)
		}
	}

	registry.defaultLoader = standardLoader
	registry.fallbackLoader = openCVLoader

	return registry
}

// NewStandardLoaderRegistry creates a registry that only uses the Go codecs
func NewStandardLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	for ext, format := range formatExtensions {
		if IsNativeFormat(format) {
			registry.RegisterLoader(ext, standardLoader)
		}
	}
	registry.defaultLoader = standardLoader

	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the appropriate loader for the given name
func (r *ImageLoaderRegistry) GetLoader(name string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(name))
	if loader, ok := r.loaders[ext]; ok {
		return loader
	}

	return r.defaultLoader
}

// LoadImage decodes image bytes with the loader registered for the name's
// extension, retrying with the fallback loader when that fails. The result
// is rejected when it has a zero-length side.
func (r *ImageLoaderRegistry) LoadImage(name string, data []byte) (image.Image, error) {
	loader := r.GetLoader(name)
	if loader == nil {
		return nil, newDecodeError(name, fmt.Errorf("no suitable loader found"))
	}

	img, err := loader.LoadImage(name, data)
	if err != nil {
		r.mutex.RLock()
		fallback := r.fallbackLoader
		r.mutex.RUnlock()

		if fallback == nil || fallback == loader {
			return nil, err
		}

		logging.DebugLog("Loader failed for %s (%v), trying fallback loader", name, err)
		fallbackImg, fallbackErr := fallback.LoadImage(name, data)
		if fallbackErr != nil {
			return nil, err
		}
		img = fallbackImg
	}

	if err := CheckDimensions(name, img); err != nil {
		return nil, err
	}
	return img, nil
}
