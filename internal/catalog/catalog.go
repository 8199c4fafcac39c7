// Package catalog holds the static set of sandbox images offered to users.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Image describes one offered sandbox image.
type Image struct {
	// Engine image reference, e.g. "ubuntu-sandbox:22.04"
	Ref string `json:"ref"`

	DisplayName string `json:"display_name"`
	Description string `json:"description"`

	// Declared resource labels shown to users; the actual caps come from
	// config, these are display metadata.
	RAM string `json:"ram"`
	CPU string `json:"cpu"`
}

// Catalog is an immutable mapping from image key to image metadata,
// loaded once at startup.
type Catalog struct {
	images map[string]Image
}

// Default returns the built-in catalog used when no catalog file is
// configured.
func Default() *Catalog {
	return &Catalog{images: map[string]Image{
		"ubuntu-22": {
			Ref:         "ubuntu-sandbox:22.04",
			DisplayName: "Ubuntu 22.04",
			Description: "Ubuntu 22.04 with common development tools",
			RAM:         "8GB",
			CPU:         "4 cores",
		},
	}}
}

// LoadFile reads a catalog from a JSON file mapping key to image metadata.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var images map[string]Image
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no images", path)
	}

	for key, img := range images {
		if img.Ref == "" {
			return nil, fmt.Errorf("catalog entry %q has no image ref", key)
		}
	}

	return &Catalog{images: images}, nil
}

// Get returns the image for the given key.
func (c *Catalog) Get(key string) (Image, bool) {
	img, ok := c.images[key]
	return img, ok
}

// Keys returns all image keys in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.images))
	for k := range c.images {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of offered images.
func (c *Catalog) Len() int {
	return len(c.images)
}
