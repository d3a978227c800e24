package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// WriteManifest writes image.yaml for img under root, creating the image
// directory if needed.
func WriteManifest(root string, img *Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(imageDir(root, img.ID), 0o755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	data, err := yaml.Marshal(newManifest(img))
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(manifestPath(root, img.ID), data, 0o644)
}

// WritePlane stores one plane of little-endian samples at a repository level.
// When compress is set the plane is written zstd-compressed.
func WritePlane(root string, id int64, level, t, c, z int, data []byte, compress bool) error {
	path := planePath(root, id, level, t, c, z)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create level directory: %w", err)
	}
	if !compress {
		return os.WriteFile(path, data, 0o644)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()
	return os.WriteFile(path+".zst", enc.EncodeAll(data, nil), 0o644)
}
