package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidName is returned for identifiers that cannot form a file name.
var ErrInvalidName = errors.New("assets: invalid file name")

// Layout maps catalog identifiers to local asset paths.
//
//	{ImagesDir}/{uuid}.jpg
//	{TexturesDir}/{defindex}/{texture}.png
type Layout struct {
	ImagesDir   string
	TexturesDir string
}

// EnsureDirs creates the image and texture roots.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.ImagesDir, l.TexturesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// ImagePath returns the thumbnail path of the item instance uuid.
func (l Layout) ImagePath(uuid string) (string, error) {
	name, err := fileName(uuid)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.ImagesDir, name+ImageExt), nil
}

// TextureDir returns the per-defindex texture directory.
func (l Layout) TextureDir(defindex int) string {
	return filepath.Join(l.TexturesDir, strconv.Itoa(defindex))
}

// EnsureTextureDir creates the texture directory of defindex on demand.
func (l Layout) EnsureTextureDir(defindex int) (string, error) {
	dir := l.TextureDir(defindex)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// TexturePath returns the texture path of texture under defindex.
func (l Layout) TexturePath(defindex int, texture string) (string, error) {
	name, err := fileName(texture)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.TextureDir(defindex), name+TextureExt), nil
}

// fileName rejects identifiers that would escape their directory.
func fileName(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, id)
	}
	return id, nil
}

// WriteAtomic writes the output of fill to path through a temporary file in
// the same directory, renaming it into place only when fill succeeds.
// Readers never observe a partially written file.
func WriteAtomic(path string, fill func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
