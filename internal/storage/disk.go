package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk is a Storage backed by a local directory, served publicly under the
// /storage route.
type Disk struct {
	root    string
	baseURL string
}

// NewDisk creates a Disk rooted at dir. baseURL is the server's public base
// URL used to build file links.
func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Disk{root: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root returns the directory the disk serves files from.
func (d *Disk) Root() string { return d.root }

// Save writes content under the disk root. The path is cleaned and must stay
// inside the root.
func (d *Disk) Save(path string, content io.Reader) (string, error) {
	rel, err := d.safePath(path)
	if err != nil {
		return "", err
	}

	full := filepath.Join(d.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("write file: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Delete removes a stored file. A missing file is treated as already deleted.
func (d *Disk) Delete(path string) error {
	rel, err := d.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(d.root, rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// URL returns the public read URL for a stored path.
func (d *Disk) URL(path string) string {
	return d.baseURL + "/storage/" + strings.TrimPrefix(filepath.ToSlash(path), "/")
}

func (d *Disk) safePath(path string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(path))
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid storage path %q", path)
	}
	return rel, nil
}
