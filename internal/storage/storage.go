// Package storage abstracts the blob store that holds uploaded avatars and
// receipt images. Handlers only deal in storage paths; the concrete backend
// decides where bytes live and how they are served.
package storage

import "io"

// Storage stores uploaded files under opaque relative paths.
type Storage interface {
	// Save writes the content to the given relative path, creating parent
	// directories as needed, and returns the stored path.
	Save(path string, content io.Reader) (string, error)
	// Delete removes a stored file. Deleting a missing file is not an error.
	Delete(path string) error
	// URL returns the public read URL for a stored path.
	URL(path string) string
}
