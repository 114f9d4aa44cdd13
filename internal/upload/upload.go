// Package upload stores image files posted with messages.
//
// The filter mirrors classic upload-middleware behaviour: BOTH the file
// extension and the declared content type must name an allowed image format.
// Checking only one is not enough — extensions are free text chosen by the
// client, and so is the Content-Type part header. Neither check inspects the
// bytes; this is a format allowlist, not malware scanning.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/rigelhq/rigel/internal/apperror"
)

// DefaultImageURL is served for posts created without an image.
const DefaultImageURL = "/uploads/no-picture.jpg"

// URLPrefix is where the server mounts the upload directory.
const URLPrefix = "/uploads"

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// Store writes uploaded images to a local directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("upload: creating directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes to (the server serves it
// statically under URLPrefix).
func (s *Store) Dir() string {
	return s.dir
}

// Save validates and persists one uploaded file, returning the URL path the
// image is served under (e.g. "/uploads/cv37rs3pp9olc6atsptg.png").
//
// Validation runs BEFORE anything touches disk, and callers run Save before
// persisting the message — a rejected upload must leave no trace anywhere.
func (s *Store) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", apperror.ValidationFailed("image", "only image files are allowed (jpeg, jpg, png, gif)")
	}

	declared := header.Header.Get("Content-Type")
	// Strip any parameters ("image/png; charset=binary" → "image/png").
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = declared[:i]
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if !allowedContentTypes[declared] {
		return "", apperror.ValidationFailed("image", "only image files are allowed (jpeg, jpg, png, gif)")
	}

	// xid gives unique, time-ordered, URL-safe filenames — no collisions
	// between concurrent uploads, and no client-controlled path segments.
	name := xid.New().String() + ext
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("upload: creating %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("upload: writing %s: %w", path, err)
	}

	return URLPrefix + "/" + name, nil
}
