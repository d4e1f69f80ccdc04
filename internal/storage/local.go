package storage

import (
	"errors"         // Sentinel errors
	"fmt"            // Formatting
	"io"             // Stream copy
	"mime/multipart" // Uploaded file headers
	"os"             // Filesystem access
	"path/filepath"  // Path manipulation
	"strings"        // Filename checks
	"time"           // Unique name generation

	"github.com/sirupsen/logrus" // Logging library
)

// ErrUnsafeFilename rejects names that could escape the media root
var ErrUnsafeFilename = errors.New("unsafe filename")

// now is swapped out in tests to force same-instant uploads
var now = time.Now

// LocalStorage stores uploaded files under a single media root directory.
// Stored references are bare filenames, never paths.
type LocalStorage struct {
	root string // Media root directory
}

// NewLocalStorage creates the media root if needed and returns the store
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// SaveUpload writes an uploaded file into the media root under a unique
// name and returns the stored filename
func (s *LocalStorage) SaveUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open() // Open the uploaded part
	if err != nil {
		return "", err // Return error if the part cannot be read
	}
	defer src.Close()

	// Derive a collision-free name; O_EXCL guards against two uploads
	// landing on the same timestamp, retrying with a disambiguating suffix
	var name string
	var dst *os.File
	for attempt := 0; ; attempt++ {
		name = uniqueName(file.Filename, attempt)
		dst, err = os.OpenFile(filepath.Join(s.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) || attempt >= 10 {
			return "", fmt.Errorf("create media file: %w", err)
		}
	}
	defer dst.Close()

	// Copy the payload into the media root
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("save media file: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"filename": name,      // Stored name
		"size":     file.Size, // Payload size
	}).Info("File stored") // Log successful store
	return name, nil
}

// Resolve maps a stored filename to its absolute path. Names carrying
// path separators or parent-directory sequences are rejected so the
// media root can never be escaped.
func (s *LocalStorage) Resolve(name string) (string, error) {
	if !SafeName(name) {
		return "", ErrUnsafeFilename // Reject traversal attempts
	}
	return filepath.Join(s.root, name), nil
}

// SafeName reports whether a stored filename is free of traversal sequences
func SafeName(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false // Empty or parent-directory sequence
	}
	// Reject both separator styles; stored references are bare filenames
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return true
}

// uniqueName builds a timestamped filename keeping the original
// extension; attempt disambiguates same-instant uploads
func uniqueName(original string, attempt int) string {
	ext := filepath.Ext(filepath.Base(original)) // Keep the extension only
	if attempt == 0 {
		return fmt.Sprintf("%d%s", now().UnixNano(), ext)
	}
	return fmt.Sprintf("%d_%d%s", now().UnixNano(), attempt, ext)
}
