package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ironsheep/blueprint-parser/internal/imaging"
	"github.com/ironsheep/blueprint-parser/internal/raster"
)

var (
	// ErrNotFound is returned when no file exists for an ID.
	ErrNotFound = errors.New("blueprint not found")

	// ErrInvalidID is returned for IDs that are not UUIDs.
	ErrInvalidID = errors.New("invalid blueprint id")
)

const filePrefix = "blueprint_image_"

// Store is a directory of uploads and color files.
type Store struct {
	dir          string
	maxDimension int
	cache        *GridCache
}

// New opens (creating if needed) a store rooted at dir.
//
// Parameters:
//   - dir: Root directory for uploads and color files. Must not be empty.
//   - maxDimension: Images loaded through LoadImage are downscaled to fit
//     this square when it is positive.
//   - cachePixels: Pixel budget of the decoded-image cache. Zero disables
//     caching.
func New(dir string, maxDimension, cachePixels int) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{dir: dir, maxDimension: maxDimension, cache: NewGridCache(cachePixels)}, nil
}

// NewID returns a fresh upload identifier.
func NewID() string {
	return uuid.NewString()
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Cache returns the decoded-image cache.
func (s *Store) Cache() *GridCache { return s.cache }

// canonicalID maps every accepted UUID spelling ("urn:uuid:...", braces,
// upper case) to one form so it names a single file and cache entry.
func canonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return parsed.String(), nil
}

func (s *Store) path(id, ext string) (string, error) {
	canon, err := canonicalID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filePrefix+canon+ext), nil
}

// UploadPath returns the file path used for id's upload.
func (s *Store) UploadPath(id string) (string, error) {
	return s.path(id, ".jpeg")
}

// SaveUpload writes the uploaded bytes for id, replacing any earlier upload.
//
// Parameters:
//   - id: Job ID the upload is stored under
//   - data: Encoded image bytes, kept exactly as received
//
// # Errors
//
// Returns ErrInvalidID if id is not a UUID, or the underlying I/O error if the
// write fails. A failed write leaves no partial file behind.
func (s *Store) SaveUpload(id string, data []byte) error {
	p, err := s.path(id, ".jpeg")
	if err != nil {
		return err
	}
	if err := writeAtomic(p, data); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	canon, _ := canonicalID(id)
	s.cache.Evict(canon)
	return nil
}

// OpenUpload opens id's stored upload for reading. The caller closes it.
func (s *Store) OpenUpload(id string) (*os.File, error) {
	p, err := s.path(id, ".jpeg")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	return f, nil
}

// LoadImage decodes id's stored upload, using the cache when possible.
//
// Returns:
//   - *raster.PixelGrid: The decoded grid, shared with the cache; do not modify
//   - error: ErrInvalidID, ErrNotFound, or a decode error wrapping
//     imaging.ErrDecode
func (s *Store) LoadImage(id string) (*raster.PixelGrid, error) {
	canon, err := canonicalID(id)
	if err != nil {
		return nil, err
	}
	if g, ok := s.cache.Get(canon); ok {
		return g, nil
	}

	f, err := s.OpenUpload(canon)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	grid, err := imaging.Decode(f, s.maxDimension)
	if err != nil {
		return nil, err
	}
	s.cache.Put(canon, grid)
	return grid, nil
}

// SaveColor writes the average color computed for id.
func (s *Store) SaveColor(id string, c raster.Color) error {
	p, err := s.path(id, ".color")
	if err != nil {
		return err
	}
	if err := writeAtomic(p, []byte(c.String())); err != nil {
		return fmt.Errorf("failed to save color: %w", err)
	}
	return nil
}

// LoadColor reads the average color stored for id.
func (s *Store) LoadColor(id string) (raster.Color, error) {
	p, err := s.path(id, ".color")
	if err != nil {
		return raster.Color{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return raster.Color{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return raster.Color{}, fmt.Errorf("failed to read color: %w", err)
	}
	return parseColor(strings.TrimSpace(string(data)))
}

// Delete removes both files for id and evicts it from the cache.
//
// # Errors
//
// Missing files are not an error. Returns ErrInvalidID for a malformed id and
// the first removal failure otherwise.
func (s *Store) Delete(id string) error {
	canon, err := canonicalID(id)
	if err != nil {
		return err
	}
	for _, ext := range []string{".jpeg", ".color"} {
		p, _ := s.path(canon, ext)
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", filepath.Base(p), err)
		}
	}
	s.cache.Evict(canon)
	return nil
}

func parseColor(s string) (raster.Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return raster.Color{}, fmt.Errorf("malformed color %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return raster.Color{}, fmt.Errorf("malformed color %q: %w", s, err)
		}
		v[i] = f
	}
	return raster.Color{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
