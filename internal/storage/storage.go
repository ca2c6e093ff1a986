// Package storage saves uploaded attachments through afero so the API can
// run against the OS filesystem in production and memory in tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"barangay-portal/internal/common/config"
	"barangay-portal/internal/common/validation"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	ErrStorageFailed = errors.New("STORAGE_FAILED")
	ErrTooLarge      = errors.New("PAYLOAD_TOO_LARGE")
)

// StoredFile describes a saved upload.
type StoredFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type Storage struct {
	fs       afero.Fs
	dir      string
	prefix   string
	maxBytes int64
}

func New(fs afero.Fs, cfg config.UploadConfig) *Storage {
	dir := cfg.Dir
	if dir == "" {
		dir = "uploads"
	}
	prefix := cfg.PublicPrefix
	if prefix == "" {
		prefix = "/uploads"
	}
	max := cfg.MaxSizeBytes
	if max <= 0 {
		max = validation.MaxAttachmentBytes
	}
	return &Storage{fs: fs, dir: dir, prefix: strings.TrimRight(prefix, "/"), maxBytes: max}
}

// NewOS stores under cfg.Dir on the local disk.
func NewOS(cfg config.UploadConfig) *Storage {
	return New(afero.NewOsFs(), cfg)
}

func (s *Storage) MaxBytes() int64 { return s.maxBytes }

// Save copies r into <dir>/<category>/<uuid><ext>. Content beyond the size
// limit aborts the write and removes the partial file.
func (s *Storage) Save(ctx context.Context, category, originalName string, r io.Reader) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ext := validation.Extension(originalName)
	name := uuid.New().String()
	if ext != "" {
		name += "." + ext
	}
	rel := path.Join(category, name)
	full := path.Join(s.dir, rel)

	if err := s.fs.MkdirAll(path.Join(s.dir, category), 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir: %v", ErrStorageFailed, err)
	}
	f, err := s.fs.Create(full)
	if err != nil {
		return nil, fmt.Errorf("%w: create: %v", ErrStorageFailed, err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if copyErr == nil && n > s.maxBytes {
		copyErr = fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = s.fs.Remove(full)
		if errors.Is(copyErr, ErrTooLarge) {
			return nil, copyErr
		}
		return nil, fmt.Errorf("%w: write: %v", ErrStorageFailed, copyErr)
	}

	return &StoredFile{
		Name: originalName,
		Path: rel,
		URL:  s.prefix + "/" + rel,
		Size: n,
	}, nil
}

// Delete removes a file by its public URL or relative path. Missing files
// are ignored.
func (s *Storage) Delete(ref string) error {
	rel := strings.TrimPrefix(strings.TrimPrefix(ref, s.prefix), "/")
	if rel == "" || strings.Contains(rel, "..") {
		return fmt.Errorf("%w: invalid path %q", ErrStorageFailed, ref)
	}
	err := s.fs.Remove(path.Join(s.dir, rel))
	if err != nil {
		if exists, _ := afero.Exists(s.fs, path.Join(s.dir, rel)); !exists {
			return nil
		}
		return fmt.Errorf("%w: remove: %v", ErrStorageFailed, err)
	}
	return nil
}

// Exists reports whether a relative path is stored.
func (s *Storage) Exists(rel string) bool {
	ok, _ := afero.Exists(s.fs, path.Join(s.dir, rel))
	return ok
}

// Handler serves stored files under the public prefix.
func (s *Storage) Handler() http.Handler {
	return http.StripPrefix(s.prefix, http.FileServer(afero.NewHttpFs(s.fs).Dir(s.dir)))
}

func (s *Storage) Prefix() string { return s.prefix }
