package raster

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and writes rasters by path. Read of an absent raster returns
// an error satisfying errors.Is(err, fs.ErrNotExist).
type Store interface {
	Read(path string) (*Raster, error)
	Write(path string, r *Raster) error
	Exists(path string) bool
}

// FileStore keeps rasters as files on the local filesystem.
type FileStore struct{}

func (FileStore) Read(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Write replaces path atomically: the raster is written next to it and
// renamed into place.
func (FileStore) Write(path string, r *Raster) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if err := Encode(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (FileStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// MemStore keeps rasters in memory. It is safe for concurrent use.
type MemStore struct {
	mu      sync.Mutex
	rasters map[string]*Raster
}

func NewMemStore() *MemStore {
	return &MemStore{rasters: map[string]*Raster{}}
}

func (s *MemStore) Read(path string) (*Raster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rasters[path]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return r.Clone(), nil
}

func (s *MemStore) Write(path string, r *Raster) error {
	if r == nil {
		return errors.New("raster: nil raster")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rasters[path] = r.Clone()
	return nil
}

func (s *MemStore) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rasters[path]
	return ok
}
