package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrArtifactNotFound = errors.New("model artifact not found")

// Store locates serialized model artifacts by normalized key.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Load(ctx context.Context, key string) ([]byte, error)
}

const DefaultArtifactExt = ".json"

// FileStore reads artifacts from <dir>/<key><ext>.
type FileStore struct {
	dir string
	ext string
}

func NewFileStore(dir, ext string) *FileStore {
	if ext == "" {
		ext = DefaultArtifactExt
	}
	return &FileStore{dir: dir, ext: ext}
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) (string, bool) {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", false
	}
	return filepath.Join(s.dir, key+s.ext), true
}

func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	p, ok := s.path(key)
	if !ok {
		return false, nil
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat artifact %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	p, ok := s.path(key)
	if !ok {
		return nil, ErrArtifactNotFound
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}

// List returns the keys of all artifacts in the directory.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), s.ext))
	}
	return keys, nil
}
