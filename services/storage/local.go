package storagesvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/upload"
)

type localStorage struct {
	root    string
	baseURL string
}

var _ upload.Storage = (*localStorage)(nil)

// NewLocalStorage keeps blobs on disk; for development and tests.
func NewLocalStorage(conf *core.Config) *localStorage {
	root := conf.Storage.LocalDir
	if root == "" {
		root = filepath.Join(conf.WorkDir, "media")
	}
	return &localStorage{
		root:    root,
		baseURL: strings.TrimSuffix(conf.Storage.BaseURL, "/"),
	}
}

func (s *localStorage) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *localStorage) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	defer f.Close()

	if _, err = io.Copy(f, body); err != nil {
		return "", errors.Wrap(err, "writing media file")
	}
	return s.baseURL + "/" + key, nil
}

func (s *localStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing media file")
	}
	return nil
}
