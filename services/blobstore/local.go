package blobsvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// LocalStore keeps blobs under a root directory. Locations are slash separated paths relative to the root.
type LocalStore struct {
	root string
}

var _ core.BlobStore = (*LocalStore)(nil)

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolving upload dir")
	}
	if err = os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &LocalStore{root: abs}, nil
}

// blobName prefixes the base name of filename with a random identifier.
func blobName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = "file"
	}
	return uuid.NewString() + "_" + base
}

// resolve maps location to a path under the root, rejecting any escape.
func (s *LocalStore) resolve(location string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+location)))
	if p == s.root || !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", errors.Errorf("invalid blob location %q", location)
	}
	return p, nil
}

func (s *LocalStore) Save(_ context.Context, owner, filename string, r io.Reader) (string, error) {
	location := path.Join(owner, blobName(filename))
	fp, err := s.resolve(location)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating blob dir")
	}

	f, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating blob")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing blob")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing blob")
	}
	return location, nil
}

func (s *LocalStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	fp, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrBlobNotFound
		}
		return nil, errors.Wrap(err, "opening blob")
	}
	return f, nil
}

// Delete removes the blob, then its parent directories up to the root while they are empty.
func (s *LocalStore) Delete(_ context.Context, location string) error {
	fp, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing blob")
	}

	for dir := filepath.Dir(fp); dir != s.root && strings.HasPrefix(dir, s.root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrap(err, "reading blob dir")
		}
		if len(entries) > 0 {
			break
		}
		if err = os.Remove(dir); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing blob dir")
		}
	}
	return nil
}
