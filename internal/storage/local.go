package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mdobak/go-xerrors"
)

// Local stores objects as files under a root directory. The files are
// served back under publicBaseURL.
type Local struct {
	root          string
	publicBaseURL string
}

var _ Bucket = (*Local)(nil)

func NewLocal(root, publicBaseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, xerrors.New(err)
	}
	return &Local{root: root, publicBaseURL: publicBaseURL}, nil
}

// Root is the directory the files live in.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) filePath(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(cleaned)), nil
}

func (l *Local) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	target, err := l.filePath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return xerrors.New(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return xerrors.New(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return xerrors.New(err)
	}
	if err := tmp.Close(); err != nil {
		return xerrors.New(err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return xerrors.New(err)
	}
	return nil
}

func (l *Local) List(ctx context.Context, prefix string, limit int) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		contentType := ""
		if mt, err := mimetype.DetectFile(p); err == nil {
			contentType = mt.String()
		}
		objects = append(objects, Object{
			Key:          key,
			Size:         info.Size(),
			ContentType:  contentType,
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, xerrors.New(err)
	}

	sort.SliceStable(objects, func(i, j int) bool {
		if !objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].LastModified.After(objects[j].LastModified)
		}
		return objects[i].Key > objects[j].Key
	})
	if limit > 0 && len(objects) > limit {
		objects = objects[:limit]
	}
	return objects, nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	target, err := l.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return xerrors.New(ErrNotFound)
		}
		return xerrors.New(err)
	}
	return nil
}

func (l *Local) URL(key string) string {
	return joinURL(l.publicBaseURL, key)
}
