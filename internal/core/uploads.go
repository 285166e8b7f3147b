package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/storage"
	"github.com/siahsang/inkwell/models"
)

const (
	MaxUploadSize = 5 << 20
	maxListed     = 100
)

var AllowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif"}

// Upload is one file received from a multipart form.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func allowedImage(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return slices.Contains(AllowedImageTypes, contentType)
}

// UploadImage stores an image under the viewer's prefix. The declared type
// and the sniffed content must both be an allowed image type.
func (c *Core) UploadImage(ctx context.Context, viewer *models.User, up Upload) (*models.StoredFile, error) {
	if err := requireUser(viewer); err != nil {
		return nil, err
	}
	if up.Body == nil {
		return nil, invalidField("file", "must be provided")
	}
	if up.Size > MaxUploadSize {
		return nil, invalidField("file", "must not be larger than 5 MB")
	}
	if !allowedImage(up.ContentType) {
		return nil, invalidField("file", "must be a JPEG, PNG, WebP or GIF image")
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, MaxUploadSize+1))
	if err != nil {
		return nil, xerrors.New(err)
	}
	if len(data) == 0 {
		return nil, invalidField("file", "must not be empty")
	}
	if len(data) > MaxUploadSize {
		return nil, invalidField("file", "must not be larger than 5 MB")
	}
	detected := mimetype.Detect(data)
	if !allowedImage(detected.String()) {
		return nil, invalidField("file", "must be a JPEG, PNG, WebP or GIF image")
	}

	key := fmt.Sprintf("%s/%d-%s%s", viewer.ID, c.now().UnixMilli(), randomSuffix(), detected.Extension())
	if err := c.bucket.Put(ctx, key, bytes.NewReader(data), int64(len(data)), detected.String()); err != nil {
		return nil, xerrors.New(err)
	}

	c.log.Info("file uploaded", "path", key, "size", len(data), "user_id", viewer.ID)
	return &models.StoredFile{
		Name:      path.Base(key),
		Path:      key,
		URL:       c.bucket.URL(key),
		Size:      int64(len(data)),
		Type:      detected.String(),
		CreatedAt: c.now(),
	}, nil
}

func ownPrefix(viewer *models.User) string {
	return viewer.ID + "/"
}

// ListUploads lists up to 100 files under prefix, newest first. An empty
// prefix means the viewer's own files; other users' prefixes are
// admin only.
func (c *Core) ListUploads(ctx context.Context, viewer *models.User, prefix string) ([]*models.StoredFile, error) {
	if err := requireUser(viewer); err != nil {
		return nil, err
	}
	prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = ownPrefix(viewer)
	}
	if strings.Contains(prefix, "..") {
		return nil, invalidField("prefix", "is not a valid path")
	}
	if !strings.HasPrefix(prefix, ownPrefix(viewer)) && !viewer.IsAdmin() {
		return nil, xerrors.New(ErrForbidden)
	}

	objects, err := c.bucket.List(ctx, prefix, maxListed)
	if err != nil {
		return nil, xerrors.New(err)
	}
	files := make([]*models.StoredFile, 0, len(objects))
	for _, obj := range objects {
		files = append(files, &models.StoredFile{
			Name:      path.Base(obj.Key),
			Path:      obj.Key,
			URL:       c.bucket.URL(obj.Key),
			Size:      obj.Size,
			Type:      obj.ContentType,
			CreatedAt: obj.LastModified,
		})
	}
	return files, nil
}

// DeleteUpload removes one of the viewer's files.
func (c *Core) DeleteUpload(ctx context.Context, viewer *models.User, key string) error {
	if err := requireUser(viewer); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return invalidField("path", "must be provided")
	}
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return invalidField("path", "is not a valid path")
	}
	if !strings.HasPrefix(cleaned, ownPrefix(viewer)) {
		return xerrors.New(ErrForbidden)
	}

	if err := c.bucket.Delete(ctx, cleaned); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return xerrors.New(ErrNotFound)
		}
		return xerrors.New(err)
	}
	c.log.Info("file deleted", "path", cleaned, "user_id", viewer.ID)
	return nil
}
