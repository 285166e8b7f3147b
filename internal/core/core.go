// Package core holds the blog's business rules. Handlers in cmd call into a
// Core; Core talks to the store, the cache and the upload bucket through
// their interfaces only.
package core

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/cache"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/feed"
	"github.com/siahsang/inkwell/internal/storage"
	"github.com/siahsang/inkwell/models"
)

var (
	ErrNotFound           = database.ErrNotFound
	ErrDuplicate          = database.ErrDuplicate
	ErrUnauthorized       = xerrors.Message("Authentication required")
	ErrForbidden          = xerrors.Message("You do not have permission to perform this action")
	ErrInvalidInput       = xerrors.Message("Invalid input")
	ErrInvalidCredentials = xerrors.Message("Invalid email or password")
)

// ValidationError carries field-keyed messages back to the caller.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for field, msg := range e.Errors {
		parts = append(parts, field+": "+msg)
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(errs map[string]string) error {
	return xerrors.New(&ValidationError{Errors: errs})
}

func invalidField(field, message string) error {
	return invalid(map[string]string{field: message})
}

type Options struct {
	Site        feed.Site
	AdminEmails []string
}

type Core struct {
	log         *slog.Logger
	store       database.Store
	cache       cache.Cache
	bucket      storage.Bucket
	site        feed.Site
	adminEmails map[string]bool
	now         func() time.Time
}

func NewCore(store database.Store, c cache.Cache, bucket storage.Bucket, log *slog.Logger, opts Options) *Core {
	admins := make(map[string]bool, len(opts.AdminEmails))
	for _, email := range opts.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return &Core{
		log:         log,
		store:       store,
		cache:       c,
		bucket:      bucket,
		site:        opts.Site,
		adminEmails: admins,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (c *Core) Site() feed.Site {
	return c.site
}

func requireUser(viewer *models.User) error {
	if viewer == nil {
		return xerrors.New(ErrUnauthorized)
	}
	return nil
}

func requireAdmin(viewer *models.User) error {
	if err := requireUser(viewer); err != nil {
		return err
	}
	if !viewer.IsAdmin() {
		return xerrors.New(ErrForbidden)
	}
	return nil
}

// canSee reports whether viewer may read post.
func canSee(post *models.Post, viewer *models.User) bool {
	return post.Published || (viewer != nil && viewer.ID == post.AuthorID)
}
