package core

import (
	"context"
	"net/url"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/filter"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/siahsang/inkwell/internal/validator"
	"github.com/siahsang/inkwell/models"
)

const maxBioLength = 1000

// ProfileInput updates the viewer's author profile. Nil fields are kept.
type ProfileInput struct {
	Name        *string           `json:"name"`
	Bio         *string           `json:"bio"`
	AvatarURL   *string           `json:"avatar_url"`
	SocialLinks map[string]string `json:"social_links"`
}

func (c *Core) GetAuthor(ctx context.Context, userID string) (*models.Author, error) {
	author, err := c.store.GetAuthor(ctx, userID)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return author, nil
}

// Profile returns the viewer's own author profile.
func (c *Core) Profile(ctx context.Context, viewer *models.User) (*models.Author, error) {
	if err := requireUser(viewer); err != nil {
		return nil, err
	}
	return c.GetAuthor(ctx, viewer.ID)
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (c *Core) UpdateProfile(ctx context.Context, viewer *models.User, in ProfileInput) (*models.Author, error) {
	author, err := c.Profile(ctx, viewer)
	if err != nil {
		return nil, err
	}

	v := validator.New()
	if in.Name != nil {
		v.CheckNotBlank(*in.Name, "name", "must be provided")
		v.CheckMaxChars(strings.TrimSpace(*in.Name), maxNameLength, "name")
	}
	if in.Bio != nil {
		v.CheckMaxChars(*in.Bio, maxBioLength, "bio")
	}
	if avatar := strings.TrimSpace(stringutils.Deref(in.AvatarURL)); avatar != "" {
		v.Check(isHTTPURL(avatar), "avatar_url", "must be an http or https URL")
	}
	for network, link := range in.SocialLinks {
		if strings.TrimSpace(link) != "" {
			v.Check(isHTTPURL(strings.TrimSpace(link)), "social_links."+network, "must be an http or https URL")
		}
	}
	if !v.IsValid() {
		return nil, invalid(v.Errors)
	}

	if in.Name != nil {
		author.Name = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		author.Bio = stringutils.NilIfBlank(*in.Bio)
	}
	if in.AvatarURL != nil {
		author.AvatarURL = stringutils.NilIfBlank(*in.AvatarURL)
	}
	if in.SocialLinks != nil {
		links := make(map[string]string, len(in.SocialLinks))
		for network, link := range in.SocialLinks {
			network = strings.ToLower(strings.TrimSpace(network))
			if link = strings.TrimSpace(link); network != "" && link != "" {
				links[network] = link
			}
		}
		author.SocialLinks = links
	}
	author.UpdatedAt = c.now()

	if err := c.store.UpsertAuthor(ctx, author); err != nil {
		return nil, xerrors.New(err)
	}
	return author, nil
}

// AdminUsers pages through authors with their post counts. Admin only.
func (c *Core) AdminUsers(ctx context.Context, viewer *models.User, f filter.Filter) (*models.AuthorPage, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	f = f.Normalize()
	authors, total, err := c.store.ListAuthors(ctx, f.Limit, f.Offset())
	if err != nil {
		return nil, xerrors.New(err)
	}
	return &models.AuthorPage{Authors: authors, Pagination: f.Metadata(total)}, nil
}
