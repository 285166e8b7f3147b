package core

import (
	"context"
	"errors"
	"testing"

	"github.com/siahsang/inkwell/internal/filter"
	"github.com/siahsang/inkwell/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ann, err := f.core.Register(ctx, RegisterInput{Name: " Ann ", Email: "Ann@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", ann.Email)
	assert.Equal(t, models.RoleAuthor, ann.Role)

	t.Run("registration creates the author profile", func(t *testing.T) {
		author, err := f.core.GetAuthor(ctx, ann.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ann", author.Name)
		assert.Equal(t, "ann@example.com", author.Email)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.core.Register(ctx, RegisterInput{Email: "bad", Password: "short"})
		errs := validationErrors(t, err)
		assert.Contains(t, errs, "name")
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.core.Register(ctx, RegisterInput{Name: "Other", Email: "ANN@example.com", Password: "password123"})
		assert.Contains(t, validationErrors(t, err), "email")
	})

	t.Run("admin emails get the admin role", func(t *testing.T) {
		admin, err := f.core.Register(ctx, RegisterInput{Name: "Root", Email: "admin@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, admin.Role)
	})

	t.Run("login", func(t *testing.T) {
		user, err := f.core.Login(ctx, "ann@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, ann.ID, user.ID)

		_, err = f.core.Login(ctx, "ann@example.com", "wrong-password")
		assert.True(t, errors.Is(err, ErrInvalidCredentials))
		_, err = f.core.Login(ctx, "nobody@example.com", "password123")
		assert.True(t, errors.Is(err, ErrInvalidCredentials))
		_, err = f.core.Login(ctx, "", "")
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("configured admins are promoted on load", func(t *testing.T) {
		f.core.adminEmails["ann@example.com"] = true
		defer delete(f.core.adminEmails, "ann@example.com")

		user, err := f.core.User(ctx, ann.ID)
		require.NoError(t, err)
		assert.True(t, user.IsAdmin())
	})
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "ann")

	t.Run("update", func(t *testing.T) {
		author, err := f.core.UpdateProfile(ctx, ann, ProfileInput{
			Name:        ptr("Ann Author"),
			Bio:         ptr("Writes about Go."),
			AvatarURL:   ptr("https://example.com/a.png"),
			SocialLinks: map[string]string{"GitHub": "https://github.com/ann", "empty": " "},
		})
		require.NoError(t, err)
		assert.Equal(t, "Ann Author", author.Name)
		assert.Equal(t, map[string]string{"github": "https://github.com/ann"}, author.SocialLinks)

		got, err := f.core.Profile(ctx, ann)
		require.NoError(t, err)
		assert.Equal(t, "Writes about Go.", *got.Bio)
	})

	t.Run("nil fields are kept", func(t *testing.T) {
		author, err := f.core.UpdateProfile(ctx, ann, ProfileInput{Bio: ptr("")})
		require.NoError(t, err)
		assert.Equal(t, "Ann Author", author.Name)
		assert.Nil(t, author.Bio)
		assert.Equal(t, "https://example.com/a.png", *author.AvatarURL)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.core.UpdateProfile(ctx, ann, ProfileInput{
			Name:        ptr(" "),
			AvatarURL:   ptr("javascript:alert(1)"),
			SocialLinks: map[string]string{"site": "ftp://example.com"},
		})
		errs := validationErrors(t, err)
		assert.Contains(t, errs, "name")
		assert.Contains(t, errs, "avatar_url")
		assert.Contains(t, errs, "social_links.site")
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.core.Profile(ctx, nil)
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "ann")
	admin := f.user(t, "admin")

	published := f.post(t, ann, "Live", true, nil, nil)
	f.post(t, ann, "Draft", false, nil, nil)
	for range 3 {
		_, err := f.core.GetPost(ctx, nil, published.ID)
		require.NoError(t, err)
	}
	_, err := f.core.CreateComment(ctx, nil, published.ID, CommentInput{Content: "hello", AuthorName: "Eve", AuthorEmail: "eve@example.com"})
	require.NoError(t, err)
	_, err = f.core.CreateComment(ctx, ann, published.ID, CommentInput{Content: "hi Eve"})
	require.NoError(t, err)

	_, err = f.core.Stats(ctx, ann)
	assert.True(t, errors.Is(err, ErrForbidden))

	stats, err := f.core.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPosts)
	assert.Equal(t, 1, stats.PublishedPosts)
	assert.Equal(t, 1, stats.DraftPosts)
	assert.Equal(t, 2, stats.TotalComments)
	assert.Equal(t, 1, stats.PendingComments)
	assert.Equal(t, 2, stats.TotalAuthors)
	assert.EqualValues(t, 3, stats.TotalViews)
	assert.Len(t, stats.RecentPosts, 2)
	assert.Len(t, stats.RecentComments, 2)

	t.Run("admin lists", func(t *testing.T) {
		drafts, err := f.core.AdminPosts(ctx, admin, "draft", "", filter.NewFilter(1, 10))
		require.NoError(t, err)
		require.Len(t, drafts.Posts, 1)
		assert.Equal(t, "Draft", drafts.Posts[0].Title)

		searched, err := f.core.AdminPosts(ctx, admin, "all", "live", filter.NewFilter(1, 10))
		require.NoError(t, err)
		assert.Equal(t, 1, searched.Pagination.Total)

		users, err := f.core.AdminUsers(ctx, admin, filter.NewFilter(1, 10))
		require.NoError(t, err)
		assert.Equal(t, 2, users.Pagination.Total)

		_, err = f.core.AdminUsers(ctx, ann, filter.NewFilter(1, 10))
		assert.True(t, errors.Is(err, ErrForbidden))
	})
}
