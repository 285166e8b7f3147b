package core

import (
	"context"
	"errors"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/filter"
	"github.com/siahsang/inkwell/internal/markdown"
	"github.com/siahsang/inkwell/internal/utils/collectionutils"
	"github.com/siahsang/inkwell/internal/utils/functional"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/siahsang/inkwell/internal/validator"
	"github.com/siahsang/inkwell/models"
)

const (
	maxCommentLength = 5000
	maxNameLength    = 100
)

type CommentInput struct {
	Content     string  `json:"content"`
	AuthorName  string  `json:"author_name"`
	AuthorEmail string  `json:"author_email"`
	ParentID    *string `json:"parent_id"`
}

// ListComments returns the approved thread of a post: top-level comments
// oldest first, each with its approved replies oldest first.
func (c *Core) ListComments(ctx context.Context, viewer *models.User, postID string) ([]*models.Comment, error) {
	if _, err := c.visiblePost(ctx, viewer, postID); err != nil {
		return nil, err
	}

	approved := true
	topLevel, _, err := c.store.ListComments(ctx, database.CommentQuery{
		PostID:   postID,
		TopLevel: true,
		Approved: &approved,
	})
	if err != nil {
		return nil, xerrors.New(err)
	}
	if len(topLevel) == 0 {
		return []*models.Comment{}, nil
	}

	parentIDs := functional.Map(topLevel, func(c *models.Comment) string { return c.ID })
	replies, _, err := c.store.ListComments(ctx, database.CommentQuery{
		PostID:    postID,
		ParentIDs: parentIDs,
		Approved:  &approved,
	})
	if err != nil {
		return nil, xerrors.New(err)
	}

	if err := c.attachAuthors(ctx, append(append([]*models.Comment{}, topLevel...), replies...)); err != nil {
		return nil, err
	}

	repliesByParent := collectionutils.GroupBy(replies, func(r *models.Comment) string { return *r.ParentID })
	for _, comment := range topLevel {
		comment.Replies = collectionutils.GetOrDefault(repliesByParent, comment.ID, []*models.Comment{})
		for _, reply := range comment.Replies {
			reply.AuthorEmail = nil
		}
		comment.AuthorEmail = nil
	}
	return topLevel, nil
}

// attachAuthors loads the member profiles of comments in one lookup.
func (c *Core) attachAuthors(ctx context.Context, comments []*models.Comment) error {
	ids := make([]string, 0, len(comments))
	for _, comment := range comments {
		if comment.AuthorID != nil {
			ids = append(ids, *comment.AuthorID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	authors, err := c.store.GetAuthorsByUserIDs(ctx, functional.Distinct(ids))
	if err != nil {
		return xerrors.New(err)
	}
	byID := collectionutils.Associate(authors, func(a *models.Author) (string, *models.Author) { return a.UserID, a })
	for _, comment := range comments {
		if comment.AuthorID != nil {
			comment.Author = byID[*comment.AuthorID]
		}
	}
	return nil
}

// CreateComment stores a comment on a visible post. Members' comments are
// approved at once; anonymous ones wait for moderation. A reply to a reply
// is attached to the top-level comment of that thread.
func (c *Core) CreateComment(ctx context.Context, viewer *models.User, postID string, in CommentInput) (*models.Comment, error) {
	post, err := c.visiblePost(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(markdown.StripTags(in.Content))
	name := strings.TrimSpace(in.AuthorName)
	email := strings.TrimSpace(in.AuthorEmail)

	v := validator.New()
	v.CheckNotBlank(content, "content", "must be provided")
	v.CheckMaxChars(content, maxCommentLength, "content")
	if viewer == nil {
		v.CheckNotBlank(name, "author_name", "must be provided")
		v.CheckMaxChars(name, maxNameLength, "author_name")
		v.CheckNotBlank(email, "author_email", "must be provided")
		if email != "" {
			v.CheckEmail(email, "author_email", "must be a valid email address")
		}
	}
	if !v.IsValid() {
		return nil, invalid(v.Errors)
	}

	parentID, err := c.threadParent(ctx, post.ID, stringutils.Deref(in.ParentID))
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   post.ID,
		Content:  content,
		ParentID: parentID,
	}
	if viewer != nil {
		comment.AuthorID = &viewer.ID
		comment.AuthorName = &viewer.Name
		comment.AuthorEmail = &viewer.Email
		comment.Approved = true
	} else {
		comment.AuthorName = &name
		comment.AuthorEmail = &email
	}
	now := c.now()
	comment.CreatedAt, comment.UpdatedAt = now, now

	if err := c.store.CreateComment(ctx, comment); err != nil {
		return nil, xerrors.New(err)
	}
	if err := c.attachAuthors(ctx, []*models.Comment{comment}); err != nil {
		return nil, err
	}
	c.log.Info("comment created", "comment_id", comment.ID, "post_id", post.ID, "approved", comment.Approved)
	return comment, nil
}

// threadParent resolves the requested parent to the top-level comment of
// its thread.
func (c *Core) threadParent(ctx context.Context, postID, parentID string) (*string, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, nil
	}
	parent, err := c.store.GetComment(ctx, parentID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && parent.PostID != postID) {
		return nil, invalidField("parent_id", "must reference a comment on this post")
	}
	if err != nil {
		return nil, xerrors.New(err)
	}
	if parent.ParentID != nil {
		return parent.ParentID, nil
	}
	return &parent.ID, nil
}

// ModerateComment sets the approval flag of a comment. Admin only.
func (c *Core) ModerateComment(ctx context.Context, viewer *models.User, id string, approved bool) (*models.Comment, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	comment, err := c.store.SetCommentApproval(ctx, id, approved)
	if err != nil {
		return nil, xerrors.New(err)
	}
	c.log.Info("comment moderated", "comment_id", id, "approved", approved, "admin_id", viewer.ID)
	return comment, nil
}

// DeleteComment removes a comment and its replies. Admin only.
func (c *Core) DeleteComment(ctx context.Context, viewer *models.User, id string) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	if err := c.store.DeleteComment(ctx, id); err != nil {
		return xerrors.New(err)
	}
	c.log.Info("comment deleted", "comment_id", id, "admin_id", viewer.ID)
	return nil
}

// AdminComments pages through every comment, newest first. status is
// "pending", "approved" or anything else for all.
func (c *Core) AdminComments(ctx context.Context, viewer *models.User, status string, f filter.Filter) (*models.CommentPage, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	f = f.Normalize()
	q := database.CommentQuery{Limit: f.Limit, Offset: f.Offset(), Newest: true}
	switch status {
	case "pending":
		approved := false
		q.Approved = &approved
	case "approved":
		approved := true
		q.Approved = &approved
	}
	comments, total, err := c.store.ListComments(ctx, q)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if err := c.attachAuthors(ctx, comments); err != nil {
		return nil, err
	}
	return &models.CommentPage{Comments: comments, Pagination: f.Metadata(total)}, nil
}
