package memory

import (
	"context"
	"slices"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/models"
)

func (s *MemoryStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.posts[comment.PostID]; !ok {
		return xerrors.New(database.ErrNotFound)
	}
	if comment.ID == "" {
		comment.ID = newID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	comment.UpdatedAt = comment.CreatedAt
	s.state.comments[comment.ID] = cloneComment(comment)
	s.state.track(comment.ID)
	return nil
}

func (s *MemoryStorage) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.state.comments[id]
	if !ok {
		return nil, xerrors.New(database.ErrNotFound)
	}
	return s.withPost(c), nil
}

func (s *MemoryStorage) SetCommentApproval(ctx context.Context, id string, approved bool) (*models.Comment, error) {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.comments[id]
	if !ok {
		return nil, xerrors.New(database.ErrNotFound)
	}
	c.Approved = approved
	c.UpdatedAt = s.now()
	return s.withPost(c), nil
}

func (s *MemoryStorage) DeleteComment(ctx context.Context, id string) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.comments[id]; !ok {
		return xerrors.New(database.ErrNotFound)
	}
	delete(s.state.comments, id)
	for cid, c := range s.state.comments {
		if c.ParentID != nil && *c.ParentID == id {
			delete(s.state.comments, cid)
		}
	}
	return nil
}

func (s *MemoryStorage) ListComments(ctx context.Context, q database.CommentQuery) ([]*models.Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var comments []*models.Comment
	for _, c := range s.state.comments {
		switch {
		case q.PostID != "" && c.PostID != q.PostID:
			continue
		case q.TopLevel && c.ParentID != nil:
			continue
		case q.ParentIDs != nil && (c.ParentID == nil || !slices.Contains(q.ParentIDs, *c.ParentID)):
			continue
		case q.Approved != nil && c.Approved != *q.Approved:
			continue
		}
		comments = append(comments, s.withPost(c))
	}

	sortBy(s.state, comments,
		func(c *models.Comment) string { return c.ID },
		func(c *models.Comment) time.Time { return c.CreatedAt },
		q.Newest)

	total := len(comments)
	return window(comments, q.Limit, q.Offset), total, nil
}

func (s *MemoryStorage) withPost(c *models.Comment) *models.Comment {
	cp := cloneComment(c)
	if p, ok := s.state.posts[c.PostID]; ok {
		cp.PostTitle = p.Title
		cp.PostSlug = p.Slug
	}
	return cp
}
