package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/models"
)

func (s *MemoryStorage) CreatePost(ctx context.Context, post *models.Post) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slugTaken(post.Slug, "") {
		return xerrors.New(database.ErrDuplicate)
	}
	if post.ID == "" {
		post.ID = newID()
	}
	now := s.now()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = post.CreatedAt
	s.state.posts[post.ID] = clonePost(post)
	s.state.track(post.ID)
	return nil
}

func (s *MemoryStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.state.posts[post.ID]
	if !ok {
		return xerrors.New(database.ErrNotFound)
	}
	if s.slugTaken(post.Slug, post.ID) {
		return xerrors.New(database.ErrDuplicate)
	}
	post.CreatedAt = existing.CreatedAt
	post.Views = existing.Views
	post.UpdatedAt = s.now()
	s.state.posts[post.ID] = clonePost(post)
	return nil
}

func (s *MemoryStorage) slugTaken(slug, exceptID string) bool {
	for id, p := range s.state.posts {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

// DeletePost removes the post with its taxonomy links, comments and ratings.
func (s *MemoryStorage) DeletePost(ctx context.Context, id string) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.posts[id]; !ok {
		return xerrors.New(database.ErrNotFound)
	}
	delete(s.state.posts, id)
	delete(s.state.postCategories, id)
	delete(s.state.postTags, id)
	for cid, c := range s.state.comments {
		if c.PostID == id {
			delete(s.state.comments, cid)
		}
	}
	for rid, r := range s.state.ratings {
		if r.PostID == id {
			delete(s.state.ratings, rid)
		}
	}
	return nil
}

func (s *MemoryStorage) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.posts[id]
	if !ok {
		return nil, xerrors.New(database.ErrNotFound)
	}
	return clonePost(p), nil
}

func (s *MemoryStorage) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.state.posts {
		if p.Slug == slug {
			return clonePost(p), nil
		}
	}
	return nil, xerrors.New(database.ErrNotFound)
}

func (s *MemoryStorage) SlugExists(ctx context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slugTaken(slug, ""), nil
}

func (s *MemoryStorage) ListPosts(ctx context.Context, q database.PostQuery) ([]*models.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids map[string]bool
	if q.IDs != nil {
		ids = make(map[string]bool, len(q.IDs))
		for _, id := range q.IDs {
			ids[id] = true
		}
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	var posts []*models.Post
	for _, p := range s.state.posts {
		switch {
		case ids != nil && !ids[p.ID]:
			continue
		case q.AuthorID != "" && p.AuthorID != q.AuthorID:
			continue
		case q.Featured != nil && p.Featured != *q.Featured:
			continue
		case q.Published != nil && p.Published != *q.Published:
			continue
		case q.ExcludeID != "" && p.ID == q.ExcludeID:
			continue
		case needle != "" && !matches(p, needle):
			continue
		}
		posts = append(posts, clonePost(p))
	}

	key := (*models.Post).SortTime
	if q.OrderByCreated {
		key = func(p *models.Post) time.Time { return p.CreatedAt }
	}
	sortBy(s.state, posts, func(p *models.Post) string { return p.ID }, key, true)

	total := len(posts)
	return window(posts, q.Limit, q.Offset), total, nil
}

func matches(p *models.Post, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Content), needle) {
		return true
	}
	return p.Excerpt != nil && strings.Contains(strings.ToLower(*p.Excerpt), needle)
}

// SearchPosts is not available in memory; callers fall back to ListPosts.
func (s *MemoryStorage) SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	return nil, xerrors.New(database.ErrUnsupported)
}

func (s *MemoryStorage) IncrementViews(ctx context.Context, id string) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.posts[id]
	if !ok {
		return xerrors.New(database.ErrNotFound)
	}
	p.Views++
	return nil
}

func (s *MemoryStorage) CountPosts(ctx context.Context, published *bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if published == nil {
		return len(s.state.posts), nil
	}
	n := 0
	for _, p := range s.state.posts {
		if p.Published == *published {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) SumViews(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, p := range s.state.posts {
		if p.Published {
			total += p.Views
		}
	}
	return total, nil
}

func (s *MemoryStorage) publishedPostIDs() []string {
	var ids []string
	for id, p := range s.state.posts {
		if p.Published {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
