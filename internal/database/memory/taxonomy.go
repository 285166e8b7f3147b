package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/models"
)

func (s *MemoryStorage) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.state.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, xerrors.New(database.ErrNotFound)
}

func (s *MemoryStorage) CreateCategory(ctx context.Context, category *models.Category) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.state.categories {
		if c.Slug == category.Slug || strings.EqualFold(c.Name, category.Name) {
			return xerrors.New(database.ErrDuplicate)
		}
	}
	if category.ID == "" {
		category.ID = newID()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = s.now()
	}
	cp := *category
	cp.PostCount = 0
	s.state.categories[category.ID] = &cp
	s.state.track(category.ID)
	return nil
}

func (s *MemoryStorage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, postID := range s.publishedPostIDs() {
		for _, cid := range s.state.postCategories[postID] {
			counts[cid]++
		}
	}

	result := make([]*models.Category, 0, len(s.state.categories))
	for _, c := range s.state.categories {
		cp := *c
		cp.PostCount = counts[c.ID]
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemoryStorage) CategoriesForPosts(ctx context.Context, postIDs []string) (map[string][]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]*models.Category, len(postIDs))
	for _, postID := range postIDs {
		for _, cid := range s.state.postCategories[postID] {
			if c, ok := s.state.categories[cid]; ok {
				cp := *c
				result[postID] = append(result[postID], &cp)
			}
		}
		sort.Slice(result[postID], func(i, j int) bool { return result[postID][i].Name < result[postID][j].Name })
	}
	return result, nil
}

func (s *MemoryStorage) ReplacePostCategories(ctx context.Context, postID string, categoryIDs []string) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.posts[postID]; !ok {
		return xerrors.New(database.ErrNotFound)
	}
	for _, id := range categoryIDs {
		if _, ok := s.state.categories[id]; !ok {
			return xerrors.Newf("unknown category %s: %w", id, database.ErrNotFound)
		}
	}
	s.state.postCategories[postID] = dedupe(categoryIDs)
	return nil
}

func (s *MemoryStorage) PostIDsForCategories(ctx context.Context, categoryIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return linkedPosts(s.state.postCategories, categoryIDs), nil
}

func (s *MemoryStorage) GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.state.tags {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, xerrors.New(database.ErrNotFound)
}

func (s *MemoryStorage) CreateTag(ctx context.Context, tag *models.Tag) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.state.tags {
		if t.Slug == tag.Slug || strings.EqualFold(t.Name, tag.Name) {
			return xerrors.New(database.ErrDuplicate)
		}
	}
	if tag.ID == "" {
		tag.ID = newID()
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = s.now()
	}
	cp := *tag
	s.state.tags[tag.ID] = &cp
	s.state.track(tag.ID)
	return nil
}

func (s *MemoryStorage) ListTags(ctx context.Context) ([]*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Tag, 0, len(s.state.tags))
	for _, t := range s.state.tags {
		cp := *t
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemoryStorage) TagsForPosts(ctx context.Context, postIDs []string) (map[string][]*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]*models.Tag, len(postIDs))
	for _, postID := range postIDs {
		for _, tid := range s.state.postTags[postID] {
			if t, ok := s.state.tags[tid]; ok {
				cp := *t
				result[postID] = append(result[postID], &cp)
			}
		}
		sort.Slice(result[postID], func(i, j int) bool { return result[postID][i].Name < result[postID][j].Name })
	}
	return result, nil
}

func (s *MemoryStorage) ReplacePostTags(ctx context.Context, postID string, tagIDs []string) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.posts[postID]; !ok {
		return xerrors.New(database.ErrNotFound)
	}
	for _, id := range tagIDs {
		if _, ok := s.state.tags[id]; !ok {
			return xerrors.Newf("unknown tag %s: %w", id, database.ErrNotFound)
		}
	}
	s.state.postTags[postID] = dedupe(tagIDs)
	return nil
}

func (s *MemoryStorage) PostIDsForTags(ctx context.Context, tagIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return linkedPosts(s.state.postTags, tagIDs), nil
}

func linkedPosts(links map[string][]string, termIDs []string) []string {
	var ids []string
	for postID, terms := range links {
		for _, t := range terms {
			if slices.Contains(termIDs, t) {
				ids = append(ids, postID)
				break
			}
		}
	}
	slices.Sort(ids)
	return ids
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
