package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/models"
)

func (s *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.state.users {
		if strings.EqualFold(u.Email, user.Email) {
			return xerrors.New(database.ErrDuplicate)
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	u := *user
	s.state.users[user.ID] = &u
	s.state.track(user.ID)
	return nil
}

func (s *MemoryStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.state.users[id]
	if !ok {
		return nil, xerrors.New(database.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.state.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, xerrors.New(database.ErrNotFound)
}

func (s *MemoryStorage) UpsertAuthor(ctx context.Context, author *models.Author) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.state.authors[author.UserID]; ok {
		author.CreatedAt = existing.CreatedAt
	} else {
		if author.CreatedAt.IsZero() {
			author.CreatedAt = now
		}
		s.state.track("author:" + author.UserID)
	}
	author.UpdatedAt = now
	s.state.authors[author.UserID] = cloneAuthor(author)
	return nil
}

func (s *MemoryStorage) GetAuthor(ctx context.Context, userID string) (*models.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.state.authors[userID]
	if !ok {
		return nil, xerrors.New(database.ErrNotFound)
	}
	return cloneAuthor(a), nil
}

func (s *MemoryStorage) GetAuthorsByUserIDs(ctx context.Context, userIDs []string) ([]*models.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Author, 0, len(userIDs))
	for _, id := range userIDs {
		if a, ok := s.state.authors[id]; ok {
			result = append(result, cloneAuthor(a))
		}
	}
	return result, nil
}

func (s *MemoryStorage) ListAuthors(ctx context.Context, limit, offset int) ([]*models.Author, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	postCounts := make(map[string]int)
	for _, p := range s.state.posts {
		postCounts[p.AuthorID]++
	}

	authors := make([]*models.Author, 0, len(s.state.authors))
	for _, a := range s.state.authors {
		cp := cloneAuthor(a)
		cp.PostCount = postCounts[a.UserID]
		authors = append(authors, cp)
	}
	sort.SliceStable(authors, func(i, j int) bool {
		ai, aj := authors[i], authors[j]
		if !ai.CreatedAt.Equal(aj.CreatedAt) {
			return ai.CreatedAt.After(aj.CreatedAt)
		}
		return s.state.seq["author:"+ai.UserID] > s.state.seq["author:"+aj.UserID]
	})
	return window(authors, limit, offset), len(authors), nil
}

func (s *MemoryStorage) CountAuthors(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.authors), nil
}
