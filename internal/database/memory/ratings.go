package memory

import (
	"context"
	"sort"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/models"
)

func (s *MemoryStorage) GetRating(ctx context.Context, postID, userID string) (*models.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.state.ratings {
		if r.PostID == postID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, xerrors.New(database.ErrNotFound)
}

func (s *MemoryStorage) CreateRating(ctx context.Context, rating *models.Rating) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.posts[rating.PostID]; !ok {
		return xerrors.New(database.ErrNotFound)
	}
	for _, r := range s.state.ratings {
		if r.PostID == rating.PostID && r.UserID == rating.UserID {
			return xerrors.New(database.ErrDuplicate)
		}
	}
	if rating.ID == "" {
		rating.ID = newID()
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = s.now()
	}
	rating.UpdatedAt = rating.CreatedAt
	cp := *rating
	s.state.ratings[rating.ID] = &cp
	s.state.track(rating.ID)
	return nil
}

func (s *MemoryStorage) UpdateRating(ctx context.Context, rating *models.Rating) error {
	defer s.writer(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.state.ratings {
		if r.PostID == rating.PostID && r.UserID == rating.UserID {
			r.Rating = rating.Rating
			r.UpdatedAt = s.now()
			*rating = *r
			return nil
		}
	}
	return xerrors.New(database.ErrNotFound)
}

func (s *MemoryStorage) RatingsForPosts(ctx context.Context, postIDs []string) ([]*models.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		wanted[id] = true
	}
	var result []*models.Rating
	for _, r := range s.state.ratings {
		if wanted[r.PostID] {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return s.state.seq[result[i].ID] < s.state.seq[result[j].ID] })
	return result, nil
}
