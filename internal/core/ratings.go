package core

import (
	"context"
	"errors"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/models"
)

const (
	minRating = 1
	maxRating = 5
)

// RatePost records viewer's 1..5 rating of a post, replacing an earlier
// one. created reports whether a new rating was stored.
func (c *Core) RatePost(ctx context.Context, viewer *models.User, postID string, value int) (rating *models.Rating, created bool, err error) {
	if err := requireUser(viewer); err != nil {
		return nil, false, err
	}
	if value < minRating || value > maxRating {
		return nil, false, invalidField("rating", "must be an integer between 1 and 5")
	}
	post, err := c.visiblePost(ctx, viewer, postID)
	if err != nil {
		return nil, false, err
	}

	existing, err := c.store.GetRating(ctx, post.ID, viewer.ID)
	switch {
	case err == nil:
		existing.Rating = value
		if err := c.store.UpdateRating(ctx, existing); err != nil {
			return nil, false, xerrors.New(err)
		}
		return existing, false, nil
	case errors.Is(err, database.ErrNotFound):
		now := c.now()
		rating = &models.Rating{
			PostID:    post.ID,
			UserID:    viewer.ID,
			Rating:    value,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := c.store.CreateRating(ctx, rating); err != nil {
			return nil, false, xerrors.New(err)
		}
		return rating, true, nil
	default:
		return nil, false, xerrors.New(err)
	}
}
