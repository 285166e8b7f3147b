package core

import (
	"context"

	"github.com/siahsang/inkwell/models"
)

const featuredOnHome = 3

// HomePage gathers what the landing page shows.
type HomePage struct {
	Featured []*models.Post
	Latest   []*models.Post
	Tags     []*models.Tag
}

func (c *Core) Home(ctx context.Context) (*HomePage, error) {
	featured := true
	page, err := c.ListPosts(ctx, PostFilter{Featured: &featured})
	if err != nil {
		return nil, err
	}
	home := &HomePage{Featured: page.Posts}
	if len(home.Featured) > featuredOnHome {
		home.Featured = home.Featured[:featuredOnHome]
	}

	latest, err := c.ListPosts(ctx, PostFilter{})
	if err != nil {
		return nil, err
	}
	home.Latest = latest.Posts

	if home.Tags, err = c.ListTags(ctx); err != nil {
		return nil, err
	}
	return home, nil
}
