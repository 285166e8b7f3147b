package models

import "time"

const (
	RoleAuthor = "author"
	RoleAdmin  = "admin"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  []byte    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Author extends the identity record with public profile data.
type Author struct {
	UserID      string            `json:"user_id"`
	Name        string            `json:"name"`
	Email       string            `json:"email,omitempty"`
	Bio         *string           `json:"bio"`
	AvatarURL   *string           `json:"avatar_url"`
	SocialLinks map[string]string `json:"social_links"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	PostCount   int               `json:"post_count,omitempty"`
}

type Post struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Content      string     `json:"content"`
	Excerpt      *string    `json:"excerpt"`
	ThumbnailURL *string    `json:"thumbnail_url"`
	AuthorID     string     `json:"author_id"`
	Featured     bool       `json:"featured"`
	Published    bool       `json:"published"`
	PublishedAt  *time.Time `json:"published_at"`
	ReadingTime  int        `json:"reading_time"`
	Views        int64      `json:"views"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Author        *Author     `json:"author,omitempty"`
	Categories    []*Category `json:"categories,omitempty"`
	Tags          []*Tag      `json:"tags,omitempty"`
	AverageRating *float64    `json:"average_rating,omitempty"`
	RatingCount   int         `json:"rating_count,omitempty"`
	UserRating    *int        `json:"user_rating,omitempty"`
}

// SortTime is the publication time, or the creation time for drafts.
func (p *Post) SortTime() time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	PostCount   int       `json:"post_count,omitempty"`
}

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID          string    `json:"id"`
	PostID      string    `json:"post_id"`
	AuthorID    *string   `json:"author_id"`
	AuthorName  *string   `json:"author_name"`
	AuthorEmail *string   `json:"author_email,omitempty"`
	Content     string    `json:"content"`
	ParentID    *string   `json:"parent_id"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Author    *Author    `json:"author"`
	Replies   []*Comment `json:"replies,omitempty"`
	PostTitle string     `json:"post_title,omitempty"`
	PostSlug  string     `json:"post_slug,omitempty"`
}

// DisplayName is the profile name for members and the freeform name otherwise.
func (c *Comment) DisplayName() string {
	if c.Author != nil && c.Author.Name != "" {
		return c.Author.Name
	}
	if c.AuthorName != nil && *c.AuthorName != "" {
		return *c.AuthorName
	}
	return "Anonymous"
}

type Rating struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type PostPage struct {
	Posts      []*Post    `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

type CommentPage struct {
	Comments   []*Comment `json:"comments"`
	Pagination Pagination `json:"pagination"`
}

type AuthorPage struct {
	Authors    []*Author  `json:"authors"`
	Pagination Pagination `json:"pagination"`
}

type SiteStats struct {
	TotalPosts      int        `json:"total_posts"`
	PublishedPosts  int        `json:"published_posts"`
	DraftPosts      int        `json:"draft_posts"`
	TotalComments   int        `json:"total_comments"`
	PendingComments int        `json:"pending_comments"`
	TotalAuthors    int        `json:"total_authors"`
	TotalViews      int64      `json:"total_views"`
	RecentPosts     []*Post    `json:"recent_posts"`
	RecentComments  []*Comment `json:"recent_comments"`
}

// StoredFile describes one object in the image bucket.
type StoredFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
