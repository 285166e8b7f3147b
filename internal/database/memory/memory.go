// Package memory is a process-local Store used for development and tests.
// Nothing survives a restart.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/models"
)

type state struct {
	users          map[string]*models.User
	authors        map[string]*models.Author
	posts          map[string]*models.Post
	categories     map[string]*models.Category
	tags           map[string]*models.Tag
	postCategories map[string][]string
	postTags       map[string][]string
	comments       map[string]*models.Comment
	ratings        map[string]*models.Rating
	// seq records insertion order so equal timestamps sort deterministically.
	seq  map[string]int64
	next int64
}

type MemoryStorage struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state *state
	now   func() time.Time
}

var _ database.Store = (*MemoryStorage)(nil)

func New() *MemoryStorage {
	return &MemoryStorage{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func newState() *state {
	return &state{
		users:          make(map[string]*models.User),
		authors:        make(map[string]*models.Author),
		posts:          make(map[string]*models.Post),
		categories:     make(map[string]*models.Category),
		tags:           make(map[string]*models.Tag),
		postCategories: make(map[string][]string),
		postTags:       make(map[string][]string),
		comments:       make(map[string]*models.Comment),
		ratings:        make(map[string]*models.Rating),
		seq:            make(map[string]int64),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range st.authors {
		c.authors[k] = cloneAuthor(v)
	}
	for k, v := range st.posts {
		c.posts[k] = clonePost(v)
	}
	for k, v := range st.categories {
		cat := *v
		c.categories[k] = &cat
	}
	for k, v := range st.tags {
		tag := *v
		c.tags[k] = &tag
	}
	for k, v := range st.postCategories {
		c.postCategories[k] = slices.Clone(v)
	}
	for k, v := range st.postTags {
		c.postTags[k] = slices.Clone(v)
	}
	for k, v := range st.comments {
		c.comments[k] = cloneComment(v)
	}
	for k, v := range st.ratings {
		r := *v
		c.ratings[k] = &r
	}
	c.seq = maps.Clone(st.seq)
	c.next = st.next
	return c
}

func (st *state) track(id string) {
	st.next++
	st.seq[id] = st.next
}

// WithinTx snapshots the state and restores it when fn fails. Transactions
// are serialised, and writers outside a transaction wait for the running
// one to finish, so a rollback never drops their changes.
func (s *MemoryStorage) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

type txKey struct{}

// writer holds txMu for a write made outside a transaction and returns the
// matching unlock. Inside a transaction the lock is already held.
func (s *MemoryStorage) writer(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// Close drops all data.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newState()
	return nil
}

func newID() string {
	return uuid.NewString()
}

func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.Author = nil
	cp.Categories = nil
	cp.Tags = nil
	cp.AverageRating = nil
	cp.RatingCount = 0
	cp.UserRating = nil
	return &cp
}

func cloneAuthor(a *models.Author) *models.Author {
	cp := *a
	cp.SocialLinks = maps.Clone(a.SocialLinks)
	cp.PostCount = 0
	return &cp
}

func cloneComment(c *models.Comment) *models.Comment {
	cp := *c
	cp.Author = nil
	cp.Replies = nil
	cp.PostTitle = ""
	cp.PostSlug = ""
	return &cp
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// sortBy orders by key, newest first when desc, falling back to insertion order.
func sortBy[T any](st *state, items []T, id func(T) string, key func(T) time.Time, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ki, kj := key(items[i]), key(items[j])
		if !ki.Equal(kj) {
			if desc {
				return ki.After(kj)
			}
			return ki.Before(kj)
		}
		si, sj := st.seq[id(items[i])], st.seq[id(items[j])]
		if desc {
			return si > sj
		}
		return si < sj
	})
}
