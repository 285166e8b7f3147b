package core

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
)

const (
	wordsPerMinute = 200
	maxSlugTries   = 10
	createAttempts = 2
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of other characters into a
// single hyphen. The result may be empty.
func Slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// ReadingTime is the whole minutes needed to read content, at least 1.
func ReadingTime(content string) int {
	minutes := int(math.Ceil(float64(stringutils.WordCount(content)) / wordsPerMinute))
	return max(minutes, 1)
}

func randomSuffix() string {
	id := uuid.NewString()
	return id[:strings.IndexByte(id, '-')]
}

// uniqueSlug derives a post slug from title, appending a random suffix
// until nothing else uses it.
func (c *Core) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "post"
	}

	candidate := base
	for range maxSlugTries {
		exists, err := c.store.SlugExists(ctx, candidate)
		if err != nil {
			return "", xerrors.New(err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + randomSuffix()
	}
	return "", xerrors.Newf("no free slug for %q after %d attempts", base, maxSlugTries)
}
