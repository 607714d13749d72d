package blog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const (
	fallbackSlug  = "post"
	maxSlugProbes = 10000
	maxSlugRunes  = 180
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSeparators = regexp.MustCompile(`[\s-]+`)
)

// SlugChecker answers whether a slug is taken by any post other than excludeID.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}

// Slugify derives the base slug for a title.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugRunes {
		s = strings.Trim(s[:maxSlugRunes], "-")
	}
	if s == "" {
		return fallbackSlug
	}
	return s
}

// SlugAllocator hands out slugs that no other post uses.
type SlugAllocator struct {
	checker   SlugChecker
	maxProbes int
}

func NewSlugAllocator(checker SlugChecker) *SlugAllocator {
	return &SlugAllocator{checker: checker, maxProbes: maxSlugProbes}
}

// Allocate probes base, base-2, base-3 ... until a free slug is found.
func (a *SlugAllocator) Allocate(ctx context.Context, title, excludeID string) (string, error) {
	base := Slugify(title)
	for n := 1; n <= a.maxProbes; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		taken, err := a.checker.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", storageErr("check slug", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", &StorageError{Op: "allocate slug", Err: ErrSlugExhausted}
}
