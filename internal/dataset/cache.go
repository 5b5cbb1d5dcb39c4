package dataset

import (
	"context"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	classID   int
	labelsMod int64
	imagesMod int64
}

// CachedService memoizes successful lookups keyed by class and the mtimes of both
// dataset directories. Adding or removing files bumps a directory mtime; editing a
// label file in place does not, so the cache only suits datasets that are replaced
// file by file.
type CachedService struct {
	svc   *Service
	cache *lru.Cache[cacheKey, Result]
}

func NewCachedService(svc *Service, size int) (*CachedService, error) {
	c, err := lru.New[cacheKey, Result](size)
	if err != nil {
		return nil, err
	}
	return &CachedService{svc: svc, cache: c}, nil
}

func (c *CachedService) Lookup(ctx context.Context, classID int) (Result, error) {
	lm, lok := modTime(c.svc.LabelsDir())
	im, iok := modTime(c.svc.ImagesDir())
	if !lok || !iok {
		return c.svc.Lookup(ctx, classID)
	}
	key := cacheKey{classID: classID, labelsMod: lm, imagesMod: im}
	if r, ok := c.cache.Get(key); ok {
		return copyResult(r), nil
	}
	r, err := c.svc.Lookup(ctx, classID)
	if err != nil {
		return r, err
	}
	c.cache.Add(key, r)
	return copyResult(r), nil
}

// Len reports the number of cached results.
func (c *CachedService) Len() int { return c.cache.Len() }

func modTime(dir string) (int64, bool) {
	fi, err := os.Stat(dir)
	if err != nil {
		return 0, false
	}
	return fi.ModTime().UnixNano(), true
}

func copyResult(r Result) Result {
	out := r
	out.Samples = append(make([]Sample, 0, len(r.Samples)), r.Samples...)
	return out
}
