package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "conduit:user:%d"
	ArticleKeyPrefix = "conduit:article:%s"
	TagsKey          = "conduit:tags"
)

const (
	UserTTL    = 5 * time.Minute
	ArticleTTL = 10 * time.Minute
	TagsTTL    = 15 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// ArticleKey is keyed by slug; only the anonymous view is cached.
func ArticleKey(slug string) string {
	return fmt.Sprintf(ArticleKeyPrefix, slug)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateArticle(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, ArticleKey(slug))
		}
	}
	Invalidate(ctx, keys...)
}

func InvalidateTags(ctx context.Context) {
	Invalidate(ctx, TagsKey)
}
