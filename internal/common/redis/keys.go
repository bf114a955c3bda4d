package redis

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const scoreKeyPrefix = "seo:score:"

// ScoreKey is the cache key of a page's catalog score. It is derived from the page
// content, so any edit produces a new key and stale scores simply expire.
func ScoreKey(content string) string {
	return scoreKeyPrefix + strconv.FormatUint(xxhash.Sum64String(content), 16)
}
