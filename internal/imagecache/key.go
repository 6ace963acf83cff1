package imagecache

import "strings"

const keyPrefix = "cache_img_"

// Key derives the persistent cache key for an item on a given day.
// Case and whitespace differences in either argument resolve to the same key.
// The key does not depend on the prompt, so a changed prompt keeps serving the
// previously cached image until the entry is regenerated.
func Key(day, name string) string {
	return keyPrefix + normalize(day) + "_" + normalize(name)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}
