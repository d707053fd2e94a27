package stats

import "strings"

// TitleSeparator splits the tag list stored in a story title.
const TitleSeparator = "،"

// DefaultTagLimit is the number of tags returned when no limit is configured.
const DefaultTagLimit = 20

// SplitTitle returns the trimmed, non-empty tags of a title.
func SplitTitle(title string) []string {
	var tags []string
	for _, tok := range strings.Split(title, TitleSeparator) {
		if tok = strings.TrimSpace(tok); tok != "" {
			tags = append(tags, tok)
		}
	}
	return tags
}

// TitleTags ranks the tags found in titles.
func TitleTags(titles []string, limit int) []Tag {
	return topTokens(titles, SplitTitle, limit)
}

// TextTags ranks the whitespace separated words found in texts.
func TextTags(texts []string, limit int) []Tag {
	return topTokens(texts, strings.Fields, limit)
}

// topTokens counts tokens across docs and returns the limit most frequent.
// Equal counts keep the order in which tokens were first seen.
func topTokens(docs []string, split func(string) []string, limit int) []Tag {
	if limit <= 0 {
		limit = DefaultTagLimit
	}
	t := newTally[string]()
	for _, doc := range docs {
		if doc == "" {
			continue
		}
		for _, tok := range split(doc) {
			t.add(tok, tok)
		}
	}

	ranked := t.ranked()
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	tags := make([]Tag, 0, len(ranked))
	for _, r := range ranked {
		tags = append(tags, Tag{Name: r.label, Weight: r.count})
	}
	return tags
}
