package stats

import (
	"math"

	"github.com/TobiSchelling/storystats/internal/database"
)

// NormalizedMax is the weight given to the largest value.
const NormalizedMax = 1000

// NoTopicLabel groups pages that have no topic.
const NoTopicLabel = "بدون موضوع"

// Normalize rescales v against peak into [0, NormalizedMax]. A peak of zero
// is treated as one.
func Normalize(v, peak int64) int {
	if peak <= 0 {
		peak = 1
	}
	return int(math.Round(float64(v) / float64(peak) * NormalizedMax))
}

// Bubbles groups pages by topic name and normalizes their follower counts
// against the largest count across all groups. Input order is kept, with
// each page listed once.
func Bubbles(pages []database.TopicPage) []BubbleGroup {
	var globalMax int64
	for _, p := range pages {
		if p.FollowersCount > globalMax {
			globalMax = p.FollowersCount
		}
	}

	var groups []BubbleGroup
	index := make(map[string]int)
	seen := make(map[int64]bool)
	for _, p := range pages {
		if seen[p.PageID] {
			continue
		}
		seen[p.PageID] = true

		name := NoTopicLabel
		if p.TopicName != nil {
			name = *p.TopicName
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, BubbleGroup{Name: name, Data: []BubblePoint{}})
		}
		groups[i].Data = append(groups[i].Data, BubblePoint{
			Name:  p.PageName,
			Value: Normalize(p.FollowersCount, globalMax),
		})
	}
	return groups
}
