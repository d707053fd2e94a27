package stats

import "sort"

// tally counts occurrences per key while remembering first-seen order.
type tally[K comparable] struct {
	order  []K
	counts map[K]int
	labels map[K]string
}

type bucket[K comparable] struct {
	key   K
	label string
	count int
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{counts: make(map[K]int), labels: make(map[K]string)}
}

func (t *tally[K]) add(key K, label string) {
	if _, seen := t.counts[key]; !seen {
		t.order = append(t.order, key)
		t.labels[key] = label
	}
	t.counts[key]++
}

// ranked returns buckets by descending count, ties in first-seen order.
func (t *tally[K]) ranked() []bucket[K] {
	out := make([]bucket[K], 0, len(t.order))
	for _, k := range t.order {
		out = append(out, bucket[K]{key: k, label: t.labels[k], count: t.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

func labelCounts[K comparable](buckets []bucket[K]) []CountByLabel {
	out := make([]CountByLabel, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, CountByLabel{Name: b.label, Y: b.count})
	}
	return out
}

func labelSeries[K comparable](buckets []bucket[K]) []Series {
	s := Series{Categories: make([]string, 0, len(buckets)), Data: make([]int, 0, len(buckets))}
	for _, b := range buckets {
		s.Categories = append(s.Categories, b.label)
		s.Data = append(s.Data, b.count)
	}
	return []Series{s}
}
