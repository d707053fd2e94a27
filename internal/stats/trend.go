package stats

import (
	"sort"
	"time"

	"github.com/TobiSchelling/storystats/internal/calendar"
	"github.com/TobiSchelling/storystats/internal/database"
)

// MonthlyTrendMonths is how many recent months the monthly trend keeps.
const MonthlyTrendMonths = 6

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// dayCount is one Gregorian calendar day of the daily trend.
type dayCount struct {
	key   string
	date  time.Time
	count int
}

func (e *Engine) dayKey(t time.Time) string {
	return t.In(e.loc).Format(dayKeyLayout)
}

// dailyBuckets groups stories per day, oldest first. When days is set only
// the first days buckets are kept.
func (e *Engine) dailyBuckets(stories []database.Story, days *int) []dayCount {
	counts := make(map[string]int)
	for _, s := range stories {
		counts[e.dayKey(s.CreatedAt)]++
	}

	buckets := make([]dayCount, 0, len(counts))
	for key, n := range counts {
		date, _ := time.ParseInLocation(dayKeyLayout, key, e.loc)
		buckets = append(buckets, dayCount{key: key, date: date, count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].key < buckets[j].key })

	if days != nil && *days < len(buckets) {
		buckets = buckets[:*days]
	}
	return buckets
}

func dailyLabels(buckets []dayCount) []string {
	labels := make([]string, 0, len(buckets))
	for _, b := range buckets {
		labels = append(labels, calendar.DayLabel(b.date))
	}
	return labels
}

func dailySeries(buckets []dayCount) Series {
	s := Series{Categories: dailyLabels(buckets), Data: make([]int, 0, len(buckets))}
	for _, b := range buckets {
		s.Data = append(s.Data, b.count)
	}
	return s
}

// monthlyTrend counts stories per Gregorian month, newest first, labelled
// with the Jalali month of the month's first day.
func (e *Engine) monthlyTrend(stories []database.Story) []MonthCount {
	counts := make(map[string]int)
	for _, s := range stories {
		counts[s.CreatedAt.In(e.loc).Format(monthKeyLayout)]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > MonthlyTrendMonths {
		keys = keys[:MonthlyTrendMonths]
	}

	out := make([]MonthCount, 0, len(keys))
	for _, k := range keys {
		first, _ := time.ParseInLocation(monthKeyLayout, k, e.loc)
		out = append(out, MonthCount{Month: calendar.MonthLabel(first), Count: counts[k]})
	}
	return out
}
