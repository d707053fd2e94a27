// Package compose turns a statistics payload into a readable markdown
// digest, and renders markdown to HTML for the API.
package compose

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/storystats/internal/calendar"
	"github.com/TobiSchelling/storystats/internal/stats"
)

var md = goldmark.New()

// digestTagCount caps the tag lists in the digest.
const digestTagCount = 10

// Digest composes the markdown digest for a payload.
func Digest(p *stats.Payload, c stats.Criteria, generated time.Time) string {
	header := fmt.Sprintf("# Story statistics %s\n\n%s", calendar.DisplayDate(generated), describeCriteria(c))

	if p == nil || p.TotalCount == 0 {
		return header + "\n\n- No stories matched these filters."
	}

	sections := []string{header + "\n\n" + tldr(p)}
	if len(p.DailyTrend) > 0 && len(p.DailyTrend[0].Categories) > 0 {
		sections = append(sections, "## Daily trend\n\n"+table("Day", p.DailyTrend[0].Categories, p.DailyTrend[0].Data))
	}
	if len(p.MonthlyTrend) > 0 {
		labels := make([]string, len(p.MonthlyTrend))
		counts := make([]int, len(p.MonthlyTrend))
		for i, m := range p.MonthlyTrend {
			labels[i], counts[i] = m.Month, m.Count
		}
		sections = append(sections, "## Monthly trend\n\n"+table("Month", labels, counts))
	}
	for _, s := range []struct {
		title  string
		series []stats.Series
	}{
		{"By topic", p.ByTopic},
		{"By sub-topic", p.BySubTopic},
		{"By page", p.ByPage},
	} {
		if len(s.series) == 0 || len(s.series[0].Categories) == 0 {
			continue
		}
		sections = append(sections, "## "+s.title+"\n\n"+table("Name", s.series[0].Categories, s.series[0].Data))
	}
	for _, b := range []struct {
		title  string
		counts []stats.CountByLabel
	}{
		{"By feeling", p.ByFeeling},
		{"By tone", p.ByTone},
		{"By type", p.ByType},
		{"By alignment", p.ByIronic},
	} {
		if len(b.counts) > 0 {
			sections = append(sections, "## "+b.title+"\n\n"+labelTable(b.counts))
		}
	}
	if len(p.TopTag) > 0 {
		sections = append(sections, "## Top tags\n\n"+tagList(p.TopTag))
	}
	if len(p.TextTag) > 0 {
		sections = append(sections, "## Frequent words\n\n"+tagList(p.TextTag))
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func describeCriteria(c stats.Criteria) string {
	var parts []string
	if c.Search != "" {
		parts = append(parts, fmt.Sprintf("search `%s`", c.Search))
	}
	if c.TopicID != nil {
		parts = append(parts, fmt.Sprintf("topic #%d", *c.TopicID))
	}
	if c.PageID != nil {
		parts = append(parts, fmt.Sprintf("page #%d", *c.PageID))
	}
	if c.Days != nil {
		parts = append(parts, fmt.Sprintf("last %d days", *c.Days))
	}
	if len(parts) == 0 {
		return "_All stories._"
	}
	return "_Filtered by " + strings.Join(parts, ", ") + "._"
}

func tldr(p *stats.Payload) string {
	bullets := []string{
		fmt.Sprintf("- %d stories across %d tracked pages", p.TotalCount, p.PageCount),
	}
	if len(p.ByFeeling) > 0 {
		bullets = append(bullets, fmt.Sprintf("- Dominant feeling: %s (%d)", p.ByFeeling[0].Name, p.ByFeeling[0].Y))
	}
	if len(p.ByTone) > 0 {
		bullets = append(bullets, fmt.Sprintf("- Dominant tone: %s (%d)", p.ByTone[0].Name, p.ByTone[0].Y))
	}
	if len(p.ByTopic) > 0 && len(p.ByTopic[0].Categories) > 0 {
		bullets = append(bullets, fmt.Sprintf("- Busiest topic: %s (%d)", p.ByTopic[0].Categories[0], p.ByTopic[0].Data[0]))
	}
	if len(p.TopTag) > 0 {
		bullets = append(bullets, fmt.Sprintf("- Most used tag: %s", p.TopTag[0].Name))
	}
	return strings.Join(bullets, "\n")
}

func table(heading string, labels []string, counts []int) string {
	rows := []string{"| " + heading + " | Stories |", "|---|---:|"}
	for i, l := range labels {
		rows = append(rows, fmt.Sprintf("| %s | %d |", escapeCell(l), counts[i]))
	}
	return strings.Join(rows, "\n")
}

func labelTable(counts []stats.CountByLabel) string {
	labels := make([]string, len(counts))
	values := make([]int, len(counts))
	for i, c := range counts {
		labels[i], values[i] = c.Name, c.Y
	}
	return table("Value", labels, values)
}

func tagList(tags []stats.Tag) string {
	if len(tags) > digestTagCount {
		tags = tags[:digestTagCount]
	}
	lines := make([]string, len(tags))
	for i, t := range tags {
		lines[i] = fmt.Sprintf("%d. %s (%d)", i+1, t.Name, t.Weight)
	}
	return strings.Join(lines, "\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderHTML converts markdown to HTML.
func RenderHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}
