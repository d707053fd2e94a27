package stats

import "github.com/TobiSchelling/storystats/internal/database"

// feelingTone builds the heatmap: one column per tone and one row per
// feeling, both in breakdown order.
func feelingTone(stories []database.Story, feelings []bucket[database.Feeling], tones []bucket[database.Tone]) Matrix {
	col := make(map[database.Tone]int, len(tones))
	m := Matrix{Categories: make([]string, 0, len(tones))}
	for i, t := range tones {
		col[t.key] = i
		m.Categories = append(m.Categories, t.label)
	}

	row := make(map[database.Feeling]int, len(feelings))
	m.Series = make([]NamedSeries, 0, len(feelings))
	for i, f := range feelings {
		row[f.key] = i
		m.Series = append(m.Series, NamedSeries{Name: f.label, Data: make([]int, len(tones))})
	}

	for _, s := range stories {
		cell := &m.Series[row[s.Feeling]].Data[col[s.Tone]]
		*cell++
		if *cell > m.MaxValue {
			m.MaxValue = *cell
		}
	}
	return m
}

// streamgraph counts each feeling per day of the daily trend.
func (e *Engine) streamgraph(stories []database.Story, days []dayCount, feelings []bucket[database.Feeling]) Stream {
	col := make(map[string]int, len(days))
	for i, d := range days {
		col[d.key] = i
	}
	row := make(map[database.Feeling]int, len(feelings))
	st := Stream{Categories: dailyLabels(days), Series: make([]NamedSeries, 0, len(feelings))}
	for i, f := range feelings {
		row[f.key] = i
		st.Series = append(st.Series, NamedSeries{Name: f.label, Data: make([]int, len(days))})
	}

	for _, s := range stories {
		i, ok := col[e.dayKey(s.CreatedAt)]
		if !ok {
			continue
		}
		st.Series[row[s.Feeling]].Data[i]++
	}
	return st
}
