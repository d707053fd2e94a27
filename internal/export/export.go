// Package export writes a statistics payload to an xlsx workbook, one
// sheet per aggregate.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/TobiSchelling/storystats/internal/stats"
)

const summarySheet = "Summary"

// Workbook builds the workbook for p. The caller closes the returned file.
func Workbook(p *stats.Payload) (*excelize.File, error) {
	p = stats.Assemble(p)
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming default sheet: %w", err)
	}

	w := &writer{f: f}
	w.rows(summarySheet, [][]any{
		{"Metric", "Value"},
		{"total_count", p.TotalCount},
		{"page_count", p.PageCount},
	})
	w.series("Daily", "Day", p.DailyTrend)

	monthly := [][]any{{"Month", "Count"}}
	for _, m := range p.MonthlyTrend {
		monthly = append(monthly, []any{m.Month, m.Count})
	}
	w.sheet("Monthly", monthly)

	w.series("Topics", "Topic", p.ByTopic)
	w.series("SubTopics", "Sub-topic", p.BySubTopic)
	w.series("Pages", "Page", p.ByPage)

	bubbles := [][]any{{"Topic", "Page", "Weight"}}
	for _, g := range p.ByPageBubble {
		for _, pt := range g.Data {
			bubbles = append(bubbles, []any{g.Name, pt.Name, pt.Value})
		}
	}
	w.sheet("Bubbles", bubbles)

	w.labels("Types", p.ByType)
	w.labels("Feelings", p.ByFeeling)
	w.labels("Tones", p.ByTone)
	w.labels("Ironic", p.ByIronic)
	w.tags("TitleTags", p.TopTag)
	w.tags("TextTags", p.TextTag)
	w.crosstab("FeelingTone", p.ByFeelingTone.Categories, p.ByFeelingTone.Series)
	w.crosstab("Streamgraph", p.ByFeelingStreamgraph.Categories, p.ByFeelingStreamgraph.Series)

	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// WriteFile saves the workbook for p to path.
func WriteFile(p *stats.Payload, path string) error {
	f, err := Workbook(p)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// writer keeps the first error so sheet building reads linearly.
type writer struct {
	f   *excelize.File
	err error
}

func (w *writer) sheet(name string, rows [][]any) {
	if w.err != nil {
		return
	}
	if _, err := w.f.NewSheet(name); err != nil {
		w.err = fmt.Errorf("creating sheet %s: %w", name, err)
		return
	}
	w.rows(name, rows)
}

func (w *writer) rows(sheet string, rows [][]any) {
	for i, row := range rows {
		if w.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			w.err = fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
}

func (w *writer) series(name, heading string, s []stats.Series) {
	rows := [][]any{{heading, "Stories"}}
	for _, series := range s {
		for i, label := range series.Categories {
			rows = append(rows, []any{label, series.Data[i]})
		}
	}
	w.sheet(name, rows)
}

func (w *writer) labels(name string, counts []stats.CountByLabel) {
	rows := [][]any{{"Name", "Stories"}}
	for _, c := range counts {
		rows = append(rows, []any{c.Name, c.Y})
	}
	w.sheet(name, rows)
}

func (w *writer) tags(name string, tags []stats.Tag) {
	rows := [][]any{{"Tag", "Weight"}}
	for _, t := range tags {
		rows = append(rows, []any{t.Name, t.Weight})
	}
	w.sheet(name, rows)
}

// crosstab writes one header row of categories and one row per series.
func (w *writer) crosstab(name string, categories []string, series []stats.NamedSeries) {
	header := []any{""}
	for _, c := range categories {
		header = append(header, c)
	}
	rows := [][]any{header}
	for _, s := range series {
		row := []any{s.Name}
		for _, v := range s.Data {
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	w.sheet(name, rows)
}
