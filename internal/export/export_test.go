package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/TobiSchelling/storystats/internal/stats"
)

func TestWriteFile(t *testing.T) {
	p := &stats.Payload{
		TotalCount: 3,
		PageCount:  2,
		DailyTrend: []stats.Series{{Categories: []string{"1403-01-01", "1403-01-02"}, Data: []int{1, 2}}},
		ByFeeling:  []stats.CountByLabel{{Name: "شاد", Y: 3}},
		ByPageBubble: []stats.BubbleGroup{
			{Name: "Politics", Data: []stats.BubblePoint{{Name: "A", Value: 1000}}},
		},
		ByFeelingTone: stats.Matrix{
			Categories: []string{"رسمی", "کنایی"},
			Series:     []stats.NamedSeries{{Name: "شاد", Data: []int{2, 1}}},
			MaxValue:   2,
		},
	}
	path := filepath.Join(t.TempDir(), "stats.xlsx")
	require.NoError(t, WriteFile(p, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, summarySheet, sheets[0])
	assert.Len(t, sheets, 15)

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Metric", "Value"}, {"total_count", "3"}, {"page_count", "2"}}, rows)

	rows, err = f.GetRows("Daily")
	require.NoError(t, err)
	assert.Equal(t, []string{"1403-01-02", "2"}, rows[2])

	rows, err = f.GetRows("Bubbles")
	require.NoError(t, err)
	assert.Equal(t, []string{"Politics", "A", "1000"}, rows[1])

	rows, err = f.GetRows("FeelingTone")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "رسمی", "کنایی"}, rows[0])
	assert.Equal(t, []string{"شاد", "2", "1"}, rows[1])
}

func TestWorkbookEmptyPayload(t *testing.T) {
	f, err := Workbook(nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Tones")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Stories"}}, rows)
}
