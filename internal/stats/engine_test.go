package stats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/TobiSchelling/storystats/internal/database"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	stories   []database.Story
	pages     int
	bubbles   []database.TopicPage
	err       error
	gotFilter database.StoryFilter
}

func (f *fakeStore) ListStories(_ context.Context, filter database.StoryFilter) ([]database.Story, error) {
	f.gotFilter = filter
	return f.stories, f.err
}

func (f *fakeStore) CountPages(context.Context) (int, error) { return f.pages, nil }

func (f *fakeStore) StoryPagesByTopic(context.Context) ([]database.TopicPage, error) {
	return f.bubbles, nil
}

var testNow = time.Date(2024, time.March, 25, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func story(id int64, day time.Time, feeling database.Feeling, tone database.Tone) database.Story {
	return database.Story{
		ID:        id,
		Title:     "tag",
		Feeling:   feeling,
		Tone:      tone,
		Ironic:    database.IronicAligned,
		Type:      database.StoryTypeImage,
		CreatedAt: day,
	}
}

func onPage(s database.Story, pageID int64, page string, topicID int64, topic string) database.Story {
	s.PageID, s.PageName = &pageID, &page
	s.TopicID, s.TopicName = &topicID, &topic
	return s
}

func inSubTopic(s database.Story, id int64, name string) database.Story {
	s.SubTopicID, s.SubTopicName = &id, &name
	return s
}

func newTestEngine(store Store) *Engine {
	return NewEngine(store, WithClock(func() time.Time { return testNow }))
}

func TestComputeEmptyStore(t *testing.T) {
	e := newTestEngine(&fakeStore{})

	got, err := e.Compute(context.Background(), Criteria{})
	require.NoError(t, err)

	want := &Payload{
		DailyTrend:           []Series{{Categories: []string{}, Data: []int{}}},
		MonthlyTrend:         []MonthCount{},
		ByTopic:              []Series{{Categories: []string{}, Data: []int{}}},
		BySubTopic:           []Series{{Categories: []string{}, Data: []int{}}},
		ByPage:               []Series{{Categories: []string{}, Data: []int{}}},
		ByPageBubble:         []BubbleGroup{},
		ByType:               []CountByLabel{},
		ByFeeling:            []CountByLabel{},
		ByTone:               []CountByLabel{},
		ByIronic:             []CountByLabel{},
		TopTag:               []Tag{},
		TextTag:              []Tag{},
		ByFeelingTone:        Matrix{Categories: []string{}, Series: []NamedSeries{}},
		ByFeelingStreamgraph: Stream{Categories: []string{}, Series: []NamedSeries{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "null")
}

func TestComputeBreakdowns(t *testing.T) {
	d1 := time.Date(2024, time.March, 19, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)

	store := &fakeStore{
		pages: 7,
		stories: []database.Story{
			inSubTopic(onPage(story(1, d1, database.FeelingHappy, database.ToneFormal), 10, "Alpha", 1, "Politics"), 5, "Elections"),
			inSubTopic(onPage(story(2, d1, database.FeelingSad, database.ToneFormal), 11, "Beta", 2, "Sport"), 6, "Football"),
			inSubTopic(onPage(story(3, d2, database.FeelingSad, database.ToneInformal), 11, "Beta", 2, "Sport"), 6, "Football"),
			story(4, d2, database.FeelingSad, database.ToneFormal),
		},
	}
	store.stories[3].Type = database.StoryTypeVideo

	p, err := newTestEngine(store).Compute(context.Background(), Criteria{})
	require.NoError(t, err)

	assert.Equal(t, 4, p.TotalCount)
	assert.Equal(t, 7, p.PageCount)

	assert.Equal(t, []Series{{Categories: []string{"1402-12-29", "1403-01-01"}, Data: []int{2, 2}}}, p.DailyTrend)
	assert.Equal(t, []MonthCount{{Month: "1402-12", Count: 4}}, p.MonthlyTrend)

	assert.Equal(t, []Series{{Categories: []string{"Sport", "Politics"}, Data: []int{2, 1}}}, p.ByTopic)
	assert.Equal(t, []Series{{Categories: []string{"Beta", "Alpha"}, Data: []int{2, 1}}}, p.ByPage)
	assert.Equal(t, []Series{{Categories: []string{"Football", "Elections"}, Data: []int{2, 1}}}, p.BySubTopic)
	subTotal := 0
	for _, v := range p.BySubTopic[0].Data {
		subTotal += v
	}
	assert.Equal(t, 3, subTotal, "stories without a sub-topic are left out")

	assert.Equal(t, []CountByLabel{{"غمگین", 3}, {"شاد", 1}}, p.ByFeeling)
	assert.Equal(t, []CountByLabel{{"رسمی", 3}, {"غیررسمی", 1}}, p.ByTone)
	assert.Equal(t, []CountByLabel{{"عکس", 3}, {"ویدئو", 1}}, p.ByType)
	assert.Equal(t, []CountByLabel{{"همسو", 4}}, p.ByIronic)

	// Every breakdown over a mandatory field sums to the total.
	for _, b := range [][]CountByLabel{p.ByType, p.ByFeeling, p.ByTone, p.ByIronic} {
		sum := 0
		for _, c := range b {
			sum += c.Y
		}
		assert.Equal(t, p.TotalCount, sum)
	}

	assert.Equal(t, Matrix{
		Categories: []string{"رسمی", "غیررسمی"},
		Series: []NamedSeries{
			{Name: "غمگین", Data: []int{2, 1}},
			{Name: "شاد", Data: []int{1, 0}},
		},
		MaxValue: 2,
	}, p.ByFeelingTone)

	assert.Equal(t, Stream{
		Categories: []string{"1402-12-29", "1403-01-01"},
		Series: []NamedSeries{
			{Name: "غمگین", Data: []int{1, 2}},
			{Name: "شاد", Data: []int{1, 0}},
		},
	}, p.ByFeelingStreamgraph)
}

func TestComputeMatrixSumsToTotal(t *testing.T) {
	feelings := []database.Feeling{database.FeelingHappy, database.FeelingAngry, database.FeelingCalm}
	tones := []database.Tone{database.ToneFriendly, database.ToneSarcastic}

	var stories []database.Story
	for i := 0; i < 17; i++ {
		stories = append(stories, story(int64(i), testNow.AddDate(0, 0, -i%4), feelings[i%3], tones[i%2]))
	}
	p, err := newTestEngine(&fakeStore{stories: stories}).Compute(context.Background(), Criteria{})
	require.NoError(t, err)

	sum := 0
	for _, row := range p.ByFeelingTone.Series {
		for _, v := range row.Data {
			sum += v
		}
	}
	assert.Equal(t, p.TotalCount, sum)

	streamSum := 0
	for _, row := range p.ByFeelingStreamgraph.Series {
		require.Len(t, row.Data, len(p.ByFeelingStreamgraph.Categories))
		for _, v := range row.Data {
			streamSum += v
		}
	}
	assert.Equal(t, p.TotalCount, streamSum)
}

func TestComputeDailyTruncation(t *testing.T) {
	stories := []database.Story{
		story(1, testNow.AddDate(0, 0, -2), database.FeelingHappy, database.ToneFormal),
		story(2, testNow.AddDate(0, 0, -1), database.FeelingHappy, database.ToneFormal),
		story(3, testNow, database.FeelingHappy, database.ToneFormal),
	}
	store := &fakeStore{stories: stories}
	e := newTestEngine(store)

	p, err := e.Compute(context.Background(), Criteria{Days: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, p.DailyTrend[0].Data)
	assert.Len(t, p.ByFeelingStreamgraph.Categories, 2)
	assert.Equal(t, 3, p.TotalCount, "truncation only affects the trend")

	require.NotNil(t, store.gotFilter.Since)
	assert.Equal(t, testNow.Add(-48*time.Hour), *store.gotFilter.Since)

	p, err = e.Compute(context.Background(), Criteria{})
	require.NoError(t, err)
	assert.Len(t, p.DailyTrend[0].Data, 3)
	assert.Nil(t, store.gotFilter.Since)

	p, err = e.Compute(context.Background(), Criteria{Days: ptr(0)})
	require.NoError(t, err)
	assert.Empty(t, p.DailyTrend[0].Categories)
}

func TestComputeMonthlyKeepsRecentSix(t *testing.T) {
	var stories []database.Story
	for m := 0; m < 8; m++ {
		stories = append(stories, story(int64(m), time.Date(2023, time.Month(m+1), 15, 0, 0, 0, 0, time.UTC),
			database.FeelingHappy, database.ToneFormal))
	}
	p, err := newTestEngine(&fakeStore{stories: stories}).Compute(context.Background(), Criteria{})
	require.NoError(t, err)

	require.Len(t, p.MonthlyTrend, MonthlyTrendMonths)
	// 2023-08-01 is 1402/05/10, 2023-03-01 is 1401/12/10.
	assert.Equal(t, "1402-05", p.MonthlyTrend[0].Month)
	assert.Equal(t, "1401-12", p.MonthlyTrend[5].Month)
}

func TestComputeUsesLocationForDays(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	late := time.Date(2024, time.March, 19, 22, 0, 0, 0, time.UTC) // already March 20 in Tehran

	e := NewEngine(&fakeStore{stories: []database.Story{story(1, late, database.FeelingCalm, database.ToneFormal)}},
		WithClock(func() time.Time { return testNow }), WithLocation(tehran))
	p, err := e.Compute(context.Background(), Criteria{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1403-01-01"}, p.DailyTrend[0].Categories)
}

func TestComputeBubblesIgnoreFilter(t *testing.T) {
	store := &fakeStore{
		bubbles: []database.TopicPage{
			{TopicName: ptr("Politics"), PageID: 1, PageName: "A", FollowersCount: 100},
			{TopicName: ptr("Politics"), PageID: 2, PageName: "B", FollowersCount: 50},
			{PageID: 3, PageName: "C", FollowersCount: 25},
		},
	}
	p, err := newTestEngine(store).Compute(context.Background(), Criteria{PageID: ptr[int64](99)})
	require.NoError(t, err)
	assert.Zero(t, p.TotalCount)
	require.Len(t, p.ByPageBubble, 2)
	assert.Equal(t, NoTopicLabel, p.ByPageBubble[1].Name)
}

func TestComputeIdempotent(t *testing.T) {
	store := &fakeStore{stories: []database.Story{
		onPage(story(1, testNow, database.FeelingHappy, database.ToneFormal), 1, "A", 1, "T"),
		story(2, testNow, database.FeelingExcited, database.ToneFriendly),
	}}
	e := newTestEngine(store)

	first, err := e.Compute(context.Background(), Criteria{})
	require.NoError(t, err)
	second, err := e.Compute(context.Background(), Criteria{})
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}

func TestComputeStoreError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := newTestEngine(&fakeStore{err: boom}).Compute(context.Background(), Criteria{})
	assert.ErrorIs(t, err, boom)
}
