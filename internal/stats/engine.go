// Package stats computes the dashboard statistics over a filtered snapshot
// of stories.
package stats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/storystats/internal/database"
)

// Store is the read side the engine needs from the record store.
type Store interface {
	ListStories(ctx context.Context, f database.StoryFilter) ([]database.Story, error)
	CountPages(ctx context.Context) (int, error)
	StoryPagesByTopic(ctx context.Context) ([]database.TopicPage, error)
}

// Engine computes payloads. It keeps no state between calls and is safe
// for concurrent use.
type Engine struct {
	store    Store
	now      func() time.Time
	loc      *time.Location
	tagLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone that decides which calendar day a story falls on.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithTagLimit sets how many tags top_tag and text_tag return.
func WithTagLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.tagLimit = n
		}
	}
}

// NewEngine creates an engine reading from store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now, loc: time.UTC, tagLimit: DefaultTagLimit}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute loads one snapshot for c and derives every aggregate from it.
func (e *Engine) Compute(ctx context.Context, c Criteria) (*Payload, error) {
	var (
		stories   []database.Story
		pageCount int
		bubbles   []database.TopicPage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stories, err = e.store.ListStories(gctx, c.Filter(e.now()))
		if err != nil {
			return fmt.Errorf("loading stories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		pageCount, err = e.store.CountPages(gctx)
		if err != nil {
			return fmt.Errorf("counting pages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bubbles, err = e.store.StoryPagesByTopic(gctx)
		if err != nil {
			return fmt.Errorf("loading bubble pages: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Assemble(e.aggregate(stories, pageCount, bubbles, c.Days)), nil
}

func (e *Engine) aggregate(stories []database.Story, pageCount int, bubbles []database.TopicPage, days *int) *Payload {
	p := &Payload{TotalCount: len(stories), PageCount: pageCount}

	daily := e.dailyBuckets(stories, days)
	p.DailyTrend = []Series{dailySeries(daily)}
	p.MonthlyTrend = e.monthlyTrend(stories)

	topics := newTally[int64]()
	subTopics := newTally[int64]()
	pages := newTally[int64]()
	types := newTally[database.StoryType]()
	feelings := newTally[database.Feeling]()
	tones := newTally[database.Tone]()
	ironic := newTally[database.Ironic]()
	titles := make([]string, 0, len(stories))
	texts := make([]string, 0, len(stories))

	for _, s := range stories {
		if s.TopicID != nil && s.TopicName != nil {
			topics.add(*s.TopicID, *s.TopicName)
		}
		if s.SubTopicID != nil && s.SubTopicName != nil {
			subTopics.add(*s.SubTopicID, *s.SubTopicName)
		}
		if s.PageID != nil && s.PageName != nil {
			pages.add(*s.PageID, *s.PageName)
		}
		types.add(s.Type, s.Type.Label())
		feelings.add(s.Feeling, s.Feeling.Label())
		tones.add(s.Tone, s.Tone.Label())
		ironic.add(s.Ironic, s.Ironic.Label())

		titles = append(titles, s.Title)
		if s.Text != nil {
			texts = append(texts, *s.Text)
		}
	}

	p.ByTopic = labelSeries(topics.ranked())
	p.BySubTopic = labelSeries(subTopics.ranked())
	p.ByPage = labelSeries(pages.ranked())
	p.ByPageBubble = Bubbles(bubbles)

	rankedFeelings := feelings.ranked()
	rankedTones := tones.ranked()
	p.ByType = labelCounts(types.ranked())
	p.ByFeeling = labelCounts(rankedFeelings)
	p.ByTone = labelCounts(rankedTones)
	p.ByIronic = labelCounts(ironic.ranked())

	p.TopTag = TitleTags(titles, e.tagLimit)
	p.TextTag = TextTags(texts, e.tagLimit)

	p.ByFeelingTone = feelingTone(stories, rankedFeelings, rankedTones)
	p.ByFeelingStreamgraph = e.streamgraph(stories, daily, rankedFeelings)
	return p
}
