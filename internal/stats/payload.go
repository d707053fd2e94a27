package stats

// Series pairs axis labels with one value per label.
type Series struct {
	Categories []string `json:"categories"`
	Data       []int    `json:"data"`
}

// MonthCount is one bucket of the monthly trend.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// CountByLabel is one slice of a pie style breakdown.
type CountByLabel struct {
	Name string `json:"name"`
	Y    int    `json:"y"`
}

// Tag is a token with its frequency.
type Tag struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// BubblePoint is one page inside a bubble group.
type BubblePoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// BubbleGroup holds the pages of one topic.
type BubbleGroup struct {
	Name string        `json:"name"`
	Data []BubblePoint `json:"data"`
}

// NamedSeries is one row of a cross tabulation.
type NamedSeries struct {
	Name string `json:"name"`
	Data []int  `json:"data"`
}

// Matrix is the feeling by tone heatmap.
type Matrix struct {
	Categories []string      `json:"categories"`
	Series     []NamedSeries `json:"series"`
	MaxValue   int           `json:"max_value"`
}

// Stream is the feeling over time streamgraph.
type Stream struct {
	Categories []string      `json:"categories"`
	Series     []NamedSeries `json:"series"`
}

// Payload is the complete statistics response.
type Payload struct {
	TotalCount           int            `json:"total_count"`
	PageCount            int            `json:"page_count"`
	DailyTrend           []Series       `json:"daily_trend"`
	MonthlyTrend         []MonthCount   `json:"monthly_trend"`
	ByTopic              []Series       `json:"by_topic"`
	BySubTopic           []Series       `json:"by_sub_topic"`
	ByPage               []Series       `json:"by_page"`
	ByPageBubble         []BubbleGroup  `json:"by_page_bubble"`
	ByType               []CountByLabel `json:"by_type"`
	ByFeeling            []CountByLabel `json:"by_feeling"`
	ByTone               []CountByLabel `json:"by_tone"`
	ByIronic             []CountByLabel `json:"by_ironic"`
	TopTag               []Tag          `json:"top_tag"`
	TextTag              []Tag          `json:"text_tag"`
	ByFeelingTone        Matrix         `json:"by_feeling_tone"`
	ByFeelingStreamgraph Stream         `json:"by_feeling_streamgraph"`
}

// Assemble fills every nil collection with an empty one so the encoded
// payload never carries null where a list is expected.
func Assemble(p *Payload) *Payload {
	if p == nil {
		p = &Payload{}
	}
	p.DailyTrend = seriesList(p.DailyTrend)
	p.ByTopic = seriesList(p.ByTopic)
	p.BySubTopic = seriesList(p.BySubTopic)
	p.ByPage = seriesList(p.ByPage)
	p.MonthlyTrend = orEmpty(p.MonthlyTrend)
	p.ByType = orEmpty(p.ByType)
	p.ByFeeling = orEmpty(p.ByFeeling)
	p.ByTone = orEmpty(p.ByTone)
	p.ByIronic = orEmpty(p.ByIronic)
	p.TopTag = orEmpty(p.TopTag)
	p.TextTag = orEmpty(p.TextTag)

	p.ByPageBubble = orEmpty(p.ByPageBubble)
	for i := range p.ByPageBubble {
		p.ByPageBubble[i].Data = orEmpty(p.ByPageBubble[i].Data)
	}

	p.ByFeelingTone.Categories = orEmpty(p.ByFeelingTone.Categories)
	p.ByFeelingTone.Series = namedSeries(p.ByFeelingTone.Series)
	p.ByFeelingStreamgraph.Categories = orEmpty(p.ByFeelingStreamgraph.Categories)
	p.ByFeelingStreamgraph.Series = namedSeries(p.ByFeelingStreamgraph.Series)
	return p
}

// seriesList guarantees the single wrapper element charts expect.
func seriesList(s []Series) []Series {
	if len(s) == 0 {
		s = []Series{{}}
	}
	for i := range s {
		s[i].Categories = orEmpty(s[i].Categories)
		s[i].Data = orEmpty(s[i].Data)
	}
	return s
}

func namedSeries(s []NamedSeries) []NamedSeries {
	s = orEmpty(s)
	for i := range s {
		s[i].Data = orEmpty(s[i].Data)
	}
	return s
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
