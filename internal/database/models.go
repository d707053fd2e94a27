package database

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalid is returned when input violates a field constraint.
	ErrInvalid = errors.New("invalid record")
)

// timeLayout is the format SQLite's datetime('now') produces; all
// timestamps are stored in UTC with it so text comparison orders them.
const timeLayout = "2006-01-02 15:04:05"

const dateLayout = "2006-01-02"

// Category is a free-form grouping shared by pages and stories.
type Category struct {
	ID    int64
	Name  string
	Image *string
}

// SubTopic is a child category of a Topic.
type SubTopic struct {
	ID   int64
	Name string
}

// Topic is a content category assigned to pages.
type Topic struct {
	ID         int64
	Name       string
	Icon       string
	SubTopics  []SubTopic
	UsageCount int // pages assigned to the topic
	StoryCount int // stories of those pages
}

// Page is a tracked social media account.
type Page struct {
	ID                   int64
	Name                 string
	Username             string
	Bio                  string
	ProfileImage         *string
	TopicID              *int64
	SubTopicID           *int64
	Gender               *string
	PoliticalOrientation *string
	Orientation          *string
	Location             *string
	FollowersCount       int64
	FollowingCount       int64
	PostsCount           int64
	AverageLikes         int64
	AverageComments      int64
	IsVerified           bool
	IsActive             bool
	CategoryID           *int64
	CreatedAt            time.Time
	UsageCount           int // stories referencing the page
}

// Story is a single classified post.
type Story struct {
	ID          int64
	Title       string // tags separated by the Arabic comma
	PageID      *int64
	Media       string
	SourceURL   *string
	Feeling     Feeling
	Tone        Tone
	Ironic      Ironic
	Description *string
	Text        *string
	Type        StoryType
	CategoryID  *int64
	TextFetched bool
	CreatedAt   time.Time

	// Joined from the page and its topic; read only.
	PageName     *string
	PageUsername *string
	TopicID      *int64
	TopicName    *string
	SubTopicID   *int64
	SubTopicName *string
}

// DayAnalysis is an analyst note attached to a calendar day.
type DayAnalysis struct {
	ID        int64
	Text      string
	Date      time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TopicPage is one page that owns at least one story, with its topic.
type TopicPage struct {
	TopicName      *string
	PageID         int64
	PageName       string
	FollowersCount int64
}

// Stats contains aggregate database statistics.
type Stats struct {
	Stories      int
	Pages        int
	ActivePages  int
	Topics       int
	SubTopics    int
	Categories   int
	DayAnalyses  int
	AwaitingText int // stories with a source url but no text yet
}
