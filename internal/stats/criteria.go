package stats

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/storystats/internal/database"
)

// InputError reports a query parameter the caller has to fix.
type InputError struct {
	Param   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Message)
}

// Criteria is the caller supplied filter shared by every aggregate.
type Criteria struct {
	Search  string
	TopicID *int64
	PageID  *int64
	Days    *int
}

// ParseCriteria reads search, topic_id, page_id and days from a query
// string. Unparseable ids are ignored; a days value that is not a
// non-negative integer is an *InputError.
func ParseCriteria(q url.Values) (Criteria, error) {
	c := Criteria{Search: strings.TrimSpace(q.Get("search"))}
	if id, ok := parseID(q.Get("topic_id")); ok {
		c.TopicID = &id
	}
	if id, ok := parseID(q.Get("page_id")); ok {
		c.PageID = &id
	}
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return Criteria{}, &InputError{Param: "days", Message: "must be a non-negative integer"}
		}
		c.Days = &days
	}
	return c, nil
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Filter converts the criteria into a store filter anchored at now.
func (c Criteria) Filter(now time.Time) database.StoryFilter {
	f := database.StoryFilter{Search: c.Search, TopicID: c.TopicID, PageID: c.PageID}
	if c.Days != nil {
		since := now.Add(-time.Duration(*c.Days) * 24 * time.Hour)
		f.Since = &since
	}
	return f
}

// Key is a canonical encoding of the criteria, stable across parameter
// order, used to cache payloads.
func (c Criteria) Key() string {
	v := url.Values{}
	if c.Search != "" {
		v.Set("search", c.Search)
	}
	if c.TopicID != nil {
		v.Set("topic_id", strconv.FormatInt(*c.TopicID, 10))
	}
	if c.PageID != nil {
		v.Set("page_id", strconv.FormatInt(*c.PageID, 10))
	}
	if c.Days != nil {
		v.Set("days", strconv.Itoa(*c.Days))
	}
	return v.Encode()
}
