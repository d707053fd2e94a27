// Package fetch fills empty story texts from the page a story was
// imported from.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/storystats/internal/database"
	"github.com/TobiSchelling/storystats/internal/logger"
)

// maxBodyBytes bounds how much of a page is read.
const maxBodyBytes = 5 << 20

// Store is what the fetcher needs from the database.
type Store interface {
	GetStoriesNeedingText(ctx context.Context) ([]database.Story, error)
	UpdateStoryText(ctx context.Context, id int64, text string) error
	MarkStoryTextAttempted(ctx context.Context, id int64) error
}

// Result holds the results of a text fetch run.
type Result struct {
	Fetched int
	Failed  int
}

// TextFetcher fetches story text via HTTP + readability extraction.
type TextFetcher struct {
	db        Store
	client    *http.Client
	userAgent string
	log       *logger.Logger
}

// NewTextFetcher creates a new text fetcher.
func NewTextFetcher(db Store, timeout time.Duration, userAgent string, log *logger.Logger) *TextFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "storystats/1.0"
	}
	return &TextFetcher{
		db:        db,
		userAgent: userAgent,
		log:       log.Component("fetch"),
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingText fetches text for stories that have a source url but no
// text. After an HTTP error the remaining stories of that host are skipped.
func (f *TextFetcher) FetchMissingText(ctx context.Context) (*Result, error) {
	stories, err := f.db.GetStoriesNeedingText(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{}
	if len(stories) == 0 {
		f.log.Info("no stories need text")
		return result, nil
	}

	failedHosts := make(map[string]struct{})
	for _, s := range stories {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		source := *s.SourceURL
		host := ""
		if u, _ := url.Parse(source); u != nil {
			host = strings.ToLower(u.Host)
		}

		if _, failed := failedHosts[host]; failed {
			f.markAttempted(ctx, s.ID)
			result.Failed++
			continue
		}

		text, httpErr := f.fetchText(ctx, source)
		if httpErr != nil {
			f.markAttempted(ctx, s.ID)
			result.Failed++
			if host != "" {
				failedHosts[host] = struct{}{}
			}
			f.log.WithField("url", source).Warnf("%v, skipping remaining stories from %s", httpErr, host)
			continue
		}

		if text == "" {
			f.markAttempted(ctx, s.ID)
			result.Failed++
			f.log.WithField("url", source).Debug("no extractable text")
			continue
		}
		if err := f.db.UpdateStoryText(ctx, s.ID, text); err != nil {
			return result, err
		}
		result.Fetched++
	}

	f.log.Infof("text fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result, nil
}

func (f *TextFetcher) markAttempted(ctx context.Context, id int64) {
	if err := f.db.MarkStoryTextAttempted(ctx, id); err != nil {
		f.log.WithError(err).WithField("story_id", id).Warn("failed to mark fetch attempt")
	}
}

// fetchText returns the readable text of sourceURL. Only HTTP status
// failures are reported as errors; anything else yields empty text.
func (f *TextFetcher) fetchText(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(sourceURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}
	return database.TruncateText(strings.Join(strings.Fields(article.TextContent), " ")), nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
