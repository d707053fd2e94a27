package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/storystats/internal/calendar"
	"github.com/TobiSchelling/storystats/internal/compose"
	"github.com/TobiSchelling/storystats/internal/database"
)

const dateLayout = "2006-01-02"

type dayAnalysisJSON struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	TextHTML   string `json:"text_html"`
	Date       string `json:"date"`
	JalaliDate string `json:"jalali_date"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toDayAnalysisJSON(a database.DayAnalysis) (dayAnalysisJSON, error) {
	html, err := compose.RenderHTML(a.Text)
	if err != nil {
		return dayAnalysisJSON{}, err
	}
	return dayAnalysisJSON{
		ID:         a.ID,
		Text:       a.Text,
		TextHTML:   html,
		Date:       a.Date.Format(dateLayout),
		JalaliDate: calendar.DisplayDate(a.Date),
		CreatedAt:  formatTimestamp(a.CreatedAt),
		UpdatedAt:  formatTimestamp(a.UpdatedAt),
	}, nil
}

type dayAnalysisInput struct {
	Text *string `json:"text"`
	Date *string `json:"date"`
}

func (in dayAnalysisInput) apply(a *database.DayAnalysis) error {
	setString(&a.Text, in.Text)
	if in.Date != nil {
		d, err := time.ParseInLocation(dateLayout, *in.Date, time.UTC)
		if err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", database.ErrInvalid)
		}
		a.Date = d
	}
	return nil
}

func respondDayAnalysis(c *gin.Context, status int, a database.DayAnalysis) {
	out, err := toDayAnalysisJSON(a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, out)
}

func (s *Server) listDayAnalyses(c *gin.Context) {
	items, err := s.db.ListDayAnalyses(c.Request.Context(), s.sinceParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dayAnalysisJSON, 0, len(items))
	for _, a := range items {
		j, err := toDayAnalysisJSON(a)
		if err != nil {
			respondError(c, err)
			return
		}
		out = append(out, j)
	}
	c.JSON(http.StatusOK, out)
}

// createDayAnalysis defaults date to today in UTC.
func (s *Server) createDayAnalysis(c *gin.Context) {
	var in dayAnalysisInput
	if !bindBody(c, &in) {
		return
	}
	now := s.now().UTC()
	a := database.DayAnalysis{Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
	if err := in.apply(&a); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	id, err := s.db.InsertDayAnalysis(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	created, err := s.db.GetDayAnalysis(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondDayAnalysis(c, http.StatusCreated, *created)
}

func (s *Server) getDayAnalysis(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := s.db.GetDayAnalysis(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondDayAnalysis(c, http.StatusOK, *a)
}

func (s *Server) updateDayAnalysis(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	a, err := s.db.GetDayAnalysis(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var in dayAnalysisInput
	if !bindBody(c, &in) {
		return
	}
	if err := in.apply(a); err != nil {
		respondError(c, err)
		return
	}
	if err := s.db.UpdateDayAnalysis(ctx, *a); err != nil {
		respondError(c, err)
		return
	}
	updated, err := s.db.GetDayAnalysis(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondDayAnalysis(c, http.StatusOK, *updated)
}

func (s *Server) deleteDayAnalysis(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.db.DeleteDayAnalysis(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
