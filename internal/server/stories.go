package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/storystats/internal/calendar"
	"github.com/TobiSchelling/storystats/internal/database"
)

type storyJSON struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Media           string  `json:"story"`
	PageID          *int64  `json:"page"`
	PageName        *string `json:"page_name"`
	SourceURL       *string `json:"source_url"`
	Feeling         string  `json:"feeling"`
	FeelingDisplay  string  `json:"feeling_display"`
	Tone            string  `json:"tone"`
	ToneDisplay     string  `json:"tone_display"`
	Ironic          string  `json:"ironic"`
	IronicDisplay   string  `json:"ironic_display"`
	Description     *string `json:"description"`
	Text            *string `json:"story_text"`
	Type            string  `json:"story_type"`
	TypeDisplay     string  `json:"story_type_display"`
	CategoryID      *int64  `json:"category_id"`
	CreatedAt       string  `json:"created_at"`
	JalaliCreatedAt string  `json:"jalali_created_at"`
}

func toStoryJSON(st database.Story) storyJSON {
	return storyJSON{
		ID:              st.ID,
		Title:           st.Title,
		Media:           st.Media,
		PageID:          st.PageID,
		PageName:        st.PageUsername,
		SourceURL:       st.SourceURL,
		Feeling:         string(st.Feeling),
		FeelingDisplay:  st.Feeling.Label(),
		Tone:            string(st.Tone),
		ToneDisplay:     st.Tone.Label(),
		Ironic:          string(st.Ironic),
		IronicDisplay:   st.Ironic.Label(),
		Description:     st.Description,
		Text:            st.Text,
		Type:            string(st.Type),
		TypeDisplay:     st.Type.Label(),
		CategoryID:      st.CategoryID,
		CreatedAt:       formatTimestamp(st.CreatedAt),
		JalaliCreatedAt: calendar.DisplayDate(st.CreatedAt),
	}
}

// storyInput is a partial story. Choice fields accept the code or the
// display label.
type storyInput struct {
	Title       *string `json:"title"`
	Media       *string `json:"story"`
	PageID      *int64  `json:"page"`
	SourceURL   *string `json:"source_url"`
	Feeling     *string `json:"feeling"`
	Tone        *string `json:"tone"`
	Ironic      *string `json:"ironic"`
	Description *string `json:"description"`
	Text        *string `json:"story_text"`
	Type        *string `json:"story_type"`
	CategoryID  *int64  `json:"category_id"`
}

func (in storyInput) apply(st *database.Story) error {
	setString(&st.Title, in.Title)
	setString(&st.Media, in.Media)
	if in.PageID != nil {
		st.PageID = optionalRef(in.PageID)
	}
	if in.CategoryID != nil {
		st.CategoryID = optionalRef(in.CategoryID)
	}
	if in.SourceURL != nil {
		st.SourceURL = nullable(in.SourceURL)
	}
	if in.Description != nil {
		st.Description = nullable(in.Description)
	}
	if in.Text != nil {
		st.Text = nullable(in.Text)
	}

	if in.Feeling != nil {
		v, err := database.ParseFeeling(*in.Feeling)
		if err != nil {
			return err
		}
		st.Feeling = v
	}
	if in.Tone != nil {
		v, err := database.ParseTone(*in.Tone)
		if err != nil {
			return err
		}
		st.Tone = v
	}
	if in.Ironic != nil {
		v, err := database.ParseIronic(*in.Ironic)
		if err != nil {
			return err
		}
		st.Ironic = v
	}
	if in.Type != nil {
		v, err := database.ParseStoryType(*in.Type)
		if err != nil {
			return err
		}
		st.Type = v
	}
	return nil
}

func (s *Server) listStories(c *gin.Context) {
	f := database.StoryFilter{
		Search:  strings.TrimSpace(c.Query("search")),
		TopicID: digitParam(c, "topic_id"),
		PageID:  digitParam(c, "page_id"),
		Since:   s.sinceParam(c),
	}
	stories, err := s.db.ListStories(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]storyJSON, 0, len(stories))
	for _, st := range stories {
		out = append(out, toStoryJSON(st))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createStory(c *gin.Context) {
	var in storyInput
	if !bindBody(c, &in) {
		return
	}
	var st database.Story
	if err := in.apply(&st); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	id, err := s.db.InsertStory(ctx, st)
	if err != nil {
		respondError(c, err)
		return
	}
	if id == 0 {
		respondError(c, fmt.Errorf("%w: a story with this source_url already exists", database.ErrInvalid))
		return
	}
	created, err := s.db.GetStory(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStoryJSON(*created))
}

func (s *Server) getStory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	st, err := s.db.GetStory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStoryJSON(*st))
}

func (s *Server) updateStory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	st, err := s.db.GetStory(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var in storyInput
	if !bindBody(c, &in) {
		return
	}
	if err := in.apply(st); err != nil {
		respondError(c, err)
		return
	}
	if err := s.db.UpdateStory(ctx, *st); err != nil {
		respondError(c, err)
		return
	}
	updated, err := s.db.GetStory(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStoryJSON(*updated))
}

func (s *Server) deleteStory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.db.DeleteStory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
