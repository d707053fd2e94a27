package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/storystats/internal/database"
)

type pageJSON struct {
	ID                          int64   `json:"id"`
	Name                        string  `json:"page"`
	Username                    string  `json:"username"`
	Bio                         string  `json:"bio"`
	ProfileImage                *string `json:"profile_image"`
	TopicID                     *int64  `json:"topic_id"`
	SubTopicID                  *int64  `json:"sub_topic_id"`
	Gender                      *string `json:"gender"`
	GenderDisplay               string  `json:"gender_display"`
	PoliticalOrientation        *string `json:"political_orientation"`
	PoliticalOrientationDisplay string  `json:"political_orientation_display"`
	Orientation                 *string `json:"orientation"`
	OrientationDisplay          string  `json:"orientation_display"`
	Location                    *string `json:"location"`
	LocationDisplay             string  `json:"location_display"`
	FollowersCount              int64   `json:"followers_count"`
	FollowingCount              int64   `json:"following_count"`
	PostsCount                  int64   `json:"posts_count"`
	AverageLikes                int64   `json:"average_likes"`
	AverageComments             int64   `json:"average_comments"`
	IsVerified                  bool    `json:"is_verified"`
	IsActive                    bool    `json:"is_active"`
	CategoryID                  *int64  `json:"category_id"`
	CreatedAt                   string  `json:"created_at"`
	UsageCount                  int     `json:"usage_count"`
}

func toPageJSON(p database.Page) pageJSON {
	return pageJSON{
		ID:                          p.ID,
		Name:                        p.Name,
		Username:                    p.Username,
		Bio:                         p.Bio,
		ProfileImage:                p.ProfileImage,
		TopicID:                     p.TopicID,
		SubTopicID:                  p.SubTopicID,
		Gender:                      p.Gender,
		GenderDisplay:               database.ChoiceLabel(database.GenderChoices, p.Gender),
		PoliticalOrientation:        p.PoliticalOrientation,
		PoliticalOrientationDisplay: database.ChoiceLabel(database.PoliticalOrientationChoices, p.PoliticalOrientation),
		Orientation:                 p.Orientation,
		OrientationDisplay:          database.ChoiceLabel(database.OrientationChoices, p.Orientation),
		Location:                    p.Location,
		LocationDisplay:             database.ChoiceLabel(database.LocationChoices, p.Location),
		FollowersCount:              p.FollowersCount,
		FollowingCount:              p.FollowingCount,
		PostsCount:                  p.PostsCount,
		AverageLikes:                p.AverageLikes,
		AverageComments:             p.AverageComments,
		IsVerified:                  p.IsVerified,
		IsActive:                    p.IsActive,
		CategoryID:                  p.CategoryID,
		CreatedAt:                   formatTimestamp(p.CreatedAt),
		UsageCount:                  p.UsageCount,
	}
}

// pageInput is a partial page. Absent fields keep their current value.
type pageInput struct {
	Name                 *string `json:"page"`
	Username             *string `json:"username"`
	Bio                  *string `json:"bio"`
	ProfileImage         *string `json:"profile_image"`
	TopicID              *int64  `json:"topic_id"`
	SubTopicID           *int64  `json:"sub_topic_id"`
	Gender               *string `json:"gender"`
	PoliticalOrientation *string `json:"political_orientation"`
	Orientation          *string `json:"orientation"`
	Location             *string `json:"location"`
	FollowersCount       *int64  `json:"followers_count"`
	FollowingCount       *int64  `json:"following_count"`
	PostsCount           *int64  `json:"posts_count"`
	AverageLikes         *int64  `json:"average_likes"`
	AverageComments      *int64  `json:"average_comments"`
	IsVerified           *bool   `json:"is_verified"`
	IsActive             *bool   `json:"is_active"`
	CategoryID           *int64  `json:"category_id"`
}

func (in pageInput) apply(p *database.Page) error {
	setString(&p.Name, in.Name)
	setString(&p.Username, in.Username)
	setString(&p.Bio, in.Bio)
	if in.ProfileImage != nil {
		p.ProfileImage = nullable(in.ProfileImage)
	}
	if in.TopicID != nil {
		p.TopicID = optionalRef(in.TopicID)
	}
	if in.SubTopicID != nil {
		p.SubTopicID = optionalRef(in.SubTopicID)
	}
	if in.CategoryID != nil {
		p.CategoryID = optionalRef(in.CategoryID)
	}

	choices := []struct {
		dst     **string
		src     *string
		field   string
		choices []database.Choice
	}{
		{&p.Gender, in.Gender, "gender", database.GenderChoices},
		{&p.PoliticalOrientation, in.PoliticalOrientation, "political_orientation", database.PoliticalOrientationChoices},
		{&p.Orientation, in.Orientation, "orientation", database.OrientationChoices},
		{&p.Location, in.Location, "location", database.LocationChoices},
	}
	for _, ch := range choices {
		if ch.src == nil {
			continue
		}
		v, err := database.ParseOptionalChoice(ch.choices, ch.field, ch.src)
		if err != nil {
			return err
		}
		*ch.dst = v
	}

	setInt(&p.FollowersCount, in.FollowersCount)
	setInt(&p.FollowingCount, in.FollowingCount)
	setInt(&p.PostsCount, in.PostsCount)
	setInt(&p.AverageLikes, in.AverageLikes)
	setInt(&p.AverageComments, in.AverageComments)
	if in.IsVerified != nil {
		p.IsVerified = *in.IsVerified
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func (s *Server) listPages(c *gin.Context) {
	pages, err := s.db.ListPages(c.Request.Context(), database.PageFilter{
		TopicID:    digitParam(c, "topic_id"),
		CategoryID: digitParam(c, "category_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]pageJSON, 0, len(pages))
	for _, p := range pages {
		out = append(out, toPageJSON(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createPage(c *gin.Context) {
	var in pageInput
	if !bindBody(c, &in) {
		return
	}
	p := database.Page{IsActive: true}
	if err := in.apply(&p); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	id, err := s.db.InsertPage(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	created, err := s.db.GetPage(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPageJSON(*created))
}

func (s *Server) getPage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.db.GetPage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageJSON(*p))
}

func (s *Server) updatePage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := s.db.GetPage(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var in pageInput
	if !bindBody(c, &in) {
		return
	}
	if err := in.apply(p); err != nil {
		respondError(c, err)
		return
	}
	if err := s.db.UpdatePage(ctx, *p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageJSON(*p))
}

func (s *Server) deletePage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.db.DeletePage(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
