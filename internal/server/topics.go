package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/storystats/internal/database"
)

type categoryJSON struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"category_image"`
}

type categoryInput struct {
	Name  *string `json:"name"`
	Image *string `json:"category_image"`
}

func (in categoryInput) apply(cat *database.Category) {
	if in.Name != nil {
		cat.Name = *in.Name
	}
	if in.Image != nil {
		cat.Image = nullable(in.Image)
	}
}

func toCategoryJSON(cat database.Category) categoryJSON {
	return categoryJSON{ID: cat.ID, Name: cat.Name, Image: cat.Image}
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.db.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]categoryJSON, 0, len(cats))
	for _, cat := range cats {
		out = append(out, toCategoryJSON(cat))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createCategory(c *gin.Context) {
	var in categoryInput
	if !bindBody(c, &in) {
		return
	}
	var cat database.Category
	in.apply(&cat)

	id, err := s.db.InsertCategory(c.Request.Context(), cat)
	if err != nil {
		respondError(c, err)
		return
	}
	cat.ID = id
	c.JSON(http.StatusCreated, toCategoryJSON(cat))
}

func (s *Server) getCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cat, err := s.db.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryJSON(*cat))
}

func (s *Server) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cat, err := s.db.GetCategory(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var in categoryInput
	if !bindBody(c, &in) {
		return
	}
	in.apply(cat)
	if err := s.db.UpdateCategory(ctx, *cat); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryJSON(*cat))
}

func (s *Server) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.db.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type subTopicJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type subTopicInput struct {
	Name *string `json:"name"`
}

func (s *Server) listSubTopics(c *gin.Context) {
	subs, err := s.db.ListSubTopics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]subTopicJSON, 0, len(subs))
	for _, st := range subs {
		out = append(out, subTopicJSON(st))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createSubTopic(c *gin.Context) {
	var in subTopicInput
	if !bindBody(c, &in) {
		return
	}
	var name string
	if in.Name != nil {
		name = *in.Name
	}
	id, err := s.db.InsertSubTopic(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subTopicJSON{ID: id, Name: name})
}

func (s *Server) getSubTopic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	st, err := s.db.GetSubTopic(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subTopicJSON(*st))
}

func (s *Server) updateSubTopic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	st, err := s.db.GetSubTopic(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var in subTopicInput
	if !bindBody(c, &in) {
		return
	}
	if in.Name != nil {
		st.Name = *in.Name
	}
	if err := s.db.UpdateSubTopic(ctx, *st); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subTopicJSON(*st))
}

func (s *Server) deleteSubTopic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.db.DeleteSubTopic(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type topicJSON struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Icon       string         `json:"icon"`
	SubTopics  []subTopicJSON `json:"sub_topics"`
	UsageCount int            `json:"usage_count"`
	StoryCount int            `json:"story_count"`
}

type topicInput struct {
	Name        *string `json:"name"`
	Icon        *string `json:"icon"`
	SubTopicIDs []int64 `json:"sub_topic_ids"`
}

func toTopicJSON(t database.Topic) topicJSON {
	out := topicJSON{
		ID:         t.ID,
		Name:       t.Name,
		Icon:       t.Icon,
		SubTopics:  make([]subTopicJSON, 0, len(t.SubTopics)),
		UsageCount: t.UsageCount,
		StoryCount: t.StoryCount,
	}
	for _, st := range t.SubTopics {
		out.SubTopics = append(out.SubTopics, subTopicJSON(st))
	}
	return out
}

func (s *Server) listTopics(c *gin.Context) {
	topics, err := s.db.ListTopics(c.Request.Context(), s.sinceParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]topicJSON, 0, len(topics))
	for _, t := range topics {
		out = append(out, toTopicJSON(t))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createTopic(c *gin.Context) {
	var in topicInput
	if !bindBody(c, &in) {
		return
	}
	var t database.Topic
	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Icon != nil {
		t.Icon = *in.Icon
	}

	ctx := c.Request.Context()
	id, err := s.db.InsertTopic(ctx, t, in.SubTopicIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	created, err := s.db.GetTopic(ctx, id, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTopicJSON(*created))
}

func (s *Server) getTopic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := s.db.GetTopic(c.Request.Context(), id, s.sinceParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTopicJSON(*t))
}

// updateTopic replaces the linked sub-topics only when sub_topic_ids is
// present in the body.
func (s *Server) updateTopic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	t, err := s.db.GetTopic(ctx, id, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	var in topicInput
	if !bindBody(c, &in) {
		return
	}
	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Icon != nil {
		t.Icon = *in.Icon
	}
	if err := s.db.UpdateTopic(ctx, *t, in.SubTopicIDs); err != nil {
		respondError(c, err)
		return
	}
	updated, err := s.db.GetTopic(ctx, id, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTopicJSON(*updated))
}

func (s *Server) deleteTopic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.db.DeleteTopic(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
