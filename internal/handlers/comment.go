package handlers

import (
	"errors"
	"net/http"

	"elim/internal/middleware"
	"elim/internal/models"
	"elim/internal/realtime"
	"elim/internal/services"
	"elim/internal/thread"
	"elim/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommentHandler struct {
	comments *services.CommentService
	hub      *realtime.Hub
	logger   *zap.Logger
}

func NewCommentHandler(comments *services.CommentService, hub *realtime.Hub, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, hub: hub, logger: logger}
}

type createCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
}

// Me returns the signed-in profile.
func (h *CommentHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentProfile(c))
}

// List returns the post's comments as a thread.
func (h *CommentHandler) List(c *gin.Context) {
	roots, err := h.comments.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": roots})
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), middleware.CurrentProfileID(c), services.CreateInput{
		PostID:   c.Param("id"),
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		abortJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	deleted, err := h.comments.Delete(c.Request.Context(), middleware.CurrentProfileID(c), c.Param("id"))
	if err != nil {
		abortJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Live streams change events of one post over a websocket.
func (h *CommentHandler) Live(c *gin.Context) {
	if err := h.hub.Serve(c.Writer, c.Request, c.Param("id")); err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
	}
}

// Page renders the post with its comment thread.
func (h *CommentHandler) Page(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.comments.Post(ctx, c.Param("id"))
	if err != nil {
		abortPage(c, err)
		return
	}

	roots, err := h.comments.Thread(ctx, post.ID)
	if err != nil {
		abortPage(c, err)
		return
	}

	content := utils.RenderMarkdown(post.Content)
	Render(c, http.StatusOK, "post/detail.html", gin.H{
		"Title":        post.Title,
		"Description":  utils.Excerpt(string(content), 150),
		"Post":         post,
		"PostContent":  content,
		"Comments":     roots,
		"CommentCount": thread.Count(roots),
		"ViewerID":     middleware.CurrentProfileID(c),
		"ReplyTo":      c.Query("reply"),
	})
}

// CreateForm handles the comment and reply forms of the thread page.
func (h *CommentHandler) CreateForm(c *gin.Context) {
	postID := c.Param("id")
	var parentID *string
	if v := c.PostForm("parent_id"); v != "" {
		parentID = &v
	}

	comment, err := h.comments.Create(c.Request.Context(), middleware.CurrentProfileID(c), services.CreateInput{
		PostID:   postID,
		ParentID: parentID,
		Content:  c.PostForm("content"),
	})
	if errors.Is(err, models.ErrEmptyContent) {
		c.Redirect(http.StatusFound, "/p/"+postID)
		return
	}
	if err != nil {
		abortPage(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/p/"+postID+"#comment-"+comment.ID)
}

// DeleteHTMX removes a comment from the thread page. Deleting a comment the
// viewer does not own changes nothing and still refreshes the page.
func (h *CommentHandler) DeleteHTMX(c *gin.Context) {
	if _, err := h.comments.Delete(c.Request.Context(), middleware.CurrentProfileID(c), c.Param("id")); err != nil {
		code, _ := errorStatus(err)
		if code >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.Status(code)
		return
	}
	HtmxRefresh(c)
}
