package handler

import (
	"net/http"

	"Med_Community/internal/model"
	"Med_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type ArticleHandler struct {
	svc *service.ArticleService
}

type ShareArticleReq struct {
	CommunityID string        `json:"communityId" binding:"required"`
	Article     model.Article `json:"article"`
	Comment     string        `json:"comment"`
}

func NewArticleHandler(svc *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{svc: svc}
}

func (h *ArticleHandler) ToggleLike(c *gin.Context) {
	liked, n, err := h.svc.ToggleLike(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": n})
}

func (h *ArticleHandler) Save(c *gin.Context) {
	var a model.Article
	if err := c.ShouldBindJSON(&a); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.svc.Save(c.Request.Context(), identity(c), a); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *ArticleHandler) Unsave(c *gin.Context) {
	if err := h.svc.Unsave(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *ArticleHandler) ListSaved(c *gin.Context) {
	list, err := h.svc.ListSaved(c.Request.Context(), identity(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Share 以帖子形式分享到社区
func (h *ArticleHandler) Share(c *gin.Context) {
	var req ShareArticleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	post, err := h.svc.Share(c.Request.Context(), identity(c), req.CommunityID, req.Article, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}
