package handler

import (
	"net/http"
	"strconv"

	"Med_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc      *service.PostService
	votes    *service.VoteService
	comments *service.CommentService
}

// CreatePostReq 支持 JSON 或 multipart（带图片）
type CreatePostReq struct {
	CommunityID string `json:"communityId" form:"communityId" binding:"required"`
	Title       string `json:"title" form:"title" binding:"required"`
	Body        string `json:"body" form:"body"`
}

type VoteReq struct {
	Value       int8   `json:"value" binding:"required"`
	CommunityID string `json:"communityId"`
}

func NewPostHandler(svc *service.PostService, votes *service.VoteService, comments *service.CommentService) *PostHandler {
	return &PostHandler{svc: svc, votes: votes, comments: comments}
}

// CreatePost 创建帖子接口
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostReq
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	data, contentType, err := readUpload(c, "image")
	if err != nil {
		writeError(c, err)
		return
	}
	post, err := h.svc.CreatePost(c.Request.Context(), identity(c), service.CreatePostInput{
		CommunityID: req.CommunityID,
		Title:       req.Title,
		Body:        req.Body,
		Image:       data,
		ImageType:   contentType,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.svc.GetPost(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListByCommunity 游标分页，last_created_at 为微秒时间戳
func (h *PostHandler) ListByCommunity(c *gin.Context) {
	var lastTS int64
	if s := c.Query("last_created_at"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			badRequest(c, "invalid last_created_at")
			return
		}
		lastTS = v
	}
	page, err := h.svc.ListCommunityPosts(c.Request.Context(), identity(c), c.Param("id"), c.Query("last_id"), lastTS, queryInt(c, "size"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// DeletePost 删除帖子接口
func (h *PostHandler) DeletePost(c *gin.Context) {
	if err := h.svc.DeletePost(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}

// Vote 切换式投票
func (h *PostHandler) Vote(c *gin.Context) {
	var req VoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	out, err := h.votes.CastVote(c.Request.Context(), identity(c), c.Param("id"), req.CommunityID, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *PostHandler) VoteStatus(c *gin.Context) {
	v, err := h.svc.VoteStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"postId": c.Param("id"), "voteStatus": v})
}

func (h *PostHandler) CreateComment(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	comment, err := h.comments.CreateComment(c.Request.Context(), identity(c), c.Param("id"), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *PostHandler) ListComments(c *gin.Context) {
	list, err := h.comments.ListComments(c.Request.Context(), c.Param("id"), queryInt(c, "size"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	if err := h.comments.DeleteComment(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}
