package handler

import (
	"net/http"

	"Med_Community/internal/model"
	"Med_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	svc        *service.CommunityService
	membership *service.MembershipService
	votes      *service.VoteService
}

type CommunityCreateReq struct {
	Name string            `json:"name" binding:"required"`
	Type model.PrivacyType `json:"type"`
}

type CommunityRequestReq struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Type        model.PrivacyType `json:"type"`
}

func NewCommunityHandler(svc *service.CommunityService, membership *service.MembershipService, votes *service.VoteService) *CommunityHandler {
	return &CommunityHandler{svc: svc, membership: membership, votes: votes}
}

// Create 管理员直接建社区
func (h *CommunityHandler) Create(c *gin.Context) {
	var req CommunityCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	community, err := h.svc.CreateCommunity(c.Request.Context(), identity(c), req.Name, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, community)
}

// Request 普通用户提交建社区申请
func (h *CommunityHandler) Request(c *gin.Context) {
	var req CommunityRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	r, err := h.svc.RequestCommunity(c.Request.Context(), identity(c), req.Name, req.Description, req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, r)
}

func (h *CommunityHandler) Get(c *gin.Context) {
	community, err := h.svc.GetCommunity(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

// LeaveView 离开社区页面，清空会话里的当前社区
func (h *CommunityHandler) LeaveView(c *gin.Context) {
	if err := h.svc.LeaveCommunityView(identity(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *CommunityHandler) List(c *gin.Context) {
	list, err := h.svc.ListCommunities(c.Request.Context(), queryInt(c, "page"), queryInt(c, "size"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *CommunityHandler) Join(c *gin.Context) {
	out, err := h.membership.JoinCommunity(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	out, err := h.membership.LeaveCommunity(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Membership 客户端带上当前是否已加入；不带时按会话里的 snippet 判断
func (h *CommunityHandler) Membership(c *gin.Context) {
	var req struct {
		IsJoined *bool `json:"isJoined"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid params")
		return
	}

	var (
		out model.MembershipOutcome
		err error
	)
	if req.IsJoined != nil {
		out, err = h.membership.OnJoinOrLeaveCommunity(c.Request.Context(), identity(c), c.Param("id"), *req.IsJoined)
	} else {
		out, err = h.membership.ToggleMembership(c.Request.Context(), identity(c), c.Param("id"))
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// UploadImage 社区头像，multipart 字段 image
func (h *CommunityHandler) UploadImage(c *gin.Context) {
	data, contentType, err := readUpload(c, "image")
	if err != nil {
		writeError(c, err)
		return
	}
	url, err := h.svc.UpdateImage(c.Request.Context(), identity(c), c.Param("id"), contentType, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageURL": url})
}

// Votes 当前用户在该社区的投票
func (h *CommunityHandler) Votes(c *gin.Context) {
	list, err := h.votes.LoadCommunityVotes(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// ListRequests 管理员查看申请队列，默认 pending
func (h *CommunityHandler) ListRequests(c *gin.Context) {
	status := model.RequestStatus(c.DefaultQuery("status", string(model.RequestPending)))
	list, err := h.svc.ListRequests(c.Request.Context(), identity(c), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *CommunityHandler) ApproveRequest(c *gin.Context) {
	community, err := h.svc.ApproveRequest(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) RejectRequest(c *gin.Context) {
	req, err := h.svc.RejectRequest(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
