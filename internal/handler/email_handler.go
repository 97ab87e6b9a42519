package handler

import (
	"net/http"

	"Med_Community/internal/service"

	"github.com/gin-gonic/gin"
)

// EmailHandler 邮箱验证码：验证邮箱、找回密码
type EmailHandler struct {
	users *service.UserService
}

type SendResetCodeReq struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyEmailReq struct {
	Code string `json:"code" binding:"required,len=6"`
}

type ResetPasswordReq struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required"`
}

func NewEmailHandler(users *service.UserService) *EmailHandler {
	return &EmailHandler{users: users}
}

// SendVerifyCode 发到当前用户的注册邮箱
func (h *EmailHandler) SendVerifyCode(c *gin.Context) {
	id := identity(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "unauthorized"})
		return
	}
	if err := h.users.SendVerification(c.Request.Context(), id.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Send code successfully"})
}

// VerifyEmail 成功后返回换发的 token
func (h *EmailHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	id := identity(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "unauthorized"})
		return
	}
	token, err := h.users.VerifyEmail(c.Request.Context(), id.UserID, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Verify successfully", "AccessToken": token.AccessToken, "RefreshToken": token.RefreshToken})
}

func (h *EmailHandler) SendResetCode(c *gin.Context) {
	var req SendResetCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.users.SendResetCode(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Send code successfully"})
}

func (h *EmailHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "reset password successfully"})
}
