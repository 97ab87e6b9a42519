package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"Med_Community/internal/middleware"
	"Med_Community/internal/model"
	"Med_Community/internal/repository/mysql"
	"Med_Community/internal/service"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 5 << 20

// writeError 把领域错误映射为 HTTP 状态码，未知错误不暴露细节
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, model.ErrUnauthenticated),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInvalidPassword):
		status, code = http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, model.ErrUnauthorized):
		status, code = http.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, model.ErrInvalidName):
		status, code = http.StatusBadRequest, "INVALID_NAME"
	case errors.Is(err, model.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, model.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, model.ErrNameTaken):
		status, code = http.StatusConflict, "NAME_TAKEN"
	case errors.Is(err, model.ErrNotAMember):
		status, code = http.StatusConflict, "NOT_A_MEMBER"
	case errors.Is(err, model.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, mysql.ErrUserExists):
		status, code = http.StatusConflict, "USER_EXISTS"
	case errors.Is(err, model.ErrInFlight):
		status, code = http.StatusTooManyRequests, "IN_FLIGHT"
	case errors.Is(err, service.ErrMailDisabled):
		status, code = http.StatusServiceUnavailable, "MAIL_DISABLED"
	}

	msg := err.Error()
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	} else if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"code": code, "msg": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_INPUT", "msg": msg})
}

func identity(c *gin.Context) *model.Identity {
	return middleware.IdentityFrom(c)
}

// readUpload 读取可选的上传文件，没有文件时返回 nil
func readUpload(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", model.NewValidationError("invalid upload")
	}
	if fh.Size > maxUploadSize {
		return nil, "", model.NewValidationError("image must be at most 5MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Header.Get("Content-Type"), nil
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
