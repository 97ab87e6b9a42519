package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidName     = errors.New("invalid community name")
	ErrNameTaken       = errors.New("community name taken")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrNotAMember      = errors.New("not a member")
	ErrInFlight        = errors.New("action already in flight")
	ErrInvalidInput    = errors.New("invalid input")
)

// AppError 携带给用户看的提示，Unwrap 返回对应的哨兵错误
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewInvalidNameError(message string) *AppError {
	return &AppError{Code: "INVALID_NAME", Message: message, Err: ErrInvalidName}
}

func NewNameTakenError(name string) *AppError {
	return &AppError{Code: "NAME_TAKEN", Message: fmt.Sprintf("Sorry, h/%s is taken. Try another.", name), Err: ErrNameTaken}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: "INVALID_INPUT", Message: message, Err: ErrInvalidInput}
}

func NewNotFoundError(resource string, id any) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %v not found", resource, id), Err: ErrNotFound}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message, Err: ErrUnauthorized}
}
