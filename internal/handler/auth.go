package handler

import (
	"societyhub/internal/service"
	"societyhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	HouseNumber  string `json:"houseNumber" binding:"required"`
	HouseType    int    `json:"houseType" binding:"required,housetype"`
	MobileNumber string `json:"mobileNumber" binding:"required,mobile"`
	AccessCode   string `json:"accessCode" binding:"required,len=4"`
}

// Register 住户注册
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		HouseNumber:  req.HouseNumber,
		HouseType:    req.HouseType,
		MobileNumber: req.MobileNumber,
		AccessCode:   req.AccessCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// Logout POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "已退出登录")
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword POST /api/v1/auth/forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "重置邮件已发送")
}

type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// ResetPassword POST /api/v1/auth/reset/:token
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "密码已重置，请重新登录")
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// ChangePassword POST /api/v1/accounts/me/password
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), principal(c).AccountID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "密码已修改")
}
