package handler

import (
	"log"
	"net/http"

	"societyhub/internal/service"
	"societyhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type UpdateProfileRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1"`
	Email        *string `json:"email" binding:"omitempty,email"`
	MobileNumber *string `json:"mobileNumber" binding:"omitempty,mobile"`
	HouseNumber  *string `json:"houseNumber" binding:"omitempty,min=1"`
	HouseType    *int    `json:"houseType" binding:"omitempty,housetype"`
}

type AdminUpdateAccountRequest struct {
	UpdateProfileRequest
	Dues    *int64  `json:"dues"`
	Status  *string `json:"status" binding:"omitempty,oneof=active inactive"`
	IsAdmin *bool   `json:"isAdmin"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

func (r UpdateProfileRequest) toUpdate() service.AccountUpdate {
	return service.AccountUpdate{
		Name:         r.Name,
		Email:        r.Email,
		MobileNumber: r.MobileNumber,
		HouseNumber:  r.HouseNumber,
		HouseType:    r.HouseType,
	}
}

// GetProfile 当前住户资料（含缴费记录）
// GET /api/v1/accounts/me
func (h *Handler) GetProfile(c *gin.Context) {
	account, err := h.accounts.GetDetail(c.Request.Context(), principal(c).AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, account)
}

// UpdateProfile PUT /api/v1/accounts/me
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	account, err := h.accounts.UpdateProfile(c.Request.Context(), principal(c).AccountID, req.toUpdate())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, account)
}

// ListAccounts GET /api/v1/accounts
func (h *Handler) ListAccounts(c *gin.Context) {
	page, err := h.accounts.List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Raw(c, page)
}

// ExportAccounts 按筛选条件导出 CSV
// GET /api/v1/accounts/export
func (h *Handler) ExportAccounts(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="accounts.csv"`)
	c.Status(http.StatusOK)

	if err := h.accounts.ExportCSV(c.Request.Context(), listParams(c), c.Writer); err != nil {
		// 响应头已发出，只能记录日志
		log.Printf("[HTTP] 导出账户失败: %v", err)
	}
}

// GetAccount GET /api/v1/accounts/:id
func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account, err := h.accounts.GetDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, account)
}

// UpdateAccount PUT /api/v1/accounts/:id
func (h *Handler) UpdateAccount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AdminUpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	update := req.toUpdate()
	update.Dues = req.Dues
	update.Status = req.Status
	update.IsAdmin = req.IsAdmin

	account, err := h.accounts.AdminUpdate(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, account)
}

// SetAccountStatus PUT /api/v1/accounts/:id/status
func (h *Handler) SetAccountStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	account, err := h.accounts.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, account)
}

// DeleteAccount 删除账户及其缴费记录
// DELETE /api/v1/accounts/:id
func (h *Handler) DeleteAccount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "账户已删除")
}
