package handler

import (
	"societyhub/internal/service"
	"societyhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// ExpenditureForm 支持 multipart（可带 file）或 JSON
type ExpenditureForm struct {
	Category    string `form:"category" json:"category" binding:"required"`
	Description string `form:"description" json:"description" binding:"required"`
	Amount      int64  `form:"amount" json:"amount" binding:"required,gt=0"`
	Date        string `form:"date" json:"date"`
}

type EarningForm struct {
	ExpenditureForm
	Name string `form:"name" json:"name" binding:"required"`
}

// LedgerUpdateForm 只修改传入的字段
type LedgerUpdateForm struct {
	Name        *string `form:"name" json:"name" binding:"omitempty,min=1"`
	Category    *string `form:"category" json:"category" binding:"omitempty,min=1"`
	Description *string `form:"description" json:"description" binding:"omitempty,min=1"`
	Amount      *int64  `form:"amount" json:"amount" binding:"omitempty,gt=0"`
	Date        *string `form:"date" json:"date"`
}

type SetTotalRequest struct {
	TotalAmount *int64 `json:"totalAmount" binding:"required,gte=0"`
}

func (h *Handler) bindLedgerEntry(c *gin.Context, form *ExpenditureForm, name string) (service.LedgerEntry, func(), bool) {
	date, err := parseDate(form.Date)
	if err != nil {
		respondError(c, err)
		return service.LedgerEntry{}, nil, false
	}
	file, closeFile, err := h.formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return service.LedgerEntry{}, nil, false
	}
	entry := service.LedgerEntry{
		Name:        name,
		Category:    form.Category,
		Description: form.Description,
		Amount:      form.Amount,
		File:        file,
	}
	if date != nil {
		entry.Date = *date
	}
	return entry, closeFile, true
}

func (h *Handler) bindLedgerUpdate(c *gin.Context) (service.LedgerUpdate, func(), bool) {
	var form LedgerUpdateForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return service.LedgerUpdate{}, nil, false
	}
	update := service.LedgerUpdate{
		Name:        form.Name,
		Category:    form.Category,
		Description: form.Description,
		Amount:      form.Amount,
	}
	if form.Date != nil {
		date, err := parseDate(*form.Date)
		if err != nil {
			respondError(c, err)
			return service.LedgerUpdate{}, nil, false
		}
		update.Date = date
	}
	file, closeFile, err := h.formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return service.LedgerUpdate{}, nil, false
	}
	update.File = file
	return update, closeFile, true
}

// ============================================================
// 支出
// ============================================================

// CreateExpenditure POST /api/v1/expenditures
func (h *Handler) CreateExpenditure(c *gin.Context) {
	var form ExpenditureForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}
	entry, closeFile, ok := h.bindLedgerEntry(c, &form, "")
	if !ok {
		return
	}
	defer closeFile()

	e, err := h.ledger.CreateExpenditure(c.Request.Context(), entry)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, e)
}

// UpdateExpenditure PUT /api/v1/expenditures/:id
func (h *Handler) UpdateExpenditure(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	update, closeFile, ok := h.bindLedgerUpdate(c)
	if !ok {
		return
	}
	defer closeFile()

	e, err := h.ledger.UpdateExpenditure(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, e)
}

// ListExpenditures 支持 month/year 筛选
// GET /api/v1/expenditures
func (h *Handler) ListExpenditures(c *gin.Context) {
	page, err := h.ledger.ListExpenditures(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Raw(c, page)
}

// GetExpenditure GET /api/v1/expenditures/:id
func (h *Handler) GetExpenditure(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	e, err := h.ledger.GetExpenditure(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, e)
}

// DownloadExpenditure GET /api/v1/expenditures/:id/download
func (h *Handler) DownloadExpenditure(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	file, err := h.ledger.OpenExpenditureFile(c.Request.Context(), id)
	serveFile(c, file, err)
}

// DeleteExpenditure DELETE /api/v1/expenditures/:id
func (h *Handler) DeleteExpenditure(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteExpenditure(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "支出记录已删除")
}

// ============================================================
// 收入
// ============================================================

// CreateEarning POST /api/v1/earnings
func (h *Handler) CreateEarning(c *gin.Context) {
	var form EarningForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}
	entry, closeFile, ok := h.bindLedgerEntry(c, &form.ExpenditureForm, form.Name)
	if !ok {
		return
	}
	defer closeFile()

	e, err := h.ledger.CreateEarning(c.Request.Context(), entry)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, e)
}

// UpdateEarning PUT /api/v1/earnings/:id
func (h *Handler) UpdateEarning(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	update, closeFile, ok := h.bindLedgerUpdate(c)
	if !ok {
		return
	}
	defer closeFile()

	e, err := h.ledger.UpdateEarning(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, e)
}

// ListEarnings GET /api/v1/earnings
func (h *Handler) ListEarnings(c *gin.Context) {
	page, err := h.ledger.ListEarnings(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Raw(c, page)
}

// GetEarning GET /api/v1/earnings/:id
func (h *Handler) GetEarning(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	e, err := h.ledger.GetEarning(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, e)
}

// DownloadEarning GET /api/v1/earnings/:id/download
func (h *Handler) DownloadEarning(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	file, err := h.ledger.OpenEarningFile(c.Request.Context(), id)
	serveFile(c, file, err)
}

// DeleteEarning DELETE /api/v1/earnings/:id
func (h *Handler) DeleteEarning(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteEarning(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "收入记录已删除")
}

// ============================================================
// 物业费总收款
// ============================================================

// GetTotal GET /api/v1/totals
func (h *Handler) GetTotal(c *gin.Context) {
	total, err := h.ledger.GetTotal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, total)
}

// SetTotal PUT /api/v1/totals
func (h *Handler) SetTotal(c *gin.Context) {
	var req SetTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	total, err := h.ledger.SetTotal(c.Request.Context(), *req.TotalAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, total)
}
