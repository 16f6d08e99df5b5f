package handler

import (
	"societyhub/internal/service"
	"societyhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// SubmitPaymentForm multipart 表单，凭证文件字段为 file
type SubmitPaymentForm struct {
	Amount            int64  `form:"amount" json:"amount" binding:"required,gt=0"`
	Category          string `form:"category" json:"category" binding:"required,paymentcategory"`
	OtherCategoryType string `form:"otherCategoryType" json:"otherCategoryType" binding:"required_if=Category other"`
	Description       string `form:"description" json:"description"`
}

// SubmitPayment 住户提交缴费
// POST /api/v1/payments
func (h *Handler) SubmitPayment(c *gin.Context) {
	var form SubmitPaymentForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}
	file, closeFile, err := h.formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFile()

	payment, err := h.payments.Submit(c.Request.Context(), principal(c).AccountID, service.SubmitPaymentInput{
		Amount:            form.Amount,
		Category:          form.Category,
		OtherCategoryType: form.OtherCategoryType,
		Description:       form.Description,
		File:              file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, payment)
}

// ListOwnPayments GET /api/v1/accounts/me/payments
func (h *Handler) ListOwnPayments(c *gin.Context) {
	page, err := h.payments.ListOwn(c.Request.Context(), principal(c).AccountID, listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Raw(c, page)
}

// ListPayments GET /api/v1/payments
func (h *Handler) ListPayments(c *gin.Context) {
	page, err := h.payments.List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Raw(c, page)
}

// ListPendingPayments GET /api/v1/payments/pending
func (h *Handler) ListPendingPayments(c *gin.Context) {
	page, err := h.payments.ListPending(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Raw(c, page)
}

// GetPayment 本人或管理员
// GET /api/v1/payments/:id
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, payment)
}

// DownloadPayment GET /api/v1/payments/:id/download
func (h *Handler) DownloadPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	file, err := h.payments.OpenFile(c.Request.Context(), principal(c), id)
	serveFile(c, file, err)
}

// ApprovePayment PUT /api/v1/payments/:id/approve
func (h *Handler) ApprovePayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, payment)
}

// RejectPayment PUT /api/v1/payments/:id/reject
func (h *Handler) RejectPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Reject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, payment)
}

// DeletePayment DELETE /api/v1/payments/:id
func (h *Handler) DeletePayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.payments.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "缴费记录已删除")
}
