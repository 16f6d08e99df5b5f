package handler

import (
	"societyhub/internal/service"
	"societyhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type ContentForm struct {
	Name        string `form:"name" json:"name" binding:"required"`
	Description string `form:"description" json:"description" binding:"required"`
}

func (h *Handler) bindContent(c *gin.Context) (service.ContentInput, func(), bool) {
	var form ContentForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return service.ContentInput{}, nil, false
	}
	file, closeFile, err := h.formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return service.ContentInput{}, nil, false
	}
	return service.ContentInput{Name: form.Name, Description: form.Description, File: file}, closeFile, true
}

// CreateAnnouncement 发布公告，邮件通知所有住户
// POST /api/v1/announcements
func (h *Handler) CreateAnnouncement(c *gin.Context) {
	in, closeFile, ok := h.bindContent(c)
	if !ok {
		return
	}
	defer closeFile()

	a, err := h.content.CreateAnnouncement(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, a)
}

// ListAnnouncements 未过期的公告
// GET /api/v1/announcements
func (h *Handler) ListAnnouncements(c *gin.Context) {
	page, err := h.content.ListAnnouncements(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Raw(c, page)
}

// DownloadAnnouncement GET /api/v1/announcements/:id/download
func (h *Handler) DownloadAnnouncement(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	file, err := h.content.OpenAnnouncementFile(c.Request.Context(), id)
	serveFile(c, file, err)
}

// DeleteAnnouncement DELETE /api/v1/announcements/:id
func (h *Handler) DeleteAnnouncement(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.content.DeleteAnnouncement(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "公告已删除")
}

// UploadDocument POST /api/v1/documents
func (h *Handler) UploadDocument(c *gin.Context) {
	in, closeFile, ok := h.bindContent(c)
	if !ok {
		return
	}
	defer closeFile()

	d, err := h.content.UploadDocument(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, d)
}

// ListDocuments GET /api/v1/documents
func (h *Handler) ListDocuments(c *gin.Context) {
	page, err := h.content.ListDocuments(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Raw(c, page)
}

// GetDocument GET /api/v1/documents/:id
func (h *Handler) GetDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	d, err := h.content.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, d)
}

// DownloadDocument GET /api/v1/documents/:id/download
func (h *Handler) DownloadDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	file, err := h.content.OpenDocumentFile(c.Request.Context(), id)
	serveFile(c, file, err)
}

// DeleteDocument DELETE /api/v1/documents/:id
func (h *Handler) DeleteDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.content.DeleteDocument(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.Message(c, "文档已删除")
}

// RunAccrual 手动触发物业费累加，本月已执行时直接返回跳过
// POST /api/v1/admin/jobs/accrual
func (h *Handler) RunAccrual(c *gin.Context) {
	result, err := h.accrual.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}
